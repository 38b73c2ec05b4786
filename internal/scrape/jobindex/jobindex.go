// Package jobindex fetches postings from the Jobindex search API, paging
// date-sorted results.
package jobindex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscout/internal/domain"
	"jobscout/internal/scrape/types"
	"jobscout/internal/scrape/util"
)

const (
	searchURL = "https://www.jobindex.dk/api/jobsearch/v3/"
	maxPages  = 100 // backstop against a board that never stops repeating results
)

type Scraper struct {
	client *util.Client
}

func New(client *util.Client) *Scraper { return &Scraper{client: client} }

func (s *Scraper) Name() string { return string(domain.BoardJobindex) }

type searchResponse struct {
	Results []result `json:"results"`
}

type result struct {
	TID       json.Number `json:"tid"`
	URL       string      `json:"url"`
	Headline  string      `json:"headline"`
	Company   struct {
		Name string `json:"name"`
	} `json:"company"`
	Addresses []struct {
		City string `json:"city"`
	} `json:"addresses"`
	FirstDate string `json:"firstdate"`
	IsLocal   bool   `json:"is_local"`
	HTML      string `json:"html"`
}

// Fetch pages through date-sorted search results, hydrating local ads with
// the full ad body, until the collector refuses more or a page comes back
// empty.
func (s *Scraper) Fetch(ctx context.Context, q types.Query, col *types.Collector) (types.Result, error) {
	res := types.Result{Board: domain.BoardJobindex}

	for page := 1; page <= maxPages && !col.Done(); page++ {
		results, err := s.searchPage(ctx, q, page)
		if err != nil {
			if page == 1 {
				return res, fmt.Errorf("jobindex search: %w", err)
			}
			break // keep what earlier pages yielded
		}
		if len(results) == 0 {
			break
		}

		for _, r := range results {
			p, ok := s.normalize(ctx, r)
			if !ok {
				res.ParseFailures++
				continue
			}
			if !col.Add(p) {
				break
			}
		}
	}

	res.Postings = col.Postings()
	res.Stopped = col.StopReason()
	return res, nil
}

func (s *Scraper) searchPage(ctx context.Context, q types.Query, page int) ([]result, error) {
	address := fmt.Sprintf("%s, %s %s ", q.Street, q.Postal, q.City)
	u := searchURL + "?" + url.Values{
		"address":            {address},
		"q":                  {strings.ToLower(q.Title)},
		"radius":             {strconv.Itoa(q.KmDist)},
		"sort":               {"date"},
		"page":               {strconv.Itoa(page)},
		"include_html":       {"1"},
		"include_skyscraper": {"1"},
	}.Encode()

	resp, err := s.client.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 20<<20)).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, err)
	}
	return sr.Results, nil
}

func (s *Scraper) normalize(ctx context.Context, r result) (domain.Posting, bool) {
	if r.Headline == "" || r.Company.Name == "" {
		return domain.Posting{}, false
	}

	p := domain.Posting{
		Company: util.CleanText(r.Company.Name),
		Title:   util.CleanText(r.Headline),
		URL:     r.URL,
		Board:   domain.BoardJobindex,
	}
	if len(r.Addresses) > 0 {
		p.Location = util.CleanText(r.Addresses[0].City)
	}
	if t, ok := parseDate(r.FirstDate); ok {
		p.TimePosted = &t
	}

	if r.IsLocal {
		p.Description = util.HTMLToText(r.HTML)
		if body := s.fetchAdBody(ctx, r); body != "" {
			p.Description = body
		}
	}
	return p, true
}

// fetchAdBody pulls the full ad page for locally hosted ads; the search
// snippet stays as fallback when this fails.
func (s *Scraper) fetchAdBody(ctx context.Context, r result) string {
	slug := strings.ReplaceAll(strings.ToLower(r.Headline), " ", "-")
	adURL := fmt.Sprintf("https://www.jobindex.dk/jobannonce/%s/%s", r.TID.String(), slug)

	resp, err := s.client.Get(ctx, adURL)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}
	section := doc.Find("section.jobtext-jobad__body").First()
	if section.Length() == 0 {
		return ""
	}
	html, err := goquery.OuterHtml(section)
	if err != nil {
		return ""
	}
	return util.HTMLToText(html)
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC().Truncate(24 * time.Hour), true
		}
	}
	return time.Time{}, false
}
