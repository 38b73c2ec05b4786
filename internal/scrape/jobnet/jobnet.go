// Package jobnet fetches postings from the Jobnet search API, newest first.
package jobnet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"jobscout/internal/domain"
	"jobscout/internal/scrape/types"
	"jobscout/internal/scrape/util"
)

const searchURL = "https://jobnet.dk/bff/FindJob/Search"

type Scraper struct {
	client *util.Client
}

func New(client *util.Client) *Scraper { return &Scraper{client: client} }

func (s *Scraper) Name() string { return string(domain.BoardJobnet) }

type searchResponse struct {
	JobAds []jobAd `json:"jobAds"`
}

type jobAd struct {
	JobAdID          json.Number `json:"jobAdId"`
	JobAdURL         string      `json:"jobAdUrl"`
	Title            string      `json:"title"`
	HiringOrgName    string      `json:"hiringOrgName"`
	PostalDistrict   string      `json:"postalDistrictName"`
	PublicationDate  string      `json:"publicationDate"`
	WorkHourPartTime bool        `json:"workHourPartTime"`
	Description      string      `json:"description"`
}

// Fetch runs one search sorted by publication date and feeds every ad
// through the collector until it refuses more.
func (s *Scraper) Fetch(ctx context.Context, q types.Query, col *types.Collector) (types.Result, error) {
	res := types.Result{Board: domain.BoardJobnet}

	u := searchURL + "?" + url.Values{
		"resultsPerPage": {strconv.Itoa(q.Target)},
		"pageNumber":     {"1"},
		"orderType":      {"PublicationDate"},
		"kmRadius":       {strconv.Itoa(q.KmDist)},
		"searchString":   {q.Title},
		"postalCode":     {q.Postal},
	}.Encode()

	resp, err := s.client.Get(ctx, u)
	if err != nil {
		return res, fmt.Errorf("jobnet search: %w", err)
	}
	defer resp.Body.Close()

	var sr searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 20<<20)).Decode(&sr); err != nil {
		return res, fmt.Errorf("jobnet decode: %w", err)
	}

	for _, ad := range sr.JobAds {
		p, ok := normalize(ad)
		if !ok {
			res.ParseFailures++
			continue
		}
		if !col.Add(p) {
			break
		}
	}

	res.Postings = col.Postings()
	res.Stopped = col.StopReason()
	return res, nil
}

// normalize converts one raw ad to the canonical schema. It never sets a
// decision.
func normalize(ad jobAd) (domain.Posting, bool) {
	if ad.Title == "" || ad.HiringOrgName == "" {
		return domain.Posting{}, false
	}

	adURL := ad.JobAdURL
	if adURL == "" {
		adURL = "https://jobnet.dk/find-job/" + ad.JobAdID.String()
	}

	fullOrPart := "Full-time"
	if ad.WorkHourPartTime {
		fullOrPart = "Part-time"
	}

	p := domain.Posting{
		Company:        util.CleanText(ad.HiringOrgName),
		Title:          util.CleanText(ad.Title),
		URL:            adURL,
		Location:       util.CleanText(ad.PostalDistrict),
		Description:    util.HTMLToText(ad.Description),
		Board:          domain.BoardJobnet,
		FullOrPartTime: fullOrPart,
	}
	if t, ok := parseDate(ad.PublicationDate); ok {
		p.TimePosted = &t
	}
	return p, true
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC().Truncate(24 * time.Hour), true
		}
	}
	return time.Time{}, false
}
