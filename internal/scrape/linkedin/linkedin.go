// Package linkedin fetches postings through the LinkedIn guest API: list
// pages expose job ids newest-first, a detail page per id carries the actual
// posting.
package linkedin

import (
	"context"
	"fmt"
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
	listURL    = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	postingURL = "https://www.linkedin.com/jobs-guest/jobs/api/jobPosting/"

	maxListPages = 40 // backstop when the board keeps serving known ids
)

type Scraper struct {
	client      *util.Client
	existingIDs map[string]bool
	now         func() time.Time
}

// New builds the adapter. existingIDs are LinkedIn job ids already present in
// the dataset; list pages only expose ids, so this is how the known-state
// termination rule applies before the detail fetch.
func New(client *util.Client, existingIDs map[string]bool) *Scraper {
	if existingIDs == nil {
		existingIDs = map[string]bool{}
	}
	return &Scraper{client: client, existingIDs: existingIDs, now: time.Now}
}

func (s *Scraper) Name() string { return string(domain.BoardLinkedIn) }

// KnownIDs extracts LinkedIn job ids from persisted posting URLs.
func KnownIDs(postings []domain.Posting) map[string]bool {
	ids := make(map[string]bool)
	for _, p := range postings {
		if !strings.Contains(p.URL, "linkedin.com") {
			continue
		}
		if i := strings.LastIndex(p.URL, "/jobPosting/"); i >= 0 {
			if id := strings.Trim(p.URL[i+len("/jobPosting/"):], "/"); id != "" {
				ids[id] = true
			}
		}
	}
	return ids
}

func (s *Scraper) Fetch(ctx context.Context, q types.Query, col *types.Collector) (types.Result, error) {
	res := types.Result{Board: domain.BoardLinkedIn}

	ids, err := s.collectIDs(ctx, q)
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		p, ok := s.hydrate(ctx, id)
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

// collectIDs pages the guest search until it has target new ids or the
// board runs out of pages. Known ids are skipped but the scan continues,
// since LinkedIn interleaves old and new postings near the boundary.
func (s *Scraper) collectIDs(ctx context.Context, q types.Query) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	offset := 0

	for page := 0; page < maxListPages && len(ids) < q.Target; page++ {
		u := listURL + "?" + url.Values{
			"keywords": {q.Title},
			"location": {q.City + ", Denmark"},
			"start":    {strconv.Itoa(offset)},
		}.Encode()

		resp, err := s.client.Get(ctx, u)
		if err != nil {
			if offset == 0 {
				return nil, fmt.Errorf("linkedin list: %w", err)
			}
			break // keep ids from earlier pages
		}
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			return ids, fmt.Errorf("linkedin parse list: %w", err)
		}

		cards := doc.Find("li")
		if cards.Length() == 0 {
			break
		}
		cards.Each(func(_ int, li *goquery.Selection) {
			if len(ids) >= q.Target {
				return
			}
			urn, ok := li.Find("div.base-card").Attr("data-entity-urn")
			if !ok {
				return
			}
			id := urn[strings.LastIndex(urn, ":")+1:]
			if id == "" || seen[id] || s.existingIDs[id] {
				return
			}
			seen[id] = true
			ids = append(ids, id)
		})
		offset += cards.Length()
	}
	return ids, nil
}

// hydrate fetches one posting page and normalizes it. Any transport or parse
// problem counts as a single skipped item.
func (s *Scraper) hydrate(ctx context.Context, id string) (domain.Posting, bool) {
	resp, err := s.client.Get(ctx, postingURL+id)
	if err != nil {
		return domain.Posting{}, false
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return domain.Posting{}, false
	}

	p := domain.Posting{
		URL:   postingURL + id,
		Board: domain.BoardLinkedIn,
	}
	p.Title = util.CleanText(doc.Find("h2.topcard__title").First().Text())
	p.Company = util.CleanText(doc.Find("a.topcard__org-name-link").First().Text())
	p.Location = util.CleanText(doc.Find("span.topcard__flavor--bullet").First().Text())
	if p.Title == "" || p.Company == "" {
		return domain.Posting{}, false
	}

	if desc := doc.Find("div.show-more-less-html__markup").First(); desc.Length() > 0 {
		if h, err := goquery.OuterHtml(desc); err == nil {
			p.Description = util.HTMLToText(h)
		}
	}

	if raw := util.CleanText(doc.Find("span.posted-time-ago__text").First().Text()); raw != "" {
		if t, ok := ParseRelativeTime(raw, s.now()); ok {
			p.TimePosted = &t
		}
	}

	if raw := util.CleanText(doc.Find("span.num-applicants__caption").First().Text()); raw != "" {
		if n, err := strconv.Atoi(strings.Fields(raw)[0]); err == nil {
			p.NumApplicants = &n
		}
	}
	p.SeniorityLevel = util.CleanText(doc.Find("span.description__job-criteria-text").First().Text())

	return p, true
}

// ParseRelativeTime maps the board's "3 days ago" style labels onto a UTC
// date. Weeks and coarser stay null: too imprecise to serve as a
// distinguishing key.
func ParseRelativeTime(raw string, now time.Time) (time.Time, bool) {
	low := strings.ToLower(raw)
	if strings.Contains(low, "week") || strings.Contains(low, "month") || strings.Contains(low, "year") {
		return time.Time{}, false
	}
	parts := strings.Fields(low)
	if len(parts) < 2 {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}

	var delta time.Duration
	switch {
	case strings.HasPrefix(parts[1], "day"):
		delta = time.Duration(n) * 24 * time.Hour
	case strings.HasPrefix(parts[1], "hour"):
		delta = time.Duration(n) * time.Hour
	case strings.HasPrefix(parts[1], "minute"), strings.HasPrefix(parts[1], "second"):
		delta = 0
	default:
		return time.Time{}, false
	}
	return now.UTC().Add(-delta).Truncate(24 * time.Hour), true
}
