package jobindex

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"jobscout/internal/domain"
	"jobscout/internal/scrape/types"
	"jobscout/internal/scrape/util"
)

// pagedTransport returns queued bodies in order, then empty result pages.
type pagedTransport struct {
	bodies []string
	calls  int
}

func (p *pagedTransport) Do(req *http.Request) (*http.Response, error) {
	p.calls++
	body := `{"results": []}`
	if len(p.bodies) > 0 {
		body, p.bodies = p.bodies[0], p.bodies[1:]
	}
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}, nil
}

const pageOne = `{
  "results": [
    {
      "tid": 9001,
      "url": "https://www.jobindex.dk/vis-job/9001",
      "headline": "Data Scientist",
      "company": {"name": "Acme A/S"},
      "addresses": [{"city": "København"}],
      "firstdate": "2024-03-05",
      "is_local": false
    },
    {
      "tid": 9002,
      "url": "https://www.jobindex.dk/vis-job/9002",
      "headline": "BI Analyst",
      "company": {"name": "Borg ApS"},
      "addresses": [],
      "firstdate": "2024-03-02",
      "is_local": false
    }
  ]
}`

const pageTwo = `{
  "results": [
    {
      "tid": 9003,
      "url": "https://www.jobindex.dk/vis-job/9003",
      "headline": "ML Engineer",
      "company": {"name": "Cyb IVS"},
      "addresses": [{"city": "Valby"}],
      "firstdate": "2024-02-20",
      "is_local": false
    }
  ]
}`

func query(target int) types.Query {
	return types.Query{Title: "Data Scientist", City: "København", Postal: "2100", Street: "Eksempelvej 1", KmDist: 20, Target: target}
}

func TestFetchPagesUntilExhausted(t *testing.T) {
	client := util.NewClientWith(&pagedTransport{bodies: []string{pageOne, pageTwo}}, 100, 100)
	col := types.NewCollector(nil, nil, 10)

	res, err := New(client).Fetch(context.Background(), query(10), col)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Postings) != 3 {
		t.Fatalf("got %d postings, want 3 across two pages", len(res.Postings))
	}
	if res.Postings[2].Company != "Cyb IVS" {
		t.Errorf("page order broken: %+v", res.Postings[2])
	}
	if res.Postings[1].Location != "" {
		t.Errorf("missing address must stay null, got %q", res.Postings[1].Location)
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if res.Postings[0].TimePosted == nil || !res.Postings[0].TimePosted.Equal(want) {
		t.Errorf("TimePosted = %v, want %v", res.Postings[0].TimePosted, want)
	}
	if res.Postings[0].Board != domain.BoardJobindex {
		t.Errorf("Board = %q", res.Postings[0].Board)
	}
}

func TestFetchStopsAtTarget(t *testing.T) {
	tr := &pagedTransport{bodies: []string{pageOne, pageTwo}}
	client := util.NewClientWith(tr, 100, 100)
	col := types.NewCollector(nil, nil, 2)

	res, err := New(client).Fetch(context.Background(), query(2), col)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Postings) != 2 {
		t.Fatalf("got %d postings, want 2", len(res.Postings))
	}
	if tr.calls != 1 {
		t.Errorf("made %d requests, want 1 (no paging past the target)", tr.calls)
	}
}

func TestFetchStopsAtCutoff(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	client := util.NewClientWith(&pagedTransport{bodies: []string{pageOne, pageTwo}}, 100, 100)
	col := types.NewCollector(nil, &cutoff, 10)

	res, err := New(client).Fetch(context.Background(), query(10), col)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// 2024-02-20 predates the cutoff; the two March postings survive.
	if len(res.Postings) != 2 {
		t.Fatalf("got %d postings, want 2", len(res.Postings))
	}
	if res.Stopped == "" {
		t.Error("expected an early-termination reason")
	}
}

func TestFetchFirstPageFailureIsAnError(t *testing.T) {
	client := util.NewClientWith(&failingTransport{}, 100, 100)
	col := types.NewCollector(nil, nil, 10)

	if _, err := New(client).Fetch(context.Background(), query(10), col); err == nil {
		t.Fatal("expected an error when the first page cannot be fetched")
	}
}

type failingTransport struct{}

func (f *failingTransport) Do(_ *http.Request) (*http.Response, error) {
	return nil, io.ErrUnexpectedEOF
}

func TestFetchLocalAdUsesSnippetWhenBodyFetchFails(t *testing.T) {
	local := strings.Replace(pageTwo, `"is_local": false`, `"is_local": true, "html": "<p>Snippet text</p>"`, 1)
	// The ad-body fetch gets an empty page, so the snippet must survive.
	client := util.NewClientWith(&pagedTransport{bodies: []string{local, `{"results": []}`, ``}}, 100, 100)
	col := types.NewCollector(nil, nil, 10)

	res, err := New(client).Fetch(context.Background(), query(10), col)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Postings) != 1 {
		t.Fatalf("got %d postings, want 1", len(res.Postings))
	}
	if res.Postings[0].Description != "Snippet text" {
		t.Errorf("Description = %q, want the flattened snippet", res.Postings[0].Description)
	}
}
