package types

import (
	"context"
	"time"

	"jobscout/internal/domain"
)

// Query is one search a source runs: a single title variant plus the
// configured location parameters.
type Query struct {
	Title  string
	City   string
	Postal string
	Street string
	KmDist int
	Target int
}

// Result is the normalized outcome of one Fetch. Parse failures of
// individual items are absorbed into the aggregate count.
type Result struct {
	Board         domain.Board
	Postings      []domain.Posting
	ParseFailures int
	Stopped       string // early-termination reason, empty when exhausted normally
}

// Source fetches raw postings from one job board, newest first, feeding each
// normalized posting through the Collector until it refuses more.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query, col *Collector) (Result, error)
}

// Collector enforces the adapter termination contract: collection stops once
// the target count is reached, an already-persisted business key shows up
// (the source is sorted newest-first, so everything after it is known), or a
// posting predates the cutoff.
type Collector struct {
	Existing domain.KeySet
	Cutoff   *time.Time
	Target   int

	kept    []domain.Posting
	seen    map[domain.Key]struct{}
	stopped string
}

func NewCollector(existing domain.KeySet, cutoff *time.Time, target int) *Collector {
	return &Collector{
		Existing: existing,
		Cutoff:   cutoff,
		Target:   target,
		seen:     make(map[domain.Key]struct{}),
	}
}

// Add offers one posting. It returns false once the source must stop
// producing. A key repeated within the same fetch is skipped without
// stopping; only keys from the persisted dataset terminate the scan.
func (c *Collector) Add(p domain.Posting) bool {
	if c.Done() {
		return false
	}
	if c.Existing.Contains(p.Key()) {
		c.stopped = "first existing key encountered (sorted list)"
		return false
	}
	if c.Cutoff != nil && p.TimePosted != nil && p.TimePosted.Before(*c.Cutoff) {
		c.stopped = "posting older than last run cutoff"
		return false
	}
	if _, dup := c.seen[p.Key()]; dup {
		return true
	}
	c.seen[p.Key()] = struct{}{}
	c.kept = append(c.kept, p)
	return !c.Done()
}

// Done reports whether the target count has been reached or a terminating
// posting was seen.
func (c *Collector) Done() bool {
	return c.stopped != "" || len(c.kept) >= c.Target
}

func (c *Collector) Postings() []domain.Posting { return c.kept }

func (c *Collector) StopReason() string { return c.stopped }
