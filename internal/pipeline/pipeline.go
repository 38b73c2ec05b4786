// Package pipeline wires one complete run: cutoff, dataset, sources,
// classifier, merge, atomic save. Per-source and per-item failures are
// absorbed along the way; only the final dataset write can fail a run here.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"jobscout/internal/classify"
	"jobscout/internal/config"
	"jobscout/internal/dataset"
	"jobscout/internal/domain"
	"jobscout/internal/merge"
	"jobscout/internal/runstate"
	"jobscout/internal/scrape"
	"jobscout/internal/scrape/jobindex"
	"jobscout/internal/scrape/jobnet"
	"jobscout/internal/scrape/linkedin"
	"jobscout/internal/scrape/types"
	"jobscout/internal/scrape/util"
)

// SourceFactory builds the run's sources once the existing dataset is known
// (LinkedIn derives its known-id set from persisted URLs).
type SourceFactory func(existing []domain.Posting) []types.Source

func DefaultSources(existing []domain.Posting) []types.Source {
	client := util.NewClient(2, 4)
	return []types.Source{
		linkedin.New(client, linkedin.KnownIDs(existing)),
		jobnet.New(client),
		jobindex.New(client),
	}
}

type Pipeline struct {
	Cfg       config.Config
	Store     *dataset.Store
	StatePath string
	Progress  *log.Logger
	Warn      *log.Logger

	NewSources    SourceFactory // nil means DefaultSources
	SourceTimeout time.Duration
}

// Summary is what one run did, for the process exit report.
type Summary struct {
	merge.Metrics
	TotalRows    int
	SourceCounts map[domain.Board]int
}

func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	state, err := runstate.Load(p.StatePath)
	if err != nil {
		p.Warn.Printf("[update] Warning: could not parse last scrape date (%v)", err)
	}

	existing, stats, err := p.Store.Load()
	switch {
	case err == nil:
		if stats.MigratedLater > 0 {
			p.Progress.Printf("[update] Migrated %d legacy 'later' decisions to 'delete'", stats.MigratedLater)
		}
		if stats.InvalidDecisions > 0 {
			p.Warn.Printf("[update] Warning: %d rows carry a decision outside the known set", stats.InvalidDecisions)
		}
		if stats.BadTimestamps > 0 {
			p.Warn.Printf("[update] Warning: %d rows had unparsable time_posted values", stats.BadTimestamps)
		}
	case errors.Is(err, os.ErrNotExist):
		p.Progress.Printf("[update] No existing dataset at %s; starting fresh", p.Store.Path)
	default:
		p.Warn.Printf("[update] Warning: failed reading existing dataset (%v); proceeding with only new scrape data", err)
		existing = nil
	}

	keys := domain.NewKeySet(existing)
	p.Progress.Printf("[update] Starting scrape for titles=%v city=%q target_per_title=%d existing_unique_keys=%d cutoff=%s",
		p.Cfg.Scrape.Titles, p.Cfg.Scrape.City, p.Cfg.Scrape.NumJobs, len(keys), cutoffLabel(state.Cutoff))

	factory := p.NewSources
	if factory == nil {
		factory = DefaultSources
	}
	runner := scrape.Runner{
		Sources:  factory(existing),
		Timeout:  p.SourceTimeout,
		Progress: p.Progress,
		Warn:     p.Warn,
	}
	batches := runner.Run(ctx, p.Cfg, keys, state.Cutoff)

	sum.SourceCounts = make(map[domain.Board]int, len(batches))
	var batch []domain.Posting
	for _, b := range batches {
		sum.SourceCounts[b.Board] = len(b.Postings)
		p.Progress.Printf("[update] Source %s: %d rows", b.Board, len(b.Postings))
		batch = append(batch, b.Postings...)
	}

	p.Progress.Printf("[update] Unique new (company,title) pairs before merge: %d", newPairCount(batch, keys))

	rejecter := classify.NewAutoRejecter(p.Cfg.Keywords())
	rejected := rejecter.Apply(batch)
	if rejected > 0 {
		p.Progress.Printf("[update] Auto-reject applied to %d newly scraped rows", rejected)
	}

	merged, metrics := merge.Merge(existing, batch)
	metrics.AutoRejected = rejected
	sum.Metrics = metrics
	sum.TotalRows = len(merged)

	p.Progress.Printf("[update] Final unique company/title count: %d (added %d new unique pairs)",
		pairCount(merged), metrics.NewUniquePairs)
	p.Progress.Printf("[update] Pending decisions: %d before, %d after", metrics.PendingBefore, metrics.PendingAfter)
	p.Progress.Printf("[update] Writing %s with %d total rows (deduped).", p.Store.Path, len(merged))

	if err := p.Store.Save(merged); err != nil {
		return sum, fmt.Errorf("write dataset: %w", err)
	}
	p.Progress.Printf("[update] Done.")
	return sum, nil
}

func cutoffLabel(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Format("2006-01-02")
}

func pairCount(postings []domain.Posting) int {
	pairs := make(map[domain.Key]struct{}, len(postings))
	for _, p := range postings {
		pairs[p.Key()] = struct{}{}
	}
	return len(pairs)
}

func newPairCount(batch []domain.Posting, existing domain.KeySet) int {
	pairs := make(map[domain.Key]struct{})
	for _, p := range batch {
		if !existing.Contains(p.Key()) {
			pairs[p.Key()] = struct{}{}
		}
	}
	return len(pairs)
}
