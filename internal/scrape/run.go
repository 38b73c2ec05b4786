// Package scrape fans the configured sources out in parallel and gathers
// their normalized batches. Sources are best-effort: one failing board
// degrades to an empty batch and never aborts the run.
package scrape

import (
	"context"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"jobscout/internal/config"
	"jobscout/internal/domain"
	"jobscout/internal/scrape/types"
)

const defaultSourceTimeout = 5 * time.Minute

// SourceBatch is everything one board produced across all title variants.
type SourceBatch struct {
	Board         domain.Board
	Postings      []domain.Posting
	ParseFailures int
}

type Runner struct {
	Sources  []types.Source
	Timeout  time.Duration
	Progress *log.Logger
	Warn     *log.Logger
}

// Run scrapes every source concurrently: one collector per title variant so
// the target count applies per title, with (company, title) dedup across
// variants inside each source. The existing key set and cutoff are shared
// read-only.
func (r *Runner) Run(ctx context.Context, cfg config.Config, existing domain.KeySet, cutoff *time.Time) []SourceBatch {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}

	var g errgroup.Group
	results := make(chan SourceBatch, len(r.Sources))

	for _, src := range r.Sources {
		src := src
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			batch := SourceBatch{Board: domain.Board(src.Name())}
			seen := make(map[domain.Key]struct{})

			for _, title := range cfg.Scrape.Titles {
				q := types.Query{
					Title:  title,
					City:   cfg.Scrape.City,
					Postal: cfg.Scrape.Postal,
					Street: cfg.Scrape.Street,
					KmDist: cfg.Scrape.KmDist,
					Target: cfg.Scrape.NumJobs,
				}
				col := types.NewCollector(existing, cutoff, q.Target)

				res, err := src.Fetch(sctx, q, col)
				if err != nil {
					r.Warn.Printf("[scrape] %s: title=%q: %v (continuing with empty batch)", src.Name(), title, err)
					continue
				}
				if res.Stopped != "" {
					r.Progress.Printf("[scrape] %s: early termination - %s; collected %d new rows", src.Name(), res.Stopped, len(res.Postings))
				}
				batch.ParseFailures += res.ParseFailures

				for _, p := range res.Postings {
					if _, dup := seen[p.Key()]; dup {
						continue
					}
					seen[p.Key()] = struct{}{}
					batch.Postings = append(batch.Postings, p)
				}
			}

			if batch.ParseFailures > 0 {
				r.Warn.Printf("[scrape] %s: skipped %d malformed items", src.Name(), batch.ParseFailures)
			}
			results <- batch
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	var out []SourceBatch
	for b := range results {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Board < out[j].Board })
	return out
}
