// Package merge reconciles a freshly scraped batch with the persisted
// dataset. The merge is a pure function of its two inputs: rows never get
// deleted, and a kept OLD row keeps every human-entered field untouched by
// construction.
package merge

import (
	"sort"

	"jobscout/internal/domain"
)

// Metrics describes one merge for the run summary. AutoRejected is filled in
// by the pipeline from the classifier, the rest by Merge itself.
type Metrics struct {
	NewUniquePairs int
	AutoRejected   int
	PendingBefore  int
	PendingAfter   int
}

const (
	provOld = 0 // row was already persisted; wins every tie
	provNew = 1 // row arrived in this run's batch
)

type candidate struct {
	p    domain.Posting
	prov int
	seq  int
}

type groupKey struct {
	company string
	title   string
	dist    string
}

// distinguisher separates re-postings of the same job: the posting date when
// the board gave one, otherwise the full URL. The prefix keeps a timed and an
// untimed row with the same (company, title) in separate groups, so both
// survive rather than risk dropping a genuine posting.
func distinguisher(p domain.Posting) string {
	if p.TimePosted != nil {
		return "t\x00" + p.TimeKey()
	}
	return "u\x00" + p.URL
}

// Merge returns the next dataset state. existing rows are tagged OLD, batch
// rows NEW; within each (company, title, date-or-url) group exactly one
// representative survives, OLD ranked before NEW. Output order follows the
// stable sort key, so merging an empty batch into a previously merged dataset
// returns it unchanged.
func Merge(existing, batch []domain.Posting) ([]domain.Posting, Metrics) {
	var m Metrics

	work := make([]candidate, 0, len(existing)+len(batch))
	for i, p := range existing {
		work = append(work, candidate{p: p, prov: provOld, seq: i})
	}
	for i, p := range batch {
		work = append(work, candidate{p: p, prov: provNew, seq: i})
	}

	beforePairs := make(map[domain.Key]struct{}, len(existing))
	for _, p := range existing {
		beforePairs[p.Key()] = struct{}{}
	}
	for _, c := range work {
		if c.p.Pending() {
			m.PendingBefore++
		}
	}

	// Tie-break past the group key on provenance, then board and URL, so the
	// winner does not depend on arrival order inside a provenance class; seq
	// only separates full duplicates, which are interchangeable.
	sort.SliceStable(work, func(i, j int) bool {
		a, b := work[i], work[j]
		if a.p.Company != b.p.Company {
			return a.p.Company < b.p.Company
		}
		if a.p.Title != b.p.Title {
			return a.p.Title < b.p.Title
		}
		da, db := distinguisher(a.p), distinguisher(b.p)
		if da != db {
			return da < db
		}
		if a.prov != b.prov {
			return a.prov < b.prov
		}
		if a.p.Board != b.p.Board {
			return a.p.Board < b.p.Board
		}
		if a.p.URL != b.p.URL {
			return a.p.URL < b.p.URL
		}
		return a.seq < b.seq
	})

	out := make([]domain.Posting, 0, len(work))
	var prev groupKey
	for i, c := range work {
		gk := groupKey{company: c.p.Company, title: c.p.Title, dist: distinguisher(c.p)}
		if i > 0 && gk == prev {
			continue
		}
		prev = gk
		out = append(out, c.p)
	}

	for _, p := range out {
		if p.Pending() {
			m.PendingAfter++
		}
		if _, ok := beforePairs[p.Key()]; !ok {
			beforePairs[p.Key()] = struct{}{}
			m.NewUniquePairs++
		}
	}
	return out, m
}
