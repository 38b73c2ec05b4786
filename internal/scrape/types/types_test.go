package types

import (
	"testing"
	"time"

	"jobscout/internal/domain"
)

func date(s string) *time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestCollectorStopsAtCutoff(t *testing.T) {
	// Newest-first source: the first posting older than the cutoff ends the
	// scan, postings before it are kept.
	col := NewCollector(nil, date("2024-03-01"), 10)

	dates := []string{"2024-03-05", "2024-03-02", "2024-02-20", "2024-02-01"}
	var added int
	for i, d := range dates {
		p := domain.Posting{Company: "Acme", Title: "Engineer " + d, TimePosted: date(d)}
		if !col.Add(p) {
			if i != 2 {
				t.Fatalf("scan stopped at index %d, want 2", i)
			}
			break
		}
		added++
	}

	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if got := len(col.Postings()); got != 2 {
		t.Errorf("collected %d postings, want 2", got)
	}
	if col.StopReason() == "" {
		t.Error("expected an early-termination reason")
	}
}

func TestCollectorStopsAtExistingKey(t *testing.T) {
	existing := domain.NewKeySet([]domain.Posting{
		{Company: "Acme", Title: "Known Role"},
	})
	col := NewCollector(existing, nil, 10)

	if !col.Add(domain.Posting{Company: "Acme", Title: "Fresh Role"}) {
		t.Fatal("fresh posting should not stop the scan")
	}
	if col.Add(domain.Posting{Company: "Acme", Title: "Known Role"}) {
		t.Fatal("existing key must stop the scan")
	}
	if got := len(col.Postings()); got != 1 {
		t.Errorf("collected %d postings, want 1", got)
	}
}

func TestCollectorStopsAtTarget(t *testing.T) {
	col := NewCollector(nil, nil, 2)

	if !col.Add(domain.Posting{Company: "A", Title: "1"}) {
		t.Fatal("first add should allow more")
	}
	if col.Add(domain.Posting{Company: "B", Title: "2"}) {
		t.Fatal("reaching the target must stop the scan")
	}
	if !col.Done() {
		t.Error("collector should report done at target")
	}
	if col.StopReason() != "" {
		t.Errorf("target-reached is not an early termination, got %q", col.StopReason())
	}
}

func TestCollectorSkipsRunLocalDuplicates(t *testing.T) {
	col := NewCollector(nil, nil, 10)

	col.Add(domain.Posting{Company: "Acme", Title: "Engineer", URL: "https://x/1"})
	if !col.Add(domain.Posting{Company: "Acme", Title: "Engineer", URL: "https://x/1"}) {
		t.Fatal("a duplicate within the same fetch skips, it does not stop")
	}
	if got := len(col.Postings()); got != 1 {
		t.Errorf("collected %d postings, want 1", got)
	}
}

func TestCollectorNoCutoffKeepsOldPostings(t *testing.T) {
	col := NewCollector(nil, nil, 10)
	if !col.Add(domain.Posting{Company: "Acme", Title: "Old", TimePosted: date("1999-01-01")}) {
		t.Fatal("without a cutoff, old postings must be kept")
	}
}

func TestCollectorUntimedPostingPassesCutoff(t *testing.T) {
	col := NewCollector(nil, date("2024-03-01"), 10)
	if !col.Add(domain.Posting{Company: "Acme", Title: "Undated"}) {
		t.Fatal("postings without a time cannot trip the cutoff rule")
	}
}
