// Package dataset persists postings as a headered CSV file. The file is the
// interchange surface with the review UI, so reads tolerate older layouts
// (missing columns, legacy decision values, a stray __row_id column) and
// writes replace the file atomically under a cross-process lock.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"jobscout/internal/domain"
)

// Columns is the persisted schema, in header order. Columns absent on load
// default to null; unknown columns in the file (such as the __row_id column
// the review UI appends for its own bookkeeping) are ignored and never
// written back.
var Columns = []string{
	"company", "title", "url", "location", "time_posted", "deadline",
	"description", "job_board", "num_applicants", "seniority_level",
	"employment_type", "full_or_part_time", "decision", "decision_reason",
	"applied_date", "cover_letter", "cv", "reply", "last_updated", "synced",
}

// LoadStats aggregates per-row problems that do not abort a load.
type LoadStats struct {
	Rows             int
	MigratedLater    int // legacy decision "later" migrated to "delete"
	InvalidDecisions int // decision values outside the enum, kept verbatim
	BadTimestamps    int // unparsable time_posted values, loaded as null
}

type Store struct {
	Path string
}

func NewStore(path string) *Store { return &Store{Path: path} }

func (s *Store) lock() *flock.Flock {
	return flock.New(s.Path + ".lock")
}

// Load reads the whole dataset once. A missing file surfaces as
// os.ErrNotExist so the caller can tell a first run from a broken file.
func (s *Store) Load() ([]domain.Posting, LoadStats, error) {
	var stats LoadStats

	lk := s.lock()
	if err := lk.RLock(); err != nil {
		return nil, stats, fmt.Errorf("lock dataset: %w", err)
	}
	defer func() { _ = lk.Unlock() }()

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, stats, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, stats, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, stats, nil
	}

	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[strings.TrimSpace(name)] = i
	}

	var out []domain.Posting
	for _, rec := range records[1:] {
		field := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		p := domain.Posting{
			Company:        field("company"),
			Title:          field("title"),
			URL:            field("url"),
			Location:       field("location"),
			Deadline:       field("deadline"),
			Description:    field("description"),
			Board:          domain.Board(field("job_board")),
			SeniorityLevel: field("seniority_level"),
			EmploymentType: field("employment_type"),
			FullOrPartTime: field("full_or_part_time"),
			DecisionReason: field("decision_reason"),
			AppliedDate:    field("applied_date"),
			CoverLetter:    field("cover_letter"),
			CV:             field("cv"),
			Reply:          field("reply"),
			LastUpdated:    field("last_updated"),
		}

		if raw := field("time_posted"); raw != "" {
			if t, ok := parseStoredTime(raw); ok {
				p.TimePosted = &t
			} else {
				stats.BadTimestamps++
			}
		}
		if raw := field("num_applicants"); raw != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				p.NumApplicants = &n
			}
		}
		p.Synced = parseBool(field("synced"))

		switch d := domain.Decision(strings.TrimSpace(field("decision"))); {
		case d == "later":
			// Legacy value from before "delete" existed.
			p.Decision = domain.DecisionDelete
			stats.MigratedLater++
		case d.Valid():
			p.Decision = d
		default:
			// Outside the enum: keep it so the review UI can fix it, but
			// count it for the load warning.
			p.Decision = d
			stats.InvalidDecisions++
		}

		stats.Rows++
		out = append(out, p)
	}
	return out, stats, nil
}

// Save replaces the dataset atomically: temp file in the same directory,
// fsync, rename. Other readers only ever observe the previous or the next
// complete file.
func (s *Store) Save(postings []domain.Posting) error {
	lk := s.lock()
	if err := lk.Lock(); err != nil {
		return fmt.Errorf("lock dataset: %w", err)
	}
	defer func() { _ = lk.Unlock() }()

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(Columns); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range postings {
		if err := w.Write(record(p)); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dataset: %w", err)
	}
	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

func record(p domain.Posting) []string {
	numApplicants := ""
	if p.NumApplicants != nil {
		numApplicants = strconv.Itoa(*p.NumApplicants)
	}
	synced := ""
	if p.Synced {
		synced = "true"
	}
	return []string{
		p.Company, p.Title, p.URL, p.Location, p.TimeKey(), p.Deadline,
		p.Description, string(p.Board), numApplicants, p.SeniorityLevel,
		p.EmploymentType, p.FullOrPartTime, string(p.Decision),
		p.DecisionReason, p.AppliedDate, p.CoverLetter, p.CV, p.Reply,
		p.LastUpdated, synced,
	}
}

func parseStoredTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC().Truncate(24 * time.Hour), true
		}
	}
	return time.Time{}, false
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
