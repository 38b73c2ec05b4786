package domain

import "time"

// Board identifies which job board a posting was scraped from.
type Board string

const (
	BoardLinkedIn Board = "linkedin"
	BoardJobnet   Board = "jobnet"
	BoardJobindex Board = "jobindex"
)

// Decision is the review state of a posting. The empty value means pending.
type Decision string

const (
	DecisionNone   Decision = ""
	DecisionApply  Decision = "apply"
	DecisionReject Decision = "reject"
	DecisionDelete Decision = "delete"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionNone, DecisionApply, DecisionReject, DecisionDelete:
		return true
	}
	return false
}

// Posting is one job listing in the canonical schema. AppliedDate,
// CoverLetter, CV, Reply and LastUpdated are owned by the review UI and
// carried through merges verbatim.
type Posting struct {
	Company     string
	Title       string
	URL         string
	Location    string
	TimePosted  *time.Time // date precision, UTC; nil when the board gave none
	Deadline    string
	Description string
	Board       Board

	NumApplicants  *int
	SeniorityLevel string
	EmploymentType string
	FullOrPartTime string

	Decision       Decision
	DecisionReason string
	AppliedDate    string
	CoverLetter    string
	CV             string
	Reply          string
	LastUpdated    string
	Synced         bool
}

// Key is the business key: a posting is "the same job" across boards when
// company and title match.
type Key struct {
	Company string
	Title   string
}

func (p Posting) Key() Key { return Key{Company: p.Company, Title: p.Title} }

func (p Posting) Pending() bool { return p.Decision == DecisionNone }

// TimeKey renders TimePosted the way the dataset persists it. Empty when the
// posting has no time.
func (p Posting) TimeKey() string {
	if p.TimePosted == nil {
		return ""
	}
	return p.TimePosted.UTC().Format("2006-01-02")
}

// KeySet is the read-only set of business keys adapters consult for early
// termination.
type KeySet map[Key]struct{}

func NewKeySet(postings []Posting) KeySet {
	s := make(KeySet, len(postings))
	for _, p := range postings {
		s[p.Key()] = struct{}{}
	}
	return s
}

func (s KeySet) Contains(k Key) bool {
	_, ok := s[k]
	return ok
}
