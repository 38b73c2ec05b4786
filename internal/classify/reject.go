// Package classify applies keyword-based auto-rejection to pending postings.
package classify

import (
	"fmt"
	"strings"

	"jobscout/internal/domain"
)

// AutoRejecter rejects postings whose title contains one of an ordered list
// of keywords. Construct it once per run from the validated config.
type AutoRejecter struct {
	keywords []string
}

func NewAutoRejecter(keywords []string) *AutoRejecter {
	seen := map[string]bool{}
	var kws []string
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		low := strings.ToLower(k)
		if seen[low] {
			continue
		}
		seen[low] = true
		kws = append(kws, k)
	}
	return &AutoRejecter{keywords: kws}
}

// Apply labels every pending posting in place and returns how many it
// rejected. Keywords are checked in configured order and the first
// case-insensitive title match wins; postings that already carry a decision
// are never touched.
func (a *AutoRejecter) Apply(postings []domain.Posting) (rejected int) {
	for i := range postings {
		if !postings[i].Pending() {
			continue
		}
		title := strings.ToLower(postings[i].Title)
		for _, kw := range a.keywords {
			if strings.Contains(title, strings.ToLower(kw)) {
				postings[i].Decision = domain.DecisionReject
				postings[i].DecisionReason = fmt.Sprintf("Title contains '%s'", kw)
				rejected++
				break
			}
		}
	}
	return rejected
}
