package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string
	Warnings []string
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg: list fields trimmed
// and deduplicated case-insensitively, first occurrence wins. Any returned
// error is fatal and must be raised before network access.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Scrape.Titles = trimList(out.Scrape.Titles)
	if out.AutoReject.Keywords != nil {
		kws := StringList(trimList(*out.AutoReject.Keywords))
		out.AutoReject.Keywords = &kws
	}

	if len(out.Scrape.Titles) == 0 {
		res.addErr("scrape.titles: at least one job title is required")
	}
	if strings.TrimSpace(out.Scrape.City) == "" {
		res.addErr("scrape.city is required")
	}
	if strings.TrimSpace(out.Scrape.Postal) == "" {
		res.addErr("scrape.postal is required")
	}
	if strings.TrimSpace(out.Scrape.Street) == "" {
		res.addErr("scrape.street is required")
	}
	if out.Scrape.NumJobs <= 0 {
		res.addErr("scrape.num_jobs must be > 0")
	}
	if out.Scrape.KmDist <= 0 {
		res.addErr("scrape.km_dist must be > 0")
	}

	if out.AutoReject.Keywords == nil {
		res.addErr("auto_reject.keywords is required (may be empty)")
	} else if len(*out.AutoReject.Keywords) == 0 {
		res.addWarn("auto_reject.keywords is empty; no titles will be auto-rejected")
	}

	return out, res
}

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}
