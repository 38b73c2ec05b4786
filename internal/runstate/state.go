// Package runstate reads the cutoff left behind by the last successful run.
// The state file is owned by the external scheduler; the pipeline only ever
// reads it.
package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileName is the conventional state file name next to the dataset.
const FileName = ".last_scrape.json"

type stateFile struct {
	LastDate  string `json:"last_date"`
	Timestamp string `json:"timestamp"`
}

// State holds the cutoff for one run. A nil Cutoff disables the
// older-than-cutoff termination rule in every adapter.
type State struct {
	Cutoff *time.Time
}

// Load parses the state file at path. A missing file is a normal first run
// and yields no cutoff. A malformed file also yields no cutoff but reports
// the parse problem so the caller can warn.
func Load(path string) (State, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read state file: %w", err)
	}

	var sf stateFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return State{}, fmt.Errorf("parse state file: %w", err)
	}
	if sf.LastDate == "" {
		return State{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", sf.LastDate, time.UTC)
	if err != nil {
		return State{}, fmt.Errorf("parse last_date %q: %w", sf.LastDate, err)
	}
	return State{Cutoff: &t}, nil
}
