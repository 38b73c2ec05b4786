package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// StringList accepts either a YAML sequence or a single comma-separated
// scalar, so "intern, senior" and ["intern", "senior"] configure the same
// thing.
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*l = splitComma(raw)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	return fmt.Errorf("expected string or list for %q", value.Tag)
}

func splitComma(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type Config struct {
	Scrape struct {
		Titles  StringList `yaml:"titles"`
		City    string     `yaml:"city"`
		Postal  string     `yaml:"postal"`
		Street  string     `yaml:"street"`
		NumJobs int        `yaml:"num_jobs"`
		KmDist  int        `yaml:"km_dist"`
	} `yaml:"scrape"`

	AutoReject struct {
		// Pointer so a missing keywords key can be told apart from an
		// empty one; the key itself is required.
		Keywords *StringList `yaml:"keywords"`
	} `yaml:"auto_reject"`
}

// Keywords returns the configured reject keywords, empty when none are set.
func (c Config) Keywords() []string {
	if c.AutoReject.Keywords == nil {
		return nil
	}
	return *c.AutoReject.Keywords
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
