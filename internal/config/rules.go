package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RedactionRules describes what to mask on stored records.
type RedactionRules struct {
	Enabled       bool     `yaml:"enabled"`
	Headers       []string `yaml:"headers"`
	ValuePatterns []string `yaml:"value_patterns"`
	BodyPaths     []string `yaml:"body_paths"`
	Replacement   string   `yaml:"replacement"`
}

// Rules is the optional YAML rules file. Values set here override the
// matching environment variables.
type Rules struct {
	Domains      []string        `yaml:"domains"`
	MaxBodyBytes int             `yaml:"max_body_bytes"`
	Redaction    *RedactionRules `yaml:"redaction"`
}

// LoadRules reads and validates a rules YAML file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules file: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("rules file: %w", err)
	}
	for i, d := range rules.Domains {
		if d == "" {
			return nil, fmt.Errorf("rules file: domains[%d] is empty", i)
		}
	}
	if rules.MaxBodyBytes < 0 {
		return nil, fmt.Errorf("rules file: max_body_bytes must not be negative")
	}
	return &rules, nil
}

// Apply copies the rules onto cfg.
func (r *Rules) Apply(cfg *Config) {
	if len(r.Domains) > 0 {
		cfg.Domains = append([]string(nil), r.Domains...)
	}
	if r.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = r.MaxBodyBytes
	}
	if r.Redaction != nil {
		cfg.Redact = r.Redaction.Enabled
		cfg.Redaction = r.Redaction
	}
}
