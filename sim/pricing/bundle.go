package pricing

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAlpha        = 0.5
	DefaultEpsilonBegin = 1.0
	DefaultEpsilonEnd   = 0.01
	DefaultExploration  = 200
)

// Config selects the pricing policy of every segment.
// Nil pointer fields mean "not set in YAML" and fall back to the defaults.
type Config struct {
	Policy    string  `yaml:"policy"`
	QLearning QParams `yaml:"qlearning"`
}

// QParams holds the Q-learning parameters.
type QParams struct {
	Alpha        *float64 `yaml:"alpha"`
	EpsilonBegin *float64 `yaml:"epsilon_begin"`
	EpsilonEnd   *float64 `yaml:"epsilon_end"`
	Exploration  *int     `yaml:"exploration"`
}

// resolved returns a copy with every unset field defaulted.
func (q QParams) resolved() QParams {
	orDefault := func(v *float64, def float64) *float64 {
		if v != nil {
			return v
		}
		return &def
	}
	out := QParams{
		Alpha:        orDefault(q.Alpha, DefaultAlpha),
		EpsilonBegin: orDefault(q.EpsilonBegin, DefaultEpsilonBegin),
		EpsilonEnd:   orDefault(q.EpsilonEnd, DefaultEpsilonEnd),
		Exploration:  q.Exploration,
	}
	if out.Exploration == nil {
		e := DefaultExploration
		out.Exploration = &e
	}
	return out
}

// LoadConfig reads a standalone YAML pricing configuration file with strict
// field checking.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing config: %w", err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing pricing config %s: %w", path, err)
	}
	return &cfg, nil
}

// ValidPolicies is the set of recognized pricing policy names.
// Shared by Validate() and NewPolicy() to avoid duplication.
var ValidPolicies = map[string]bool{
	"":                 true,
	"static":           true,
	"greedy":           true,
	"incremental":      true,
	"qlearning":        true,
	"legacy-qlearning": true,
}

// IsValidPolicy returns true if name is a recognized pricing policy.
func IsValidPolicy(name string) bool {
	return ValidPolicies[name]
}

// Validate checks the policy name and the Q-learning parameter ranges.
func (c *Config) Validate() error {
	if !IsValidPolicy(c.Policy) {
		return fmt.Errorf("unknown pricing policy %q", c.Policy)
	}
	q := c.QLearning.resolved()
	if *q.Alpha <= 0 || *q.Alpha > 1 {
		return fmt.Errorf("alpha must be in (0,1], got %f", *q.Alpha)
	}
	if *q.EpsilonBegin <= 0 || *q.EpsilonBegin > 1 {
		return fmt.Errorf("epsilon_begin must be in (0,1], got %f", *q.EpsilonBegin)
	}
	if *q.EpsilonEnd <= 0 || *q.EpsilonEnd > *q.EpsilonBegin {
		return fmt.Errorf("epsilon_end must be in (0, epsilon_begin], got %f", *q.EpsilonEnd)
	}
	if *q.Exploration < 1 {
		return fmt.Errorf("exploration must be at least 1, got %d", *q.Exploration)
	}
	return nil
}
