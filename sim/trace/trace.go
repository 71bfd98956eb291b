package trace

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures price decisions only.
	TraceLevelDecisions TraceLevel = "decisions"
	// TraceLevelRoutes captures price decisions and every driver route.
	TraceLevelRoutes TraceLevel = "routes"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	TraceLevelRoutes:    true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// ExperimentTrace collects decision records during an experiment.
type ExperimentTrace struct {
	Level  TraceLevel    `yaml:"level"`
	Prices []PriceRecord `yaml:"prices"`
	Routes []RouteRecord `yaml:"routes,omitempty"`
}

// NewExperimentTrace creates a trace ready for recording. A nil trace records nothing.
func NewExperimentTrace(level TraceLevel) *ExperimentTrace {
	if level == "" || level == TraceLevelNone {
		return nil
	}
	return &ExperimentTrace{
		Level:  level,
		Prices: make([]PriceRecord, 0),
	}
}

// RecordPrice appends a price decision.
func (et *ExperimentTrace) RecordPrice(record PriceRecord) {
	if et == nil {
		return
	}
	et.Prices = append(et.Prices, record)
}

// RecordRoute appends a route decision when the level includes routes.
func (et *ExperimentTrace) RecordRoute(record RouteRecord) {
	if et == nil || et.Level != TraceLevelRoutes {
		return
	}
	et.Routes = append(et.Routes, record)
}

// Save writes the trace as YAML.
func (et *ExperimentTrace) Save(path string) error {
	data, err := yaml.Marshal(et)
	if err != nil {
		return fmt.Errorf("marshaling trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing trace %s: %w", path, err)
	}
	return nil
}

// Load reads a trace written by Save.
func Load(path string) (*ExperimentTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var et ExperimentTrace
	if err := dec.Decode(&et); err != nil {
		return nil, fmt.Errorf("parsing trace %s: %w", path, err)
	}
	if !IsValidTraceLevel(string(et.Level)) {
		return nil, fmt.Errorf("parsing trace %s: unknown level %q", path, et.Level)
	}
	return &et, nil
}
