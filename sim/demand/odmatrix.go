package demand

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// ODPair is one origin-destination district pair and its relative demand.
type ODPair struct {
	Origin      string  `yaml:"origin"`
	Destination string  `yaml:"destination"`
	Weight      float64 `yaml:"weight"`
}

// ODMatrix is the auxiliary demand between districts.
type ODMatrix struct {
	Pairs []ODPair `yaml:"pairs"`
}

// LoadODMatrix reads an OD matrix YAML file.
func LoadODMatrix(path string) (*ODMatrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading od matrix: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m ODMatrix
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing od matrix %s: %w", path, err)
	}
	for i, p := range m.Pairs {
		if p.Weight < 0 {
			return nil, fmt.Errorf("od matrix %s: pair %d (%s -> %s) has negative weight", path, i, p.Origin, p.Destination)
		}
	}
	return &m, nil
}

// weightedSelection returns an index with probability proportional to its
// weight, or -1 when every weight is zero.
func weightedSelection(weights []float64, rng *rand.Rand) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return -1
	}
	variate := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if variate < cumulative {
			return i
		}
	}
	return len(weights) - 1
}
