package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TripRecord is the authoritative account of one vehicle's trip in an episode.
// ExitTimes[i] is when the vehicle left Segments[i]; it is shorter than
// Segments when the vehicle did not leave every segment it entered.
type TripRecord struct {
	VehicleID string    `yaml:"vehicle"`
	Depart    float64   `yaml:"depart"`
	Arrival   *float64  `yaml:"arrival,omitempty"`
	Segments  []string  `yaml:"segments"`
	ExitTimes []float64 `yaml:"exit_times"`
}

// Arrived reports whether the record carries an arrival time.
func (r TripRecord) Arrived() bool { return r.Arrival != nil }

// RouteInfo is the per-episode trip record file. Start is the time of the first
// observed step and Steps the number of observed steps.
type RouteInfo struct {
	Episode int          `yaml:"episode"`
	Start   float64      `yaml:"start"`
	Steps   int          `yaml:"steps"`
	Trips   []TripRecord `yaml:"trips"`
}

// RouteInfoPath is where the trip records of an episode are stored.
func RouteInfoPath(dir string, episode int) string {
	return filepath.Join(dir, fmt.Sprintf("routeinfo_%d.yaml", episode))
}

// WriteRouteInfo saves the trip records of an episode.
func WriteRouteInfo(path string, info *RouteInfo) error {
	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshaling route info: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing route info %s: %w", path, err)
	}
	return nil
}

// ReadRouteInfo loads the trip records of an episode.
func ReadRouteInfo(path string) (*RouteInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading route info: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var info RouteInfo
	if err := dec.Decode(&info); err != nil {
		return nil, fmt.Errorf("parsing route info %s: %w", path, err)
	}
	return &info, nil
}
