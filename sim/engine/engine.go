// Package engine defines the boundary between the episode loop and the traffic
// simulation, and provides Meso, an in-process event-driven implementation.
//
// Time advances in whole steps of one simulated second. Vehicles are added with
// a route and a departure time; once an episode finishes, Finish returns one
// TripRecord per vehicle that departed, which is the authoritative account of
// the episode.
package engine

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "engine")

// ErrNotStarted is returned by operations that need a running episode.
var ErrNotStarted = errors.New("engine episode not started")

// Engine is a step-driven traffic simulation.
type Engine interface {
	// Start clears all vehicles and routes and begins an episode at time 0.
	Start(episode int) error
	// Step advances the simulation by one step.
	Step() error
	// Time is the time the next Step will simulate.
	Time() float64
	AddRoute(id string, segments []string) error
	// AddVehicle schedules a vehicle on a known route, departing at depart
	// from pos meters along the first segment.
	AddVehicle(id, routeID string, depart, pos float64) error
	// DepartedIDs and ArrivedIDs report the transitions of the last step.
	DepartedIDs() []string
	ArrivedIDs() []string
	// VehicleIDs lists vehicles currently on the network, sorted.
	VehicleIDs() []string
	// RoadID is the segment a vehicle is on, or "" when it is not on the network.
	RoadID(vehicleID string) string
	Occupancy(segmentID string) float64
	MeanSpeed(segmentID string) float64
	// Finish ends the episode and returns its trip records.
	Finish() ([]TripRecord, error)
}
