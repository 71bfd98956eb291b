package driver

import (
	"fmt"
	"slices"

	"github.com/roadpricing-sim/roadpricing-sim/sim/engine"
)

// PriceFunc returns the current price of a segment.
type PriceFunc func(segmentID string) int

// ApplyTrip settles an episode from the authoritative trip record: every
// exited segment updates the known travel time with the hop duration, and
// every entered segment updates the known price and is charged. The recorded
// segments become the driver's route, and provisional expenses accrued during
// the episode are discarded.
//
// A record without arrival still updates knowledge but leaves the driver
// not-arrived and returns ErrIncompleteTrip.
func (d *Driver) ApplyTrip(rec engine.TripRecord, price PriceFunc) error {
	d.expenses = 0
	d.departTime = rec.Depart
	d.route = slices.Clone(rec.Segments)
	previousExit := rec.Depart
	for i, segID := range rec.Segments {
		if i < len(rec.ExitTimes) {
			exit := rec.ExitTimes[i]
			d.kb.SetTravelTime(segID, exit-previousExit)
			previousExit = exit
		}
		p := price(segID)
		d.kb.SetPrice(segID, p)
		d.expenses += float64(p)
	}

	if !rec.Arrived() {
		d.arriveTime = NotArrived
		d.incomplete = true
		return fmt.Errorf("driver %s: %w", d.def.ID, ErrIncompleteTrip)
	}
	d.arriveTime = *rec.Arrival
	d.incomplete = false
	return nil
}

// MissingTrip settles an episode for which the engine produced no record at
// all: the driver is flagged incomplete and charged nothing.
func (d *Driver) MissingTrip() error {
	d.Reset()
	d.incomplete = true
	return fmt.Errorf("driver %s: no trip record: %w", d.def.ID, ErrIncompleteTrip)
}
