package driver

import (
	"math/rand"

	"github.com/roadpricing-sim/roadpricing-sim/sim/engine"
)

// FromTrips derives driver definitions from trip records: the first and last
// recorded segments become origin and destination, and every driver draws a
// preference from gen. Records without segments are skipped.
func FromTrips(trips []engine.TripRecord, gen PreferenceGenerator, rng *rand.Rand) []Definition {
	defs := make([]Definition, 0, len(trips))
	for _, trip := range trips {
		if len(trip.Segments) == 0 {
			log.Debugf("skipping trip %s without segments", trip.VehicleID)
			continue
		}
		defs = append(defs, Definition{
			ID:          trip.VehicleID,
			Origin:      trip.Segments[0],
			Destination: trip.Segments[len(trip.Segments)-1],
			Depart:      trip.Depart,
			Preference:  gen(rng),
		})
	}
	return defs
}
