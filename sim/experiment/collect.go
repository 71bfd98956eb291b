package experiment

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/roadpricing-sim/roadpricing-sim/sim/driver"
	"github.com/roadpricing-sim/roadpricing-sim/sim/engine"
	"github.com/roadpricing-sim/roadpricing-sim/sim/observability"
	"github.com/roadpricing-sim/roadpricing-sim/sim/pricing"
	"github.com/roadpricing-sim/roadpricing-sim/sim/stats"
	"github.com/roadpricing-sim/roadpricing-sim/sim/trace"
)

// collect settles an episode from its trip records alone: segment occupancy
// and speeds are replayed step by step, users counted per trip, and every
// driver's knowledge updated. It then writes the episode's statistics rows.
func (e *Experiment) collect(k int, info *engine.RouteInfo, replay bool) (EpisodeResult, error) {
	result := EpisodeResult{Episode: k, Replayed: replay, Steps: info.Steps}

	// 1. Segment observations
	e.manager.ResetObservations()
	segs := e.net.Segments()
	for _, load := range engine.DeriveLoads(e.net, info) {
		e.manager.Observe(func(id string) float64 {
			i := e.segIndex[id]
			return segs[i].Occupancy(load.Vehicles[i])
		})
		if e.cfg.Board != nil {
			for i, s := range segs {
				e.cfg.Board.Observe(s.ID, load.MeanSpeed[i])
			}
		}
	}
	for _, trip := range info.Trips {
		for _, id := range lo.Uniq(trip.Segments) {
			e.manager.IncrementUsers(id)
		}
	}

	// 2. Driver knowledge
	records := lo.KeyBy(info.Trips, func(r engine.TripRecord) string { return r.VehicleID })
	for _, d := range e.drivers {
		var err error
		if rec, ok := records[d.ID()]; ok {
			err = d.ApplyTrip(rec, e.manager.Price)
		} else {
			err = d.MissingTrip()
		}
		switch {
		case err == nil:
			result.Arrived++
		case errors.Is(err, driver.ErrIncompleteTrip):
			result.Incomplete++
			if e.cfg.IncompleteTrips == IncompleteFail {
				return result, fmt.Errorf("episode %d: %w", k, err)
			}
			log.Warnf("episode %d: %v", k, err)
		default:
			return result, fmt.Errorf("episode %d: %w", k, err)
		}
	}

	// 3. Statistics
	if err := e.writeStats(k); err != nil {
		return result, err
	}
	if err := e.saveKnowledge(k, info.Steps); err != nil {
		return result, err
	}
	e.cfg.Metrics.RecordEpisode(e.report(result))
	return result, nil
}

func (e *Experiment) writeStats(k int) error {
	label := episodeLabel(k)
	rows := []struct {
		kind   stats.Kind
		values []string
	}{
		{stats.DriverTravelTime, stats.FormatFloats(lo.Map(e.drivers, func(d *driver.Driver, _ int) float64 { return d.NormTravelTime() }))},
		{stats.DriverExpenses, stats.FormatFloats(lo.Map(e.drivers, func(d *driver.Driver, _ int) float64 { return d.TripExpenses() }))},
		{stats.DriverCost, stats.FormatFloats(lo.Map(e.drivers, func(d *driver.Driver, _ int) float64 { return d.PerceivedTripCost() }))},
		{stats.SegmentOccupancy, stats.FormatFloats(lo.Map(e.manager.Policies(), func(p pricing.Policy, _ int) float64 { return p.Occupancy() }))},
		{stats.SegmentPrice, stats.FormatInts(e.manager.Prices())},
		{stats.SegmentUsers, stats.FormatInts(lo.Map(e.manager.Policies(), func(p pricing.Policy, _ int) int { return p.Users() }))},
	}
	for _, row := range rows {
		if err := e.stats.Write(row.kind, label, row.values); err != nil {
			return fmt.Errorf("episode %d: %w", k, err)
		}
	}
	return nil
}

func (e *Experiment) report(r EpisodeResult) observability.EpisodeReport {
	return observability.EpisodeReport{
		Episode:    r.Episode,
		Replayed:   r.Replayed,
		Arrived:    r.Arrived,
		Incomplete: r.Incomplete,
		Segments: lo.Map(e.manager.Policies(), func(p pricing.Policy, _ int) observability.SegmentReport {
			return observability.SegmentReport{
				ID:        p.Segment().ID,
				Price:     p.Price(),
				Occupancy: p.Occupancy(),
				Users:     p.Users(),
			}
		}),
	}
}

func traceRecord(k int, dec pricing.Decision, p pricing.Policy) trace.PriceRecord {
	rec := trace.PriceRecord{
		Episode:   k,
		Segment:   dec.Segment,
		Price:     dec.Price,
		NextPrice: dec.NextPrice,
		Reason:    dec.Reason,
		Epsilon:   dec.Epsilon,
		Explored:  dec.Explored,
	}
	if p != nil {
		rec.Occupancy = p.Occupancy()
		rec.Users = p.Users()
	}
	return rec
}
