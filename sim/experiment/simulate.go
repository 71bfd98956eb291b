package experiment

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"time"

	"github.com/roadpricing-sim/roadpricing-sim/sim"
	"github.com/roadpricing-sim/roadpricing-sim/sim/driver"
	"github.com/roadpricing-sim/roadpricing-sim/sim/engine"
	"github.com/roadpricing-sim/roadpricing-sim/sim/search"
	"github.com/roadpricing-sim/roadpricing-sim/sim/trace"
)

// simulate runs one live episode and returns its trip records.
func (e *Experiment) simulate(_ context.Context, k int) (*engine.RouteInfo, error) {
	eng := e.eng
	if err := eng.Start(k); err != nil {
		return nil, fmt.Errorf("starting episode %d: %w", k, err)
	}
	if e.cfg.Loader != nil {
		e.cfg.Loader.Reset()
	}
	demandRNG := e.rng.ForSubsystem(sim.SubsystemDemand(k))

	// 1. Warm-up: background traffic only, nothing observed
	for i := 0; i < e.cfg.WarmUpTime; i++ {
		if err := e.loadAuxiliary(demandRNG); err != nil {
			return nil, err
		}
		if err := eng.Step(); err != nil {
			return nil, fmt.Errorf("episode %d warm-up: %w", k, err)
		}
	}
	if e.cfg.WarmUpTime > 0 {
		log.Debugf("episode %d: warmed up for %d steps", k, e.cfg.WarmUpTime)
	}

	// 2. Observed steps until every driver arrived or the cap is hit
	start := eng.Time()
	garage := e.garage()
	arrived, steps := 0, 0
	for arrived < len(e.drivers) {
		if e.cfg.TimeLimit > 0 && steps >= e.cfg.TimeLimit {
			log.Infof("episode %d: time limit of %d steps reached", k, e.cfg.TimeLimit)
			break
		}
		for len(garage) > 0 && garage[0].Depart() < eng.Time()+dispatchHorizon {
			if err := e.dispatch(k, garage[0]); err != nil {
				return nil, err
			}
			garage = garage[1:]
		}
		if err := e.loadAuxiliary(demandRNG); err != nil {
			return nil, err
		}
		if err := eng.Step(); err != nil {
			return nil, fmt.Errorf("episode %d step %d: %w", k, steps, err)
		}
		steps++
		arrived += e.notify()
		// provisional: Collecting replays occupancy from the trip records
		e.manager.Observe(eng.Occupancy)
	}

	trips, err := eng.Finish()
	if err != nil {
		return nil, fmt.Errorf("finishing episode %d: %w", k, err)
	}
	info := &engine.RouteInfo{Episode: k, Start: start, Steps: steps, Trips: trips}
	if err := engine.WriteRouteInfo(engine.RouteInfoPath(e.cfg.OutputPath, k), info); err != nil {
		return nil, err
	}
	return info, nil
}

// garage lists drivers by departure time, keeping file order among equals.
func (e *Experiment) garage() []*driver.Driver {
	g := slices.Clone(e.drivers)
	sort.SliceStable(g, func(i, j int) bool { return g[i].Depart() < g[j].Depart() })
	return g
}

// dispatch routes a driver on its current knowledge and loads its vehicle.
func (e *Experiment) dispatch(k int, d *driver.Driver) error {
	began := time.Now()
	if err := d.PrepareNextTrip(); err != nil {
		return fmt.Errorf("episode %d: %w", k, err)
	}
	e.cfg.Metrics.ObserveRouteComputation(time.Since(began))

	route := d.Route()
	if err := e.eng.AddRoute(d.ID(), route); err != nil {
		return fmt.Errorf("episode %d: loading driver %s: %w", k, d.ID(), err)
	}
	if err := e.eng.AddVehicle(d.ID(), d.ID(), d.Depart(), 0); err != nil {
		return fmt.Errorf("episode %d: loading driver %s: %w", k, d.ID(), err)
	}
	e.cfg.Trace.RecordRoute(trace.RouteRecord{
		Episode:  k,
		DriverID: d.ID(),
		Route:    slices.Clone(route),
		Cost:     search.PathCost(e.net, route, d.EdgeCost),
	})
	return nil
}

// notify tells drivers what happened in the last step and returns how many
// of them arrived.
func (e *Experiment) notify() int {
	t := e.eng.Time() - 1
	for _, id := range e.eng.DepartedIDs() {
		if d, ok := e.byID[id]; ok {
			d.OnDepart(t)
			d.PayToll(d.Origin(), e.manager.Price(d.Origin()))
		}
	}
	for _, d := range e.drivers {
		if !d.Departed() || d.Arrived() {
			continue
		}
		road := e.eng.RoadID(d.ID())
		if d.OnStep(t, road) {
			d.PayToll(road, e.manager.Price(road))
		}
	}
	arrived := 0
	for _, id := range e.eng.ArrivedIDs() {
		if d, ok := e.byID[id]; ok {
			d.OnArrive(t)
			arrived++
		}
	}
	return arrived
}

func (e *Experiment) loadAuxiliary(rng *rand.Rand) error {
	if e.cfg.Loader == nil {
		return nil
	}
	if _, err := e.cfg.Loader.Load(e.eng, rng); err != nil {
		return fmt.Errorf("loading auxiliary demand: %w", err)
	}
	return nil
}
