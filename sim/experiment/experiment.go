// Package experiment runs the closed pricing loop. Every episode drivers route
// on what they know, the engine simulates their trips, drivers and policies
// learn from the recorded trips, and policies choose the next prices.
//
// Each episode walks Idle → Preparing → Simulating → Collecting → Adjusting →
// Idle. Episodes before the configured start episode are replayed from their
// saved trip records and skip Simulating; since Collecting only reads the
// record, a replayed episode writes the same statistics rows as the live one.
package experiment

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/roadpricing-sim/roadpricing-sim/sim"
	"github.com/roadpricing-sim/roadpricing-sim/sim/driver"
	"github.com/roadpricing-sim/roadpricing-sim/sim/engine"
	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
	"github.com/roadpricing-sim/roadpricing-sim/sim/observability"
	"github.com/roadpricing-sim/roadpricing-sim/sim/pricing"
	"github.com/roadpricing-sim/roadpricing-sim/sim/stats"
)

var log = logrus.WithField("module", "experiment")

// EpisodeResult summarizes one finished episode.
type EpisodeResult struct {
	Episode    int
	Replayed   bool
	Steps      int
	Arrived    int
	Incomplete int
}

// Experiment drives a fixed set of drivers through repeated episodes.
type Experiment struct {
	cfg      Config
	net      *network.Network
	drivers  []*driver.Driver
	byID     map[string]*driver.Driver
	segIndex map[string]int
	manager  *pricing.Manager
	eng      engine.Engine
	rng      *sim.PartitionedRNG
	stats    *stats.Set

	state   State
	hasRun  bool
	results []EpisodeResult
}

// New validates cfg and builds the experiment. Unset fields get their defaults:
// start episode 1, incomplete trips warn, and an in-process engine.
func New(cfg Config) (*Experiment, error) {
	if cfg.StartEpisode == 0 {
		cfg.StartEpisode = 1
	}
	if cfg.IncompleteTrips == "" {
		cfg.IncompleteTrips = IncompleteWarn
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment: %w", err)
	}
	if cfg.Engine == nil {
		cfg.Engine = engine.NewMeso(cfg.Network)
	}

	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	segIndex := make(map[string]int, len(cfg.Network.Segments()))
	for i, id := range cfg.Network.SegmentIDs() {
		segIndex[id] = i
	}
	return &Experiment{
		cfg:      cfg,
		net:      cfg.Network,
		drivers:  cfg.Drivers,
		byID:     lo.KeyBy(cfg.Drivers, func(d *driver.Driver) string { return d.ID() }),
		segIndex: segIndex,
		manager:  pricing.NewManager(cfg.Network, cfg.Pricing, rng.ForSubsystem(sim.SubsystemPricing)),
		eng:      cfg.Engine,
		rng:      rng,
		state:    Idle,
	}, nil
}

// State is the current phase of the loop.
func (e *Experiment) State() State { return e.state }

// Manager exposes the pricing policies.
func (e *Experiment) Manager() *pricing.Manager { return e.manager }

// Results lists the finished episodes in order.
func (e *Experiment) Results() []EpisodeResult { return e.results }

// Run executes every episode. The context is checked between episodes only:
// an episode that has started runs to completion or to the step cap.
func (e *Experiment) Run(ctx context.Context) (err error) {
	if e.hasRun {
		panic("Experiment.Run() called more than once")
	}
	e.hasRun = true

	// 1. Prices and knowledge before the first episode
	e.manager.InitializePrices()
	if err := e.loadKnowledge(); err != nil {
		return err
	}

	// 2. Statistics are regenerated from episode 1; replayed episodes rewrite their rows
	dir, prefix := e.cfg.OutputPath, e.cfg.prefix()
	if err := stats.RemoveSet(dir, prefix); err != nil {
		return err
	}
	e.stats, err = stats.OpenSet(dir, prefix, stats.Headers{
		DriverIDs:     lo.Map(e.drivers, func(d *driver.Driver, _ int) string { return d.ID() }),
		Preferences:   lo.Map(e.drivers, func(d *driver.Driver, _ int) float64 { return d.Preference() }),
		SegmentIDs:    e.net.SegmentIDs(),
		InitialPrices: e.manager.Prices(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.stats.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing statistics: %w", cerr)
		}
	}()

	// 3. Episodes
	if e.cfg.StartEpisode > 1 {
		log.Infof("replaying %d episode(s) from %s to resume the experiment", e.cfg.StartEpisode-1, dir)
	}
	for k := 1; k <= e.cfg.Episodes; k++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("experiment stopped before episode %d: %w", k, err)
		}
		if err := e.runEpisode(ctx, k, k < e.cfg.StartEpisode); err != nil {
			return err
		}
	}
	e.transition(Done)
	log.Infof("experiment finished after %d episodes", e.cfg.Episodes)
	return nil
}

func (e *Experiment) runEpisode(ctx context.Context, k int, replay bool) error {
	ctx, span := observability.StartPhase(ctx, "episode", k)
	span.SetAttributes(attribute.Bool("replay", replay))
	defer span.End()

	var info *engine.RouteInfo
	if err := e.phase(ctx, k, Preparing, func(context.Context) error {
		e.prepare()
		return nil
	}); err != nil {
		return err
	}
	if replay {
		var err error
		if info, err = engine.ReadRouteInfo(engine.RouteInfoPath(e.cfg.OutputPath, k)); err != nil {
			return fmt.Errorf("replaying episode %d: %w", k, err)
		}
	} else {
		if err := e.phase(ctx, k, Simulating, func(ctx context.Context) error {
			var err error
			info, err = e.simulate(ctx, k)
			return err
		}); err != nil {
			return err
		}
	}

	var result EpisodeResult
	if err := e.phase(ctx, k, Collecting, func(context.Context) error {
		var err error
		result, err = e.collect(k, info, replay)
		return err
	}); err != nil {
		return err
	}
	if err := e.phase(ctx, k, Adjusting, func(context.Context) error {
		e.adjust(k)
		return nil
	}); err != nil {
		return err
	}
	e.transition(Idle)

	e.results = append(e.results, result)
	mode := "live"
	if replay {
		mode = "replayed"
	}
	log.Infof("episode %d (%s): %d/%d drivers arrived in %d steps, %d incomplete",
		k, mode, result.Arrived, len(e.drivers), result.Steps, result.Incomplete)
	return nil
}

// phase enters a state and runs its work inside a span.
func (e *Experiment) phase(ctx context.Context, k int, s State, work func(context.Context) error) error {
	e.transition(s)
	ctx, span := observability.StartPhase(ctx, s.String(), k)
	defer span.End()
	if err := work(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (e *Experiment) transition(to State) {
	if !canTransition(e.state, to) {
		panic(fmt.Sprintf("illegal episode transition %s -> %s", e.state, to))
	}
	log.Debugf("%s -> %s", e.state, to)
	e.state = to
}

// prepare resets drivers and promotes the committed prices.
func (e *Experiment) prepare() {
	for _, d := range e.drivers {
		d.Reset()
	}
	e.manager.BeforeEpisode()
	if e.cfg.BroadcastPrices {
		ids := e.net.SegmentIDs()
		for _, d := range e.drivers {
			for _, id := range ids {
				d.SetKnownPrice(id, e.manager.Price(id))
			}
		}
	}
}

// adjust lets every policy choose its next price.
func (e *Experiment) adjust(k int) {
	for _, dec := range e.manager.EndEpisode() {
		p, _ := e.manager.Policy(dec.Segment)
		e.cfg.Trace.RecordPrice(traceRecord(k, dec, p))
		log.Debugf("episode %d: %s %d -> %d (%s)", k, dec.Segment, dec.Price, dec.NextPrice, dec.Reason)
	}
}

func (e *Experiment) loadKnowledge() error {
	load := func(path string, kind driver.SnapshotKind) error {
		if path == "" {
			return nil
		}
		episode, step, err := driver.LoadSnapshot(path, kind, e.drivers)
		if err != nil {
			return err
		}
		log.Infof("loaded %s knowledge from %s (episode %d, step %d)", kind, path, episode, step)
		return nil
	}
	if err := load(e.cfg.InitialPrices, driver.Prices); err != nil {
		return err
	}
	return load(e.cfg.InitialTravelTimes, driver.TravelTimes)
}

func (e *Experiment) saveKnowledge(k, step int) error {
	if !e.cfg.SaveKnowledge {
		return nil
	}
	ids := e.net.SegmentIDs()
	for _, snap := range []struct {
		kind   driver.SnapshotKind
		suffix string
	}{{driver.Prices, "kb_prc"}, {driver.TravelTimes, "kb_tt"}} {
		path := filepath.Join(e.cfg.OutputPath, e.cfg.prefix()+"_"+snap.suffix+".csv")
		if err := driver.SaveSnapshot(path, snap.kind, k, step, e.drivers, ids); err != nil {
			return err
		}
	}
	return nil
}

func episodeLabel(k int) string { return strconv.Itoa(k) }
