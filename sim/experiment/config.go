package experiment

import (
	"errors"
	"fmt"

	"github.com/roadpricing-sim/roadpricing-sim/sim/demand"
	"github.com/roadpricing-sim/roadpricing-sim/sim/driver"
	"github.com/roadpricing-sim/roadpricing-sim/sim/engine"
	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
	"github.com/roadpricing-sim/roadpricing-sim/sim/observability"
	"github.com/roadpricing-sim/roadpricing-sim/sim/pricing"
	"github.com/roadpricing-sim/roadpricing-sim/sim/trace"
)

// IncompletePolicy decides what an episode does with trips that never arrived.
type IncompletePolicy string

const (
	// IncompleteWarn logs incomplete trips and reports them as -1 travel time.
	IncompleteWarn IncompletePolicy = "warn"
	// IncompleteFail aborts the experiment on the first incomplete trip.
	IncompleteFail IncompletePolicy = "fail"
)

// ValidIncompletePolicies lists the accepted IncompletePolicy values.
var ValidIncompletePolicies = map[IncompletePolicy]bool{
	"":             true,
	IncompleteWarn: true,
	IncompleteFail: true,
}

// dispatchHorizon is how far ahead of the clock drivers are routed and loaded.
const dispatchHorizon = 100

// Config is a resolved experiment: every input file has been loaded and every
// collaborator built.
type Config struct {
	Network *network.Network
	Drivers []*driver.Driver
	Pricing pricing.Config

	// Engine runs live episodes; nil uses an in-process Meso engine.
	Engine engine.Engine
	// Loader keeps auxiliary vehicles in the network; nil disables them.
	Loader demand.Loader
	// Board receives per-step mean speeds during Collecting. May be nil.
	Board *network.SpeedBoard

	Episodes     int
	StartEpisode int
	Seed         int64
	WarmUpTime   int
	// TimeLimit caps the observed steps of an episode; 0 means no cap.
	TimeLimit int

	OutputPath   string
	ResultPrefix string

	BroadcastPrices    bool
	SaveKnowledge      bool
	InitialPrices      string
	InitialTravelTimes string
	IncompleteTrips    IncompletePolicy

	Metrics *observability.Collector
	Trace   *trace.ExperimentTrace
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Network == nil {
		errs = append(errs, errors.New("network is required"))
	}
	if c.Episodes < 1 {
		errs = append(errs, fmt.Errorf("episodes must be at least 1, got %d", c.Episodes))
	}
	if c.StartEpisode < 1 || c.StartEpisode > c.Episodes {
		errs = append(errs, fmt.Errorf("start episode must lie in [1,%d], got %d", c.Episodes, c.StartEpisode))
	}
	if c.WarmUpTime < 0 {
		errs = append(errs, fmt.Errorf("warm-up time must be >= 0, got %d", c.WarmUpTime))
	}
	if c.TimeLimit < 0 {
		errs = append(errs, fmt.Errorf("time limit must be >= 0, got %d", c.TimeLimit))
	}
	if c.OutputPath == "" {
		errs = append(errs, errors.New("output path is required"))
	}
	if !ValidIncompletePolicies[c.IncompleteTrips] {
		errs = append(errs, fmt.Errorf("unknown incomplete trips policy %q", c.IncompleteTrips))
	}
	if c.Loader != nil {
		for _, d := range c.Drivers {
			if demand.IsAuxiliary(d.ID()) {
				errs = append(errs, fmt.Errorf("driver %q uses the auxiliary vehicle prefix %q", d.ID(), demand.IDPrefix))
			}
		}
	}
	if err := c.Pricing.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// prefix is the statistics file prefix, defaulting to the policy name.
func (c *Config) prefix() string {
	if c.ResultPrefix != "" {
		return c.ResultPrefix
	}
	if c.Pricing.Policy != "" {
		return c.Pricing.Policy
	}
	return "static"
}
