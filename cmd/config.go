package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/roadpricing-sim/roadpricing-sim/sim/demand"
	"github.com/roadpricing-sim/roadpricing-sim/sim/driver"
	"github.com/roadpricing-sim/roadpricing-sim/sim/experiment"
	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
	"github.com/roadpricing-sim/roadpricing-sim/sim/pricing"
	"github.com/roadpricing-sim/roadpricing-sim/sim/trace"
)

// DefaultSpeedWindow is the number of steps averaged by the network speed board.
const DefaultSpeedWindow = 500

// ExperimentConfig is the experiment YAML file. Every top-level key must be
// listed here to satisfy strict parsing.
type ExperimentConfig struct {
	Network   string   `yaml:"network"`
	Districts []string `yaml:"districts"`
	Drivers   string   `yaml:"drivers"`

	OutputPath   string `yaml:"output_path"`
	ResultPrefix string `yaml:"result_prefix"`

	Episodes     int   `yaml:"episodes"`
	StartEpisode int   `yaml:"start_episode"`
	Seed         int64 `yaml:"seed"`
	WarmUpTime   int   `yaml:"warm_up_time"`
	TimeLimit    int   `yaml:"time_limit"`

	Pricing pricing.Config `yaml:"pricing"`
	// PricingFile names a standalone pricing configuration used instead of Pricing.
	PricingFile string `yaml:"pricing_file"`

	AuxDemand int    `yaml:"aux_demand"`
	ODMatrix  string `yaml:"od_matrix"`

	CostModel   string `yaml:"cost_model"`
	SpeedWindow int    `yaml:"speed_window"`

	BroadcastPrices    bool   `yaml:"broadcast_prices"`
	InitialPrices      string `yaml:"initial_prices"`
	InitialTravelTimes string `yaml:"initial_travel_times"`
	SaveKB             bool   `yaml:"save_kb"`

	IncompleteTrips string `yaml:"incomplete_trips"`
	TraceLevel      string `yaml:"trace_level"`
}

// LoadExperimentConfig reads an experiment file with strict field checking.
// Relative paths in the file resolve against the file's directory.
func LoadExperimentConfig(path string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment config: %w", err)
	}
	var cfg ExperimentConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing experiment config %s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	if cfg.PricingFile != "" {
		if cfg.Pricing.Policy != "" {
			return nil, fmt.Errorf("experiment config %s: set either pricing or pricing_file", path)
		}
		p, err := pricing.LoadConfig(cfg.PricingFile)
		if err != nil {
			return nil, err
		}
		cfg.Pricing = *p
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *ExperimentConfig) resolvePaths(base string) {
	resolve := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	resolve(&c.Network)
	resolve(&c.Drivers)
	resolve(&c.OutputPath)
	resolve(&c.ODMatrix)
	resolve(&c.PricingFile)
	resolve(&c.InitialPrices)
	resolve(&c.InitialTravelTimes)
	for i := range c.Districts {
		resolve(&c.Districts[i])
	}
}

func (c *ExperimentConfig) applyDefaults() {
	if c.StartEpisode == 0 {
		c.StartEpisode = 1
	}
	if c.SpeedWindow == 0 {
		c.SpeedWindow = DefaultSpeedWindow
	}
	if c.IncompleteTrips == "" {
		c.IncompleteTrips = string(experiment.IncompleteWarn)
	}
	if c.ResultPrefix == "" {
		c.ResultPrefix = c.Pricing.Policy
		if c.ResultPrefix == "" {
			c.ResultPrefix = "static"
		}
	}
}

// Validate checks the fields that can be checked without touching the
// referenced files.
func (c *ExperimentConfig) Validate() error {
	var errs []error
	if c.Network == "" {
		errs = append(errs, errors.New("network file is required"))
	}
	if c.Drivers == "" {
		errs = append(errs, errors.New("drivers file is required"))
	}
	if c.OutputPath == "" {
		errs = append(errs, errors.New("output_path is required"))
	}
	if c.Episodes < 1 {
		errs = append(errs, fmt.Errorf("episodes must be at least 1, got %d", c.Episodes))
	}
	if c.StartEpisode < 1 || c.StartEpisode > c.Episodes {
		errs = append(errs, fmt.Errorf("start_episode must lie in [1,%d], got %d", c.Episodes, c.StartEpisode))
	}
	if c.AuxDemand < 0 {
		errs = append(errs, fmt.Errorf("aux_demand must be >= 0, got %d", c.AuxDemand))
	}
	if c.ODMatrix != "" && c.AuxDemand == 0 {
		errs = append(errs, errors.New("od_matrix needs aux_demand > 0"))
	}
	if c.SpeedWindow < 1 {
		errs = append(errs, fmt.Errorf("speed_window must be at least 1, got %d", c.SpeedWindow))
	}
	if !driver.IsValidCostModel(c.CostModel) {
		errs = append(errs, fmt.Errorf("unknown cost_model %q", c.CostModel))
	}
	if !experiment.ValidIncompletePolicies[experiment.IncompletePolicy(c.IncompleteTrips)] {
		errs = append(errs, fmt.Errorf("unknown incomplete_trips policy %q", c.IncompleteTrips))
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		errs = append(errs, fmt.Errorf("unknown trace_level %q", c.TraceLevel))
	}
	if err := c.Pricing.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Build loads the referenced files and assembles the experiment's
// collaborators. Metrics are left for the caller to attach.
func (c *ExperimentConfig) Build() (experiment.Config, error) {
	net, err := network.Load(c.Network, c.Districts...)
	if err != nil {
		return experiment.Config{}, err
	}
	board := network.NewSpeedBoard(net, c.SpeedWindow)
	evaluator := driver.NewEvaluator(c.CostModel, board)
	drivers, err := driver.Load(c.Drivers, net, driver.WithEvaluator(evaluator))
	if err != nil {
		return experiment.Config{}, err
	}

	var loader demand.Loader
	switch {
	case c.AuxDemand > 0 && c.ODMatrix != "":
		m, err := demand.LoadODMatrix(c.ODMatrix)
		if err != nil {
			return experiment.Config{}, err
		}
		od, err := demand.NewODLoader(net, m, c.AuxDemand)
		if err != nil {
			return experiment.Config{}, fmt.Errorf("building od loader: %w", err)
		}
		loader = od
	case c.AuxDemand > 0:
		loader = demand.NewUniformLoader(net, c.AuxDemand)
	}
	if loader != nil {
		logrus.Infof("keeping %d auxiliary vehicles in the network", c.AuxDemand)
	}

	return experiment.Config{
		Network:            net,
		Drivers:            drivers,
		Pricing:            c.Pricing,
		Loader:             loader,
		Board:              board,
		Episodes:           c.Episodes,
		StartEpisode:       c.StartEpisode,
		Seed:               c.Seed,
		WarmUpTime:         c.WarmUpTime,
		TimeLimit:          c.TimeLimit,
		OutputPath:         c.OutputPath,
		ResultPrefix:       c.ResultPrefix,
		BroadcastPrices:    c.BroadcastPrices,
		SaveKnowledge:      c.SaveKB,
		InitialPrices:      c.InitialPrices,
		InitialTravelTimes: c.InitialTravelTimes,
		IncompleteTrips:    experiment.IncompletePolicy(c.IncompleteTrips),
		Trace:              trace.NewExperimentTrace(trace.TraceLevel(c.TraceLevel)),
	}, nil
}

// TracePath is where the decision trace of the experiment is saved.
func (c *ExperimentConfig) TracePath() string {
	return filepath.Join(c.OutputPath, c.ResultPrefix+"_trace.yaml")
}
