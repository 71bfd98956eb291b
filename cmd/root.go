package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roadpricing-sim/roadpricing-sim/sim/experiment"
	"github.com/roadpricing-sim/roadpricing-sim/sim/observability"
)

var (
	configPath   string // Experiment YAML file
	logLevel     string // Log verbosity level
	episodes     int    // Overrides the configured number of episodes
	startEpisode int    // Overrides the first live episode
	seed         int64  // Overrides the configured seed
	outputPath   string // Overrides the configured output directory
	metricsAddr  string // Address serving /metrics; empty disables the server
	traceFile    string // File receiving OpenTelemetry spans; empty disables tracing
	traceLevel   string // Overrides the configured decision trace level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "roadpricing-sim",
	Short: "Closed-loop congestion pricing testbed",
}

// runCmd runs an experiment described by a YAML file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a road pricing experiment",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := LoadExperimentConfig(configPath)
		if err != nil {
			logrus.Fatalf("Failed to load experiment: %v", err)
		}
		applyOverrides(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid experiment: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		results, err := runExperiment(ctx, cfg, runOptions{MetricsAddr: metricsAddr, TraceFile: traceFile})
		if err != nil {
			logrus.Fatalf("Experiment failed: %v", err)
		}
		logrus.Infof("Experiment complete: %d episodes, results in %s", len(results), cfg.OutputPath)
	},
}

// applyOverrides copies explicitly set flags over the file's values.
func applyOverrides(cmd *cobra.Command, cfg *ExperimentConfig) {
	flags := cmd.Flags()
	if flags.Changed("episodes") {
		cfg.Episodes = episodes
	}
	if flags.Changed("start-episode") {
		cfg.StartEpisode = startEpisode
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("output") {
		cfg.OutputPath = outputPath
	}
	if flags.Changed("trace-level") {
		cfg.TraceLevel = traceLevel
	}
}

type runOptions struct {
	MetricsAddr string
	TraceFile   string
}

// runExperiment builds and runs the experiment, then saves its decision trace.
func runExperiment(ctx context.Context, cfg *ExperimentConfig, opts runOptions) ([]experiment.EpisodeResult, error) {
	tracing := observability.TracingConfig{ServiceName: "roadpricing-sim"}
	if opts.TraceFile != "" {
		f, err := os.Create(opts.TraceFile)
		if err != nil {
			return nil, fmt.Errorf("creating trace file: %w", err)
		}
		defer f.Close()
		tracing.Enabled = true
		tracing.Writer = f
	}
	shutdown, err := observability.InitTracing(ctx, tracing)
	if err != nil {
		return nil, err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown)

	ecfg, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	if opts.MetricsAddr != "" {
		collector, err := observability.NewCollector(nil)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
		ecfg.Metrics = collector
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := collector.Serve(serveCtx, opts.MetricsAddr); err != nil {
				logrus.Errorf("Metrics server stopped: %v", err)
			}
		}()
	}

	e, err := experiment.New(ecfg)
	if err != nil {
		return nil, err
	}
	if err := e.Run(ctx); err != nil {
		return e.Results(), err
	}

	if ecfg.Trace != nil {
		if err := ecfg.Trace.Save(cfg.TracePath()); err != nil {
			return e.Results(), err
		}
		logrus.Infof("Decision trace written to %s", cfg.TracePath())
	}
	return e.Results(), nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Experiment YAML file")
	_ = runCmd.MarkFlagRequired("config")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Overrides of the experiment file
	runCmd.Flags().IntVar(&episodes, "episodes", 0, "Total number of episodes")
	runCmd.Flags().IntVar(&startEpisode, "start-episode", 1, "First live episode; earlier episodes are replayed from their trip records")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed for demand, exploration and preferences")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Directory for statistics, trip records and snapshots")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "", "Decision trace level (none, decisions, routes)")

	// Observability
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().StringVar(&traceFile, "trace-file", "", "Write OpenTelemetry episode spans to this file")

	rootCmd.AddCommand(runCmd)
}
