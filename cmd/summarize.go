package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roadpricing-sim/roadpricing-sim/sim/stats"
	"github.com/roadpricing-sim/roadpricing-sim/sim/trace"
)

var (
	summaryTrace  string
	summaryStats  string
	summaryPrefix string
)

// Summary is what the summarize command prints.
type Summary struct {
	Trace      *trace.TraceSummary `yaml:"trace,omitempty"`
	Statistics []StatisticSummary  `yaml:"statistics,omitempty"`
}

// StatisticSummary is the per-episode mean of one statistics file. Drivers
// without a travel time (-1) are left out of the means.
type StatisticSummary struct {
	Kind     string    `yaml:"kind"`
	Episodes []int     `yaml:"episodes"`
	Means    []float64 `yaml:"means"`
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a decision trace and the statistics files of an experiment",
	Run: func(cmd *cobra.Command, args []string) {
		if summaryTrace == "" && summaryStats == "" {
			logrus.Fatalf("Nothing to summarize: pass --trace and/or --stats")
		}
		s, err := buildSummary(summaryTrace, summaryStats, summaryPrefix)
		if err != nil {
			logrus.Fatalf("Summary failed: %v", err)
		}
		if err := writeSummary(os.Stdout, s); err != nil {
			logrus.Fatalf("Summary failed: %v", err)
		}
	},
}

// buildSummary reads the decision trace and every statistics file that exists
// under statsDir with the given prefix. Empty arguments skip that part.
func buildSummary(tracePath, statsDir, prefix string) (*Summary, error) {
	s := &Summary{}
	if tracePath != "" {
		et, err := trace.Load(tracePath)
		if err != nil {
			return nil, err
		}
		s.Trace = trace.Summarize(et)
	}
	if statsDir == "" {
		return s, nil
	}
	kinds := append(append([]stats.Kind{}, stats.DriverKinds...), stats.SegmentKinds...)
	for _, kind := range kinds {
		table, err := stats.ReadTable(stats.Path(statsDir, prefix, kind))
		if errors.Is(err, fs.ErrNotExist) {
			logrus.Warnf("No %s statistics under %s", kind, statsDir)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.Statistics = append(s.Statistics, StatisticSummary{
			Kind:     string(kind),
			Episodes: table.Episodes,
			Means:    table.EpisodeMeans(),
		})
	}
	return s, nil
}

func writeSummary(w io.Writer, s *Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return enc.Close()
}

func init() {
	summarizeCmd.Flags().StringVar(&summaryTrace, "trace", "", "Decision trace file (<prefix>_trace.yaml)")
	summarizeCmd.Flags().StringVar(&summaryStats, "stats", "", "Directory holding the statistics files")
	summarizeCmd.Flags().StringVar(&summaryPrefix, "prefix", "static", "Statistics file prefix")

	rootCmd.AddCommand(summarizeCmd)
}
