package trace

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// SegmentSummary aggregates the price decisions of one segment.
type SegmentSummary struct {
	Segment     string  `yaml:"segment"`
	Decisions   int     `yaml:"decisions"`
	MeanPrice   float64 `yaml:"mean_price"`
	StdDevPrice float64 `yaml:"stddev_price"`
	FinalPrice  int     `yaml:"final_price"`
	MeanUsers   float64 `yaml:"mean_users"`
}

// TraceSummary aggregates statistics from an ExperimentTrace.
type TraceSummary struct {
	Episodes       int              `yaml:"episodes"`
	PriceDecisions int              `yaml:"price_decisions"`
	PriceChanges   int              `yaml:"price_changes"`
	Explorations   int              `yaml:"explorations"`
	MeanPrice      float64          `yaml:"mean_price"`
	StdDevPrice    float64          `yaml:"stddev_price"`
	RouteDecisions int              `yaml:"route_decisions"`
	DistinctRoutes int              `yaml:"distinct_routes"`
	Segments       []SegmentSummary `yaml:"segments"`
}

// Summarize computes aggregate statistics from an ExperimentTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(et *ExperimentTrace) *TraceSummary {
	summary := &TraceSummary{Segments: make([]SegmentSummary, 0)}
	if et == nil {
		return summary
	}

	episodes := make(map[int]bool)
	all := make([]float64, 0, len(et.Prices))
	perSegment := make(map[string][]PriceRecord)
	for _, p := range et.Prices {
		episodes[p.Episode] = true
		all = append(all, float64(p.Price))
		perSegment[p.Segment] = append(perSegment[p.Segment], p)
		if p.Changed() {
			summary.PriceChanges++
		}
		if p.Explored {
			summary.Explorations++
		}
	}
	summary.Episodes = len(episodes)
	summary.PriceDecisions = len(et.Prices)
	summary.MeanPrice, summary.StdDevPrice = meanStdDev(all)

	ids := make([]string, 0, len(perSegment))
	for id := range perSegment {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		records := perSegment[id]
		prices := make([]float64, len(records))
		users := make([]float64, len(records))
		last := records[0]
		for i, r := range records {
			prices[i] = float64(r.Price)
			users[i] = float64(r.Users)
			if r.Episode >= last.Episode {
				last = r
			}
		}
		seg := SegmentSummary{Segment: id, Decisions: len(records), FinalPrice: last.NextPrice}
		seg.MeanPrice, seg.StdDevPrice = meanStdDev(prices)
		seg.MeanUsers = stat.Mean(users, nil)
		summary.Segments = append(summary.Segments, seg)
	}

	routes := make(map[string]bool)
	for _, r := range et.Routes {
		routes[strings.Join(r.Route, " ")] = true
	}
	summary.RouteDecisions = len(et.Routes)
	summary.DistinctRoutes = len(routes)

	return summary
}

// meanStdDev returns the mean and sample standard deviation, with a zero
// deviation for fewer than two values.
func meanStdDev(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}
