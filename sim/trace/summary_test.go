package trace

import (
	"math"
	"testing"
)

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	et := NewExperimentTrace(TraceLevelDecisions)

	// WHEN summarized
	summary := Summarize(et)

	// THEN all counts are zero
	if summary.PriceDecisions != 0 || summary.Episodes != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if summary.MeanPrice != 0 || summary.StdDevPrice != 0 {
		t.Error("expected zero price statistics")
	}
	if len(summary.Segments) != 0 {
		t.Error("expected no segment summaries")
	}
	if Summarize(nil).PriceDecisions != 0 {
		t.Error("nil trace should summarize to zero values")
	}
}

func TestSummarize_PriceStatistics(t *testing.T) {
	// GIVEN three episodes of decisions on two segments
	et := NewExperimentTrace(TraceLevelDecisions)
	et.RecordPrice(PriceRecord{Episode: 1, Segment: "top", Price: 40, NextPrice: 50, Users: 2})
	et.RecordPrice(PriceRecord{Episode: 1, Segment: "bot", Price: 20, NextPrice: 20, Users: 4})
	et.RecordPrice(PriceRecord{Episode: 2, Segment: "top", Price: 50, NextPrice: 60, Users: 1, Explored: true})
	et.RecordPrice(PriceRecord{Episode: 2, Segment: "bot", Price: 20, NextPrice: 10, Users: 6})

	// WHEN summarized
	summary := Summarize(et)

	// THEN totals count decisions, changes and explorations
	if summary.Episodes != 2 || summary.PriceDecisions != 4 {
		t.Errorf("expected 2 episodes and 4 decisions, got %d and %d", summary.Episodes, summary.PriceDecisions)
	}
	if summary.PriceChanges != 3 {
		t.Errorf("expected 3 price changes, got %d", summary.PriceChanges)
	}
	if summary.Explorations != 1 {
		t.Errorf("expected 1 exploration, got %d", summary.Explorations)
	}

	// THEN mean = 130/4 and the sample deviation follows
	if summary.MeanPrice != 32.5 {
		t.Errorf("expected mean price 32.5, got %f", summary.MeanPrice)
	}
	wantStd := math.Sqrt((7.5*7.5 + 12.5*12.5 + 17.5*17.5 + 12.5*12.5) / 3)
	if math.Abs(summary.StdDevPrice-wantStd) > 1e-9 {
		t.Errorf("expected stddev %f, got %f", wantStd, summary.StdDevPrice)
	}

	// THEN segments are sorted by id and carry the last next price
	if len(summary.Segments) != 2 || summary.Segments[0].Segment != "bot" {
		t.Fatalf("unexpected segment summaries %+v", summary.Segments)
	}
	bot, top := summary.Segments[0], summary.Segments[1]
	if bot.FinalPrice != 10 || top.FinalPrice != 60 {
		t.Errorf("final prices: bot %d top %d", bot.FinalPrice, top.FinalPrice)
	}
	if bot.MeanUsers != 5 || bot.StdDevPrice != 0 {
		t.Errorf("bot summary %+v", bot)
	}
}

func TestSummarize_SingleDecisionHasZeroDeviation(t *testing.T) {
	et := NewExperimentTrace(TraceLevelDecisions)
	et.RecordPrice(PriceRecord{Episode: 1, Segment: "in", Price: 70, NextPrice: 70})

	summary := Summarize(et)

	if summary.MeanPrice != 70 || summary.StdDevPrice != 0 {
		t.Errorf("expected 70 and 0, got %f and %f", summary.MeanPrice, summary.StdDevPrice)
	}
}

func TestSummarize_DistinctRoutes(t *testing.T) {
	// GIVEN three drivers over two distinct routes
	et := NewExperimentTrace(TraceLevelRoutes)
	upper := []string{"in", "top", "top2", "out"}
	lower := []string{"in", "bot", "bot2", "out"}
	et.RecordRoute(RouteRecord{Episode: 1, DriverID: "d0", Route: upper})
	et.RecordRoute(RouteRecord{Episode: 1, DriverID: "d1", Route: lower})
	et.RecordRoute(RouteRecord{Episode: 1, DriverID: "d2", Route: upper})

	// WHEN summarized
	summary := Summarize(et)

	// THEN
	if summary.RouteDecisions != 3 || summary.DistinctRoutes != 2 {
		t.Errorf("expected 3 route decisions over 2 routes, got %d over %d", summary.RouteDecisions, summary.DistinctRoutes)
	}
}
