package trace

import (
	"path/filepath"
	"testing"
)

func TestExperimentTrace_RecordPrice_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	et := NewExperimentTrace(TraceLevelDecisions)

	// WHEN a price decision is recorded
	et.RecordPrice(PriceRecord{Episode: 1, Segment: "top", Price: 50, NextPrice: 60, Reason: "above alternatives"})

	// THEN the trace contains it
	if len(et.Prices) != 1 {
		t.Fatalf("expected 1 price record, got %d", len(et.Prices))
	}
	if et.Prices[0].Segment != "top" || !et.Prices[0].Changed() {
		t.Errorf("unexpected record %+v", et.Prices[0])
	}
}

func TestExperimentTrace_RoutesOnlyAtRoutesLevel(t *testing.T) {
	decisions := NewExperimentTrace(TraceLevelDecisions)
	routes := NewExperimentTrace(TraceLevelRoutes)

	rec := RouteRecord{Episode: 1, DriverID: "d0", Route: []string{"in", "top", "top2", "out"}, Cost: 120}
	decisions.RecordRoute(rec)
	routes.RecordRoute(rec)

	if len(decisions.Routes) != 0 {
		t.Errorf("decisions level should not keep routes, got %d", len(decisions.Routes))
	}
	if len(routes.Routes) != 1 {
		t.Errorf("expected 1 route record, got %d", len(routes.Routes))
	}
}

func TestExperimentTrace_NoneIsNilAndSafe(t *testing.T) {
	et := NewExperimentTrace(TraceLevelNone)
	if et != nil {
		t.Fatal("expected nil trace for level none")
	}
	// nil receivers record nothing without panicking
	et.RecordPrice(PriceRecord{Segment: "in"})
	et.RecordRoute(RouteRecord{DriverID: "d0"})
}

func TestExperimentTrace_SaveLoad_PreservesRecords(t *testing.T) {
	// GIVEN a trace with one of each record
	et := NewExperimentTrace(TraceLevelRoutes)
	et.RecordPrice(PriceRecord{Episode: 2, Segment: "bot", Price: 30, NextPrice: 30, Users: 4, Epsilon: 0.5, Explored: true, Reason: "explore"})
	et.RecordRoute(RouteRecord{Episode: 2, DriverID: "d1", Route: []string{"in", "bot", "bot2", "out"}, Cost: 42.5})
	path := filepath.Join(t.TempDir(), "trace.yaml")

	// WHEN saved and loaded back
	if err := et.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// THEN the records survive
	if got.Level != TraceLevelRoutes || len(got.Prices) != 1 || len(got.Routes) != 1 {
		t.Fatalf("unexpected trace %+v", got)
	}
	if got.Prices[0] != et.Prices[0] {
		t.Errorf("price record mismatch: %+v vs %+v", got.Prices[0], et.Prices[0])
	}
	if got.Routes[0].Cost != 42.5 || len(got.Routes[0].Route) != 4 {
		t.Errorf("route record mismatch: %+v", got.Routes[0])
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"decisions", true},
		{"routes", true},
		{"", true},
		{"verbose", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := IsValidTraceLevel(tt.level); got != tt.valid {
				t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
			}
		})
	}
}
