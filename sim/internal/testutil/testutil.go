// Package testutil provides shared test fixtures for the roadpricing-sim packages:
// small reference networks and floating-point assertion helpers.
package testutil

import (
	"math"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
)

// Diamond builds the reference network used across package tests:
//
//	s --in--> o --top--> a --top2--> d --out--> t --back--> s
//	          o --bot--> b --bot2--> d
//
// "bot" has three lanes, so it holds the highest capacity (90). Node coordinates never
// exceed segment lengths, making straight-line distance an admissible heuristic.
func Diamond(t *testing.T) *network.Network {
	t.Helper()
	b := network.NewBuilder().
		AddNode("s", 0, 0).
		AddNode("o", 100, 0).
		AddNode("a", 200, 100).
		AddNode("b", 200, -100).
		AddNode("d", 300, 0).
		AddNode("t", 400, 0).
		AddSegment("in", "s", "o", 100, 1, 10).
		AddSegment("top", "o", "a", 150, 1, 10).
		AddSegment("top2", "a", "d", 150, 1, 10).
		AddSegment("bot", "o", "b", 150, 3, 10).
		AddSegment("bot2", "b", "d", 150, 1, 10).
		AddSegment("out", "d", "t", 100, 1, 10).
		AddSegment("back", "t", "s", 410, 1, 10)
	net, err := b.Build()
	if err != nil {
		t.Fatalf("building diamond network: %v", err)
	}
	return net
}

// Testdata returns the absolute path of a file under the repository testdata/ directory.
func Testdata(t *testing.T, name string) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// sim/internal/testutil/ -> repo root testdata/
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", name)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
