package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAveragingWindow_EvictsOldestPoint(t *testing.T) {
	w := NewAveragingWindow(3)

	_, ok := w.Average()
	assert.False(t, ok, "empty window has no average")

	for _, v := range []float64{1, 2, 3} {
		w.Add(v)
	}
	avg, _ := w.Average()
	assert.InDelta(t, 2.0, avg, 1e-12)

	// WHEN a fourth point arrives THEN the first one is dropped
	w.Add(10)
	avg, _ = w.Average()
	assert.InDelta(t, 5.0, avg, 1e-12)
	assert.Equal(t, 3, w.Len())
}

func TestSpeedBoard_FallsBackToFreeFlowSpeed(t *testing.T) {
	net, err := NewBuilder().
		AddSegment("e1", "a", "b", 100, 1, 10).
		AddSegment("e2", "b", "a", 100, 1, 20).
		Build()
	require.NoError(t, err)

	sb := NewSpeedBoard(net, 2)
	assert.Equal(t, 10.0, sb.MeanSpeed("e1"))

	sb.Observe("e1", 4)
	sb.Observe("e1", 6)
	sb.Observe("unknown", 1)
	assert.Equal(t, 5.0, sb.MeanSpeed("e1"))

	sb.Observe("e2", 0)
	assert.Equal(t, 20.0, sb.MeanSpeed("e2"), "non-positive mean falls back to free-flow speed")
}
