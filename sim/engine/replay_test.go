package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadpricing-sim/roadpricing-sim/sim/internal/testutil"
)

func TestDeriveLoads_MatchesLiveEngineCounts(t *testing.T) {
	// GIVEN a live run with staggered departures on both branches, observed
	// after a warm-up of 7 steps
	net := testutil.Diamond(t)
	m := NewMeso(net)
	require.NoError(t, m.Start(1))
	require.NoError(t, m.AddRoute("upper", []string{"in", "top", "top2", "out"}))
	require.NoError(t, m.AddRoute("lower", []string{"in", "bot", "bot2", "out", "back"}))
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 30; i++ {
		route := "upper"
		if i%3 == 0 {
			route = "lower"
		}
		require.NoError(t, m.AddVehicle(fmt.Sprintf("v%d", i), route, rng.Float64()*40, 0))
	}
	const warmUp, steps = 7, 90
	for i := 0; i < warmUp; i++ {
		require.NoError(t, m.Step())
	}
	var live [][]int
	for i := 0; i < steps; i++ {
		require.NoError(t, m.Step())
		row := make([]int, 0, len(net.Segments()))
		for _, s := range net.Segments() {
			row = append(row, m.load[s.ID].vehicles)
		}
		live = append(live, row)
	}
	trips, err := m.Finish()
	require.NoError(t, err)

	// WHEN loads are re-derived from the trip records alone
	loads := DeriveLoads(net, &RouteInfo{Episode: 1, Start: warmUp, Steps: steps, Trips: trips})

	// THEN every step reports the same vehicle counts
	require.Len(t, loads, steps)
	for k := range loads {
		assert.Equal(t, live[k], loads[k].Vehicles, "step %d", k)
		assert.Equal(t, float64(warmUp+k), loads[k].Time)
	}
}

func TestDeriveLoads_SpeedsFromHopDurations(t *testing.T) {
	net := testutil.Diamond(t)
	arrival := 30.0
	info := &RouteInfo{Steps: 40, Trips: []TripRecord{
		// 100 m in 20 s on "in", then 10 s on "out"
		{VehicleID: "v", Depart: 0, Arrival: &arrival, Segments: []string{"in", "out"}, ExitTimes: []float64{20, 30}},
	}}

	loads := DeriveLoads(net, info)

	in := 0  // "in" is the first segment
	out := 5 // "out" is the sixth
	assert.Equal(t, 1, loads[0].Vehicles[in])
	assert.Equal(t, 5.0, loads[0].MeanSpeed[in])
	assert.Equal(t, 0, loads[20].Vehicles[in], "left at exactly t=20")
	assert.Equal(t, 1, loads[20].Vehicles[out])
	assert.Equal(t, 10.0, loads[25].MeanSpeed[out])
	assert.Equal(t, 0, loads[30].Vehicles[out])
	assert.Equal(t, 10.0, loads[30].MeanSpeed[in], "empty segments report free-flow speed")
}

func TestDeriveLoads_UnexitedSegmentHeldToEnd(t *testing.T) {
	net := testutil.Diamond(t)
	info := &RouteInfo{Steps: 10, Trips: []TripRecord{
		{VehicleID: "stuck", Depart: 2.5, Segments: []string{"in"}},
	}}

	loads := DeriveLoads(net, info)

	assert.Equal(t, 0, loads[2].Vehicles[0])
	assert.Equal(t, 1, loads[3].Vehicles[0])
	assert.Equal(t, 1, loads[9].Vehicles[0])
	assert.Nil(t, DeriveLoads(net, &RouteInfo{}))
}
