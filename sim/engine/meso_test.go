package engine

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadpricing-sim/roadpricing-sim/sim/internal/testutil"
)

var lowerBranch = []string{"in", "bot", "bot2", "out"}

func runUntilArrived(t *testing.T, m *Meso, maxSteps int) []string {
	t.Helper()
	var arrived []string
	for i := 0; i < maxSteps; i++ {
		require.NoError(t, m.Step())
		arrived = append(arrived, m.ArrivedIDs()...)
	}
	return arrived
}

func TestMeso_SingleVehicleTravelsNearFreeFlow(t *testing.T) {
	// GIVEN one vehicle on the lower branch of the diamond
	m := NewMeso(testutil.Diamond(t))
	require.NoError(t, m.Start(1))
	require.NoError(t, m.AddRoute("r", lowerBranch))
	require.NoError(t, m.AddVehicle("v1", "r", 0, 0))

	// WHEN the first step runs THEN it departs onto the origin segment
	require.NoError(t, m.Step())
	assert.Equal(t, []string{"v1"}, m.DepartedIDs())
	assert.Equal(t, "in", m.RoadID("v1"))
	assert.Equal(t, []string{"v1"}, m.VehicleIDs())
	assert.InDelta(t, 0.05, m.Occupancy("in"), 1e-12, "1 vehicle over capacity 20")

	// AND it arrives after roughly the sum of free-flow times
	arrived := runUntilArrived(t, m, 60)
	assert.Equal(t, []string{"v1"}, arrived)
	assert.Equal(t, "", m.RoadID("v1"))

	records, err := m.Finish()
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, lowerBranch, rec.Segments)
	require.Len(t, rec.ExitTimes, 4)
	assert.InDelta(t, 10, rec.ExitTimes[0], 1e-3)
	assert.InDelta(t, 25, rec.ExitTimes[1], 1e-3)
	require.True(t, rec.Arrived())
	assert.InDelta(t, 50, *rec.Arrival, 1e-3)
}

func TestMeso_LoadSlowsTraversal(t *testing.T) {
	m := NewMeso(testutil.Diamond(t))
	require.NoError(t, m.Start(1))
	require.NoError(t, m.AddRoute("r", []string{"in"}))
	for i := 0; i < 20; i++ {
		require.NoError(t, m.AddVehicle(fmt.Sprintf("v%02d", i), "r", 0, 0))
	}

	require.NoError(t, m.Step())
	assert.Equal(t, 1.0, m.Occupancy("in"))
	assert.Less(t, m.MeanSpeed("in"), 10.0)

	runUntilArrived(t, m, 20)
	records, err := m.Finish()
	require.NoError(t, err)
	require.Len(t, records, 20)
	// the twentieth vehicle saw v/c = 1: 10 * (1 + 0.15)
	assert.InDelta(t, 11.5, *records[19].Arrival, 1e-9)
	assert.Less(t, *records[0].Arrival, *records[19].Arrival)
}

func TestMeso_FinishOmitsVehiclesThatNeverDeparted(t *testing.T) {
	m := NewMeso(testutil.Diamond(t))
	require.NoError(t, m.Start(2))
	require.NoError(t, m.AddRoute("r", lowerBranch))
	require.NoError(t, m.AddVehicle("early", "r", 0, 0))
	require.NoError(t, m.AddVehicle("late", "r", 1000, 0))

	runUntilArrived(t, m, 20)
	records, err := m.Finish()
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "early", records[0].VehicleID)
	assert.False(t, records[0].Arrived(), "still travelling at step 20")
	assert.Len(t, records[0].ExitTimes, 1)
	assert.Equal(t, []string{"in", "bot"}, records[0].Segments)
}

func TestMeso_DeparturePositionShortensFirstSegment(t *testing.T) {
	m := NewMeso(testutil.Diamond(t))
	require.NoError(t, m.Start(1))
	require.NoError(t, m.AddRoute("r", []string{"in"}))
	require.NoError(t, m.AddVehicle("v", "r", 0, 50))

	runUntilArrived(t, m, 10)
	records, err := m.Finish()
	require.NoError(t, err)
	assert.InDelta(t, 5, *records[0].Arrival, 1e-3)
}

func TestMeso_RejectsInvalidInput(t *testing.T) {
	m := NewMeso(testutil.Diamond(t))
	assert.ErrorIs(t, m.Step(), ErrNotStarted)
	assert.ErrorIs(t, m.AddRoute("r", lowerBranch), ErrNotStarted)

	require.NoError(t, m.Start(1))
	assert.ErrorContains(t, m.AddRoute("gap", []string{"in", "top2"}), "does not continue")
	assert.ErrorContains(t, m.AddRoute("ghost", []string{"nope"}), "unknown segment")
	assert.ErrorContains(t, m.AddVehicle("v", "missing", 0, 0), "unknown route")

	require.NoError(t, m.AddRoute("r", lowerBranch))
	require.NoError(t, m.AddVehicle("v", "r", 0, 0))
	assert.ErrorContains(t, m.AddVehicle("v", "r", 0, 0), "already added")
}

func TestEventHeap_LeaveBeforeDepartAtSameTime(t *testing.T) {
	h := NewEventHeap()
	h.schedule(&event{at: 5, kind: departEvent})
	h.schedule(&event{at: 5, kind: leaveEvent})
	h.schedule(&event{at: 3, kind: departEvent})

	assert.Equal(t, 3.0, h.popNext().at)
	assert.Equal(t, leaveEvent, h.popNext().kind)
	assert.Equal(t, departEvent, h.popNext().kind)
	assert.Nil(t, h.popNext())
}

func TestRouteInfo_WriteThenRead(t *testing.T) {
	path := RouteInfoPath(t.TempDir(), 3)
	assert.Equal(t, "routeinfo_3.yaml", filepath.Base(path))

	arrival := 41.25
	info := &RouteInfo{Episode: 3, Steps: 120, Trips: []TripRecord{
		{VehicleID: "d0", Depart: 0, Arrival: &arrival, Segments: []string{"in", "out"}, ExitTimes: []float64{10.125, 41.25}},
		{VehicleID: "aux1", Depart: 5, Segments: []string{"top"}, ExitTimes: []float64{}},
	}}
	require.NoError(t, WriteRouteInfo(path, info))

	got, err := ReadRouteInfo(path)
	require.NoError(t, err)
	assert.Equal(t, info, got)
	assert.Nil(t, got.Trips[1].Arrival)
}
