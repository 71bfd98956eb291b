package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordEpisode(t *testing.T) {
	// GIVEN a collector on a private registry
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	// WHEN a live episode and a replayed episode are recorded
	c.RecordEpisode(EpisodeReport{
		Episode: 1, Arrived: 9, Incomplete: 1,
		Segments: []SegmentReport{
			{ID: "top", Price: 40, Occupancy: 0.25, Users: 3},
			{ID: "bot", Price: 10, Occupancy: 0.5, Users: 6},
		},
	})
	c.RecordEpisode(EpisodeReport{
		Episode: 2, Replayed: true, Arrived: 10,
		Segments: []SegmentReport{{ID: "top", Price: 50, Users: 2}},
	})

	// THEN the gauges hold the last episode and the counters accumulate
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Episodes.WithLabelValues("live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Episodes.WithLabelValues("replay")))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.Arrived))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.IncompleteTrips))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.Revenue))
	assert.Equal(t, 50.0, testutil.ToFloat64(c.SegmentPrice.WithLabelValues("top")))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.SegmentPrice.WithLabelValues("bot")))
	assert.Equal(t, 0.5, testutil.ToFloat64(c.SegmentOccupancy.WithLabelValues("bot")))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.SegmentUsers.WithLabelValues("bot")))
}

func TestCollector_ReRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	second.IncompleteTrips.Add(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(first.IncompleteTrips))
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordEpisode(EpisodeReport{Episode: 1})
		c.ObserveRouteComputation(time.Millisecond)
	})
}

func TestCollector_HandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.ObserveRouteComputation(2 * time.Millisecond)
	c.RecordEpisode(EpisodeReport{Episode: 1, Segments: []SegmentReport{{ID: "in", Price: 30, Users: 1}}})

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `roadpricing_segment_price{segment="in"} 30`), text)
	assert.True(t, strings.Contains(text, "roadpricing_route_computation_seconds_count 1"), text)
}
