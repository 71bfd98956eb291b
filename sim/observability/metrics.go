// Package observability exposes experiment progress as Prometheus metrics and
// OpenTelemetry spans.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "observability")

// SegmentReport is the end-of-episode state of one segment.
type SegmentReport struct {
	ID        string
	Price     int
	Occupancy float64
	Users     int
}

// EpisodeReport summarizes one collected episode.
type EpisodeReport struct {
	Episode    int
	Replayed   bool
	Arrived    int
	Incomplete int
	Segments   []SegmentReport
}

// Collector bundles the experiment's Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Episodes         *prometheus.CounterVec
	Arrived          prometheus.Gauge
	IncompleteTrips  prometheus.Counter
	Revenue          prometheus.Gauge
	SegmentPrice     *prometheus.GaugeVec
	SegmentOccupancy *prometheus.GaugeVec
	SegmentUsers     *prometheus.GaugeVec
	RouteComputation prometheus.Histogram
}

// NewCollector registers the metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	episodes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roadpricing_episodes_total",
		Help: "Episodes collected, labeled by mode (live or replay).",
	}, []string{"mode"}), "roadpricing_episodes_total")
	if err != nil {
		return nil, err
	}
	arrived, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roadpricing_episode_arrived_drivers",
		Help: "Tracked drivers that arrived in the last episode.",
	}), "roadpricing_episode_arrived_drivers")
	if err != nil {
		return nil, err
	}
	incomplete, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "roadpricing_incomplete_trips_total",
		Help: "Tracked driver trips without an arrival time.",
	}), "roadpricing_incomplete_trips_total")
	if err != nil {
		return nil, err
	}
	revenue, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "roadpricing_episode_revenue",
		Help: "Sum over segments of price times users in the last episode.",
	}), "roadpricing_episode_revenue")
	if err != nil {
		return nil, err
	}
	price, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roadpricing_segment_price",
		Help: "Price of a segment in the last episode.",
	}, []string{"segment"}), "roadpricing_segment_price")
	if err != nil {
		return nil, err
	}
	occupancy, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roadpricing_segment_occupancy",
		Help: "Mean occupancy of a segment in the last episode.",
	}, []string{"segment"}), "roadpricing_segment_occupancy")
	if err != nil {
		return nil, err
	}
	users, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roadpricing_segment_users",
		Help: "Distinct vehicles that used a segment in the last episode.",
	}, []string{"segment"}), "roadpricing_segment_users")
	if err != nil {
		return nil, err
	}
	routes, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roadpricing_route_computation_seconds",
		Help:    "Wall time spent computing one driver route.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "roadpricing_route_computation_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		Episodes:         episodes,
		Arrived:          arrived,
		IncompleteTrips:  incomplete,
		Revenue:          revenue,
		SegmentPrice:     price,
		SegmentOccupancy: occupancy,
		SegmentUsers:     users,
		RouteComputation: routes,
	}, nil
}

// RecordEpisode publishes an episode report. Safe on a nil collector.
func (c *Collector) RecordEpisode(r EpisodeReport) {
	if c == nil {
		return
	}
	mode := "live"
	if r.Replayed {
		mode = "replay"
	}
	c.Episodes.WithLabelValues(mode).Inc()
	c.Arrived.Set(float64(r.Arrived))
	c.IncompleteTrips.Add(float64(r.Incomplete))
	revenue := 0.0
	for _, s := range r.Segments {
		c.SegmentPrice.WithLabelValues(s.ID).Set(float64(s.Price))
		c.SegmentOccupancy.WithLabelValues(s.ID).Set(s.Occupancy)
		c.SegmentUsers.WithLabelValues(s.ID).Set(float64(s.Users))
		revenue += float64(s.Price * s.Users)
	}
	c.Revenue.Set(revenue)
}

// ObserveRouteComputation records how long one route search took. Safe on a nil collector.
func (c *Collector) ObserveRouteComputation(d time.Duration) {
	if c == nil {
		return
	}
	c.RouteComputation.Observe(d.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("metrics server shutdown: %v", err)
		}
	}()
	log.Infof("serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics: %w", err)
	}
	return nil
}

// register tolerates collectors that were registered before with the same type.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
