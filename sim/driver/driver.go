// Package driver models commuters: their preference between travel time and
// money, the knowledge base they route with, and the statistics they report at
// the end of each episode.
package driver

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
	"github.com/roadpricing-sim/roadpricing-sim/sim/search"
)

var log = logrus.WithField("module", "driver")

const (
	// NotDeparted and NotArrived mark missing trip timestamps.
	NotDeparted = -1.0
	NotArrived  = -1.0

	// DefaultKnownPrice is what a driver assumes before ever paying a toll.
	DefaultKnownPrice = 50

	// DefaultNormFactor scales travel time so that three times the free-flow
	// time maps to the same range as prices.
	DefaultNormFactor = 100.0
)

// ErrIncompleteTrip is returned when a trip record carries no arrival time.
var ErrIncompleteTrip = errors.New("incomplete trip")

// RouteError reports that a driver could not find any route.
type RouteError struct {
	DriverID    string
	Origin      string
	Destination string
	Err         error
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("driver %s: no route from %s to %s: %v", e.DriverID, e.Origin, e.Destination, e.Err)
}

func (e *RouteError) Unwrap() error { return e.Err }

// Definition is one line of a driver file.
type Definition struct {
	ID          string
	Origin      string
	Destination string
	Depart      float64
	Preference  float64
}

// Driver is a commuter repeating the same trip every episode.
type Driver struct {
	def Definition
	net *network.Network
	kb  *KnowledgeBase

	evaluator  Evaluator
	normFactor float64
	districts  map[string]bool
	route     []string
	expenses  float64

	departTime float64
	arriveTime float64
	roadID     string
	entryTime  float64
	incomplete bool
}

type options struct {
	priceInit  func(*network.Segment) int
	ttInit     func(*network.Segment) float64
	evaluator  Evaluator
	normFactor float64
}

// Option customizes driver construction.
type Option func(*options)

// WithPriceInit overrides the initial known price of every segment.
func WithPriceInit(f func(*network.Segment) int) Option {
	return func(o *options) { o.priceInit = f }
}

// WithTravelTimeInit overrides the initial known travel time of every segment.
func WithTravelTimeInit(f func(*network.Segment) float64) Option {
	return func(o *options) { o.ttInit = f }
}

// WithNormFactor sets the output factor of the normalized travel time.
func WithNormFactor(f float64) Option {
	return func(o *options) { o.normFactor = f }
}

// WithEvaluator replaces the knowledge-based edge cost used for routing.
func WithEvaluator(e Evaluator) Option {
	return func(o *options) { o.evaluator = e }
}

// New creates a driver. The preference must lie in [0,1] and both endpoints
// must be segments of net.
func New(net *network.Network, def Definition, opts ...Option) (*Driver, error) {
	if !(def.Preference >= 0 && def.Preference <= 1) {
		return nil, fmt.Errorf("driver %s: preference %v outside [0,1]", def.ID, def.Preference)
	}
	if !net.Has(def.Origin) {
		return nil, fmt.Errorf("driver %s: %w: origin %q", def.ID, search.ErrUnknownSegment, def.Origin)
	}
	if !net.Has(def.Destination) {
		return nil, fmt.Errorf("driver %s: %w: destination %q", def.ID, search.ErrUnknownSegment, def.Destination)
	}
	o := options{
		priceInit: func(*network.Segment) int { return DefaultKnownPrice },
		ttInit:    (*network.Segment).FreeFlowTime,
		evaluator:  Knowledge,
		normFactor: DefaultNormFactor,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if !(o.normFactor > 0) || math.IsInf(o.normFactor, 0) {
		return nil, fmt.Errorf("driver %s: norm factor must be positive and finite, got %v", def.ID, o.normFactor)
	}
	d := &Driver{
		def:        def,
		net:        net,
		kb:         newKnowledgeBase(net, o.priceInit, o.ttInit),
		evaluator:  o.evaluator,
		normFactor: o.normFactor,
	}
	d.Reset()
	return d, nil
}

func (d *Driver) ID() string          { return d.def.ID }
func (d *Driver) Origin() string      { return d.def.Origin }
func (d *Driver) Destination() string { return d.def.Destination }
func (d *Driver) Depart() float64     { return d.def.Depart }
func (d *Driver) Preference() float64 { return d.def.Preference }

// Definition returns the identity the driver was built from.
func (d *Driver) Definition() Definition { return d.def }

// Route is the route chosen by the last PrepareNextTrip.
func (d *Driver) Route() []string { return d.route }

// Knowledge exposes the driver's knowledge base.
func (d *Driver) Knowledge() *KnowledgeBase { return d.kb }

// KnownPrice is the last price the driver paid (or assumed) for a segment.
func (d *Driver) KnownPrice(segmentID string) int {
	return d.kb.Price(segmentID)
}

// KnownTravelTime is the last travel time the driver experienced (or assumed) on a segment.
func (d *Driver) KnownTravelTime(segmentID string) float64 {
	return d.kb.TravelTime(segmentID)
}

// SetKnownPrice overwrites one knowledge entry.
func (d *Driver) SetKnownPrice(segmentID string, price int) {
	d.kb.SetPrice(segmentID, price)
}

// SetKnownTravelTime overwrites one knowledge entry.
func (d *Driver) SetKnownTravelTime(segmentID string, tt float64) {
	d.kb.SetTravelTime(segmentID, tt)
}

// NormTT is the known travel time normalized against three times the free-flow time.
func (d *Driver) NormTT(s *network.Segment) float64 {
	return d.normFactor * d.kb.TravelTime(s.ID) / (3 * s.FreeFlowTime())
}

// EdgeCost blends normalized travel time and known price by preference.
func (d *Driver) EdgeCost(s *network.Segment) float64 {
	rho := d.def.Preference
	return rho*d.NormTT(s) + (1-rho)*float64(d.kb.Price(s.ID))
}

// Reset clears trip-scoped state, keeping identity and knowledge.
func (d *Driver) Reset() {
	d.expenses = 0
	d.departTime = NotDeparted
	d.arriveTime = NotArrived
	d.roadID = ""
	d.entryTime = 0
	d.incomplete = false
}

// PrepareNextTrip computes the route for the coming episode.
func (d *Driver) PrepareNextTrip() error {
	cost := func(s *network.Segment) float64 { return d.evaluator(d, s) }
	route, err := search.Dijkstra(d.net, d.def.Origin, d.def.Destination, cost)
	if err != nil {
		return &RouteError{DriverID: d.def.ID, Origin: d.def.Origin, Destination: d.def.Destination, Err: err}
	}
	d.route = route
	log.Debugf("driver %s route %v", d.def.ID, route)
	return nil
}

// OnDepart records the live departure time.
func (d *Driver) OnDepart(t float64) {
	d.departTime = t
	d.entryTime = t
	d.roadID = d.def.Origin
}

// OnArrive records the live arrival time.
func (d *Driver) OnArrive(t float64) {
	d.arriveTime = t
	d.roadID = ""
}

// OnStep observes the segment the vehicle is on and reports whether it just
// entered a new one.
func (d *Driver) OnStep(t float64, roadID string) bool {
	if roadID == "" || roadID == d.roadID {
		return false
	}
	d.roadID = roadID
	d.entryTime = t
	return true
}

// PayToll accrues a provisional toll during the episode; ApplyTrip settles it.
func (d *Driver) PayToll(_ string, price int) {
	d.expenses += float64(price)
}

// Departed reports whether a departure was observed this episode.
func (d *Driver) Departed() bool { return d.departTime != NotDeparted }

// Arrived reports whether an arrival was observed this episode.
func (d *Driver) Arrived() bool { return d.arriveTime != NotArrived }

// Incomplete reports whether the last applied trip record lacked an arrival.
func (d *Driver) Incomplete() bool { return d.incomplete }

// TravelTime is arrival minus departure, or -1 when either is missing.
func (d *Driver) TravelTime() float64 {
	if !d.Departed() || !d.Arrived() {
		return -1
	}
	return d.arriveTime - d.departTime
}

// NormTravelTime sums the normalized known travel time over the route, or
// returns -1 when the trip was not completed.
func (d *Driver) NormTravelTime() float64 {
	if !d.Departed() || !d.Arrived() {
		return -1
	}
	total := 0.0
	for _, id := range d.route {
		if s, ok := d.net.Segment(id); ok {
			total += d.NormTT(s)
		}
	}
	return total
}

// TripExpenses is the total toll paid in the episode.
func (d *Driver) TripExpenses() float64 { return d.expenses }

// PerceivedTripCost weighs travel time and expenses by preference.
func (d *Driver) PerceivedTripCost() float64 {
	rho := d.def.Preference
	return rho*d.TravelTime() + (1-rho)*d.expenses
}
