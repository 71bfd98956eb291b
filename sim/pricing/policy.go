// Package pricing implements per-segment link pricing policies: a static
// capacity-based price, two occupancy-comparison heuristics, and two
// Q-learning variants over a fixed price ladder.
package pricing

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
)

var log = logrus.WithField("module", "pricing")

const (
	MinPrice  = 0
	MaxPrice  = 100
	PriceStep = 10

	// neutralOccupancy is the alternatives' average when a segment has none.
	neutralOccupancy = 0.5
)

// Clamp bounds a price to [MinPrice, MaxPrice].
func Clamp(price int) int {
	return lo.Clamp(price, MinPrice, MaxPrice)
}

// Env is what a policy may read about the rest of the network when it decides.
type Env struct {
	Network *network.Network
	Lookup  func(segmentID string) (Policy, bool)
}

// Decision describes one end-of-episode price update.
type Decision struct {
	Segment   string
	Price     int
	NextPrice int
	Reason    string
	Epsilon   float64
	Explored  bool
}

// Policy prices one segment across episodes. Prices are clamped on read.
type Policy interface {
	Segment() *network.Segment
	// InitializePrice sets the price of the first episode.
	InitializePrice(env *Env)
	// BeforeEpisode promotes the next price and clears per-episode counters.
	BeforeEpisode()
	// OnStep folds one occupancy sample into the running mean.
	OnStep(occupancy float64)
	IncrementUsers()
	// ResetObservations clears occupancy and users without touching prices.
	ResetObservations()
	// OnEpisodeEnd computes the next price.
	OnEpisodeEnd(env *Env) Decision
	Price() int
	NextPrice() int
	Occupancy() float64
	Users() int
}

// base carries the state every policy shares.
type base struct {
	seg       *network.Segment
	price     int
	nextPrice int
	occupancy float64
	steps     int
	users     int
}

func (b *base) Segment() *network.Segment { return b.seg }
func (b *base) Price() int                { return Clamp(b.price) }
func (b *base) NextPrice() int            { return Clamp(b.nextPrice) }
func (b *base) Occupancy() float64        { return b.occupancy }
func (b *base) Users() int                { return b.users }
func (b *base) IncrementUsers()           { b.users++ }

func (b *base) BeforeEpisode() {
	b.price = b.nextPrice
	b.ResetObservations()
}

func (b *base) ResetObservations() {
	b.occupancy = 0
	b.steps = 0
	b.users = 0
}

func (b *base) OnStep(occupancy float64) {
	b.occupancy += (occupancy - b.occupancy) / float64(b.steps+1)
	b.steps++
}

func (b *base) setPrice(p int) {
	b.price = p
	b.nextPrice = p
}

func (b *base) decision(reason string) Decision {
	return Decision{Segment: b.seg.ID, Price: b.Price(), NextPrice: b.NextPrice(), Reason: reason}
}

// NewPolicy creates a policy by name for one segment. Valid names are defined
// in ValidPolicies (bundle.go). Panics on unrecognized names.
func NewPolicy(name string, seg *network.Segment, cfg Config, rng Rand) Policy {
	if !IsValidPolicy(name) {
		panic(fmt.Sprintf("unknown pricing policy %q", name))
	}
	b := base{seg: seg}
	switch name {
	case "", "static":
		return &Static{base: b}
	case "greedy":
		return &Greedy{base: b}
	case "incremental":
		return &Incremental{base: b}
	case "qlearning":
		return &QLearning{base: b, learner: newQLearner(cfg.QLearning.resolved(), rng), reward: usersReward}
	case "legacy-qlearning":
		return &QLearning{base: b, learner: newQLearner(cfg.QLearning.resolved(), rng), reward: legacyReward}
	default:
		panic(fmt.Sprintf("unhandled pricing policy %q", name))
	}
}
