package pricing

import (
	"fmt"
	"math"
)

// Rand is the subset of *rand.Rand the learners draw from.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// ladder is the set of prices a learner may choose from.
var ladder = func() []int {
	var prices []int
	for p := MinPrice; p <= MaxPrice; p += PriceStep {
		prices = append(prices, p)
	}
	return prices
}()

func ladderIndex(price int) int {
	return (Clamp(price) - MinPrice) / PriceStep
}

// rewardFunc scores the episode a policy just finished.
type rewardFunc func(users, price, steps int) float64

func usersReward(users, _, _ int) float64 {
	return float64(users)
}

func legacyReward(users, price, steps int) float64 {
	return float64(users*price) - float64(steps)*30*math.Exp(-float64(users))
}

// qLearner is a stateless (single-state) epsilon-greedy learner over the price ladder.
type qLearner struct {
	alpha       float64
	epsilon     float64
	epsilonEnd  float64
	decay       float64
	exploration int
	iteration   int
	q           []float64
	rng         Rand
}

func newQLearner(p QParams, rng Rand) *qLearner {
	return &qLearner{
		alpha:       *p.Alpha,
		epsilon:     *p.EpsilonBegin,
		epsilonEnd:  *p.EpsilonEnd,
		decay:       math.Pow(*p.EpsilonEnd / *p.EpsilonBegin, 1/float64(*p.Exploration)),
		exploration: *p.Exploration,
		iteration:   1,
		q:           make([]float64, len(ladder)),
		rng:         rng,
	}
}

func (l *qLearner) update(price int, reward float64) {
	i := ladderIndex(price)
	l.q[i] = l.alpha*reward + (1-l.alpha)*l.q[i]
}

// decayEpsilon shrinks epsilon geometrically for the first exploration
// iterations, landing exactly on the floor at the last one.
func (l *qLearner) decayEpsilon() {
	if l.iteration > l.exploration {
		return
	}
	if l.iteration == l.exploration {
		l.epsilon = l.epsilonEnd
	} else {
		l.epsilon *= l.decay
	}
	l.iteration++
}

func (l *qLearner) randomPrice() int {
	return ladder[l.rng.Intn(len(ladder))]
}

// best is the arg-max of the value table; ties go to the lowest price.
func (l *qLearner) best() int {
	bi := 0
	for i, v := range l.q {
		if v > l.q[bi] {
			bi = i
		}
	}
	return ladder[bi]
}

func (l *qLearner) choose() (price int, explored bool) {
	if l.rng.Float64() < l.epsilon {
		return l.randomPrice(), true
	}
	return l.best(), false
}

// QLearning learns the price that maximizes its reward; the reward function
// distinguishes the usage-driven variant from the legacy revenue variant.
type QLearning struct {
	base
	learner *qLearner
	reward  rewardFunc
}

func (p *QLearning) InitializePrice(_ *Env) {
	p.setPrice(p.learner.randomPrice())
}

func (p *QLearning) OnEpisodeEnd(_ *Env) Decision {
	price := p.Price()
	r := p.reward(p.users, price, p.steps)
	p.learner.update(price, r)
	// The draw uses this episode's epsilon; decay applies to the next one.
	eps := p.learner.epsilon
	next, explored := p.learner.choose()
	p.learner.decayEpsilon()
	p.nextPrice = next

	d := p.decision(fmt.Sprintf("reward %.4g", r))
	d.Epsilon = eps
	d.Explored = explored
	return d
}

// Epsilon is the current exploration rate.
func (p *QLearning) Epsilon() float64 { return p.learner.epsilon }

// Values returns a copy of the value table, one entry per ladder price.
func (p *QLearning) Values() map[int]float64 {
	out := make(map[int]float64, len(ladder))
	for i, price := range ladder {
		out[price] = p.learner.q[i]
	}
	return out
}
