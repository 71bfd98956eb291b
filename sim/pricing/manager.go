package pricing

import (
	"github.com/samber/lo"

	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
)

// Manager owns one policy per segment and drives them through an episode.
// Policies are visited in network segment order, which keeps draws from the
// shared random source reproducible.
type Manager struct {
	net      *network.Network
	name     string
	order    []string
	policies map[string]Policy
	env      *Env
}

// NewManager creates a policy for every segment. The configuration must have
// been validated; unknown policy names panic.
func NewManager(net *network.Network, cfg Config, rng Rand) *Manager {
	m := &Manager{
		net:      net,
		name:     cfg.Policy,
		order:    net.SegmentIDs(),
		policies: make(map[string]Policy, len(net.Segments())),
	}
	for _, s := range net.Segments() {
		m.policies[s.ID] = NewPolicy(cfg.Policy, s, cfg, rng)
	}
	m.env = &Env{Network: net, Lookup: m.Policy}
	return m
}

// Name is the configured policy name.
func (m *Manager) Name() string {
	if m.name == "" {
		return "static"
	}
	return m.name
}

// Policy returns the policy of one segment.
func (m *Manager) Policy(segmentID string) (Policy, bool) {
	p, ok := m.policies[segmentID]
	return p, ok
}

// Policies returns every policy in segment order.
func (m *Manager) Policies() []Policy {
	return lo.Map(m.order, func(id string, _ int) Policy { return m.policies[id] })
}

// InitializePrices sets the first-episode price of every segment.
func (m *Manager) InitializePrices() {
	for _, id := range m.order {
		m.policies[id].InitializePrice(m.env)
	}
	log.Infof("initialized %d %s policies", len(m.order), m.Name())
}

// BeforeEpisode promotes next prices and clears per-episode counters.
func (m *Manager) BeforeEpisode() {
	for _, id := range m.order {
		m.policies[id].BeforeEpisode()
	}
}

// ResetObservations clears the occupancy and users of every policy.
func (m *Manager) ResetObservations() {
	for _, id := range m.order {
		m.policies[id].ResetObservations()
	}
}

// Observe feeds one step of occupancy to every policy.
func (m *Manager) Observe(occupancy func(segmentID string) float64) {
	for _, id := range m.order {
		m.policies[id].OnStep(occupancy(id))
	}
}

// IncrementUsers counts one more user on a segment; unknown ids are ignored.
func (m *Manager) IncrementUsers(segmentID string) {
	if p, ok := m.policies[segmentID]; ok {
		p.IncrementUsers()
	}
}

// EndEpisode computes every next price. Decisions only read current prices,
// so the outcome does not depend on visiting order.
func (m *Manager) EndEpisode() []Decision {
	decisions := make([]Decision, 0, len(m.order))
	for _, id := range m.order {
		decisions = append(decisions, m.policies[id].OnEpisodeEnd(m.env))
	}
	return decisions
}

// Price returns the current price of a segment, 0 when unknown.
func (m *Manager) Price(segmentID string) int {
	if p, ok := m.policies[segmentID]; ok {
		return p.Price()
	}
	return 0
}

// Prices returns the current price of every segment in segment order.
func (m *Manager) Prices() []int {
	return lo.Map(m.order, func(id string, _ int) int { return m.policies[id].Price() })
}
