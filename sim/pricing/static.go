package pricing

import "github.com/roadpricing-sim/roadpricing-sim/sim/network"

// Static prices a segment by its share of the largest capacity in the network
// and never changes it.
type Static struct {
	base
}

func (s *Static) InitializePrice(env *Env) {
	s.setPrice(capacityPrice(s.seg, env.Network))
}

func (s *Static) OnEpisodeEnd(_ *Env) Decision {
	s.nextPrice = s.price
	return s.decision("static")
}

// capacityPrice is int(capacity * 100 / maxCapacity).
func capacityPrice(seg *network.Segment, net *network.Network) int {
	maxCap := net.MaxCapacity()
	if maxCap == 0 {
		return 0
	}
	return seg.Capacity() * MaxPrice / maxCap
}
