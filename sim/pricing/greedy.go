package pricing

import (
	"github.com/samber/lo"
)

// alternatives are the segments a driver could have taken instead of seg:
// the other outgoing segments of its first incoming segment.
func alternatives(env *Env, seg string) []Policy {
	incoming := env.Network.Incoming(seg)
	if len(incoming) == 0 {
		return nil
	}
	var alts []Policy
	for _, s := range env.Network.Outgoing(incoming[0].ID) {
		if s.ID == seg {
			continue
		}
		if p, ok := env.Lookup(s.ID); ok {
			alts = append(alts, p)
		}
	}
	return alts
}

func averageOccupancy(alts []Policy) float64 {
	if len(alts) == 0 {
		return neutralOccupancy
	}
	return lo.SumBy(alts, Policy.Occupancy) / float64(len(alts))
}

// compare reports +1 when the segment is busier than its alternatives, -1 when
// quieter, and 0 otherwise.
func compare(own float64, alts []Policy) int {
	avg := averageOccupancy(alts)
	switch {
	case own > avg:
		return 1
	case own < avg:
		return -1
	default:
		return 0
	}
}

// Greedy follows the priciest alternative upward when busier than the
// alternatives and the cheapest one downward when quieter.
type Greedy struct {
	base
}

func (g *Greedy) InitializePrice(env *Env) {
	g.setPrice(capacityPrice(g.seg, env.Network))
}

func (g *Greedy) OnEpisodeEnd(env *Env) Decision {
	alts := alternatives(env, g.seg.ID)
	own := g.Price()
	g.nextPrice = own

	switch compare(g.occupancy, alts) {
	case 1:
		ref := own
		if len(alts) > 0 {
			ref = lo.MaxBy(alts, func(a, b Policy) bool { return a.Price() > b.Price() }).Price()
		}
		if own == max(ref, own) {
			return g.decision("above alternatives, already highest")
		}
		g.nextPrice = Clamp(ref + PriceStep)
		return g.decision("above alternatives")
	case -1:
		ref := own
		if len(alts) > 0 {
			ref = lo.MinBy(alts, func(a, b Policy) bool { return a.Price() < b.Price() }).Price()
		}
		if own == min(ref, own) {
			return g.decision("below alternatives, already lowest")
		}
		g.nextPrice = Clamp(ref - PriceStep)
		return g.decision("below alternatives")
	default:
		return g.decision("level with alternatives")
	}
}

// Incremental steps its own price up or down by PriceStep against the
// alternatives' occupancy.
type Incremental struct {
	base
}

func (i *Incremental) InitializePrice(env *Env) {
	i.setPrice(capacityPrice(i.seg, env.Network))
}

func (i *Incremental) OnEpisodeEnd(env *Env) Decision {
	own := i.Price()
	switch compare(i.occupancy, alternatives(env, i.seg.ID)) {
	case 1:
		i.nextPrice = Clamp(own + PriceStep)
		return i.decision("above alternatives")
	case -1:
		i.nextPrice = Clamp(own - PriceStep)
		return i.decision("below alternatives")
	default:
		i.nextPrice = own
		return i.decision("level with alternatives")
	}
}
