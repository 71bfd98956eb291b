package driver

import (
	"fmt"

	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
)

// CostOfUnknown is charged for segments outside a driver's known districts.
const CostOfUnknown = 1e10

// Evaluator returns the routing cost a driver assigns to a segment.
type Evaluator func(d *Driver, s *network.Segment) float64

// SpeedFunc returns the speed a driver expects on a segment.
type SpeedFunc func(d *Driver, s *network.Segment) float64

// Knowledge routes on the preference-weighted known travel time and price.
func Knowledge(d *Driver, s *network.Segment) float64 {
	return d.EdgeCost(s)
}

// GeometricLength routes on length per lane.
func GeometricLength(_ *Driver, s *network.Segment) float64 {
	return s.Length / float64(s.Lanes)
}

// SpeedWeighted scales base by how much slower than free flow the segment is.
func SpeedWeighted(base Evaluator, speed SpeedFunc) Evaluator {
	return func(d *Driver, s *network.Segment) float64 {
		v := speed(d, s)
		if v <= 0 {
			return base(d, s)
		}
		return base(d, s) * s.Speed / v
	}
}

// DistrictRestricted charges CostOfUnknown on segments outside the districts of
// the driver's origin and destination. Drivers whose endpoints belong to no
// district are unrestricted.
func DistrictRestricted(base Evaluator) Evaluator {
	return func(d *Driver, s *network.Segment) float64 {
		known := d.knownDistricts()
		if len(known) == 0 || s.ID == d.def.Origin || s.ID == d.def.Destination || s.InAnyDistrict(known) {
			return base(d, s)
		}
		return CostOfUnknown
	}
}

// GlobalSpeed reads the network-wide moving average speed.
func GlobalSpeed(board *network.SpeedBoard) SpeedFunc {
	return func(_ *Driver, s *network.Segment) float64 {
		if board == nil {
			return s.Speed
		}
		return board.MeanSpeed(s.ID)
	}
}

// PerceivedSpeed derives speed from the driver's own known travel time.
func PerceivedSpeed(d *Driver, s *network.Segment) float64 {
	tt := d.kb.TravelTime(s.ID)
	if tt <= 0 {
		return s.Speed
	}
	return s.Length / tt
}

// ValidCostModels lists the evaluator names accepted by NewEvaluator.
var ValidCostModels = map[string]bool{
	"":               true,
	"knowledge":      true,
	"pknowledge":     true,
	"glength":        true,
	"plength":        true,
	"glength-gstate": true,
	"glength-pstate": true,
	"plength-pstate": true,
}

// IsValidCostModel returns true if name is a recognized evaluator.
func IsValidCostModel(name string) bool {
	return ValidCostModels[name]
}

// NewEvaluator builds the named evaluator pipeline. board may be nil when the
// model does not read global state. Panics on unknown names; validate first.
func NewEvaluator(name string, board *network.SpeedBoard) Evaluator {
	switch name {
	case "", "knowledge":
		return Knowledge
	case "pknowledge":
		return DistrictRestricted(Knowledge)
	case "glength":
		return GeometricLength
	case "plength":
		return DistrictRestricted(GeometricLength)
	case "glength-gstate":
		return SpeedWeighted(GeometricLength, GlobalSpeed(board))
	case "glength-pstate":
		return SpeedWeighted(GeometricLength, PerceivedSpeed)
	case "plength-pstate":
		return DistrictRestricted(SpeedWeighted(GeometricLength, PerceivedSpeed))
	default:
		panic(fmt.Sprintf("unknown cost model %q", name))
	}
}

func (d *Driver) knownDistricts() map[string]bool {
	if d.districts != nil {
		return d.districts
	}
	d.districts = make(map[string]bool)
	for _, id := range []string{d.def.Origin, d.def.Destination} {
		if s, ok := d.net.Segment(id); ok {
			for _, dist := range s.Districts() {
				d.districts[dist] = true
			}
		}
	}
	return d.districts
}
