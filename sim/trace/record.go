// Package trace records pricing and routing decisions across the episodes of
// an experiment. It holds plain data and does not depend on the simulator.
package trace

// PriceRecord captures one end-of-episode pricing decision for a segment.
type PriceRecord struct {
	Episode   int     `yaml:"episode"`
	Segment   string  `yaml:"segment"`
	Price     int     `yaml:"price"`
	NextPrice int     `yaml:"next_price"`
	Occupancy float64 `yaml:"occupancy"`
	Users     int     `yaml:"users"`
	Reason    string  `yaml:"reason"`
	Epsilon   float64 `yaml:"epsilon,omitempty"` // zero for policies that do not explore
	Explored  bool    `yaml:"explored,omitempty"`
}

// Changed reports whether the decision moves the price.
func (r PriceRecord) Changed() bool { return r.Price != r.NextPrice }

// RouteRecord captures the route a driver committed to for an episode.
type RouteRecord struct {
	Episode  int      `yaml:"episode"`
	DriverID string   `yaml:"driver"`
	Route    []string `yaml:"route"`
	Cost     float64  `yaml:"cost"` // known cost of the route when it was chosen
}
