// Package demand injects auxiliary background traffic into an episode so that
// tracked drivers do not travel on an otherwise empty network.
package demand

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/roadpricing-sim/roadpricing-sim/sim/engine"
	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
	"github.com/roadpricing-sim/roadpricing-sim/sim/search"
)

var log = logrus.WithField("module", "demand")

const (
	// IDPrefix marks auxiliary vehicles and their routes.
	IDPrefix = "aux"

	// congestedOccupancy makes a candidate route be re-drawn.
	congestedOccupancy = 0.7
	maxTries           = 100
)

// Loader keeps auxiliary vehicles in the network.
type Loader interface {
	// Reset prepares the loader for a new episode.
	Reset()
	// Load tops up auxiliary vehicles and returns how many were added.
	Load(eng engine.Engine, rng *rand.Rand) (int, error)
}

// IsAuxiliary reports whether a vehicle id belongs to auxiliary demand.
func IsAuxiliary(vehicleID string) bool {
	return strings.HasPrefix(vehicleID, IDPrefix)
}

// odPicker draws one origin and destination segment.
type odPicker func(rng *rand.Rand) (origin, destination string, ok bool)

// keeper holds the population logic shared by the loaders.
type keeper struct {
	net    *network.Network
	target int
	next   int
	pick   odPicker
}

func (k *keeper) Reset() {
	k.next = 0
}

func (k *keeper) Load(eng engine.Engine, rng *rand.Rand) (int, error) {
	active := lo.CountBy(eng.VehicleIDs(), IsAuxiliary)
	added := 0
	for ; active+added < k.target; added++ {
		route := k.route(eng, rng)
		if route == nil {
			break
		}
		k.next++
		id := fmt.Sprintf("%s%d", IDPrefix, k.next)
		if err := eng.AddRoute(id, route); err != nil {
			return added, fmt.Errorf("adding auxiliary route: %w", err)
		}
		if err := eng.AddVehicle(id, id, eng.Time(), 0); err != nil {
			return added, fmt.Errorf("adding auxiliary vehicle: %w", err)
		}
	}
	if added > 0 {
		log.Debugf("t=%v added %d auxiliary vehicles", eng.Time(), added)
	}
	return added, nil
}

// route draws OD pairs until one is reachable and uncongested, settling for
// the last reachable route after maxTries draws.
func (k *keeper) route(eng engine.Engine, rng *rand.Rand) []string {
	var last []string
	for try := 0; try < maxTries; try++ {
		origin, destination, ok := k.pick(rng)
		if !ok {
			continue
		}
		route, err := search.Dijkstra(k.net, origin, destination, nil, search.WithSingleEdge())
		if err != nil {
			continue
		}
		last = route
		congested := lo.SomeBy(route, func(id string) bool {
			return eng.Occupancy(id) > congestedOccupancy
		})
		if !congested {
			return route
		}
	}
	return last
}

// UniformLoader draws origin and destination uniformly among all segments.
type UniformLoader struct {
	keeper
}

// NewUniformLoader keeps n auxiliary vehicles in the network.
func NewUniformLoader(net *network.Network, n int) *UniformLoader {
	ids := net.SegmentIDs()
	l := &UniformLoader{keeper{net: net, target: n}}
	l.pick = func(rng *rand.Rand) (string, string, bool) {
		return ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))], true
	}
	return l
}

// ODLoader draws a district pair from an OD matrix, then a source and sink
// segment of those districts by weight.
type ODLoader struct {
	keeper
}

// NewODLoader keeps n auxiliary vehicles distributed by the OD matrix. Every
// district named by the matrix must exist in net.
func NewODLoader(net *network.Network, m *ODMatrix, n int) (*ODLoader, error) {
	for _, p := range m.Pairs {
		for _, id := range []string{p.Origin, p.Destination} {
			if _, ok := net.District(id); !ok {
				return nil, fmt.Errorf("od matrix references unknown district %q", id)
			}
		}
	}
	pairWeights := lo.Map(m.Pairs, func(p ODPair, _ int) float64 { return p.Weight })
	segWeights := func(ws []network.WeightedSegment) []float64 {
		return lo.Map(ws, func(w network.WeightedSegment, _ int) float64 { return w.Weight })
	}

	l := &ODLoader{keeper{net: net, target: n}}
	l.pick = func(rng *rand.Rand) (string, string, bool) {
		i := weightedSelection(pairWeights, rng)
		if i < 0 {
			return "", "", false
		}
		from, _ := net.District(m.Pairs[i].Origin)
		to, _ := net.District(m.Pairs[i].Destination)
		si := weightedSelection(segWeights(from.Sources), rng)
		di := weightedSelection(segWeights(to.Sinks), rng)
		if si < 0 || di < 0 {
			return "", "", false
		}
		return from.Sources[si].SegmentID, to.Sinks[di].SegmentID, true
	}
	return l, nil
}
