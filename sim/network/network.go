// Package network holds the immutable road topology shared by search, drivers,
// pricing policies and the engine. Segments are referenced by string id; no
// runtime state (prices, search bookkeeping) lives on them.
package network

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var log = logrus.WithField("module", "network")

// VehicleFootprint is the road length, in meters, one vehicle is assumed to occupy.
const VehicleFootprint = 5.0

// Node is a junction. Coordinates are optional and only used by straight-line heuristics.
type Node struct {
	ID     string
	X, Y   float64
	HasPos bool
}

// Segment is a directed road link between two nodes.
type Segment struct {
	ID     string
	From   string
	To     string
	Length float64 // meters
	Lanes  int
	Speed  float64 // free-flow speed, m/s

	districts []string
}

// Capacity is the number of vehicles that fit on the segment.
func (s *Segment) Capacity() int {
	return int(s.Length * float64(s.Lanes) / VehicleFootprint)
}

// FreeFlowTime is the traversal time at free-flow speed, in seconds.
func (s *Segment) FreeFlowTime() float64 {
	return s.Length / s.Speed
}

// Occupancy converts a vehicle count into the fraction of capacity in use, in [0,1].
func (s *Segment) Occupancy(vehicles int) float64 {
	if vehicles <= 0 {
		return 0
	}
	c := s.Capacity()
	if c == 0 {
		return 1
	}
	return lo.Clamp(float64(vehicles)/float64(c), 0, 1)
}

// Districts returns the districts this segment belongs to, sorted.
func (s *Segment) Districts() []string {
	return s.districts
}

// InAnyDistrict reports whether the segment belongs to at least one of the given districts.
func (s *Segment) InAnyDistrict(districts map[string]bool) bool {
	for _, d := range s.districts {
		if districts[d] {
			return true
		}
	}
	return false
}

// WeightedSegment is a district source or sink with its selection weight.
type WeightedSegment struct {
	SegmentID string
	Weight    float64
}

// District (traffic assignment zone) groups source and sink segments.
type District struct {
	ID      string
	Sources []WeightedSegment
	Sinks   []WeightedSegment
}

// Network is the immutable arena of segments. Safe for concurrent reads.
type Network struct {
	nodes     map[string]Node
	segments  []*Segment
	byID      map[string]*Segment
	outgoing  map[string][]*Segment
	incoming  map[string][]*Segment
	districts []*District
	maxCap    int
}

// Segment returns the segment with the given id.
func (n *Network) Segment(id string) (*Segment, bool) {
	s, ok := n.byID[id]
	return s, ok
}

// Has reports whether the segment id exists.
func (n *Network) Has(id string) bool {
	_, ok := n.byID[id]
	return ok
}

// Segments returns all segments in declaration order.
func (n *Network) Segments() []*Segment {
	return n.segments
}

// SegmentIDs returns all segment ids in declaration order.
func (n *Network) SegmentIDs() []string {
	return lo.Map(n.segments, func(s *Segment, _ int) string { return s.ID })
}

// Outgoing returns the segments that can be entered after leaving id.
func (n *Network) Outgoing(id string) []*Segment {
	return n.outgoing[id]
}

// Incoming returns the segments from which id can be entered.
func (n *Network) Incoming(id string) []*Segment {
	return n.incoming[id]
}

// Node returns the junction with the given id.
func (n *Network) Node(id string) (Node, bool) {
	node, ok := n.nodes[id]
	return node, ok
}

// MaxCapacity is the highest segment capacity in the network.
func (n *Network) MaxCapacity() int {
	return n.maxCap
}

// Districts returns the loaded districts in declaration order.
func (n *Network) Districts() []*District {
	return n.districts
}

// District looks up a district by id.
func (n *Network) District(id string) (*District, bool) {
	return lo.Find(n.districts, func(d *District) bool { return d.ID == id })
}

// Distance is the straight-line distance between two nodes, or 0 when either lacks coordinates.
func (n *Network) Distance(fromNode, toNode string) float64 {
	a, okA := n.nodes[fromNode]
	b, okB := n.nodes[toNode]
	if !okA || !okB || !a.HasPos || !b.HasPos {
		return 0
	}
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Builder assembles a Network. Not safe for concurrent use.
type Builder struct {
	nodes     map[string]Node
	segments  []*Segment
	byID      map[string]*Segment
	districts []*District
	err       error
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[string]Node),
		byID:  make(map[string]*Segment),
	}
}

// AddNode registers a junction with coordinates.
func (b *Builder) AddNode(id string, x, y float64) *Builder {
	b.nodes[id] = Node{ID: id, X: x, Y: y, HasPos: true}
	return b
}

// AddSegment registers a directed segment. The first invalid segment is reported by Build.
func (b *Builder) AddSegment(id, from, to string, length float64, lanes int, speed float64) *Builder {
	if b.err != nil {
		return b
	}
	switch {
	case id == "":
		b.err = fmt.Errorf("segment with empty id")
	case b.byID[id] != nil:
		b.err = fmt.Errorf("duplicate segment %q", id)
	case !(length > 0) || math.IsInf(length, 0):
		b.err = fmt.Errorf("segment %q: length must be positive and finite, got %v", id, length)
	case lanes < 1:
		b.err = fmt.Errorf("segment %q: lanes must be >= 1, got %d", id, lanes)
	case !(speed > 0) || math.IsInf(speed, 0):
		b.err = fmt.Errorf("segment %q: speed must be positive and finite, got %v", id, speed)
	}
	if b.err != nil {
		return b
	}
	s := &Segment{ID: id, From: from, To: to, Length: length, Lanes: lanes, Speed: speed}
	b.segments = append(b.segments, s)
	b.byID[id] = s
	return b
}

// AddDistrict registers a district. Unknown segment ids are reported by Build.
func (b *Builder) AddDistrict(d *District) *Builder {
	b.districts = append(b.districts, d)
	return b
}

// Build validates the topology and returns the immutable Network.
func (b *Builder) Build() (*Network, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.segments) == 0 {
		return nil, fmt.Errorf("network has no segments")
	}

	n := &Network{
		nodes:     make(map[string]Node, len(b.nodes)),
		segments:  b.segments,
		byID:      b.byID,
		outgoing:  make(map[string][]*Segment, len(b.segments)),
		incoming:  make(map[string][]*Segment, len(b.segments)),
		districts: b.districts,
	}
	for id, node := range b.nodes {
		n.nodes[id] = node
	}

	byFrom := make(map[string][]*Segment)
	byTo := make(map[string][]*Segment)
	for _, s := range b.segments {
		if _, ok := n.nodes[s.From]; !ok {
			n.nodes[s.From] = Node{ID: s.From}
		}
		if _, ok := n.nodes[s.To]; !ok {
			n.nodes[s.To] = Node{ID: s.To}
		}
		byFrom[s.From] = append(byFrom[s.From], s)
		byTo[s.To] = append(byTo[s.To], s)
	}
	for _, s := range b.segments {
		n.outgoing[s.ID] = byFrom[s.To]
		n.incoming[s.ID] = byTo[s.From]
	}

	n.maxCap = lo.MaxBy(b.segments, func(a, c *Segment) bool { return a.Capacity() > c.Capacity() }).Capacity()

	members := make(map[string]map[string]bool)
	for _, d := range b.districts {
		for _, ws := range append(append([]WeightedSegment{}, d.Sources...), d.Sinks...) {
			if _, ok := n.byID[ws.SegmentID]; !ok {
				return nil, fmt.Errorf("district %q references unknown segment %q", d.ID, ws.SegmentID)
			}
			if members[ws.SegmentID] == nil {
				members[ws.SegmentID] = make(map[string]bool)
			}
			members[ws.SegmentID][d.ID] = true
		}
	}
	for id, set := range members {
		ds := lo.Keys(set)
		sort.Strings(ds)
		n.byID[id].districts = ds
	}

	if stray := n.outsideMainComponent(); len(stray) > 0 {
		log.Warnf("%d of %d segments are outside the largest strongly connected component (e.g. %s); some routes may not exist",
			len(stray), len(n.segments), stray[0])
	}
	return n, nil
}

// outsideMainComponent lists segments not in the largest strongly connected component
// of the segment graph (segments as vertices, turn possibilities as arcs).
func (n *Network) outsideMainComponent() []string {
	g := simple.NewDirectedGraph()
	for i := range n.segments {
		g.AddNode(simple.Node(int64(i)))
	}
	index := make(map[string]int64, len(n.segments))
	for i, s := range n.segments {
		index[s.ID] = int64(i)
	}
	for i, s := range n.segments {
		for _, next := range n.outgoing[s.ID] {
			j := index[next.ID]
			if j == int64(i) {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(int64(i)), simple.Node(j)))
		}
	}

	components := topo.TarjanSCC(g)
	if len(components) <= 1 {
		return nil
	}
	largest := lo.MaxBy(components, func(a, b []graph.Node) bool { return len(a) > len(b) })
	inMain := make(map[int64]bool, len(largest))
	for _, node := range largest {
		inMain[node.ID()] = true
	}
	var stray []string
	for i, s := range n.segments {
		if !inMain[int64(i)] {
			stray = append(stray, s.ID)
		}
	}
	return stray
}
