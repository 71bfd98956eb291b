// Package search implements best-first least-cost path search over network segments.
//
// Segments are the vertices of the searched graph: a path is an ordered list of
// segment ids from origin to destination, and the cost of a path is the sum of
// the cost function over every segment after the origin. Cost functions must
// return non-negative values; results with negative costs are undefined. A*
// results are optimal only when the heuristic never overestimates the remaining
// cost.
//
// Every call owns its node records, so concurrent searches over the same
// network are safe as long as their cost functions are.
package search

import (
	"errors"
	"fmt"

	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
)

var (
	// ErrNoPath is returned when the destination cannot be reached from the origin.
	ErrNoPath = errors.New("no path found")
	// ErrUnknownSegment is returned when origin or destination are not in the network.
	ErrUnknownSegment = errors.New("unknown segment")
)

// CostFunc returns the non-negative cost of traversing a segment.
type CostFunc func(s *network.Segment) float64

// Heuristic estimates the remaining cost from a segment to the destination.
type Heuristic func(s, destination *network.Segment) float64

// Zero is the null heuristic; A* with Zero is Dijkstra.
func Zero(_, _ *network.Segment) float64 { return 0 }

// StraightLine returns a heuristic scaling the straight-line distance between
// the end of a segment and the start of the destination. It is admissible for
// length-proportional costs when scale does not exceed cost per meter and
// segment lengths are not shorter than the distance between their nodes.
func StraightLine(net *network.Network, scale float64) Heuristic {
	return func(s, destination *network.Segment) float64 {
		if s.ID == destination.ID {
			return 0
		}
		return scale * net.Distance(s.To, destination.From)
	}
}

// LengthCost is the default cost: the segment length.
func LengthCost(s *network.Segment) float64 { return s.Length }

type nodeState int

const (
	unvisited nodeState = iota
	open
	closed
)

// nodeRecord is the per-search bookkeeping of one segment.
type nodeRecord struct {
	seg           *network.Segment
	state         nodeState
	reachingCost  float64
	heuristicCost float64
	previous      *nodeRecord
	item          *openItem
}

func (r *nodeRecord) estimatedCost() float64 {
	return r.reachingCost + r.heuristicCost
}

type options struct {
	heuristic  Heuristic
	singleEdge bool
}

// Option customizes a search.
type Option func(*options)

// WithHeuristic guides the search with h (A*).
func WithHeuristic(h Heuristic) Option {
	return func(o *options) { o.heuristic = h }
}

// WithSingleEdge seeds the search with the origin itself, so a path made of the
// origin alone is accepted when origin and destination coincide.
func WithSingleEdge() Option {
	return func(o *options) { o.singleEdge = true }
}

// Dijkstra finds the least-cost path with no heuristic guidance.
func Dijkstra(net *network.Network, origin, destination string, cost CostFunc, opts ...Option) ([]string, error) {
	return Search(net, origin, destination, cost, opts...)
}

// AStar finds the least-cost path guided by h.
func AStar(net *network.Network, origin, destination string, cost CostFunc, h Heuristic, opts ...Option) ([]string, error) {
	return Search(net, origin, destination, cost, append(opts, WithHeuristic(h))...)
}

// Search finds the least-cost path from origin to destination. A nil cost uses
// LengthCost. Unknown ids fail with ErrUnknownSegment; an unreachable
// destination fails with ErrNoPath.
func Search(net *network.Network, origin, destination string, cost CostFunc, opts ...Option) ([]string, error) {
	o := options{heuristic: Zero}
	for _, opt := range opts {
		opt(&o)
	}
	if cost == nil {
		cost = LengthCost
	}

	originSeg, ok := net.Segment(origin)
	if !ok {
		return nil, fmt.Errorf("%w: origin %q", ErrUnknownSegment, origin)
	}
	destSeg, ok := net.Segment(destination)
	if !ok {
		return nil, fmt.Errorf("%w: destination %q", ErrUnknownSegment, destination)
	}

	s := &searcher{
		cost:      cost,
		heuristic: o.heuristic,
		dest:      destSeg,
		records:   make(map[string]*nodeRecord),
		net:       net,
	}

	first := s.record(originSeg)
	first.heuristicCost = s.heuristic(originSeg, destSeg)
	if origin == destination && !o.singleEdge {
		// must leave and come back: the origin has to be reachable as a neighbour
		first.state = unvisited
	} else {
		first.state = open
	}

	if o.singleEdge {
		s.queue.push(first, first.estimatedCost())
	} else {
		s.expand(first)
	}

	if !s.run() {
		return nil, fmt.Errorf("%w: from %q to %q", ErrNoPath, origin, destination)
	}
	return s.path(originSeg.ID), nil
}

// PathCost sums cost over every segment of path after the origin.
func PathCost(net *network.Network, path []string, cost CostFunc) float64 {
	if cost == nil {
		cost = LengthCost
	}
	total := 0.0
	for i := 1; i < len(path); i++ {
		if seg, ok := net.Segment(path[i]); ok {
			total += cost(seg)
		}
	}
	return total
}

type searcher struct {
	net       *network.Network
	cost      CostFunc
	heuristic Heuristic
	dest      *network.Segment
	records   map[string]*nodeRecord
	queue     openSet
}

func (s *searcher) record(seg *network.Segment) *nodeRecord {
	rec, ok := s.records[seg.ID]
	if !ok {
		rec = &nodeRecord{seg: seg}
		s.records[seg.ID] = rec
	}
	return rec
}

func (s *searcher) run() bool {
	for s.queue.Len() > 0 {
		current := s.queue.popMin()
		current.state = closed
		if current.seg.ID == s.dest.ID {
			return true
		}
		s.expand(current)
	}
	return false
}

func (s *searcher) expand(current *nodeRecord) {
	for _, next := range s.net.Outgoing(current.seg.ID) {
		neighbour := s.record(next)
		switch neighbour.state {
		case closed:
		case unvisited:
			neighbour.state = open
			neighbour.previous = current
			neighbour.reachingCost = current.reachingCost + s.cost(next)
			neighbour.heuristicCost = s.heuristic(next, s.dest)
			s.queue.push(neighbour, neighbour.estimatedCost())
		case open:
			newCost := current.reachingCost + s.cost(next)
			if newCost < neighbour.reachingCost {
				neighbour.previous = current
				neighbour.reachingCost = newCost
				s.queue.push(neighbour, neighbour.estimatedCost())
			}
		}
	}
}

// path walks the back-links from the destination. When origin and destination
// coincide the chain loops back onto the destination record, which is where
// the walk stops and the origin is prepended.
func (s *searcher) path(originID string) []string {
	destRec := s.records[s.dest.ID]
	result := []string{destRec.seg.ID}
	current := destRec.previous
	for current != nil && current != destRec {
		result = append(result, current.seg.ID)
		current = current.previous
	}
	if current == destRec || result[len(result)-1] != originID {
		result = append(result, originID)
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}
