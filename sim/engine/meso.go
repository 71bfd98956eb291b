package engine

import (
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/roadpricing-sim/roadpricing-sim/sim/network"
)

const (
	// BPR volume-delay parameters: tt = fft * (1 + alpha * (v/c)^beta).
	bprAlpha = 0.15
	bprBeta  = 4.0
)

type vehicle struct {
	id       string
	route    []string
	idx      int
	depart   float64
	pos      float64
	onRoad   bool
	speed    float64
	entered  []string
	exits    []float64
	arrival  *float64
	departed bool
}

type segmentLoad struct {
	vehicles int
	speedSum float64
}

// Meso is a mesoscopic simulation: each vehicle's time on a segment is fixed
// when it enters, from the segment's load at that moment.
type Meso struct {
	net *network.Network

	started  bool
	episode  int
	now      float64
	events   *EventHeap
	routes   map[string][]string
	vehicles map[string]*vehicle
	order    []*vehicle
	load     map[string]*segmentLoad
	departed []string
	arrived  []string
}

// NewMeso creates an engine over net.
func NewMeso(net *network.Network) *Meso {
	return &Meso{net: net}
}

var _ Engine = (*Meso)(nil)

func (m *Meso) Start(episode int) error {
	m.started = true
	m.episode = episode
	m.now = 0
	m.events = NewEventHeap()
	m.routes = make(map[string][]string)
	m.vehicles = make(map[string]*vehicle)
	m.order = nil
	m.load = make(map[string]*segmentLoad, len(m.net.Segments()))
	for _, s := range m.net.Segments() {
		m.load[s.ID] = &segmentLoad{}
	}
	m.departed = nil
	m.arrived = nil
	log.Debugf("episode %d started", episode)
	return nil
}

func (m *Meso) Time() float64 { return m.now }

func (m *Meso) AddRoute(id string, segments []string) error {
	if !m.started {
		return ErrNotStarted
	}
	if len(segments) == 0 {
		return fmt.Errorf("route %s: empty", id)
	}
	if _, dup := m.routes[id]; dup {
		return fmt.Errorf("route %s: already defined", id)
	}
	for i, segID := range segments {
		s, ok := m.net.Segment(segID)
		if !ok {
			return fmt.Errorf("route %s: unknown segment %q", id, segID)
		}
		if i > 0 {
			prev, _ := m.net.Segment(segments[i-1])
			if prev.To != s.From {
				return fmt.Errorf("route %s: %s does not continue %s", id, segID, prev.ID)
			}
		}
	}
	m.routes[id] = slices.Clone(segments)
	return nil
}

func (m *Meso) AddVehicle(id, routeID string, depart, pos float64) error {
	if !m.started {
		return ErrNotStarted
	}
	route, ok := m.routes[routeID]
	if !ok {
		return fmt.Errorf("vehicle %s: unknown route %q", id, routeID)
	}
	if _, dup := m.vehicles[id]; dup {
		return fmt.Errorf("vehicle %s: already added", id)
	}
	v := &vehicle{id: id, route: route, depart: math.Max(depart, m.now), pos: pos}
	m.vehicles[id] = v
	m.order = append(m.order, v)
	m.events.schedule(&event{at: v.depart, kind: departEvent, vehicle: v})
	return nil
}

// Step processes every event due up to the current time, then advances it.
func (m *Meso) Step() error {
	if !m.started {
		return ErrNotStarted
	}
	m.departed = m.departed[:0]
	m.arrived = m.arrived[:0]
	for next := m.events.peek(); next != nil && next.at <= m.now; next = m.events.peek() {
		ev := m.events.popNext()
		v := ev.vehicle
		switch ev.kind {
		case departEvent:
			v.departed = true
			v.depart = ev.at
			m.departed = append(m.departed, v.id)
			m.enter(v, ev.at)
		case leaveEvent:
			m.leave(v, ev.at)
		}
	}
	m.now++
	return nil
}

func (m *Meso) enter(v *vehicle, at float64) {
	segID := v.route[v.idx]
	s, _ := m.net.Segment(segID)
	l := m.load[segID]
	l.vehicles++

	tt := travelTime(s, l.vehicles)
	if v.idx == 0 && v.pos > 0 {
		tt *= 1 - lo.Clamp(v.pos/s.Length, 0, 1)
	}
	v.speed = s.Speed
	if tt > 0 {
		v.speed = math.Min(s.Length/tt, s.Speed)
	}
	l.speedSum += v.speed
	v.onRoad = true
	v.entered = append(v.entered, segID)
	m.events.schedule(&event{at: at + tt, kind: leaveEvent, vehicle: v})
}

func (m *Meso) leave(v *vehicle, at float64) {
	l := m.load[v.route[v.idx]]
	l.vehicles--
	l.speedSum -= v.speed
	if l.vehicles == 0 {
		l.speedSum = 0
	}
	v.exits = append(v.exits, at)
	v.idx++
	if v.idx < len(v.route) {
		m.enter(v, at)
		return
	}
	v.onRoad = false
	arrival := at
	v.arrival = &arrival
	m.arrived = append(m.arrived, v.id)
}

// travelTime applies the BPR volume-delay function to the segment's load.
func travelTime(s *network.Segment, vehicles int) float64 {
	c := math.Max(float64(s.Capacity()), 1)
	return s.FreeFlowTime() * (1 + bprAlpha*math.Pow(float64(vehicles)/c, bprBeta))
}

func (m *Meso) DepartedIDs() []string { return slices.Clone(m.departed) }
func (m *Meso) ArrivedIDs() []string  { return slices.Clone(m.arrived) }

func (m *Meso) VehicleIDs() []string {
	var ids []string
	for _, v := range m.order {
		if v.onRoad {
			ids = append(ids, v.id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (m *Meso) RoadID(vehicleID string) string {
	v, ok := m.vehicles[vehicleID]
	if !ok || !v.onRoad {
		return ""
	}
	return v.route[v.idx]
}

func (m *Meso) Occupancy(segmentID string) float64 {
	s, ok := m.net.Segment(segmentID)
	if !ok || m.load == nil {
		return 0
	}
	return s.Occupancy(m.load[segmentID].vehicles)
}

// MeanSpeed averages the speed of the vehicles on a segment; an empty segment
// reports its free-flow speed.
func (m *Meso) MeanSpeed(segmentID string) float64 {
	s, ok := m.net.Segment(segmentID)
	if !ok {
		return 0
	}
	l := m.load[segmentID]
	if l == nil || l.vehicles == 0 {
		return s.Speed
	}
	return l.speedSum / float64(l.vehicles)
}

// Finish returns one record per departed vehicle, in the order vehicles were added.
func (m *Meso) Finish() ([]TripRecord, error) {
	if !m.started {
		return nil, ErrNotStarted
	}
	m.started = false
	records := make([]TripRecord, 0, len(m.order))
	for _, v := range m.order {
		if !v.departed {
			continue
		}
		records = append(records, TripRecord{
			VehicleID: v.id,
			Depart:    v.depart,
			Arrival:   v.arrival,
			Segments:  v.entered,
			ExitTimes: v.exits,
		})
	}
	log.Debugf("episode %d finished at %v with %d trips", m.episode, m.now, len(records))
	return records, nil
}
