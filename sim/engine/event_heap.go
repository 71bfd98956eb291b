package engine

import "container/heap"

type eventKind int

const (
	// leaveEvent sorts before departEvent at equal timestamps so that space on
	// a segment is released before new vehicles load it.
	leaveEvent eventKind = iota
	departEvent
)

// event is a vehicle transition scheduled at a simulation time.
type event struct {
	at      float64
	kind    eventKind
	seq     uint64
	vehicle *vehicle
}

// EventHeap implements a priority queue with deterministic ordering
// Ordering: timestamp → kind → sequence number
type EventHeap struct {
	events []*event
	seq    uint64
}

// NewEventHeap creates a new event heap
func NewEventHeap() *EventHeap {
	h := &EventHeap{}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *EventHeap) Len() int {
	return len(h.events)
}

// Less implements heap.Interface with deterministic ordering
func (h *EventHeap) Less(i, j int) bool {
	ei, ej := h.events[i], h.events[j]
	if ei.at != ej.at {
		return ei.at < ej.at
	}
	if ei.kind != ej.kind {
		return ei.kind < ej.kind
	}
	return ei.seq < ej.seq
}

// Swap implements heap.Interface
func (h *EventHeap) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
}

// Push implements heap.Interface
func (h *EventHeap) Push(x any) {
	h.events = append(h.events, x.(*event))
}

// Pop implements heap.Interface
func (h *EventHeap) Pop() any {
	old := h.events
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.events = old[0 : n-1]
	return item
}

// schedule stamps the event with the next sequence number and adds it.
func (h *EventHeap) schedule(e *event) {
	h.seq++
	e.seq = h.seq
	heap.Push(h, e)
}

// popNext removes and returns the next event
func (h *EventHeap) popNext() *event {
	if h.Len() == 0 {
		return nil
	}
	return heap.Pop(h).(*event)
}

// peek returns the next event without removing it
func (h *EventHeap) peek() *event {
	if h.Len() == 0 {
		return nil
	}
	return h.events[0]
}
