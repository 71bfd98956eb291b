package search

import "container/heap"

// openItem is a heap entry; index is maintained by the heap.Interface methods
// so that a record's key can be decreased in place.
type openItem struct {
	rec      *nodeRecord
	priority float64
	index    int
}

type openHeap []*openItem

func (h openHeap) Len() int           { return len(h) }
func (h openHeap) Less(i, j int) bool { return h[i].priority < h[j].priority }

func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *openHeap) Push(x any) {
	it := x.(*openItem)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// openSet is the min-priority structure of Open node records.
type openSet struct {
	h openHeap
}

func (q *openSet) Len() int {
	return len(q.h)
}

// push inserts rec, or re-keys it when it is already queued.
func (q *openSet) push(rec *nodeRecord, priority float64) {
	if rec.item != nil && rec.item.index >= 0 {
		rec.item.priority = priority
		heap.Fix(&q.h, rec.item.index)
		return
	}
	rec.item = &openItem{rec: rec, priority: priority}
	heap.Push(&q.h, rec.item)
}

// popMin removes the record with the lowest priority.
func (q *openSet) popMin() *nodeRecord {
	it := heap.Pop(&q.h).(*openItem)
	it.rec.item = nil
	return it.rec
}
