package services

import (
	"container/heap"
	"sort"

	"github.com/jiaming2012/tick-backtester/src/backtester/models"
)

type cursor struct {
	stream int
	pos    int
}

type cursorHeap struct {
	streams [][]models.Tick
	cursors []cursor
}

func (h *cursorHeap) Len() int {
	return len(h.cursors)
}

func (h *cursorHeap) Less(i, j int) bool {
	a := h.streams[h.cursors[i].stream][h.cursors[i].pos]
	b := h.streams[h.cursors[j].stream][h.cursors[j].pos]

	if a.Before(b) {
		return true
	}

	if b.Before(a) {
		return false
	}

	return h.cursors[i].stream < h.cursors[j].stream
}

func (h *cursorHeap) Swap(i, j int) {
	h.cursors[i], h.cursors[j] = h.cursors[j], h.cursors[i]
}

func (h *cursorHeap) Push(x any) {
	h.cursors = append(h.cursors, x.(cursor))
}

func (h *cursorHeap) Pop() any {
	n := len(h.cursors)
	c := h.cursors[n-1]
	h.cursors = h.cursors[:n-1]
	return c
}

// TickIterator merges per-symbol tick streams into one stream ordered by timestamp, then symbol.
// It is lazy and single pass:
//
//	for it.Next() {
//		tick := it.Item()
//	}
type TickIterator struct {
	heap    *cursorHeap
	current models.Tick
	last    *cursor
	started bool
}

func (it *TickIterator) Next() bool {
	if !it.started {
		it.started = true
		heap.Init(it.heap)
	} else if it.last != nil {
		next := cursor{stream: it.last.stream, pos: it.last.pos + 1}
		if next.pos < len(it.heap.streams[next.stream]) {
			heap.Push(it.heap, next)
		}
	}

	if it.heap.Len() == 0 {
		it.last = nil
		return false
	}

	c := heap.Pop(it.heap).(cursor)
	it.last = &c
	it.current = it.heap.streams[c.stream][c.pos]

	return true
}

// Item returns the tick Next moved to.
func (it *TickIterator) Item() models.Tick {
	return it.current
}

// NewTickIterator sorts each stream by timestamp, keeping the original order of equal timestamps.
// The streams are sorted in place.
func NewTickIterator(streams [][]models.Tick) *TickIterator {
	h := &cursorHeap{streams: streams}

	for i, stream := range streams {
		sort.SliceStable(stream, func(a, b int) bool {
			return stream[a].Timestamp.Before(stream[b].Timestamp)
		})

		if len(stream) > 0 {
			h.cursors = append(h.cursors, cursor{stream: i})
		}
	}

	return &TickIterator{heap: h}
}
