package align

import "container/heap"

// Selector keeps the top-N entries by (score, confidence) descending. A
// monotonically increasing sequence number breaks ties so equal-key
// entries never compare by payload and first-seen entries win.
type Selector[T any] struct {
	limit int
	seq   int
	h     entryHeap[T]
}

type selectorEntry[T any] struct {
	score      float64
	confidence float64
	seq        int
	payload    T
}

// NewSelector creates a Selector bounded to limit entries.
func NewSelector[T any](limit int) *Selector[T] {
	return &Selector[T]{limit: limit}
}

// Push offers an entry. If the selector is full the smallest-keyed entry
// is evicted.
func (s *Selector[T]) Push(score, confidence float64, payload T) {
	if s.limit <= 0 {
		return
	}
	entry := selectorEntry[T]{
		score:      score,
		confidence: confidence,
		seq:        s.seq,
		payload:    payload,
	}
	s.seq++
	heap.Push(&s.h, entry)
	if s.h.Len() > s.limit {
		heap.Pop(&s.h)
	}
}

// Items drains the selector, returning payloads ordered by (score,
// confidence) descending with first-seen order on ties.
func (s *Selector[T]) Items() []T {
	entries := make([]selectorEntry[T], 0, s.h.Len())
	for s.h.Len() > 0 {
		entries = append(entries, heap.Pop(&s.h).(selectorEntry[T]))
	}
	// Pop yields ascending key order; reverse for descending.
	out := make([]T, len(entries))
	for i, entry := range entries {
		out[len(entries)-1-i] = entry.payload
	}
	return out
}

// entryHeap is a min-heap on (score, confidence, -seq): among equal keys
// the later-pushed entry sits closer to the root and is evicted first.
type entryHeap[T any] []selectorEntry[T]

func (h entryHeap[T]) Len() int { return len(h) }

func (h entryHeap[T]) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score < h[j].score
	}
	if h[i].confidence != h[j].confidence {
		return h[i].confidence < h[j].confidence
	}
	return h[i].seq > h[j].seq
}

func (h entryHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[T]) Push(x any) {
	*h = append(*h, x.(selectorEntry[T]))
}

func (h *entryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
