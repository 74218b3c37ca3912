package aggregate

import (
	"container/heap"
	"sort"
)

// topK keeps the k best items seen so far. Internally it is a min-heap ordered by rank,
// so the root is the weakest retained item and each offer is O(log k).
type topK[T any] struct {
	k      int
	better func(a, b T) bool
	items  []T
}

func newTopK[T any](k int, better func(a, b T) bool) *topK[T] {
	return &topK[T]{k: k, better: better, items: make([]T, 0, k)}
}

func (t *topK[T]) Len() int           { return len(t.items) }
func (t *topK[T]) Less(i, j int) bool { return t.better(t.items[j], t.items[i]) }
func (t *topK[T]) Swap(i, j int)      { t.items[i], t.items[j] = t.items[j], t.items[i] }
func (t *topK[T]) Push(x any)         { t.items = append(t.items, x.(T)) }
func (t *topK[T]) Pop() any {
	last := t.items[len(t.items)-1]
	t.items = t.items[:len(t.items)-1]
	return last
}

// Offer considers x for membership.
func (t *topK[T]) Offer(x T) {
	if t.k <= 0 {
		return
	}
	if len(t.items) < t.k {
		heap.Push(t, x)
		return
	}
	if t.better(x, t.items[0]) {
		t.items[0] = x
		heap.Fix(t, 0)
	}
}

// Sorted returns the retained items best first. The heap is left untouched.
func (t *topK[T]) Sorted() []T {
	out := make([]T, len(t.items))
	copy(out, t.items)
	sort.Slice(out, func(i, j int) bool { return t.better(out[i], out[j]) })
	return out
}
