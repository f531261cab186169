// Package pq provides a bounded double-ended priority queue backed by a
// min-max heap. Both the highest-priority item (for selection) and the
// lowest-priority item (for eviction) are reachable in O(1) and removable
// in O(log n).
package pq

// Item is a queued value with its priority.
type Item[T any] struct {
	Priority float64
	Value    T
}

// Queue is a capacity-bounded min-max heap. It is not safe for
// concurrent use; callers serialize access.
type Queue[T any] struct {
	items    []Item[T]
	capacity int
}

// New creates an empty queue holding at most capacity items.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		panic("pq: capacity must be positive")
	}
	return &Queue[T]{items: make([]Item[T], 0, capacity), capacity: capacity}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.items) }

// Cap returns the configured capacity.
func (q *Queue[T]) Cap() int { return q.capacity }

// Reset empties the queue.
func (q *Queue[T]) Reset() {
	clear(q.items)
	q.items = q.items[:0]
}

// PushBounded inserts an item. When the queue is full the globally lowest
// priority item, which may be the new one, is evicted and returned with
// evicted == true. Every retained item has a priority >= the evicted one.
func (q *Queue[T]) PushBounded(priority float64, value T) (evicted Item[T], wasEvicted bool) {
	item := Item[T]{Priority: priority, Value: value}
	if len(q.items) < q.capacity {
		q.items = append(q.items, item)
		q.bubbleUp(len(q.items) - 1)
		return Item[T]{}, false
	}
	if priority <= q.items[0].Priority {
		return item, true
	}
	evicted = q.items[0]
	q.items[0] = item
	q.trickleDown(0)
	return evicted, true
}

// PeekMax returns the highest-priority item without removing it.
func (q *Queue[T]) PeekMax() (Item[T], bool) {
	if len(q.items) == 0 {
		return Item[T]{}, false
	}
	return q.items[q.maxIndex()], true
}

// PeekMin returns the lowest-priority item without removing it.
func (q *Queue[T]) PeekMin() (Item[T], bool) {
	if len(q.items) == 0 {
		return Item[T]{}, false
	}
	return q.items[0], true
}

// PopMax removes and returns the highest-priority item. The returned item
// is a copy; the slot it occupied is reused by later inserts.
func (q *Queue[T]) PopMax() (Item[T], bool) {
	if len(q.items) == 0 {
		return Item[T]{}, false
	}
	return q.removeAt(q.maxIndex()), true
}

// PopMin removes and returns the lowest-priority item.
func (q *Queue[T]) PopMin() (Item[T], bool) {
	if len(q.items) == 0 {
		return Item[T]{}, false
	}
	return q.removeAt(0), true
}

// Update calls fn on every queued item so priorities (or values) can be
// changed in place. The heap order is stale until Rebuild is called.
func (q *Queue[T]) Update(fn func(*Item[T])) {
	for i := range q.items {
		fn(&q.items[i])
	}
}

// RemoveFunc removes every item for which fn returns true and restores
// heap order. It returns the number of removed items.
func (q *Queue[T]) RemoveFunc(fn func(Item[T]) bool) int {
	kept := q.items[:0]
	for _, it := range q.items {
		if !fn(it) {
			kept = append(kept, it)
		}
	}
	removed := len(q.items) - len(kept)
	clear(q.items[len(kept):])
	q.items = kept
	if removed > 0 {
		q.Rebuild()
	}
	return removed
}

// Items returns a copy of the queued items in heap order.
func (q *Queue[T]) Items() []Item[T] {
	out := make([]Item[T], len(q.items))
	copy(out, q.items)
	return out
}

// Rebuild restores heap order after in-place priority changes.
func (q *Queue[T]) Rebuild() {
	for i := len(q.items)/2 - 1; i >= 0; i-- {
		q.trickleDown(i)
	}
}

func (q *Queue[T]) maxIndex() int {
	switch len(q.items) {
	case 1:
		return 0
	case 2:
		return 1
	}
	if q.items[2].Priority > q.items[1].Priority {
		return 2
	}
	return 1
}

func (q *Queue[T]) removeAt(i int) Item[T] {
	out := q.items[i]
	last := len(q.items) - 1
	q.items[i] = q.items[last]
	var zero Item[T]
	q.items[last] = zero
	q.items = q.items[:last]
	if i < len(q.items) {
		q.trickleDown(i)
		q.bubbleUp(i)
	}
	return out
}

// isMinLevel reports whether index i lies on an even (min) level.
func isMinLevel(i int) bool {
	level := 0
	for n := i + 1; n > 1; n >>= 1 {
		level++
	}
	return level%2 == 0
}

func (q *Queue[T]) less(i, j int) bool { return q.items[i].Priority < q.items[j].Priority }

func (q *Queue[T]) swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *Queue[T]) bubbleUp(i int) {
	if i == 0 {
		return
	}
	parent := (i - 1) / 2
	if isMinLevel(i) {
		if q.less(parent, i) {
			q.swap(i, parent)
			q.bubbleUpDir(parent, false)
		} else {
			q.bubbleUpDir(i, true)
		}
		return
	}
	if q.less(i, parent) {
		q.swap(i, parent)
		q.bubbleUpDir(parent, true)
	} else {
		q.bubbleUpDir(i, false)
	}
}

// bubbleUpDir moves i up through its grandparents on min levels (min=true)
// or max levels (min=false).
func (q *Queue[T]) bubbleUpDir(i int, min bool) {
	for i > 2 {
		gp := ((i-1)/2 - 1) / 2
		if (min && q.less(i, gp)) || (!min && q.less(gp, i)) {
			q.swap(i, gp)
			i = gp
			continue
		}
		return
	}
}

func (q *Queue[T]) trickleDown(i int) {
	q.trickleDownDir(i, isMinLevel(i))
}

func (q *Queue[T]) trickleDownDir(i int, min bool) {
	n := len(q.items)
	better := func(a, b int) bool {
		if min {
			return q.less(a, b)
		}
		return q.less(b, a)
	}
	for {
		first := 2*i + 1
		if first >= n {
			return
		}
		// m is the extreme among children and grandchildren.
		m := first
		for _, c := range []int{first, first + 1, 2*first + 1, 2*first + 2, 2*(first+1) + 1, 2*(first+1) + 2} {
			if c < n && better(c, m) {
				m = c
			}
		}
		if m > first+1 { // grandchild
			if !better(m, i) {
				return
			}
			q.swap(m, i)
			parent := (m - 1) / 2
			if better(parent, m) {
				q.swap(m, parent)
			}
			i = m
			continue
		}
		if better(m, i) {
			q.swap(m, i)
		}
		return
	}
}
