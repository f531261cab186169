package memory

import (
	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/inference"
)

// FIFO is a ring of the most recent input beliefs. For every element it
// also keeps the sequences that end at it: a state is a bitmask over the
// maxLen newest elements at and before the slot, bit 0 being the slot's
// own event. Even states do not end at the slot and are always empty.
type FIFO struct {
	size   int
	maxLen int
	count  int
	newest int
	slots  [][]event.Event
	infer  inference.Engine
}

// NewFIFO creates a FIFO holding size events and sequences of up to
// maxLen components.
func NewFIFO(size, maxLen int, infer inference.Engine) *FIFO {
	f := &FIFO{size: size, maxLen: maxLen, newest: -1, infer: infer}
	f.slots = make([][]event.Event, size)
	for i := range f.slots {
		f.slots[i] = make([]event.Event, 1<<maxLen)
	}
	return f
}

// Len returns the number of stored input events.
func (f *FIFO) Len() int { return f.count }

// States returns the exclusive upper bound of sequence states.
func (f *FIFO) States() int { return 1 << f.maxLen }

// Add stores ev as the newest element and builds its sequences.
func (f *FIFO) Add(ev event.Event) {
	ev.Processed = false
	f.newest = (f.newest + 1) % f.size
	if f.count < f.size {
		f.count++
	}
	slot := f.slots[f.newest]
	clear(slot)
	slot[1] = ev
	for state := 3; state < len(slot); state += 2 {
		if seq, ok := f.build(state); ok {
			slot[state] = seq
		}
	}
}

// build folds the elements selected by state, oldest first, into a sequence
// ending at the newest element.
func (f *FIFO) build(state int) (event.Event, bool) {
	highest := 0
	for s := state; s > 1; s >>= 1 {
		highest++
	}
	if highest >= f.count {
		return event.Event{}, false
	}
	var seq event.Event
	started := false
	for shift := highest; shift >= 0; shift-- {
		if state&(1<<shift) == 0 {
			continue
		}
		comp := f.slots[f.index(shift)][1]
		if !started {
			seq, started = comp, true
			continue
		}
		next, ok := f.infer.BeliefIntersection(seq, comp)
		if !ok {
			return event.Event{}, false
		}
		seq = next
	}
	seq.Processed = false
	return seq, true
}

func (f *FIFO) index(k int) int {
	return ((f.newest-k)%f.size + f.size) % f.size
}

// Sequence returns a copy of the sequence with the given state ending at the
// k-th newest element (k = 0 is the newest).
func (f *FIFO) Sequence(k, state int) (event.Event, bool) {
	if k < 0 || k >= f.count || state <= 0 || state >= len(f.slots[0]) {
		return event.Event{}, false
	}
	ev := f.slots[f.index(k)][state]
	if ev.IsDeleted() {
		return event.Event{}, false
	}
	return ev, true
}

// MarkProcessed flags the given sequence as processed.
func (f *FIFO) MarkProcessed(k, state int) {
	if k < 0 || k >= f.count || state <= 0 || state >= len(f.slots[0]) {
		return
	}
	f.slots[f.index(k)][state].Processed = true
}
