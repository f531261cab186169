package memory

import (
	"sort"

	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/stamp"
	"github.com/nvandessel/narloop/internal/truth"
)

// Concept is the memory node of one term.
type Concept struct {
	ID   uint64
	Term narsese.Term

	// Belief is the eternal belief, BeliefSpike the latest dated one.
	Belief          event.Event
	BeliefSpike     event.Event
	PredictedBelief event.Event
	GoalSpike       event.Event

	// PreconditionBeliefs holds one implication table per operation id.
	// Slot 0 keeps links without an operation, slot 1 the mental ^consider.
	PreconditionBeliefs []Table

	Usage    Usage
	Priority float64

	// ProcessID is the last traversal pass that visited this concept.
	ProcessID uint64
}

// Usage tracks how often and how recently a concept was used.
type Usage struct {
	UseCount int64 `json:"use_count"`
	LastUsed int64 `json:"last_used"`
}

// Use records one use at time now.
func (u Usage) Use(now int64) Usage {
	return Usage{UseCount: u.UseCount + 1, LastUsed: now}
}

// Usefulness combines use frequency and recency into [0,1).
func (u Usage) Usefulness(now int64) float64 {
	recency := float64(now - u.LastUsed)
	if recency < 0 {
		recency = 0
	}
	x := float64(u.UseCount) / (recency + 1)
	return x / (x + 1)
}

// Table is a bounded implication table ordered by truth expectation,
// highest first.
type Table struct {
	items    []event.Implication
	capacity int
}

// NewTable creates an empty table.
func NewTable(capacity int) Table {
	return Table{capacity: capacity}
}

// Len returns the number of implications.
func (t *Table) Len() int { return len(t.items) }

// At returns a copy of the i-th implication.
func (t *Table) At(i int) event.Implication { return t.items[i] }

// Items returns a copy of the table contents.
func (t *Table) Items() []event.Implication {
	out := make([]event.Implication, len(t.items))
	copy(out, t.items)
	return out
}

// Remove deletes the i-th implication.
func (t *Table) Remove(i int) {
	t.items = append(t.items[:i], t.items[i+1:]...)
}

// Prune removes every implication for which keep returns false and
// returns the number removed.
func (t *Table) Prune(keep func(event.Implication) bool) int {
	kept := t.items[:0]
	for _, imp := range t.items {
		if keep(imp) {
			kept = append(kept, imp)
		}
	}
	removed := len(t.items) - len(kept)
	t.items = kept
	return removed
}

// Add inserts imp, revising an existing entry with the same term. With
// overlapping evidence the stronger of the two is kept. When the table is
// full the new entry only displaces the weakest one if it ranks higher.
func (t *Table) Add(imp event.Implication, p truth.Params) {
	for i, old := range t.items {
		if !old.Term.Equal(imp.Term) {
			continue
		}
		t.items[i] = reviseImplication(old, imp, p)
		t.sort()
		return
	}
	if len(t.items) < t.capacity {
		t.items = append(t.items, imp)
		t.sort()
		return
	}
	last := len(t.items) - 1
	if last >= 0 && truth.Expectation(imp.Truth) > truth.Expectation(t.items[last].Truth) {
		t.items[last] = imp
		t.sort()
	}
}

func (t *Table) sort() {
	sort.SliceStable(t.items, func(i, j int) bool {
		return truth.Expectation(t.items[i].Truth) > truth.Expectation(t.items[j].Truth)
	})
}

func reviseImplication(old, imp event.Implication, p truth.Params) event.Implication {
	if stamp.Overlap(old.Stamp, imp.Stamp) {
		if imp.Truth.Confidence > old.Truth.Confidence {
			return imp
		}
		return old
	}
	w1 := p.C2W(old.Truth.Confidence)
	w2 := p.C2W(imp.Truth.Confidence)
	out := imp
	out.Truth = p.Revision(old.Truth, imp.Truth)
	out.Stamp = stamp.Make(imp.Stamp, old.Stamp)
	if w1+w2 > 0 {
		out.OccurrenceTimeOffset = (w1*old.OccurrenceTimeOffset + w2*imp.OccurrenceTimeOffset) / (w1 + w2)
	}
	if out.SourceConceptID == 0 {
		out.SourceConceptID = old.SourceConceptID
	}
	return out
}
