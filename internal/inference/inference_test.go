package inference

import (
	"math"
	"testing"

	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/stamp"
	"github.com/nvandessel/narloop/internal/truth"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func belief(t *testing.T, src *stamp.Source, term string, occ int64) event.Event {
	t.Helper()
	return event.Event{
		Term:           narsese.MustParseTerm(term),
		Kind:           event.Belief,
		Truth:          truth.Default,
		Stamp:          src.New(),
		OccurrenceTime: occ,
		CreationTime:   occ,
	}
}

func TestBeliefInduction(t *testing.T) {
	var src stamp.Source
	e := New(truth.DefaultParams())
	a := belief(t, &src, "a", 1)
	b := belief(t, &src, "b", 4)

	imp, ok := e.BeliefInduction(a, b)
	if !ok {
		t.Fatal("induction failed")
	}
	if got := imp.Term.String(); got != "<a =/> b>" {
		t.Errorf("term = %s", got)
	}
	if imp.OccurrenceTimeOffset != 3 {
		t.Errorf("offset = %v, want 3", imp.OccurrenceTimeOffset)
	}
	if !stamp.Overlap(imp.Stamp, a.Stamp) || !stamp.Overlap(imp.Stamp, b.Stamp) {
		t.Error("implication stamp must contain both premises")
	}
	if imp.Truth.Confidence <= 0 || imp.Truth.Confidence >= a.Truth.Confidence {
		t.Errorf("induced confidence %f out of range", imp.Truth.Confidence)
	}

	if _, ok := e.BeliefInduction(b, a); ok {
		t.Error("induction must require a before b")
	}
	a.OccurrenceTime = truth.Eternal
	if _, ok := e.BeliefInduction(a, b); ok {
		t.Error("induction must reject eternal premises")
	}
}

func TestGoalDeduction_StripsOperation(t *testing.T) {
	var src stamp.Source
	e := New(truth.DefaultParams())
	goal := event.Event{
		Term:           narsese.MustParseTerm("b"),
		Kind:           event.Goal,
		Truth:          truth.Default,
		Stamp:          src.New(),
		OccurrenceTime: 10,
	}
	imp := event.Implication{
		Term:  narsese.MustParseTerm("<(a &/ ^go) =/> b>"),
		Truth: truth.Truth{Frequency: 1, Confidence: 0.8},
		Stamp: src.New(),
	}
	got := e.GoalDeduction(goal, imp, 10)
	if got.Term.String() != "a" || got.Kind != event.Goal {
		t.Errorf("derived %s (%s)", got.Term, got.Kind)
	}
	if !approx(got.Truth.Confidence, 0.8*0.9) {
		t.Errorf("confidence = %f", got.Truth.Confidence)
	}
}

func TestBeliefDeduction_Offset(t *testing.T) {
	var src stamp.Source
	e := New(truth.DefaultParams())
	pre := belief(t, &src, "a", 7)
	imp := event.Implication{Term: narsese.MustParseTerm("<a =/> b>"), Truth: truth.Default, OccurrenceTimeOffset: 2}
	got := e.BeliefDeduction(pre, imp)
	if got.Term.String() != "b" || got.OccurrenceTime != 9 {
		t.Errorf("predicted %s at %d", got.Term, got.OccurrenceTime)
	}
}

func TestBeliefIntersection(t *testing.T) {
	var src stamp.Source
	e := New(truth.DefaultParams())
	a := belief(t, &src, "a", 1)
	b := belief(t, &src, "b", 2)
	seq, ok := e.BeliefIntersection(a, b)
	if !ok || seq.Term.String() != "(a &/ b)" || seq.OccurrenceTime != 2 {
		t.Fatalf("intersection = %v (ok=%v)", seq, ok)
	}
	if _, ok := e.BeliefIntersection(seq, b); ok {
		t.Error("overlapping stamps must not intersect")
	}
}

func TestRevisionAndChoice(t *testing.T) {
	var src stamp.Source
	e := New(truth.DefaultParams())
	a := belief(t, &src, "a", 5)
	b := belief(t, &src, "a", 5)

	got, revised := e.RevisionAndChoice(event.Event{}, a, 5)
	if revised || got.Stamp != a.Stamp {
		t.Error("revising into an empty slot must return the incoming event")
	}

	got, revised = e.RevisionAndChoice(a, b, 5)
	if !revised {
		t.Fatal("independent evidence must be revised")
	}
	if got.Truth.Confidence <= a.Truth.Confidence {
		t.Errorf("revised confidence %f not above %f", got.Truth.Confidence, a.Truth.Confidence)
	}

	weak := a
	weak.Truth.Confidence = 0.2
	got, revised = e.RevisionAndChoice(a, weak, 5)
	if revised || got.Truth.Confidence != a.Truth.Confidence {
		t.Error("overlapping evidence must keep the stronger event")
	}
}

func TestEventUpdate(t *testing.T) {
	var src stamp.Source
	e := New(truth.DefaultParams())
	ev := belief(t, &src, "a", 3)
	got := e.EventUpdate(ev, 5)
	if got.OccurrenceTime != 5 || !approx(got.Truth.Confidence, 0.9*0.8*0.8) {
		t.Errorf("updated = %v", got)
	}
	eternal := ev
	eternal.OccurrenceTime = truth.Eternal
	if e.EventUpdate(eternal, 5) != eternal {
		t.Error("eternal events are not projected")
	}
}
