// Package inference implements the event-level inference steps used by the
// reasoning cycle: temporal induction of implications, goal deduction
// through implications and sequences, prediction, and revision.
package inference

import (
	"math"

	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/stamp"
	"github.com/nvandessel/narloop/internal/truth"
)

// Engine applies inference steps with a fixed set of truth parameters.
type Engine struct {
	Truth truth.Params
}

// New creates an Engine.
func New(p truth.Params) Engine {
	return Engine{Truth: p}
}

// BeliefInduction forms <a =/> b> from a dated belief a that occurred
// strictly before the dated belief b.
func (e Engine) BeliefInduction(a, b event.Event) (event.Implication, bool) {
	if a.IsEternal() || b.IsEternal() || a.OccurrenceTime >= b.OccurrenceTime {
		return event.Implication{}, false
	}
	pre := e.Truth.Projection(a.Truth, a.OccurrenceTime, b.OccurrenceTime)
	return event.Implication{
		Term:                 narsese.Statement(a.Term, narsese.TemporalImplication, b.Term),
		Truth:                e.Truth.Eternalize(e.Truth.Induction(pre, b.Truth)),
		Stamp:                stamp.Make(a.Stamp, b.Stamp),
		OccurrenceTimeOffset: float64(b.OccurrenceTime - a.OccurrenceTime),
		CreationTime:         b.OccurrenceTime,
	}, true
}

// GoalDeduction derives a goal for the precondition of imp from a goal on
// its postcondition: {B!, <A =/> B>} |- A!. A trailing operation is
// stripped from the precondition; operations are chosen by decision making.
func (e Engine) GoalDeduction(goal event.Event, imp event.Implication, now int64) event.Event {
	return event.Event{
		Term:           imp.Precondition().PreconditionWithoutOp(),
		Kind:           event.Goal,
		Truth:          e.Truth.Deduction(imp.Truth, goal.Truth),
		Stamp:          stamp.Make(goal.Stamp, imp.Stamp),
		OccurrenceTime: goal.OccurrenceTime,
		CreationTime:   now,
	}
}

// GoalSequenceDeduction chains a sequence goal through a satisfied
// component: {(a &/ b)!, a} |- b!. The caller supplies the remaining term.
func (e Engine) GoalSequenceDeduction(goal, satisfied event.Event, remaining narsese.Term, now int64) event.Event {
	belief := e.Truth.Projection(satisfied.Truth, satisfied.OccurrenceTime, now)
	return event.Event{
		Term:           remaining,
		Kind:           event.Goal,
		Truth:          e.Truth.Deduction(goal.Truth, belief),
		Stamp:          stamp.Make(goal.Stamp, satisfied.Stamp),
		OccurrenceTime: now,
		CreationTime:   now,
	}
}

// BeliefDeduction predicts the postcondition of imp from its precondition
// event: {A :|:, <A =/> B>} |- B :|: at A's time plus the link offset.
func (e Engine) BeliefDeduction(pre event.Event, imp event.Implication) event.Event {
	occ := pre.OccurrenceTime
	if !pre.IsEternal() {
		occ += int64(math.Round(imp.OccurrenceTimeOffset))
	}
	return event.Event{
		Term:           imp.Postcondition(),
		Kind:           event.Belief,
		Truth:          e.Truth.Deduction(imp.Truth, pre.Truth),
		Stamp:          stamp.Make(pre.Stamp, imp.Stamp),
		OccurrenceTime: occ,
		CreationTime:   pre.CreationTime,
	}
}

// BeliefIntersection joins two dated beliefs into the sequence (a &/ b),
// projecting a to b's time. It fails when the stamps overlap.
func (e Engine) BeliefIntersection(a, b event.Event) (event.Event, bool) {
	if stamp.Overlap(a.Stamp, b.Stamp) {
		return event.Event{}, false
	}
	return event.Event{
		Term:           narsese.Compound(narsese.Sequence, a.Term, b.Term),
		Kind:           event.Belief,
		Truth:          e.Truth.Intersection(e.Truth.Projection(a.Truth, a.OccurrenceTime, b.OccurrenceTime), b.Truth),
		Stamp:          stamp.Make(a.Stamp, b.Stamp),
		OccurrenceTime: b.OccurrenceTime,
		CreationTime:   b.CreationTime,
	}, true
}

// EventUpdate projects a dated event's truth to now.
func (e Engine) EventUpdate(ev event.Event, now int64) event.Event {
	if ev.IsEternal() {
		return ev
	}
	ev.Truth = e.Truth.Projection(ev.Truth, ev.OccurrenceTime, now)
	ev.OccurrenceTime = now
	return ev
}

// RevisionAndChoice merges incoming into existing. Events with independent
// evidence are revised at the later of their times; otherwise the one with
// the higher projected confidence is kept. revised reports which happened.
func (e Engine) RevisionAndChoice(existing, incoming event.Event, now int64) (result event.Event, revised bool) {
	if existing.IsDeleted() {
		return incoming, false
	}
	later := max(existing.OccurrenceTime, incoming.OccurrenceTime)
	a := e.Truth.Projection(existing.Truth, existing.OccurrenceTime, later)
	b := e.Truth.Projection(incoming.Truth, incoming.OccurrenceTime, later)
	if !stamp.Overlap(existing.Stamp, incoming.Stamp) {
		out := incoming
		out.Truth = e.Truth.Revision(a, b)
		out.Stamp = stamp.Make(incoming.Stamp, existing.Stamp)
		out.OccurrenceTime = later
		out.CreationTime = now
		return out, true
	}
	if b.Confidence >= a.Confidence {
		return incoming, false
	}
	return existing, false
}

// Eternalized returns the eternal counterpart of a dated event.
func (e Engine) Eternalized(ev event.Event) event.Event {
	if ev.IsEternal() {
		return ev
	}
	ev.Truth = e.Truth.Eternalize(ev.Truth)
	ev.OccurrenceTime = truth.Eternal
	return ev
}
