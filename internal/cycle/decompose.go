package cycle

import (
	"context"
	"fmt"

	"github.com/zoobzio/capitan"

	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/truth"
	"github.com/nvandessel/narloop/internal/variable"
)

// Outcome is the result of decomposing a goal.
type Outcome int

const (
	// NotApplicable: the goal is not a sequence and is matched normally.
	NotApplicable Outcome = iota
	// Satisfied: every component is already observed, nothing to derive.
	Satisfied
	// Derived: a subgoal for the unsatisfied part was added to memory.
	Derived
)

func (o Outcome) String() string {
	switch o {
	case NotApplicable:
		return "not_applicable"
	case Satisfied:
		return "satisfied"
	case Derived:
		return "derived"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Decomposition describes what decompose did with a goal.
type Decomposition struct {
	Outcome Outcome
	// Resolved is the number of leading components satisfied by belief spikes.
	Resolved int
	// Subgoal is the derived goal when Outcome is Derived.
	Subgoal event.Event
}

// decompose handles a sequence goal ((a &/ b) &/ c)!. Components are
// checked earliest first against belief spikes that are recent enough and
// no older than the previous satisfied component. The unsatisfied suffix
// is derived as the next goal, chained through the satisfied spikes; when
// nothing is satisfied the first component is derived structurally.
func (e *Engine) decompose(ctx context.Context, cc *Context, goal event.Event, priority float64, mental bool) Decomposition {
	if !goal.Term.IsSequence() {
		return Decomposition{}
	}
	comps := goal.Term.SequenceComponents()
	if limit := e.mem.Config().MaxSequenceLen + 1; len(comps) > limit {
		panic(fmt.Sprintf("cycle: sequence goal %s has %d components, limit is %d", goal.Term, len(comps), limit))
	}
	maxComplexity := e.mem.Config().CompoundTermSizeMax

	next := e.infer.EventUpdate(goal, cc.Time)
	lastTime := truth.Eternal
	resolved := 0
	for j := range comps {
		c, subs, ok := e.satisfying(cc, comps[j], lastTime, comps[j+1:])
		if !ok {
			break
		}
		resolved++
		if j == len(comps)-1 {
			e.logger.Debug("sequence goal satisfied", "goal", goal.Term.String(), "time", cc.Time)
			return Decomposition{Outcome: Satisfied, Resolved: resolved}
		}
		for u := j + 1; u < len(comps); u++ {
			comps[u], _ = variable.Apply(comps[u], subs, maxComplexity)
		}
		lastTime = c.BeliefSpike.OccurrenceTime
		next = e.infer.GoalSequenceDeduction(next, c.BeliefSpike, narsese.SequenceOf(comps[j+1:]...), cc.Time)
	}
	if resolved == 0 {
		next.Term = comps[0]
		next.Truth = e.infer.Truth.StructuralDeduction(next.Truth)
		next.CreationTime = cc.Time
	}

	e.mem.AddEvent(next, cc.Time, priority*truth.Expectation(next.Truth), 0, memory.AddOptions{Mental: mental})
	e.logger.Debug("sequence goal decomposed",
		"goal", goal.Term.String(),
		"subgoal", next.Term.String(),
		"resolved", resolved,
		"time", cc.Time)
	capitan.Emit(ctx, GoalDecomposed,
		FieldTime.Field(int(cc.Time)),
		FieldGoal.Field(goal.Term.String()),
		FieldDerived.Field(next.Term.String()),
		FieldSatisfied.Field(resolved),
	)
	return Decomposition{Outcome: Derived, Resolved: resolved, Subgoal: next}
}

// satisfying finds the ground concept whose belief spike best satisfies
// comp: occurred at or after notBefore, projected expectation at the
// current time above the condition threshold, and a substitution that
// still applies to every later component. A ground component only
// consults the first ground concept visited, which is its own concept
// when it exists.
func (e *Engine) satisfying(cc *Context, comp narsese.Term, notBefore int64, later []narsese.Term) (*memory.Concept, variable.Substitution, bool) {
	ground := !comp.HasVariable(true, true, true)
	maxComplexity := e.mem.Config().CompoundTermSizeMax

	var (
		best     *memory.Concept
		bestSubs variable.Substitution
		bestExp  float64
	)
	e.mem.ForEachRelated(comp, cc.NextPass(), func(c *memory.Concept) bool {
		if c.Term.HasVariable(true, true, true) {
			return true
		}
		subs := variable.Unify(comp, c.Term)
		spike := c.BeliefSpike
		if subs.Success && !spike.IsDeleted() && !spike.IsEternal() && spike.OccurrenceTime >= notBefore {
			exp := truth.Expectation(e.infer.Truth.Projection(spike.Truth, spike.OccurrenceTime, cc.Time))
			if exp >= e.cfg.ConditionThreshold && exp > bestExp && appliesToAll(later, subs, maxComplexity) {
				best, bestSubs, bestExp = c, subs, exp
			}
		}
		return !ground
	})
	return best, bestSubs, best != nil
}

func appliesToAll(terms []narsese.Term, subs variable.Substitution, maxComplexity int) bool {
	for _, t := range terms {
		if _, ok := variable.Apply(t, subs, maxComplexity); !ok {
			return false
		}
	}
	return true
}
