package cycle

import (
	"context"

	"github.com/zoobzio/capitan"

	"github.com/nvandessel/narloop/internal/decision"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/truth"
	"github.com/nvandessel/narloop/internal/variable"
)

// processGoals selects mental then external goals, decomposes sequence
// goals and matches the rest. The best decision across both passes is
// executed and its goal queue reset; when nothing executes, the selected
// goals are propagated as subgoals instead. It returns the number of
// goals selected.
func (e *Engine) processGoals(ctx context.Context, cc *Context) (int, error) {
	mental := e.mem.PopEvents(memory.MentalGoalEvents, e.cfg.GoalEventSelections)
	best := e.matchGoals(ctx, cc, mental, true)
	external := e.mem.PopEvents(memory.ExternalGoalEvents, e.cfg.GoalEventSelections)
	best = e.decider.Better(best, e.matchGoals(ctx, cc, external, false))

	selected := len(mental) + len(external)
	if best.Execute && best.OperationID > 0 {
		return selected, e.execute(ctx, cc, best)
	}
	e.propagate(cc, mental, true)
	e.propagate(cc, external, false)
	return selected, nil
}

func (e *Engine) matchGoals(ctx context.Context, cc *Context, goals []memory.Selected, mental bool) decision.Decision {
	var best decision.Decision
	for _, g := range goals {
		e.logger.Debug("selected goal",
			"goal", g.Event.Term.String(),
			"priority", g.Priority,
			"source", source(mental),
			"time", cc.Time)
		if d := e.decompose(ctx, cc, g.Event, g.Priority, mental); d.Outcome != NotApplicable {
			continue
		}
		best = e.decider.Better(best, e.match(cc, g.Event, mental))
	}
	return best
}

// execute runs d and empties the goal queue that produced it.
func (e *Engine) execute(ctx context.Context, cc *Context, d decision.Decision) error {
	err := e.decider.Execute(ctx, d, cc.Time)
	e.mem.ResetGoals(d.Mental)
	if err != nil {
		e.logger.Warn("operation failed", "operation", d.Operation.String(), "error", err)
		capitan.Error(ctx, DecisionFailed,
			FieldTime.Field(int(cc.Time)),
			FieldOperation.Field(d.Operation.String()),
			FieldError.Field(err),
		)
		return err
	}
	cc.Stats.Executions++
	e.decisions.Log(map[string]any{
		"event":     "decision_executed",
		"operation": d.Operation.String(),
		"desire":    d.Desire,
		"tick":      cc.Time,
		"mental":    d.Mental,
		"babbled":   d.Babbled,
	})
	capitan.Emit(ctx, DecisionExecuted,
		FieldTime.Field(int(cc.Time)),
		FieldOperation.Field(d.Operation.String()),
		FieldDesire.Field(float32(d.Desire)),
		FieldSource.Field(source(d.Mental)),
	)
	return nil
}

// propagate revises each goal into the goal spike of every concept it
// matches and derives the preconditions of the concept's implications as
// new goals. Mental goals only follow ^consider implications; external
// goals follow the others, including operation-free ones when no-op
// subgoaling is on.
func (e *Engine) propagate(cc *Context, goals []memory.Selected, mental bool) {
	first := 1
	if e.cfg.NopSubgoaling {
		first = 0
	}
	maxComplexity := e.mem.Config().CompoundTermSizeMax
	for _, g := range goals {
		goal := g.Event
		e.mem.ForEachRelated(goal.Term, cc.NextPass(), func(c *memory.Concept) bool {
			if !variable.Unify(c.Term, goal.Term).Success {
				return true
			}
			c.GoalSpike, _ = e.infer.RevisionAndChoice(c.GoalSpike, goal, cc.Time)
			for opi := first; opi < len(c.PreconditionBeliefs); opi++ {
				if (opi == 1) != mental {
					continue
				}
				table := &c.PreconditionBeliefs[opi]
				table.Prune(e.mem.ImplicationValid)
				for _, imp := range table.Items() {
					subs := variable.Unify(imp.Postcondition(), c.GoalSpike.Term)
					grounded, ok := variable.Apply(imp.Term, subs, maxComplexity)
					if !ok {
						continue
					}
					imp.Term = grounded
					sub := e.infer.EventUpdate(e.infer.GoalDeduction(c.GoalSpike, imp, cc.Time), cc.Time)
					e.logger.Debug("derived goal",
						"goal", sub.Term.String(),
						"from", goal.Term.String(),
						"truth", sub.Truth.String(),
						"source", source(mental))
					e.mem.AddEvent(sub, cc.Time, g.Priority*truth.Expectation(sub.Truth), 0, memory.AddOptions{Mental: mental})
				}
			}
			return true
		})
	}
}
