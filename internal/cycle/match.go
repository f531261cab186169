package cycle

import (
	"github.com/nvandessel/narloop/internal/decision"
	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/variable"
)

// match conceptualizes ev and activates every related concept it unifies
// with. A ground event is matched against possibly general concepts; an
// event with variables is grounded by each concept it matches. It returns
// the best decision proposed by goal activations.
func (e *Engine) match(cc *Context, ev event.Event, mental bool) decision.Decision {
	e.mem.Conceptualize(ev.Term, cc.Time)
	general := ev.Term.HasVariable(true, true, true)
	maxComplexity := e.mem.Config().CompoundTermSizeMax

	var best decision.Decision
	e.mem.ForEachRelated(ev.Term, cc.NextPass(), func(c *memory.Concept) bool {
		instance := ev
		if general {
			subs := variable.Unify(ev.Term, c.Term)
			grounded, ok := variable.Apply(ev.Term, subs, maxComplexity)
			if !ok {
				return true
			}
			instance.Term = grounded
		} else if !variable.Unify(c.Term, ev.Term).Success {
			return true
		}
		best = e.decider.Better(best, e.activate(cc, c, instance, mental))
		return true
	})
	return best
}

// activate deposits a belief as the concept's spike, or asks for a
// decision on a goal. Events under the confidence floor are ignored.
func (e *Engine) activate(cc *Context, c *memory.Concept, ev event.Event, mental bool) decision.Decision {
	if ev.Truth.Confidence <= e.cfg.MinConfidence {
		return decision.Decision{}
	}
	c.Usage = c.Usage.Use(cc.Time)
	cc.Stats.Activations++
	if ev.Kind == event.Belief {
		c.BeliefSpike = ev
		return decision.Decision{}
	}
	return e.decider.Suggest(c, ev, cc.Time, mental)
}
