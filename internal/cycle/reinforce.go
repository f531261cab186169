package cycle

import (
	"context"

	"github.com/zoobzio/capitan"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/stamp"
	"github.com/nvandessel/narloop/internal/truth"
	"github.com/nvandessel/narloop/internal/variable"
)

// processInputBeliefs matches the unprocessed sequences ending at the
// newest input belief, longest first. The newest single event is then
// treated as a postcondition: outcomes of an executed operation are
// anticipated and every older sequence in the FIFO is reinforced as its
// precondition.
func (e *Engine) processInputBeliefs(ctx context.Context, cc *Context) {
	fifo := e.mem.FIFO()
	for state := fifo.States() - 1; state >= 1; state-- {
		ev, ok := fifo.Sequence(0, state)
		if !ok || ev.Processed {
			continue
		}
		e.match(cc, ev, false)
		fifo.MarkProcessed(0, state)
		if state != 1 {
			continue
		}

		post := ev
		e.decider.Anticipate(e.mem.OperationID(post.Term), cc.Time)
		for k := 1; k < fifo.Len(); k++ {
			for state2 := 1; state2 < fifo.States(); state2++ {
				pre, ok := fifo.Sequence(k, state2)
				if !ok || e.interveningOperation(k, state2) {
					continue
				}
				e.reinforce(ctx, cc, pre, post)
			}
		}
	}
}

// interveningOperation reports whether a component of the window, other
// than its newest, is an operation.
func (e *Engine) interveningOperation(k, state int) bool {
	fifo := e.mem.FIFO()
	for sub, shift := state>>1, 1; sub != 0; sub, shift = sub>>1, shift+1 {
		if sub&1 == 0 {
			continue
		}
		comp, ok := fifo.Sequence(k+shift, 1)
		if ok && comp.Term.IsOperation() {
			return true
		}
	}
	return false
}

// reinforce induces <pre =/> post> and adds it, together with its
// variable-generalized forms, as eternal beliefs.
func (e *Engine) reinforce(ctx context.Context, cc *Context, pre, post event.Event) {
	if pre.Kind != event.Belief || post.Kind != event.Belief {
		return
	}
	a, okA := e.mem.FindConceptByTerm(pre.Term.PreconditionWithoutOp())
	b, okB := e.mem.FindConceptByTerm(post.Term)
	if !okA || !okB || a.ID == b.ID || stamp.Overlap(pre.Stamp, post.Stamp) {
		return
	}
	imp, ok := e.infer.BeliefInduction(pre, post)
	if !ok || imp.Truth.Confidence < e.cfg.MinConfidence {
		return
	}

	derive := func(ev event.Event) {
		e.mem.AddEvent(ev, cc.Time, constants.ReinforcedLinkPriority, imp.OccurrenceTimeOffset, memory.AddOptions{})
	}
	specific := event.Event{
		Term:           imp.Term,
		Kind:           event.Belief,
		Truth:          imp.Truth,
		Stamp:          imp.Stamp,
		OccurrenceTime: truth.Eternal,
		CreationTime:   cc.Time,
	}
	for _, extensional := range []bool{true, false} {
		general, ok := variable.IntroduceImplicationVariables(imp.Term, extensional)
		if !ok || !general.HasVariable(true, true, false) {
			continue
		}
		generalized := specific
		generalized.Term = general
		derive(generalized)
	}
	derive(specific)

	e.logger.Debug("link reinforced",
		"implication", imp.Term.String(),
		"truth", imp.Truth.String(),
		"offset", imp.OccurrenceTimeOffset,
		"time", cc.Time)
	capitan.Emit(ctx, LinkReinforced,
		FieldTime.Field(int(cc.Time)),
		FieldImplication.Field(imp.Term.String()),
		FieldConfidence.Field(float32(imp.Truth.Confidence)),
	)
}
