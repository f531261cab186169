package cycle

import (
	"context"

	"github.com/zoobzio/capitan"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/logging"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/ruletable"
	"github.com/nvandessel/narloop/internal/stamp"
)

// job is one rule table application. term is the matched concept's term
// at match time; it is zero for the single-premise application.
type job struct {
	premises ruletable.Premises
	term     narsese.Term
}

// inference applies the rule table between each selected belief and the
// concepts related to it. Concepts under the adaptive priority threshold
// are skipped. Sweeps repeat, visiting only concepts created by the
// previous sweep's derivations, until the match target is reached or a
// sweep matches nothing new.
func (e *Engine) inference(ctx context.Context, cc *Context, beliefs []memory.Selected) {
	target := e.cfg.BeliefConceptMatchTarget
	for _, sel := range beliefs {
		ev := sel.Event
		pass := cc.NextPass()
		var matched int64
		// The single-premise application runs in the first sweep only; later
		// sweeps would derive the same conclusions again.
		jobs := []job{{premises: ruletable.Premises{
			TermA:       ev.Term,
			TruthA:      ev.Truth,
			OccurrenceA: ev.OccurrenceTime,
			PriorityA:   sel.Priority,
			PriorityB:   1,
			Stamp:       ev.Stamp,
			Now:         cc.Time,
		}}}
		for {
			threshold := e.adaptThreshold(cc)
			var fresh int64
			e.mem.ForEachRelated(ev.Term, pass, func(c *memory.Concept) bool {
				if c.Priority < threshold {
					return true
				}
				fresh++
				matched++
				cc.Stats.TotalConceptsMatched++
				if c.Belief.IsDeleted() || matched > target {
					return true
				}
				belief, distance := e.chooseBelief(ev, c)
				if stamp.Overlap(ev.Stamp, belief.Stamp) {
					return true
				}
				c.Usage = c.Usage.Use(cc.Time)
				cc.Stats.Applications++
				jobs = append(jobs, job{
					premises: ruletable.Premises{
						TermA:       ev.Term,
						TruthA:      ev.Truth,
						OccurrenceA: ev.OccurrenceTime,
						PriorityA:   sel.Priority,
						TermB:       c.Term,
						TruthB:      belief.Truth,
						PriorityB:   c.Priority,
						HasBelief:   true,
						Stamp:       stamp.Make(ev.Stamp, belief.Stamp),
						Now:         cc.Time,
						Token:       c.ID,

						TimeDistance: distance,
					},
					term: c.Term,
				})
				return true
			})
			e.commit(ctx, cc, jobs, e.apply(jobs))
			jobs = jobs[:0]

			cc.Stats.MaxConceptsMatched = max(cc.Stats.MaxConceptsMatched, matched)
			if matched >= target || fresh == 0 {
				break
			}
		}
	}
}

// adaptThreshold returns the concept priority threshold for the coming
// sweep and moves the stored threshold by the gain times the difference
// between the average matches per tick and the target, within [0,1].
func (e *Engine) adaptThreshold(cc *Context) float64 {
	current := cc.Threshold
	average := float64(cc.Stats.TotalConceptsMatched) / float64(max(1, cc.Time))
	diff := average - float64(e.cfg.BeliefConceptMatchTarget)
	cc.Threshold = min(1, max(0, cc.Threshold+diff*e.cfg.ConceptThresholdAdaptation))
	return current
}

// chooseBelief picks the belief of c to reason with: the eternal belief,
// replaced by the predicted belief and then by the observed spike when
// they fall within the belief distance of ev. Replacements are projected
// to ev's time; the returned distance is measured before projection.
func (e *Engine) chooseBelief(ev event.Event, c *memory.Concept) (event.Event, int64) {
	belief := c.Belief
	if ev.IsEternal() {
		return belief, 0
	}
	var distance int64
	for _, candidate := range []event.Event{c.PredictedBelief, c.BeliefSpike} {
		if candidate.IsDeleted() || candidate.IsEternal() {
			continue
		}
		d := timeDistance(ev, candidate)
		if d >= e.cfg.EventBeliefDistance {
			continue
		}
		candidate.Truth = e.infer.Truth.Projection(candidate.Truth, candidate.OccurrenceTime, ev.OccurrenceTime)
		candidate.OccurrenceTime = ev.OccurrenceTime
		belief, distance = candidate, d
	}
	return belief, distance
}

// apply runs the rule table for every job on a bounded worker pool. Each
// worker writes only its own result slot.
func (e *Engine) apply(jobs []job) [][]ruletable.Derivation {
	results := make([][]ruletable.Derivation, len(jobs))
	var g errgroup.Group
	g.SetLimit(e.cfg.InferenceWorkers)
	for i := range jobs {
		g.Go(func() error {
			results[i] = e.rules.Apply(jobs[i].premises)
			return nil
		})
	}
	_ = g.Wait() // workers never fail
	return results
}

// commit adds the derivations to memory in job order. A derivation whose
// matched concept was evicted or replaced since the match is discarded.
func (e *Engine) commit(ctx context.Context, cc *Context, jobs []job, results [][]ruletable.Derivation) {
	for i, j := range jobs {
		for _, d := range results[i] {
			if j.premises.HasBelief && !e.stillMatches(d.Token, j.term) {
				cc.Stats.Discarded++
				capitan.Emit(ctx, DerivationDiscarded,
					FieldTime.Field(int(cc.Time)),
					FieldRule.Field(d.Rule),
					FieldTerm.Field(d.Event.Term.String()),
				)
				continue
			}
			e.logger.Log(ctx, logging.LevelTrace, "derived",
				"rule", d.Rule,
				"premise", j.premises.TermA.String(),
				"concept", j.term.String(),
				"conclusion", d.Event.Term.String(),
				"truth", d.Event.Truth.String(),
				"distance", d.TimeDistance,
				"priority", d.Priority)
			e.mem.AddEvent(d.Event, cc.Time, d.Priority, 0, memory.AddOptions{})
			cc.Stats.Derivations++
		}
	}
}

func (e *Engine) stillMatches(token uint64, term narsese.Term) bool {
	c, ok := e.mem.ConceptByID(token)
	return ok && c.Term.Equal(term)
}

func timeDistance(a, b event.Event) int64 {
	if a.IsEternal() || b.IsEternal() {
		return 0
	}
	return abs(a.OccurrenceTime - b.OccurrenceTime)
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
