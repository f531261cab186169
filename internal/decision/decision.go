// Package decision turns goals into operation executions: it ranks the
// operations suggested by learned implications, executes the chosen one,
// and anticipates the outcomes of executed operations.
package decision

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/inference"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/truth"
	"github.com/nvandessel/narloop/internal/variable"
)

// Action is the side effect of an operation. It receives the operation
// term, e.g. ^left or <(*, {SELF}, x) --> ^move>.
type Action func(ctx context.Context, op narsese.Term) error

// Decision is a candidate operation execution. The zero value is the
// empty decision.
type Decision struct {
	Execute     bool
	OperationID int
	Operation   narsese.Term
	Desire      float64
	Mental      bool
	Babbled     bool
}

// Comparator orders decisions. Executable decisions outrank the rest,
// then higher desire wins, and TieBreak settles equal desire.
type Comparator struct {
	TieBreak constants.TieBreak
}

// Better returns the better of the current best and a new candidate.
func (c Comparator) Better(best, candidate Decision) Decision {
	if best.Execute != candidate.Execute {
		if candidate.Execute {
			return candidate
		}
		return best
	}
	if candidate.Desire > best.Desire {
		return candidate
	}
	if candidate.Desire == best.Desire && c.TieBreak == constants.TieBreakLast {
		return candidate
	}
	return best
}

// Config holds the decision parameters.
type Config struct {
	DecisionThreshold      float64
	AnticipationThreshold  float64
	AnticipationConfidence float64
	MotorBabblingChance    float64
	RefractoryPeriod       int64
	EventBeliefDistance    int64
	TieBreak               constants.TieBreak
	Seed                   int64
}

// DefaultConfig returns the standard decision parameters.
func DefaultConfig() Config {
	return Config{
		DecisionThreshold:      constants.DefaultDecisionThreshold,
		AnticipationThreshold:  constants.DefaultAnticipationThreshold,
		AnticipationConfidence: constants.DefaultAnticipationConfidence,
		MotorBabblingChance:    constants.DefaultMotorBabblingChance,
		RefractoryPeriod:       constants.DefaultRefractoryPeriod,
		EventBeliefDistance:    constants.DefaultEventBeliefDistance,
		TieBreak:               constants.TieBreakFirst,
		Seed:                   constants.DefaultSeed,
	}
}

// Maker makes decisions against one memory.
type Maker struct {
	Comparator

	cfg     Config
	mem     *memory.Memory
	infer   inference.Engine
	actions map[int]Action
	rng     *rand.Rand
	logger  *slog.Logger

	lastBabble int64
	babbled    bool
}

// New creates a decision maker. A nil logger discards output.
func New(cfg Config, mem *memory.Memory, logger *slog.Logger) *Maker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Maker{
		Comparator: Comparator{TieBreak: cfg.TieBreak},
		cfg:        cfg,
		mem:        mem,
		infer:      inference.New(mem.Config().Truth),
		actions:    make(map[int]Action),
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		logger:     logger,
	}
}

// SetAction binds the action executed for operation id.
func (m *Maker) SetAction(id int, a Action) {
	m.actions[id] = a
}

// SetBabblingChance changes the motor babbling chance.
func (m *Maker) SetBabblingChance(p float64) {
	m.cfg.MotorBabblingChance = p
}

// Suggest proposes a decision for goal, which matched concept c. Mental
// goals only consult the ^consider slot; external goals consult the user
// operation slots and may babble.
func (m *Maker) Suggest(c *memory.Concept, goal event.Event, now int64, mental bool) Decision {
	if !mental && goal.Term.IsOperation() {
		if id := m.mem.OperationID(goal.Term); id >= 2 {
			desire := truth.Expectation(goal.Truth)
			if desire > m.cfg.DecisionThreshold {
				return Decision{Execute: true, OperationID: id, Operation: goal.Term, Desire: desire}
			}
		}
	}

	best := m.bestCandidate(c, goal, now, mental)
	if best.Execute || mental {
		return best
	}
	if babble, ok := m.babble(now); ok {
		return babble
	}
	return best
}

func (m *Maker) bestCandidate(c *memory.Concept, goal event.Event, now int64, mental bool) Decision {
	var best Decision
	lo, hi := 2, len(c.PreconditionBeliefs)-1
	if mental {
		lo, hi = 1, 1
	}
	for opi := lo; opi <= hi && opi < len(c.PreconditionBeliefs); opi++ {
		table := &c.PreconditionBeliefs[opi]
		table.Prune(m.mem.ImplicationValid)
		for i := 0; i < table.Len(); i++ {
			imp := table.At(i)
			subs := variable.Unify(imp.Postcondition(), goal.Term)
			grounded, ok := variable.Apply(imp.Term, subs, m.mem.Config().CompoundTermSizeMax)
			if !ok {
				continue
			}
			imp.Term = grounded
			pre := imp.Precondition()
			if !pre.IsSequence() || !pre.Right().IsOperation() {
				continue
			}
			pc, ok := m.mem.FindConceptByTerm(pre.PreconditionWithoutOp())
			if !ok || pc.BeliefSpike.IsDeleted() {
				continue
			}
			contextual := m.infer.GoalDeduction(goal, imp, now)
			opGoal := m.infer.GoalSequenceDeduction(contextual, pc.BeliefSpike, pre.Right(), now)
			desire := truth.Expectation(opGoal.Truth)
			if desire > best.Desire {
				best = Decision{OperationID: opi, Operation: pre.Right(), Desire: desire, Mental: mental}
			}
		}
	}
	if best.Desire > m.cfg.DecisionThreshold {
		best.Execute = true
	} else {
		best = Decision{}
	}
	return best
}

// babble picks a random registered operation with the babbling chance,
// unless the last babble is within the refractory period.
func (m *Maker) babble(now int64) (Decision, bool) {
	if m.cfg.MotorBabblingChance <= 0 {
		return Decision{}, false
	}
	if m.babbled && now-m.lastBabble < m.cfg.RefractoryPeriod {
		return Decision{}, false
	}
	var ids []int
	for id := 2; id <= m.mem.Config().OperationsMax; id++ {
		if m.mem.OperationName(id) != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 || m.rng.Float64() >= m.cfg.MotorBabblingChance {
		return Decision{}, false
	}
	id := ids[m.rng.Intn(len(ids))]
	return Decision{
		Execute:     true,
		OperationID: id,
		Operation:   narsese.Atom(m.mem.OperationName(id)),
		Babbled:     true,
	}, true
}

// Execute runs the decision's action and feeds the operation back as an
// input belief at now, so that its consequences can be learned.
func (m *Maker) Execute(ctx context.Context, d Decision, now int64) error {
	if !d.Execute || d.OperationID <= 0 {
		return nil
	}
	if action, ok := m.actions[d.OperationID]; ok && action != nil {
		if err := action(ctx, d.Operation); err != nil {
			return fmt.Errorf("execute %s: %w", d.Operation, err)
		}
	}
	if d.Babbled {
		m.lastBabble, m.babbled = now, true
	}
	m.logger.Debug("executed operation",
		"operation", d.Operation.String(),
		"desire", d.Desire,
		"babbled", d.Babbled,
		"time", now)
	m.mem.AddEvent(event.Event{
		Term:           d.Operation,
		Kind:           event.Belief,
		Truth:          truth.Default,
		Stamp:          m.mem.NewStamp(),
		OccurrenceTime: now,
		CreationTime:   now,
	}, now, constants.InputPriority, 0, memory.AddOptions{Input: true})
	return nil
}

// Anticipate predicts the outcomes of operation opID executed at now. For
// every implication on the operation whose precondition was recently
// observed, the predicted postcondition is stored on its concept and the
// implication receives weak negative evidence, which a confirming
// observation later outweighs. It returns the number of anticipations.
func (m *Maker) Anticipate(opID int, now int64) int {
	if opID <= 0 {
		return 0
	}
	type pending struct {
		table *memory.Table
		imp   event.Implication
	}
	var negatives []pending
	m.mem.ForEachConcept(func(c *memory.Concept) {
		if opID >= len(c.PreconditionBeliefs) {
			return
		}
		table := &c.PreconditionBeliefs[opID]
		for _, imp := range table.Items() {
			if !m.mem.ImplicationValid(imp) {
				continue
			}
			pre := imp.Precondition()
			if !pre.IsSequence() {
				continue
			}
			pc, ok := m.mem.FindConceptByTerm(pre.PreconditionWithoutOp())
			if !ok || pc.BeliefSpike.IsDeleted() {
				continue
			}
			spike := pc.BeliefSpike
			if abs(now-spike.OccurrenceTime) >= m.cfg.EventBeliefDistance {
				continue
			}
			subs := variable.Unify(pre.PreconditionWithoutOp(), spike.Term)
			grounded, ok := variable.Apply(imp.Term, subs, m.mem.Config().CompoundTermSizeMax)
			if !ok {
				continue
			}
			opEvent := event.Event{
				Term:           grounded.Left().Right(),
				Kind:           event.Belief,
				Truth:          truth.Default,
				Stamp:          m.mem.NewStamp(),
				OccurrenceTime: now,
				CreationTime:   now,
			}
			seq, ok := m.infer.BeliefIntersection(spike, opEvent)
			if !ok {
				continue
			}
			groundedImp := imp
			groundedImp.Term = grounded
			predicted := m.infer.BeliefDeduction(seq, groundedImp)
			if truth.Expectation(predicted.Truth) <= m.cfg.AnticipationThreshold {
				continue
			}
			target := c
			if gc, ok := m.mem.FindConceptByTerm(predicted.Term); ok {
				target = gc
			}
			target.PredictedBelief = predicted

			negative := imp
			negative.Truth = truth.Truth{Frequency: 0, Confidence: m.cfg.AnticipationConfidence}
			negative.Stamp = m.mem.NewStamp()
			negatives = append(negatives, pending{table: table, imp: negative})
		}
	})
	for _, n := range negatives {
		n.table.Add(n.imp, m.mem.Config().Truth)
	}
	return len(negatives)
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
