package cycle

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
	capitantesting "github.com/zoobzio/capitan/testing"

	"github.com/nvandessel/narloop/internal/decision"
	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/ruletable"
	"github.com/nvandessel/narloop/internal/truth"
)

type harness struct {
	mem    *memory.Memory
	maker  *decision.Maker
	engine *Engine
	cc     *Context
	calls  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{mem: memory.New(memory.DefaultConfig()), cc: NewContext()}
	dcfg := decision.DefaultConfig()
	dcfg.MotorBabblingChance = 0
	h.maker = decision.New(dcfg, h.mem, nil)
	h.engine = New(DefaultConfig(), h.mem, h.maker, nil)
	return h
}

// registerGo registers ^go with an action recording its calls.
func (h *harness) registerGo(t *testing.T) int {
	t.Helper()
	id, err := h.mem.RegisterOperation("^go")
	if err != nil {
		t.Fatal(err)
	}
	h.maker.SetAction(id, func(_ context.Context, op narsese.Term) error {
		h.calls = append(h.calls, op.String())
		return nil
	})
	return id
}

func (h *harness) event(term string, kind event.Kind, occ int64) event.Event {
	return event.Event{
		Term:           narsese.MustParseTerm(term),
		Kind:           kind,
		Truth:          truth.Default,
		Stamp:          h.mem.NewStamp(),
		OccurrenceTime: occ,
		CreationTime:   max(occ, 1),
	}
}

// input perceives a dated belief at occ.
func (h *harness) input(term string, occ int64) {
	h.mem.AddEvent(h.event(term, event.Belief, occ), occ, 1, 0, memory.AddOptions{Input: true})
}

// know adds an eternal belief.
func (h *harness) know(term string, offset float64) {
	h.mem.AddEvent(h.event(term, event.Belief, truth.Eternal), h.cc.Time, 1, offset, memory.AddOptions{})
}

func (h *harness) goal(term string, priority float64) {
	h.mem.AddEvent(h.event(term, event.Goal, h.cc.Time), h.cc.Time, priority, 0, memory.AddOptions{Input: true})
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	if err := h.engine.Perform(context.Background(), h.cc); err != nil {
		t.Fatal(err)
	}
	h.cc.Time++
}

func (h *harness) concept(t *testing.T, term string) *memory.Concept {
	t.Helper()
	c, ok := h.mem.FindConceptByTerm(narsese.MustParseTerm(term))
	if !ok {
		t.Fatalf("concept %s missing", term)
	}
	return c
}

func queued(mem *memory.Memory, q memory.Queue, term string) bool {
	for _, it := range mem.QueueItems(q) {
		if it.Value.Term.String() == term {
			return true
		}
	}
	return false
}

func tableHas(c *memory.Concept, slot int, term string) bool {
	for _, imp := range c.PreconditionBeliefs[slot].Items() {
		if imp.Term.String() == term {
			return true
		}
	}
	return false
}

func TestPerform_EmptyQueues(t *testing.T) {
	h := newHarness(t)
	c := h.mem.Conceptualize(narsese.Atom("a"), 1)
	c.Priority = 1

	prev := c.Priority
	for i := 0; i < 3; i++ {
		h.tick(t)
		if c.Priority >= prev {
			t.Fatalf("tick %d: priority %f did not decay below %f", i, c.Priority, prev)
		}
		prev = c.Priority
	}
	if h.mem.Len() != 1 {
		t.Errorf("concepts = %d, want 1", h.mem.Len())
	}
	if want := math.Pow(DefaultConfig().ConceptDurability, 3); math.Abs(c.Priority-want) > 1e-12 {
		t.Errorf("priority = %f, want %f", c.Priority, want)
	}
	if h.cc.Stats.Ticks != 3 || h.cc.Stats.Activations != 0 || h.cc.Stats.Derivations != 0 {
		t.Errorf("stats = %+v", h.cc.Stats)
	}
}

func TestPerform_TwoBeliefsDerive(t *testing.T) {
	h := newHarness(t)
	h.know("<m --> p>", 0)
	h.input("<s --> m>", 1)

	h.tick(t)

	if h.cc.Stats.Activations != 1 {
		t.Errorf("activations = %d, want 1", h.cc.Stats.Activations)
	}
	if _, ok := h.mem.FindConceptByTerm(narsese.MustParseTerm("<s --> p>")); !ok {
		t.Error("deduction <s --> p> was not derived")
	}
	if h.cc.Stats.Derivations == 0 {
		t.Error("no derivation committed")
	}
}

func TestPerform_OverlappingEvidenceDerivesNothing(t *testing.T) {
	h := newHarness(t)
	h.input("<s --> m>", 1)
	h.tick(t)
	if h.cc.Stats.Derivations != 0 {
		t.Errorf("an event must not be combined with its own evidence, derivations = %d", h.cc.Stats.Derivations)
	}
	if h.mem.Len() != 1 {
		t.Errorf("concepts = %d, want 1", h.mem.Len())
	}
}

func TestPerform_DecisionResetsGoalQueue(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(h *harness)
		wantCalls int
		wantOp    string
		wantSrc   string
	}{
		{
			name: "external decision",
			setup: func(h *harness) {
				h.know("<(a &/ ^go) =/> b>", 1)
				h.goal("b", 1)
			},
			wantCalls: 1,
			wantOp:    "^go",
			wantSrc:   "external",
		},
		{
			name: "mental decision",
			setup: func(h *harness) {
				h.know("<(a &/ ^consider) =/> b>", 1)
				h.mem.AddEvent(h.event("b", event.Goal, h.cc.Time), h.cc.Time, 1, 0, memory.AddOptions{Input: true, Mental: true})
			},
			wantCalls: 0,
			wantOp:    memory.ConsiderOperation,
			wantSrc:   "mental",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.registerGo(t)
			h.know("<(c &/ ^go) =/> x>", 1)
			tt.setup(h)
			h.input("a", 1)
			h.goal("x", 0.5)

			capture := capitantesting.NewEventCapture()
			listener := capitan.Hook(DecisionExecuted, capture.Handler())
			defer listener.Close()

			h.tick(t)

			if len(h.calls) != tt.wantCalls {
				t.Fatalf("action calls = %v", h.calls)
			}
			if h.cc.Stats.Executions != 1 {
				t.Errorf("executions = %d", h.cc.Stats.Executions)
			}
			if n := h.mem.QueueLen(memory.MentalGoalEvents); n != 0 {
				t.Errorf("mental goal queue holds %d events after execution", n)
			}
			if n := h.mem.QueueLen(memory.ExternalGoalEvents); n != 0 {
				t.Errorf("external goal queue holds %d events after execution", n)
			}
			// Goals selected in an executing tick are not propagated.
			if queued(h.mem, memory.ExternalGoalEvents, "c") {
				t.Error("subgoal c! derived in a tick that executed")
			}
			if !h.concept(t, "x").GoalSpike.IsDeleted() {
				t.Error("goal spike of x set in a tick that executed")
			}
			if !capture.WaitForCount(1, time.Second) {
				t.Fatal("expected DecisionExecuted event")
			}
			for _, ev := range capture.Events() {
				for _, f := range ev.Fields {
					switch f.Key().Name() {
					case FieldOperation.Name():
						if f.Value() != tt.wantOp {
							t.Errorf("operation field = %v, want %s", f.Value(), tt.wantOp)
						}
					case FieldSource.Name():
						if f.Value() != tt.wantSrc {
							t.Errorf("source field = %v, want %s", f.Value(), tt.wantSrc)
						}
					}
				}
			}
		})
	}
}

func TestPerform_PropagatesSubgoals(t *testing.T) {
	h := newHarness(t)
	h.registerGo(t)
	h.know("<(a &/ ^go) =/> b>", 1)
	h.goal("b", 1)

	h.tick(t)

	if len(h.calls) != 0 {
		t.Fatalf("nothing should execute without a precondition, calls = %v", h.calls)
	}
	if !queued(h.mem, memory.ExternalGoalEvents, "a") {
		t.Error("subgoal a! was not derived")
	}
	if h.concept(t, "b").GoalSpike.IsDeleted() {
		t.Error("goal spike of b was not set")
	}
}

func TestPerform_ReinforcesTemporalLink(t *testing.T) {
	h := newHarness(t)

	capture := capitantesting.NewEventCapture()
	listener := capitan.Hook(LinkReinforced, capture.Handler())
	defer listener.Close()

	h.input("a", 1)
	h.tick(t)
	h.input("b", 2)
	h.tick(t)

	if !tableHas(h.concept(t, "b"), 0, "<a =/> b>") {
		t.Errorf("<a =/> b> missing from b's table: %v", h.concept(t, "b").PreconditionBeliefs[0].Items())
	}
	if _, ok := h.mem.FindConceptByTerm(narsese.MustParseTerm("(a &/ b)")); !ok {
		t.Error("sequence concept (a &/ b) was not formed")
	}
	if !capture.WaitForCount(1, time.Second) {
		t.Fatal("expected LinkReinforced event")
	}
}

func TestPerform_ReinforcesOperationLink(t *testing.T) {
	h := newHarness(t)
	id := h.registerGo(t)

	h.input("a", 1)
	h.tick(t)
	h.input("^go", 2)
	h.tick(t)
	h.input("b", 3)
	h.tick(t)

	if !tableHas(h.concept(t, "b"), id, "<(a &/ ^go) =/> b>") {
		t.Errorf("<(a &/ ^go) =/> b> missing: %v", h.concept(t, "b").PreconditionBeliefs[id].Items())
	}
}

func TestPerform_InterveningOperationSkipped(t *testing.T) {
	h := newHarness(t)
	h.registerGo(t)

	h.input("^go", 1)
	h.tick(t)
	h.input("a", 2)
	h.tick(t)
	h.input("b", 3)
	h.tick(t)

	for slot := range h.concept(t, "b").PreconditionBeliefs {
		if tableHas(h.concept(t, "b"), slot, "<(^go &/ a) =/> b>") {
			t.Fatal("a window with an older operation must not become a precondition")
		}
	}
	if !tableHas(h.concept(t, "b"), 0, "<a =/> b>") {
		t.Error("<a =/> b> should still be learned")
	}
}

func TestAdaptThreshold_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		start   float64
		matched int64
		gain    float64
		want    float64
	}{
		{"large positive error clamps to one", 0.5, 1 << 40, 1, 1},
		{"large negative error clamps to zero", 0.5, 0, 1, 0},
		{"small error moves proportionally", 0.5, 90, 0.01, 0.6},
		{"at target stays", 0.3, 80, 1, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.engine.cfg.ConceptThresholdAdaptation = tt.gain
			h.cc.Threshold = tt.start
			h.cc.Stats.TotalConceptsMatched = tt.matched

			if got := h.engine.adaptThreshold(h.cc); got != tt.start {
				t.Errorf("returned %f, want the previous threshold %f", got, tt.start)
			}
			if math.Abs(h.cc.Threshold-tt.want) > 1e-9 {
				t.Errorf("threshold = %f, want %f", h.cc.Threshold, tt.want)
			}
			if h.cc.Threshold < 0 || h.cc.Threshold > 1 {
				t.Errorf("threshold %f out of [0,1]", h.cc.Threshold)
			}
		})
	}
}

func TestChooseBelief(t *testing.T) {
	h := newHarness(t)
	c := h.mem.Conceptualize(narsese.Atom("a"), 1)
	c.Belief = h.event("a", event.Belief, truth.Eternal)
	predicted := h.event("a", event.Belief, 10)
	spike := h.event("a", event.Belief, 12)

	tests := []struct {
		name         string
		predicted    event.Event
		spike        event.Event
		at           int64
		wantStamp    event.Event
		wantOcc      int64
		wantDistance int64
	}{
		{"eternal event uses eternal belief", predicted, spike, truth.Eternal, c.Belief, truth.Eternal, 0},
		{"spike overrides prediction", predicted, spike, 11, spike, 11, 1},
		{"prediction without spike", predicted, event.Event{}, 14, predicted, 14, 4},
		{"far event keeps eternal belief", predicted, spike, 100, c.Belief, truth.Eternal, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.PredictedBelief, c.BeliefSpike = tt.predicted, tt.spike
			ev := h.event("a", event.Belief, tt.at)
			got, distance := h.engine.chooseBelief(ev, c)
			if got.Stamp != tt.wantStamp.Stamp || got.OccurrenceTime != tt.wantOcc {
				t.Errorf("chose %v, want stamp of %v at %d", got, tt.wantStamp, tt.wantOcc)
			}
			if distance != tt.wantDistance {
				t.Errorf("distance = %d, want %d (measured before projection)", distance, tt.wantDistance)
			}
		})
	}
}

func TestInference_StopsAtMatchTarget(t *testing.T) {
	h := newHarness(t)
	h.engine.cfg.BeliefConceptMatchTarget = 3
	h.engine.cfg.InferenceWorkers = 4
	for i := 1; i <= 10; i++ {
		h.know(fmt.Sprintf("<m --> p%d>", i), 0)
	}
	ev := h.event("<s --> m>", event.Belief, 1)

	h.engine.inference(context.Background(), h.cc, []memory.Selected{{Event: ev, Priority: 1}})

	if h.cc.Stats.Applications != 3 {
		t.Errorf("applications = %d, want 3", h.cc.Stats.Applications)
	}
	if d := h.cc.Stats.Derivations; d == 0 || d > 3 {
		t.Errorf("derivations = %d, want 1..3", d)
	}
	if h.cc.Stats.MaxConceptsMatched != 10 || h.cc.Stats.TotalConceptsMatched != 10 {
		t.Errorf("matched max = %d total = %d, want 10 and 10",
			h.cc.Stats.MaxConceptsMatched, h.cc.Stats.TotalConceptsMatched)
	}
}

func TestInference_SweepsMatchDerivedConcepts(t *testing.T) {
	h := newHarness(t)
	h.know("<m --> p>", 0)
	ev := h.event("<s --> m>", event.Belief, 1)

	h.engine.inference(context.Background(), h.cc, []memory.Selected{{Event: ev, Priority: 1}})

	derived := h.concept(t, "<s --> p>")
	if h.cc.Stats.Applications != 1 {
		t.Errorf("applications = %d, want 1", h.cc.Stats.Applications)
	}
	// <s --> p> only exists after the first sweep commits, so a second
	// sweep must have matched it.
	if h.cc.Stats.TotalConceptsMatched != 2 || h.cc.Stats.MaxConceptsMatched != 2 {
		t.Errorf("matched total = %d max = %d, want 2 and 2",
			h.cc.Stats.TotalConceptsMatched, h.cc.Stats.MaxConceptsMatched)
	}
	if derived.Usage.UseCount != 1 {
		t.Errorf("derived concept used %d times; its belief shares evidence with the premise", derived.Usage.UseCount)
	}
}

func TestInference_CommitFollowsJobOrder(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			h := newHarness(t)
			h.engine.cfg.InferenceWorkers = workers
			var jobs []job
			for i := 1; i <= 8; i++ {
				b := h.mem.Conceptualize(narsese.MustParseTerm(fmt.Sprintf("<m --> p%d>", i)), 1)
				jobs = append(jobs, job{
					premises: ruletable.Premises{
						TermA:     narsese.MustParseTerm("<s --> m>"),
						TruthA:    truth.Default,
						PriorityA: 1,
						TermB:     b.Term,
						TruthB:    truth.Default,
						PriorityB: 1,
						HasBelief: true,
						Token:     b.ID,
					},
					term: b.Term,
				})
			}

			results := h.engine.apply(jobs)
			for i, r := range results {
				if len(r) != 1 || r[0].Token != jobs[i].premises.Token {
					t.Fatalf("result %d = %+v does not belong to its job", i, r)
				}
			}
			h.engine.commit(context.Background(), h.cc, jobs, results)

			var prev uint64
			for i := 1; i <= 8; i++ {
				c := h.concept(t, fmt.Sprintf("<s --> p%d>", i))
				if c.ID <= prev {
					t.Errorf("<s --> p%d> committed out of job order", i)
				}
				prev = c.ID
			}
		})
	}
}

func TestCommit_DiscardsStaleConcept(t *testing.T) {
	h := newHarness(t)
	capture := capitantesting.NewEventCapture()
	listener := capitan.Hook(DerivationDiscarded, capture.Handler())
	defer listener.Close()

	derived := func(term string) []ruletable.Derivation {
		return []ruletable.Derivation{{Rule: "deduction", Event: h.event(term, event.Belief, truth.Eternal), Priority: 0.5}}
	}
	evicted := job{premises: ruletable.Premises{HasBelief: true, Token: 999}, term: narsese.Atom("gone")}
	single := job{premises: ruletable.Premises{TermA: narsese.MustParseTerm("(x && y)")}}

	h.engine.commit(context.Background(), h.cc, []job{evicted, single}, [][]ruletable.Derivation{derived("<q --> r>"), derived("x")})

	if h.cc.Stats.Discarded != 1 || h.cc.Stats.Derivations != 1 {
		t.Errorf("stats = %+v", h.cc.Stats)
	}
	if _, ok := h.mem.FindConceptByTerm(narsese.MustParseTerm("<q --> r>")); ok {
		t.Error("stale derivation was committed")
	}
	if _, ok := h.mem.FindConceptByTerm(narsese.Atom("x")); !ok {
		t.Error("single-premise derivation was dropped")
	}
	if !capture.WaitForCount(1, time.Second) {
		t.Fatal("expected DerivationDiscarded event")
	}
}

func TestMatch_GroundsVariableEvent(t *testing.T) {
	h := newHarness(t)
	h.mem.Conceptualize(narsese.MustParseTerm("<a --> b>"), 1)

	h.engine.match(h.cc, h.event("<$1 --> b>", event.Belief, 1), false)

	spike := h.concept(t, "<a --> b>").BeliefSpike
	if spike.IsDeleted() || spike.Term.String() != "<a --> b>" {
		t.Errorf("spike = %v, want grounded <a --> b>", spike)
	}
}

func TestPerform_CycleCompletedSignal(t *testing.T) {
	h := newHarness(t)
	capture := capitantesting.NewEventCapture()
	listener := capitan.Hook(CycleCompleted, capture.Handler())
	defer listener.Close()

	h.tick(t)

	if !capture.WaitForCount(1, time.Second) {
		t.Fatal("expected CycleCompleted event")
	}
}
