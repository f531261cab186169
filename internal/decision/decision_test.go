package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/event"
	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/truth"
)

type fixture struct {
	mem   *memory.Memory
	maker *Maker
	opID  int
	calls []string
}

// newFixture builds a memory holding <(a &/ ^go) =/> b> and a recent spike of a.
func newFixture(t *testing.T, babbling float64) *fixture {
	t.Helper()
	f := &fixture{mem: memory.New(memory.DefaultConfig())}
	cfg := DefaultConfig()
	cfg.MotorBabblingChance = babbling
	f.maker = New(cfg, f.mem, nil)

	id, err := f.mem.RegisterOperation("^go")
	if err != nil {
		t.Fatal(err)
	}
	f.opID = id
	f.maker.SetAction(id, func(_ context.Context, op narsese.Term) error {
		f.calls = append(f.calls, op.String())
		return nil
	})

	f.add(t, "<(a &/ ^go) =/> b>", truth.Eternal, event.Belief, false)
	f.add(t, "a", 1, event.Belief, true)
	return f
}

func (f *fixture) add(t *testing.T, term string, occ int64, kind event.Kind, input bool) event.Event {
	t.Helper()
	ev := event.Event{
		Term:           narsese.MustParseTerm(term),
		Kind:           kind,
		Truth:          truth.Default,
		Stamp:          f.mem.NewStamp(),
		OccurrenceTime: occ,
	}
	f.mem.AddEvent(ev, max(occ, 1), 1, 1, memory.AddOptions{Input: input})
	return ev
}

func (f *fixture) concept(t *testing.T, term string) *memory.Concept {
	t.Helper()
	c, ok := f.mem.FindConceptByTerm(narsese.MustParseTerm(term))
	if !ok {
		t.Fatalf("concept %s missing", term)
	}
	return c
}

func goal(f *fixture, term string, occ int64) event.Event {
	return event.Event{
		Term:           narsese.MustParseTerm(term),
		Kind:           event.Goal,
		Truth:          truth.Default,
		Stamp:          f.mem.NewStamp(),
		OccurrenceTime: occ,
	}
}

func TestComparator(t *testing.T) {
	exec := Decision{Execute: true, OperationID: 2, Desire: 0.6}
	tests := []struct {
		name      string
		tieBreak  constants.TieBreak
		best      Decision
		candidate Decision
		want      Decision
	}{
		{"higher desire wins", constants.TieBreakFirst, exec, Decision{Execute: true, OperationID: 3, Desire: 0.7}, Decision{Execute: true, OperationID: 3, Desire: 0.7}},
		{"executable beats desire", constants.TieBreakFirst, Decision{Desire: 0.9}, exec, exec},
		{"non-executable never displaces", constants.TieBreakFirst, exec, Decision{Desire: 0.9}, exec},
		{"tie keeps first", constants.TieBreakFirst, exec, Decision{Execute: true, OperationID: 4, Desire: 0.6}, exec},
		{"tie takes last", constants.TieBreakLast, exec, Decision{Execute: true, OperationID: 4, Desire: 0.6}, Decision{Execute: true, OperationID: 4, Desire: 0.6}},
		{"empty against empty", constants.TieBreakFirst, Decision{}, Decision{}, Decision{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Comparator{TieBreak: tt.tieBreak}.Better(tt.best, tt.candidate)
			if got.OperationID != tt.want.OperationID || got.Execute != tt.want.Execute || got.Desire != tt.want.Desire {
				t.Errorf("Better = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSuggest_FromImplication(t *testing.T) {
	f := newFixture(t, 0)
	d := f.maker.Suggest(f.concept(t, "b"), goal(f, "b", 1), 1, false)
	if !d.Execute || d.OperationID != f.opID || d.Operation.String() != "^go" {
		t.Fatalf("decision = %+v", d)
	}
	if d.Desire <= DefaultConfig().DecisionThreshold {
		t.Errorf("desire %f not above threshold", d.Desire)
	}

	mental := f.maker.Suggest(f.concept(t, "b"), goal(f, "b", 1), 1, true)
	if mental.Execute {
		t.Error("mental goals must not use user operation slots")
	}
}

func TestSuggest_StalePrecondition(t *testing.T) {
	f := newFixture(t, 0)
	// far in the future the projected spike is too weak to clear the threshold
	d := f.maker.Suggest(f.concept(t, "b"), goal(f, "b", 500), 500, false)
	if d.Execute {
		t.Errorf("decision on a stale precondition = %+v", d)
	}
}

func TestSuggest_DirectOperationGoal(t *testing.T) {
	f := newFixture(t, 0)
	c := f.mem.Conceptualize(narsese.Atom("^go"), 1)
	d := f.maker.Suggest(c, goal(f, "^go", 1), 1, false)
	if !d.Execute || d.OperationID != f.opID {
		t.Errorf("direct operation goal decision = %+v", d)
	}
}

func TestSuggest_BabblingRefractory(t *testing.T) {
	f := newFixture(t, 1)
	c := f.mem.Conceptualize(narsese.Atom("z"), 1)
	d := f.maker.Suggest(c, goal(f, "z", 5), 5, false)
	if !d.Execute || !d.Babbled || d.OperationID != f.opID {
		t.Fatalf("babble decision = %+v", d)
	}
	if err := f.maker.Execute(context.Background(), d, 5); err != nil {
		t.Fatal(err)
	}
	if again := f.maker.Suggest(c, goal(f, "z", 10), 10, false); again.Execute {
		t.Error("babbling within the refractory period must be suppressed")
	}
	later := 5 + DefaultConfig().RefractoryPeriod
	if again := f.maker.Suggest(c, goal(f, "z", later), later, false); !again.Babbled {
		t.Error("babbling must resume after the refractory period")
	}
}

func TestExecute(t *testing.T) {
	f := newFixture(t, 0)
	d := Decision{Execute: true, OperationID: f.opID, Operation: narsese.Atom("^go")}
	if err := f.maker.Execute(context.Background(), d, 3); err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != 1 || f.calls[0] != "^go" {
		t.Errorf("action calls = %v", f.calls)
	}
	if spike := f.concept(t, "^go").BeliefSpike; spike.IsDeleted() || spike.OccurrenceTime != 3 {
		t.Errorf("operation belief spike = %v", spike)
	}
	if f.mem.FIFO().Len() != 2 {
		t.Errorf("executed operation must enter the FIFO, len = %d", f.mem.FIFO().Len())
	}

	boom := errors.New("boom")
	f.maker.SetAction(f.opID, func(context.Context, narsese.Term) error { return boom })
	if err := f.maker.Execute(context.Background(), d, 4); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	if err := f.maker.Execute(context.Background(), Decision{}, 4); err != nil {
		t.Errorf("empty decision must be a no-op, got %v", err)
	}
}

func TestAnticipate(t *testing.T) {
	f := newFixture(t, 0)
	b := f.concept(t, "b")
	before := b.PreconditionBeliefs[f.opID].At(0).Truth

	if n := f.maker.Anticipate(f.opID, 2); n != 1 {
		t.Fatalf("anticipations = %d, want 1", n)
	}
	if b.PredictedBelief.IsDeleted() || b.PredictedBelief.OccurrenceTime != 3 {
		t.Errorf("predicted belief = %v", b.PredictedBelief)
	}
	after := b.PreconditionBeliefs[f.opID].At(0).Truth
	if after.Frequency >= before.Frequency {
		t.Errorf("negative evidence must lower frequency: %v -> %v", before, after)
	}

	if n := f.maker.Anticipate(0, 2); n != 0 {
		t.Error("no anticipation without an operation")
	}
	if n := f.maker.Anticipate(f.opID, 100); n != 0 {
		t.Error("stale preconditions must not be anticipated")
	}
}
