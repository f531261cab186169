package nar

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/nvandessel/narloop/internal/memory"
	"github.com/nvandessel/narloop/internal/narsese"
)

func newTestNAR(t *testing.T) *NAR {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Decision.MotorBabblingChance = 0
	return New(cfg)
}

func feed(t *testing.T, n *NAR, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := n.AddInputNarsese(context.Background(), line); err != nil {
			t.Fatalf("input %q: %v", line, err)
		}
	}
}

func TestNAR_LearnsAndExecutes(t *testing.T) {
	n := newTestNAR(t)
	var calls []string
	if _, err := n.AddOperation("^go", func(_ context.Context, op narsese.Term) error {
		calls = append(calls, op.String())
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	feed(t, n, "a. :|:", "^go. :|:", "b. :|:")
	c, ok, err := n.Concept("b")
	if err != nil || !ok {
		t.Fatalf("concept b: ok=%v err=%v", ok, err)
	}
	learned := false
	for _, imp := range c.Implications {
		if imp.Term == "<(a &/ ^go) =/> b>" && imp.Operation == "^go" {
			learned = true
		}
	}
	if !learned {
		t.Fatalf("implication not learned: %+v", c.Implications)
	}

	feed(t, n, "a. :|:", "b! :|:")
	if len(calls) != 1 || calls[0] != "^go" {
		t.Errorf("calls = %v, want [^go]", calls)
	}
	if n.Stats().Executions != 1 {
		t.Errorf("executions = %d", n.Stats().Executions)
	}
}

func TestNAR_MentalGoalConsiders(t *testing.T) {
	n := newTestNAR(t)
	ctx := context.Background()
	feed(t, n, "<(a &/ ^consider) =/> b>.", "a. :|:")

	belief, err := narsese.ParseSentence("b. :|:")
	if err != nil {
		t.Fatal(err)
	}
	if err := n.AddMentalGoal(ctx, belief); !errors.Is(err, ErrNotGoal) {
		t.Errorf("belief as mental goal: %v", err)
	}
	before := n.Time()

	goal, err := narsese.ParseSentence("b! :|:")
	if err != nil {
		t.Fatal(err)
	}
	if err := n.AddMentalGoal(ctx, goal); err != nil {
		t.Fatal(err)
	}
	if n.Time() != before+1 {
		t.Errorf("time = %d, want %d", n.Time(), before+1)
	}
	if n.Stats().Executions != 1 {
		t.Errorf("executions = %d, want ^consider executed once", n.Stats().Executions)
	}
}

func TestNAR_InputValidation(t *testing.T) {
	n := newTestNAR(t)
	ctx := context.Background()

	if err := n.AddInputNarsese(ctx, "^nope! :|:"); !errors.Is(err, ErrUnknownOperation) {
		t.Errorf("unregistered operation: %v", err)
	}
	if err := n.AddInputNarsese(ctx, "((((a &/ b) &/ c) &/ d) &/ e)! :|:"); !errors.Is(err, ErrSequenceTooLong) {
		t.Errorf("long sequence: %v", err)
	}
	var perr *narsese.ParseError
	if err := n.AddInputNarsese(ctx, "<a -->"); !errors.As(err, &perr) {
		t.Errorf("malformed input: %v", err)
	}
	if n.Time() != 1 {
		t.Errorf("rejected input must not tick, time = %d", n.Time())
	}
}

func TestNAR_AddOperation(t *testing.T) {
	n := newTestNAR(t)
	if _, err := n.AddOperation("go", nil); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("missing ^: %v", err)
	}
	for i := 2; i <= n.Config().Memory.OperationsMax; i++ {
		if _, err := n.AddOperation("^op"+string(rune('a'+i)), nil); err != nil {
			t.Fatalf("op %d: %v", i, err)
		}
	}
	if _, err := n.AddOperation("^overflow", nil); !errors.Is(err, memory.ErrTooManyOperations) {
		t.Errorf("exhausted slots: %v", err)
	}
}

func TestNAR_Cycles(t *testing.T) {
	n := newTestNAR(t)
	if err := n.Cycles(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	if n.Time() != 6 || n.Stats().Ticks != 5 {
		t.Errorf("time = %d ticks = %d", n.Time(), n.Stats().Ticks)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Cycles(ctx, 5); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context: %v", err)
	}
	if n.Time() != 6 {
		t.Errorf("canceled run must not tick, time = %d", n.Time())
	}
}

func TestNAR_Concepts(t *testing.T) {
	n := newTestNAR(t)
	feed(t, n, "<a --> b>. :|:", "<c --> d>.")

	c, ok, err := n.Concept("<a --> b>")
	if err != nil || !ok {
		t.Fatalf("concept: ok=%v err=%v", ok, err)
	}
	if c.Belief == nil || c.BeliefSpike == nil || c.BeliefSpike.OccurrenceTime != 1 {
		t.Errorf("concept = %+v", c)
	}
	eternal, ok, _ := n.Concept("<c --> d>")
	if !ok || eternal.BeliefSpike != nil || eternal.Belief == nil {
		t.Errorf("eternal input concept = %+v", eternal)
	}
	if got := n.Concepts(0); len(got) != n.ConceptCount() {
		t.Errorf("listed %d of %d concepts", len(got), n.ConceptCount())
	}
	if _, ok, _ := n.Concept("missing"); ok {
		t.Error("unknown term reported as present")
	}
	if _, _, err := n.Concept("<bad"); err == nil {
		t.Error("malformed term must fail")
	}
}

func TestNAR_RunID(t *testing.T) {
	if _, err := uuid.Parse(newTestNAR(t).RunID()); err != nil {
		t.Errorf("generated run id: %v", err)
	}
	if id := New(DefaultConfig(), WithRunID("fixed")).RunID(); id != "fixed" {
		t.Errorf("run id = %q", id)
	}
}
