package simulation

import (
	"context"
	"testing"

	"github.com/nvandessel/narloop/internal/constants"
	"github.com/nvandessel/narloop/internal/nar"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/store"
	"github.com/nvandessel/narloop/internal/truth"
)

// Runner orchestrates multi-episode simulation experiments against a real
// reasoner and snapshot store.
type Runner struct {
	t     *testing.T
	store *store.SQLiteStore
}

// NewRunner creates a simulation runner with an isolated SQLite store
// and sandboxed HOME directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.NewSQLiteStore(tmpDir + "/narloop.db")
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Store returns the runner's snapshot store.
func (r *Runner) Store() *store.SQLiteStore { return r.store }

// Run executes the scenario and returns the collected results.
func (r *Runner) Run(scenario Scenario) SimulationResult {
	r.t.Helper()
	ctx := context.Background()

	cfg := nar.DefaultConfig()
	cfg.Decision.MotorBabblingChance = 0
	if scenario.Config != nil {
		cfg = *scenario.Config
	}
	n := nar.New(cfg, nar.WithRunID(scenario.Name))

	var executed []string
	for _, op := range scenario.Operations {
		if _, err := n.AddOperation(op, func(_ context.Context, t narsese.Term) error {
			executed = append(executed, t.String())
			return nil
		}); err != nil {
			r.t.Fatalf("Run(%s): AddOperation(%s): %v", scenario.Name, op, err)
		}
	}

	episodes := make([]EpisodeResult, len(scenario.Episodes))
	for i, ep := range scenario.Episodes {
		if scenario.BeforeEpisode != nil {
			scenario.BeforeEpisode(i, n)
		}
		executed = nil
		for _, line := range ep.Lines {
			if err := n.AddInputNarsese(ctx, line); err != nil {
				r.t.Fatalf("Run(%s): episode %d: input %q: %v", scenario.Name, i, line, err)
			}
		}
		if ep.Cycles > 0 {
			if err := n.Cycles(ctx, ep.Cycles); err != nil {
				r.t.Fatalf("Run(%s): episode %d: cycles: %v", scenario.Name, i, err)
			}
		}
		episodes[i] = r.capture(i, ep, n, executed)

		if scenario.Snapshot {
			snap := store.Capture(n, constants.MaxTopConcepts, ep.Label)
			if err := r.store.SaveSnapshot(ctx, snap); err != nil {
				r.t.Fatalf("Run(%s): episode %d: snapshot: %v", scenario.Name, i, err)
			}
		}
	}

	return SimulationResult{
		Episodes: episodes,
		NAR:      n,
		RunID:    n.RunID(),
	}
}

func (r *Runner) capture(index int, ep Episode, n *nar.NAR, executed []string) EpisodeResult {
	res := EpisodeResult{
		Index:        index,
		Label:        ep.Label,
		Executed:     append([]string(nil), executed...),
		Time:         n.Time(),
		Threshold:    n.Threshold(),
		ConceptCount: n.ConceptCount(),
		Stats:        n.Stats(),
		Implications: make(map[string]truth.Truth),
	}
	for _, c := range n.Concepts(constants.MaxTopConcepts) {
		for _, imp := range c.Implications {
			res.Implications[imp.Term] = imp.Truth
		}
	}
	return res
}
