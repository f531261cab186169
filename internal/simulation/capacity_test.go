package simulation_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/nvandessel/narloop/internal/nar"
	"github.com/nvandessel/narloop/internal/simulation"
)

// TestConceptCapacity floods memory with unrelated beliefs and checks that
// eviction keeps the concept count within the configured bound.
func TestConceptCapacity(t *testing.T) {
	r := simulation.NewRunner(t)

	cfg := nar.DefaultConfig()
	cfg.Decision.MotorBabblingChance = 0
	cfg.Memory.ConceptsMax = 16

	var episodes []simulation.Episode
	for i := 0; i < 8; i++ {
		var lines []string
		for j := 0; j < 5; j++ {
			k := i*5 + j
			lines = append(lines, fmt.Sprintf("<x%d --> y%d>. :|:", k, k))
		}
		episodes = append(episodes, simulation.Episode{
			Label:  fmt.Sprintf("flood %d", i),
			Lines:  lines,
			Cycles: 2,
		})
	}

	result := r.Run(simulation.Scenario{
		Name:     "concept-capacity",
		Config:   &cfg,
		Episodes: episodes,
	})

	simulation.AssertConceptsBounded(t, result, 16)
	simulation.AssertThresholdInRange(t, result)
	if got := result.Episodes[len(episodes)-1].ConceptCount; got == 0 {
		t.Error("memory emptied under load")
	}
}

// TestIdleDecay checks that idle cycles leave memory intact while time
// keeps advancing.
func TestIdleDecay(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name: "idle-decay",
		Episodes: []simulation.Episode{
			{Label: "observe", Lines: []string{"<robin --> bird>.", "<bird --> animal>."}},
			simulation.Idle(20),
			simulation.Idle(20),
		},
	})

	simulation.AssertTimeAdvances(t, result)
	for _, ep := range result.Episodes[1:] {
		if ep.ConceptCount < result.Episodes[0].ConceptCount {
			t.Errorf("episode %d: concepts dropped from %d to %d without pressure", ep.Index, result.Episodes[0].ConceptCount, ep.ConceptCount)
		}
	}
	if ticks := result.Episodes[2].Stats.Ticks; ticks != 42 {
		t.Errorf("ticks = %d, want 42", ticks)
	}

	c, ok, err := result.NAR.Concept("<robin --> animal>")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || c.Belief == nil {
		t.Errorf("deduction <robin --> animal> not derived: ok=%v concept=%+v", ok, c)
	}
}

// TestSnapshotPersistence saves a snapshot after every episode and reads
// the learned implication back from the store.
func TestSnapshotPersistence(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name:       "snapshot-persistence",
		Operations: []string{"^go"},
		Episodes:   simulation.Repeat(2, simulation.Trial("a", "^go", "b", 1)),
		Snapshot:   true,
	})

	snap, err := r.Store().GetSnapshot(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if snap.Run.Time != result.Episodes[1].Time {
		t.Errorf("snapshot time = %d, want the last episode %d", snap.Run.Time, result.Episodes[1].Time)
	}
	if snap.Run.Label != result.Episodes[1].Label {
		t.Errorf("snapshot label = %q", snap.Run.Label)
	}

	found := false
	for _, c := range snap.Concepts {
		for _, imp := range c.Implications {
			if imp.Term == goImplication {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("snapshot lacks %s", goImplication)
	}

	runs, err := r.Store().ListRuns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("runs = %d, want 1 (snapshots replace)", len(runs))
	}
}
