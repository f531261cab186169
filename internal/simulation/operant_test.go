package simulation_test

import (
	"testing"

	"github.com/nvandessel/narloop/internal/nar"
	"github.com/nvandessel/narloop/internal/simulation"
)

const goImplication = "<(a &/ ^go) =/> b>"

// TestOperantConditioning trains a -> ^go -> b and then asks for b while a
// holds. The learned implication must drive ^go without any babbling.
func TestOperantConditioning(t *testing.T) {
	r := simulation.NewRunner(t)

	episodes := simulation.Repeat(3, simulation.Trial("a", "^go", "b", 3))
	episodes = append(episodes, simulation.Query("a", "b", 0))

	result := r.Run(simulation.Scenario{
		Name:       "operant-conditioning",
		Operations: []string{"^go"},
		Episodes:   episodes,
	})

	simulation.AssertNoExecutions(t, result, 3)
	simulation.AssertImplicationLearned(t, result, goImplication, 0.1, 0)
	simulation.AssertConfidenceGrows(t, result, goImplication, 0, 2)
	simulation.AssertExecuted(t, result, "^go", 3)
	simulation.AssertTimeAdvances(t, result)
	simulation.AssertThresholdInRange(t, result)

	if got := result.Episodes[3].Stats.Executions; got == 0 {
		t.Error("stats recorded no executions")
	}
}

// TestDiscrimination trains two contingencies on disjoint operations and
// checks that the goal selects the operation matching its precondition.
func TestDiscrimination(t *testing.T) {
	r := simulation.NewRunner(t)

	episodes := simulation.Interleave(
		simulation.Repeat(2, simulation.Trial("a", "^left", "b", 3)),
		simulation.Repeat(2, simulation.Trial("c", "^right", "d", 3)),
	)
	episodes = append(episodes, simulation.Query("c", "d", 0))
	last := len(episodes) - 1

	result := r.Run(simulation.Scenario{
		Name:       "discrimination",
		Operations: []string{"^left", "^right"},
		Episodes:   episodes,
	})

	simulation.AssertNoExecutions(t, result, last)
	simulation.AssertImplicationLearned(t, result, "<(a &/ ^left) =/> b>", 0.1, 0)
	simulation.AssertImplicationLearned(t, result, "<(c &/ ^right) =/> d>", 0.1, 1)
	simulation.AssertExecuted(t, result, "^right", last)
	simulation.AssertNotExecuted(t, result, "^left", last)
}

// TestMotorBabbling checks that an unknown goal triggers a random
// operation when babbling is certain, and that the refractory period
// suppresses a second babble.
func TestMotorBabbling(t *testing.T) {
	r := simulation.NewRunner(t)

	result := r.Run(simulation.Scenario{
		Name:       "motor-babbling",
		Operations: []string{"^go"},
		Episodes: []simulation.Episode{
			{Label: "goal", Lines: []string{"z! :|:"}},
			{Label: "goal again", Lines: []string{"z! :|:"}},
		},
		BeforeEpisode: func(i int, n *nar.NAR) {
			if i == 0 {
				n.SetMotorBabbling(1)
			}
		},
	})

	simulation.AssertExecuted(t, result, "^go", 0)
	if got := result.Episodes[1].Executed; len(got) != 0 {
		t.Errorf("babbled within the refractory period: %v", got)
	}
}
