package simulation

import (
	"testing"
)

// AssertImplicationLearned asserts that an implication is held with at
// least minConfidence in every episode from afterEpisode on.
func AssertImplicationLearned(t *testing.T, result SimulationResult, term string, minConfidence float64, afterEpisode int) {
	t.Helper()
	for i := afterEpisode; i < len(result.Episodes); i++ {
		tv, ok := result.Episodes[i].Implications[term]
		if !ok {
			t.Errorf("AssertImplicationLearned: episode %d: implication %s not found", i, term)
			continue
		}
		if tv.Confidence < minConfidence {
			t.Errorf("AssertImplicationLearned: episode %d: %s confidence %.4f < %.4f", i, term, tv.Confidence, minConfidence)
		}
	}
}

// AssertConfidenceGrows asserts that an implication's confidence is
// strictly higher at episode to than at episode from.
func AssertConfidenceGrows(t *testing.T, result SimulationResult, term string, from, to int) {
	t.Helper()
	before, ok := result.Episodes[from].Implications[term]
	if !ok {
		t.Errorf("AssertConfidenceGrows: episode %d: implication %s not found", from, term)
		return
	}
	after, ok := result.Episodes[to].Implications[term]
	if !ok {
		t.Errorf("AssertConfidenceGrows: episode %d: implication %s not found", to, term)
		return
	}
	if after.Confidence <= before.Confidence {
		t.Errorf("AssertConfidenceGrows: %s confidence %.4f at episode %d, %.4f at episode %d", term, before.Confidence, from, after.Confidence, to)
	}
}

// AssertExecuted asserts that op was executed during the episode.
func AssertExecuted(t *testing.T, result SimulationResult, op string, episode int) {
	t.Helper()
	for _, e := range result.Episodes[episode].Executed {
		if e == op {
			return
		}
	}
	t.Errorf("AssertExecuted: episode %d: %s not executed (executed: %v)", episode, op, result.Episodes[episode].Executed)
}

// AssertNotExecuted asserts that op was not executed during the episode.
func AssertNotExecuted(t *testing.T, result SimulationResult, op string, episode int) {
	t.Helper()
	for _, e := range result.Episodes[episode].Executed {
		if e == op {
			t.Errorf("AssertNotExecuted: episode %d: %s executed", episode, op)
			return
		}
	}
}

// AssertNoExecutions asserts that nothing was executed in the episodes
// before the given index.
func AssertNoExecutions(t *testing.T, result SimulationResult, before int) {
	t.Helper()
	for i := 0; i < before && i < len(result.Episodes); i++ {
		if len(result.Episodes[i].Executed) > 0 {
			t.Errorf("AssertNoExecutions: episode %d executed %v", i, result.Episodes[i].Executed)
		}
	}
}

// AssertConceptsBounded asserts that memory never holds more than max
// concepts.
func AssertConceptsBounded(t *testing.T, result SimulationResult, max int) {
	t.Helper()
	for _, ep := range result.Episodes {
		if ep.ConceptCount > max {
			t.Errorf("AssertConceptsBounded: episode %d: %d concepts > %d", ep.Index, ep.ConceptCount, max)
		}
	}
}

// AssertThresholdInRange asserts that the adaptive concept threshold stays
// within [0, 1] in every episode.
func AssertThresholdInRange(t *testing.T, result SimulationResult) {
	t.Helper()
	for _, ep := range result.Episodes {
		if ep.Threshold < 0 || ep.Threshold > 1 {
			t.Errorf("AssertThresholdInRange: episode %d: threshold %.6f", ep.Index, ep.Threshold)
		}
	}
}

// AssertTimeAdvances asserts that every episode ends later than the one
// before it.
func AssertTimeAdvances(t *testing.T, result SimulationResult) {
	t.Helper()
	for i := 1; i < len(result.Episodes); i++ {
		if result.Episodes[i].Time <= result.Episodes[i-1].Time {
			t.Errorf("AssertTimeAdvances: episode %d ends at %d, episode %d at %d", i-1, result.Episodes[i-1].Time, i, result.Episodes[i].Time)
		}
	}
}
