package store

import (
	"fmt"
	"strings"

	"github.com/nvandessel/narloop/internal/nar"
	"github.com/nvandessel/narloop/internal/narsese"
	"github.com/nvandessel/narloop/internal/truth"
)

// ValidationError describes one problem in a snapshot.
type ValidationError struct {
	Term  string `json:"term,omitempty"`
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// String returns a human-readable description of the validation error.
func (e ValidationError) String() string {
	if e.Term == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Issue)
	}
	return fmt.Sprintf("%s: %s of %s", e.Issue, e.Field, e.Term)
}

// InvalidSnapshotError is returned when a snapshot fails validation.
type InvalidSnapshotError struct {
	Issues []ValidationError
}

func (e *InvalidSnapshotError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		msgs = append(msgs, issue.String())
	}
	return "invalid snapshot: " + strings.Join(msgs, "; ")
}

// ValidateSnapshot checks a snapshot before it is stored or imported.
// It reports:
//   - a missing run id
//   - duplicate concept ids or terms
//   - terms and implications that are not valid Narsese
//   - truth values outside [0, 1]
func ValidateSnapshot(snap Snapshot) []ValidationError {
	var issues []ValidationError
	if snap.Run.ID == "" {
		issues = append(issues, ValidationError{Field: "run.id", Issue: "missing"})
	}

	ids := make(map[uint64]bool, len(snap.Concepts))
	terms := make(map[string]bool, len(snap.Concepts))
	for _, c := range snap.Concepts {
		if ids[c.ID] {
			issues = append(issues, ValidationError{Term: c.Term, Field: "id", Issue: "duplicate"})
		}
		ids[c.ID] = true
		if terms[c.Term] {
			issues = append(issues, ValidationError{Term: c.Term, Field: "term", Issue: "duplicate"})
		}
		terms[c.Term] = true

		if _, err := narsese.ParseTerm(c.Term); err != nil {
			issues = append(issues, ValidationError{Term: c.Term, Field: "term", Issue: "unparsable"})
		}

		if c.Belief != nil && !validTruth(*c.Belief) {
			issues = append(issues, ValidationError{Term: c.Term, Field: "belief", Issue: "truth out of range"})
		}
		spikes := []struct {
			field string
			spike *nar.Spike
		}{
			{"belief_spike", c.BeliefSpike},
			{"predicted_belief", c.PredictedBelief},
			{"goal_spike", c.GoalSpike},
		}
		for _, sp := range spikes {
			if sp.spike != nil && !validTruth(sp.spike.Truth) {
				issues = append(issues, ValidationError{Term: c.Term, Field: sp.field, Issue: "truth out of range"})
			}
		}

		for _, imp := range c.Implications {
			t, err := narsese.ParseTerm(imp.Term)
			if err != nil || !t.IsImplication() {
				issues = append(issues, ValidationError{Term: c.Term, Field: "implications", Issue: "not an implication: " + imp.Term})
				continue
			}
			if !validTruth(imp.Truth) {
				issues = append(issues, ValidationError{Term: c.Term, Field: "implications", Issue: "truth out of range"})
			}
		}
	}
	return issues
}

func validTruth(tv truth.Truth) bool {
	return tv.Frequency >= 0 && tv.Frequency <= 1 && tv.Confidence >= 0 && tv.Confidence <= 1
}
