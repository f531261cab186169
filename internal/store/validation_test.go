package store

import (
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/narloop/internal/nar"
	"github.com/nvandessel/narloop/internal/truth"
)

func TestValidateSnapshot(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Snapshot)
		want   []string
	}{
		{"valid", func(s *Snapshot) {}, nil},
		{"missing run id", func(s *Snapshot) { s.Run.ID = "" }, []string{"run.id: missing"}},
		{"duplicate id", func(s *Snapshot) { s.Concepts[1].ID = s.Concepts[0].ID }, []string{"duplicate: id of a"}},
		{"duplicate term", func(s *Snapshot) { s.Concepts[1].Term = "b" }, []string{"duplicate: term of b"}},
		{"unparsable term", func(s *Snapshot) { s.Concepts[1].Term = "<a -->" }, []string{"unparsable: term of <a -->"}},
		{"belief out of range", func(s *Snapshot) {
			s.Concepts[0].Belief = &truth.Truth{Frequency: 1.5, Confidence: 0.9}
		}, []string{"truth out of range: belief of b"}},
		{"goal spike out of range", func(s *Snapshot) {
			s.Concepts[1].GoalSpike = &nar.Spike{Truth: truth.Truth{Frequency: 1, Confidence: -0.1}}
		}, []string{"truth out of range: goal_spike of a"}},
		{"not an implication", func(s *Snapshot) {
			s.Concepts[0].Implications[0].Term = "<a --> b>"
		}, []string{"not an implication: <a --> b>: implications of b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := sampleSnapshot("run-1", time.Now())
			tt.mutate(&snap)
			issues := ValidateSnapshot(snap)
			if len(issues) != len(tt.want) {
				t.Fatalf("issues = %v, want %v", issues, tt.want)
			}
			for i, w := range tt.want {
				if issues[i].String() != w {
					t.Errorf("issue %d = %q, want %q", i, issues[i].String(), w)
				}
			}
		})
	}
}

func TestInvalidSnapshotError(t *testing.T) {
	err := &InvalidSnapshotError{Issues: []ValidationError{
		{Field: "run.id", Issue: "missing"},
		{Term: "a", Field: "term", Issue: "duplicate"},
	}}
	got := err.Error()
	if !strings.HasPrefix(got, "invalid snapshot: ") || !strings.Contains(got, "run.id: missing; duplicate: term of a") {
		t.Errorf("Error() = %q", got)
	}
}
