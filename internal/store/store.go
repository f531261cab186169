// Package store persists snapshots of reasoner memory. A snapshot is the
// run summary plus a copy of its most useful concepts at one point in time.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/narloop/internal/cycle"
	"github.com/nvandessel/narloop/internal/nar"
)

// ErrRunNotFound is returned when no snapshot exists for a run id.
var ErrRunNotFound = errors.New("run not found")

// Run summarizes one reasoner run at snapshot time.
type Run struct {
	ID           string      `json:"id"`
	CreatedAt    time.Time   `json:"created_at"`
	Time         int64       `json:"time"`
	Threshold    float64     `json:"threshold"`
	Stats        cycle.Stats `json:"stats"`
	ConceptCount int         `json:"concept_count"` // concepts in memory, not only those saved
	Label        string      `json:"label,omitempty"`
}

// Snapshot is a run summary with its saved concepts, most useful first.
type Snapshot struct {
	Run      Run               `json:"run"`
	Concepts []nar.ConceptInfo `json:"concepts"`
}

// SnapshotStore stores one snapshot per run. Saving a run again replaces
// its previous snapshot.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	GetSnapshot(ctx context.Context, runID string) (*Snapshot, error)

	// ListRuns returns every stored run, newest first.
	ListRuns(ctx context.Context) ([]Run, error)
	DeleteRun(ctx context.Context, runID string) error

	Close() error
}

// Capture takes a snapshot of n holding up to limit concepts.
func Capture(n *nar.NAR, limit int, label string) Snapshot {
	return Snapshot{
		Run: Run{
			ID:           n.RunID(),
			CreatedAt:    time.Now().UTC(),
			Time:         n.Time(),
			Threshold:    n.Threshold(),
			Stats:        n.Stats(),
			ConceptCount: n.ConceptCount(),
			Label:        label,
		},
		Concepts: n.Concepts(limit),
	}
}
