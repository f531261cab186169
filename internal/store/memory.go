package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// InMemoryStore implements SnapshotStore for testing and development.
// Snapshots are deep-copied on the way in and out.
type InMemoryStore struct {
	mu    sync.RWMutex
	snaps map[string][]byte
	runs  map[string]Run
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		snaps: make(map[string][]byte),
		runs:  make(map[string]Run),
	}
}

// SaveSnapshot validates snap and replaces any stored snapshot of its run.
func (s *InMemoryStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if issues := ValidateSnapshot(snap); len(issues) > 0 {
		return &InvalidSnapshotError{Issues: issues}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.Run.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.Run.ID] = data
	s.runs[snap.Run.ID] = snap.Run
	return nil
}

// GetSnapshot returns the stored snapshot of a run, or ErrRunNotFound.
func (s *InMemoryStore) GetSnapshot(ctx context.Context, runID string) (*Snapshot, error) {
	s.mu.RLock()
	data, ok := s.snaps[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get snapshot %s: %w", runID, ErrRunNotFound)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", runID, err)
	}
	return &snap, nil
}

// ListRuns returns every stored run, newest first.
func (s *InMemoryStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

// DeleteRun removes a run, or returns ErrRunNotFound.
func (s *InMemoryStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("delete run %s: %w", runID, ErrRunNotFound)
	}
	delete(s.runs, runID)
	delete(s.snaps, runID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
