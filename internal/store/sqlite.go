package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/narloop/internal/cycle"
	"github.com/nvandessel/narloop/internal/nar"
	"github.com/nvandessel/narloop/internal/truth"
)

// timeFormat is fixed width so that created_at sorts chronologically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements SnapshotStore on a SQLite database file.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the snapshot database at dbPath,
// creating its parent directory when needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// SaveSnapshot validates snap and replaces any stored snapshot of its run.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if issues := ValidateSnapshot(snap); len(issues) > 0 {
		return &InvalidSnapshotError{Issues: issues}
	}

	stats, err := json.Marshal(snap.Run.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, snap.Run.ID); err != nil {
		return fmt.Errorf("replace run %s: %w", snap.Run.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, label, created_at, time, threshold, stats, concept_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.Run.ID, snap.Run.Label, snap.Run.CreatedAt.UTC().Format(timeFormat),
		snap.Run.Time, snap.Run.Threshold, string(stats), snap.Run.ConceptCount)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", snap.Run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO concepts (run_id, rank, concept_id, term, priority, usefulness, use_count, last_used,
			belief, belief_spike, predicted_belief, goal_spike, implications)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare concept insert: %w", err)
	}
	defer stmt.Close()

	for rank, c := range snap.Concepts {
		cols, err := encodeConcept(c)
		if err != nil {
			return fmt.Errorf("encode concept %s: %w", c.Term, err)
		}
		_, err = stmt.ExecContext(ctx, snap.Run.ID, rank, int64(c.ID), c.Term, c.Priority, c.Usefulness,
			c.UseCount, c.LastUsed, cols.belief, cols.beliefSpike, cols.predicted, cols.goalSpike, cols.implications)
		if err != nil {
			return fmt.Errorf("insert concept %s: %w", c.Term, err)
		}
	}

	return tx.Commit()
}

// GetSnapshot returns the stored snapshot of a run, or ErrRunNotFound.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, runID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, label, created_at, time, threshold, stats, concept_count
		FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get snapshot %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT concept_id, term, priority, usefulness, use_count, last_used,
			belief, belief_spike, predicted_belief, goal_spike, implications
		FROM concepts WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("query concepts of %s: %w", runID, err)
	}
	defer rows.Close()

	snap := &Snapshot{Run: run, Concepts: []nar.ConceptInfo{}}
	for rows.Next() {
		var (
			c    nar.ConceptInfo
			id   int64
			cols conceptColumns
		)
		if err := rows.Scan(&id, &c.Term, &c.Priority, &c.Usefulness, &c.UseCount, &c.LastUsed,
			&cols.belief, &cols.beliefSpike, &cols.predicted, &cols.goalSpike, &cols.implications); err != nil {
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		c.ID = uint64(id)
		if err := cols.decode(&c); err != nil {
			return nil, fmt.Errorf("decode concept %s: %w", c.Term, err)
		}
		snap.Concepts = append(snap.Concepts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate concepts of %s: %w", runID, err)
	}
	return snap, nil
}

// ListRuns returns every stored run, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, created_at, time, threshold, stats, concept_count
		FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its concepts, or returns ErrRunNotFound.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s rows affected: %w", runID, err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (Run, error) {
	var (
		run       Run
		label     sql.NullString
		createdAt string
		stats     string
	)
	if err := r.Scan(&run.ID, &label, &createdAt, &run.Time, &run.Threshold, &stats, &run.ConceptCount); err != nil {
		return Run{}, err
	}
	run.Label = label.String
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at of %s: %w", run.ID, err)
	}
	run.CreatedAt = t
	var st cycle.Stats
	if err := json.Unmarshal([]byte(stats), &st); err != nil {
		return Run{}, fmt.Errorf("parse stats of %s: %w", run.ID, err)
	}
	run.Stats = st
	return run, nil
}

// conceptColumns are the JSON columns of a concept row.
type conceptColumns struct {
	belief       sql.NullString
	beliefSpike  sql.NullString
	predicted    sql.NullString
	goalSpike    sql.NullString
	implications sql.NullString
}

func encodeConcept(c nar.ConceptInfo) (conceptColumns, error) {
	var cols conceptColumns
	fields := []struct {
		dst *sql.NullString
		v   any
		set bool
	}{
		{&cols.belief, c.Belief, c.Belief != nil},
		{&cols.beliefSpike, c.BeliefSpike, c.BeliefSpike != nil},
		{&cols.predicted, c.PredictedBelief, c.PredictedBelief != nil},
		{&cols.goalSpike, c.GoalSpike, c.GoalSpike != nil},
		{&cols.implications, c.Implications, len(c.Implications) > 0},
	}
	for _, f := range fields {
		if !f.set {
			continue
		}
		data, err := json.Marshal(f.v)
		if err != nil {
			return conceptColumns{}, err
		}
		*f.dst = sql.NullString{String: string(data), Valid: true}
	}
	return cols, nil
}

func (cols conceptColumns) decode(c *nar.ConceptInfo) error {
	if cols.belief.Valid {
		var tv truth.Truth
		if err := json.Unmarshal([]byte(cols.belief.String), &tv); err != nil {
			return err
		}
		c.Belief = &tv
	}
	spikes := []struct {
		src sql.NullString
		dst **nar.Spike
	}{
		{cols.beliefSpike, &c.BeliefSpike},
		{cols.predicted, &c.PredictedBelief},
		{cols.goalSpike, &c.GoalSpike},
	}
	for _, sp := range spikes {
		if !sp.src.Valid {
			continue
		}
		var spike nar.Spike
		if err := json.Unmarshal([]byte(sp.src.String), &spike); err != nil {
			return err
		}
		*sp.dst = &spike
	}
	if cols.implications.Valid {
		if err := json.Unmarshal([]byte(cols.implications.String), &c.Implications); err != nil {
			return err
		}
	}
	return nil
}
