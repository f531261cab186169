package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// migration upgrades the database to version.
type migration struct {
	version int
	stmts   string
}

// migrations are applied in order; the last entry is the current layout.
var migrations = []migration{
	{version: 1, stmts: `
CREATE TABLE runs (
    id TEXT PRIMARY KEY,
    label TEXT,
    created_at TEXT NOT NULL,
    time INTEGER NOT NULL,
    threshold REAL NOT NULL,
    stats TEXT NOT NULL,
    concept_count INTEGER NOT NULL
);
CREATE INDEX idx_runs_created ON runs(created_at);

-- rank is the position in the usefulness order at capture time
CREATE TABLE concepts (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    rank INTEGER NOT NULL,
    concept_id INTEGER NOT NULL,
    term TEXT NOT NULL,
    priority REAL NOT NULL,
    usefulness REAL NOT NULL,
    use_count INTEGER NOT NULL,
    last_used INTEGER NOT NULL,
    belief TEXT,
    belief_spike TEXT,
    predicted_belief TEXT,
    goal_spike TEXT,
    implications TEXT,
    PRIMARY KEY (run_id, rank)
);
CREATE INDEX idx_concepts_term ON concepts(term);
`},
}

// SchemaVersion is the version a fully migrated database reports.
var SchemaVersion = migrations[len(migrations)-1].version

const versionTable = `CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
)`

// InitSchema brings db up to SchemaVersion. An existing database is
// integrity checked first; one written by a newer build is refused.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, versionTable); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}
	current, err := getSchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("snapshot database is at schema %d, this build knows up to %d", current, SchemaVersion)
	}
	if current > 0 {
		if err := ValidateIntegrity(ctx, db); err != nil {
			return fmt.Errorf("database integrity check failed: %w", err)
		}
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	return nil
}

// getSchemaVersion returns 0 for a database with no recorded migration.
func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.stmts); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, m.version); err != nil {
		return err
	}
	return tx.Commit()
}

// ValidateIntegrity reports the first page-level corruption or every
// dangling concept row, whichever SQLite finds.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check(1)`).Scan(&result); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("quick_check: %s", result)
	}

	rows, err := db.QueryContext(ctx, `PRAGMA foreign_key_check(concepts)`)
	if err != nil {
		return fmt.Errorf("foreign_key_check: %w", err)
	}
	defer rows.Close()

	var dangling []string
	for rows.Next() {
		var table, parent string
		var rowid sql.NullInt64
		var fk int
		if err := rows.Scan(&table, &rowid, &parent, &fk); err != nil {
			return fmt.Errorf("foreign_key_check: %w", err)
		}
		dangling = append(dangling, fmt.Sprintf("%s row %d", table, rowid.Int64))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("foreign_key_check: %w", err)
	}
	if len(dangling) > 0 {
		return fmt.Errorf("concepts without a run: %s", strings.Join(dangling, ", "))
	}
	return nil
}

// ResetSchema drops every table and migrates from scratch. Tests only.
func ResetSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"concepts", "runs", "schema_version"} {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return InitSchema(ctx, db)
}
