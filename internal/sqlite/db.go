package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: serializes writers (no SQLITE_BUSY surprises) and
	// keeps :memory: databases from splitting across pool connections.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the cache schema.
func (db *DB) RunMigrations() error {
	migration := `
-- Per-user task snapshots, replaced wholesale on each successful sync.
CREATE TABLE IF NOT EXISTS task_snapshots (
    email TEXT NOT NULL,
    task_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    project_id TEXT NOT NULL,
    project_name TEXT NOT NULL DEFAULT '',
    project_identifier TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    priority TEXT NOT NULL DEFAULT 'none',
    state_id TEXT NOT NULL DEFAULT '',
    state_name TEXT NOT NULL DEFAULT '',
    state_group TEXT NOT NULL DEFAULT '',
    due_date TIMESTAMP,
    sequence_no INTEGER NOT NULL DEFAULT 0,
    assignees_json TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP,
    updated_at TIMESTAMP,
    synced_at TIMESTAMP NOT NULL,
    PRIMARY KEY (email, task_id)
);
CREATE INDEX IF NOT EXISTS idx_snapshot_email ON task_snapshots(email);

-- One sync bookkeeping row per email. in_progress is the at-most-one
-- refresh flag.
CREATE TABLE IF NOT EXISTS sync_status (
    email TEXT PRIMARY KEY,
    in_progress INTEGER NOT NULL DEFAULT 0,
    last_started TIMESTAMP,
    last_completed TIMESTAMP,
    last_error TEXT,
    total_found INTEGER NOT NULL DEFAULT 0
);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
