package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id             TEXT PRIMARY KEY,
		check_in_time  TEXT NOT NULL,
		check_out_time TEXT,
		duration       TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL DEFAULT 'active'
		               CHECK(status IN ('active','completed')),
		sync_status    TEXT NOT NULL DEFAULT 'pending'
		               CHECK(sync_status IN ('pending','synced','failed')),
		last_synced    TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_check_in ON sessions(check_in_time)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status)`,

	// seq preserves enqueue order; id is the composite queue key.
	`CREATE TABLE IF NOT EXISTS sync_queue (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		id          TEXT NOT NULL UNIQUE,
		operation   TEXT NOT NULL CHECK(operation IN ('create','update','delete')),
		session_id  TEXT NOT NULL,
		data        TEXT NOT NULL,
		enqueued_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sync_queue_session ON sync_queue(session_id)`,
}
