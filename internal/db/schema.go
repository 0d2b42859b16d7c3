package db

import (
	"database/sql"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 1

// schemaDDL contains the CREATE TABLE statements for the worklog cache.
// The worklog id is assigned by the remote tracker and is the natural key;
// the timer table's CHECK constraint caps it at a single row so that
// starting a timer is an atomic check-and-create.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS issue (
	key        TEXT PRIMARY KEY,
	numeric_id INTEGER NOT NULL DEFAULT 0,
	summary    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS component (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS issue_component (
	issue_key    TEXT NOT NULL REFERENCES issue(key) ON DELETE CASCADE,
	component_id INTEGER NOT NULL REFERENCES component(id) ON DELETE CASCADE,
	PRIMARY KEY (issue_key, component_id)
);

CREATE TABLE IF NOT EXISTS worklog (
	id               TEXT PRIMARY KEY,
	issue_key        TEXT NOT NULL REFERENCES issue(key) ON DELETE CASCADE,
	author           TEXT,
	started          TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL CHECK (duration_seconds >= 0),
	comment          TEXT
);

CREATE TABLE IF NOT EXISTS timer (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	issue_key  TEXT NOT NULL,
	started_at TEXT NOT NULL,
	comment    TEXT
);

CREATE INDEX IF NOT EXISTS idx_worklog_issue_key ON worklog(issue_key);
CREATE INDEX IF NOT EXISTS idx_worklog_started ON worklog(started);
`

// Initialize creates all tables if they don't exist and sets the schema version.
func Initialize(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Set schema version only if not already set.
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version from the meta table.
func SchemaVersion(db *sql.DB) (int, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}

	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing schema version %q: %w", val, err)
	}

	return v, nil
}
