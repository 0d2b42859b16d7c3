package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens the SQLite database at the given path.
// It sets pragmas for WAL mode, foreign key enforcement, and busy timeout.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite is single-writer; limit the pool to one connection to avoid
	// lock contention and make the single-connection intent explicit.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return db, nil
}

// OpenStore opens or creates the worklog cache at dbPath and ensures the
// schema exists. The cache is rebuildable in full from a sync, so an
// unreadable or corrupt file is never fatal: it is moved aside to
// <path>.corrupt and an empty store is created in its place.
func OpenStore(dbPath string) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	conn, err := openAndInit(dbPath)
	if err == nil {
		return conn, nil
	}

	// Back up whatever is there and start over with an empty store.
	if renameErr := os.Rename(dbPath, dbPath+".corrupt"); renameErr != nil && !os.IsNotExist(renameErr) {
		return nil, fmt.Errorf("moving corrupt store aside: %w (open error was: %v)", renameErr, err)
	}

	conn, err = openAndInit(dbPath)
	if err != nil {
		return nil, fmt.Errorf("recreating store: %w", err)
	}
	return conn, nil
}

func openAndInit(dbPath string) (*sql.DB, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := Initialize(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
