package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/punchcard-cli/punchcard/internal/model"
)

// Worklog timestamps are stored as RFC 3339 strings so the author's UTC
// offset survives the round trip.
const startedFormat = time.RFC3339

// UpsertEntry inserts a worklog entry keyed by its remote id, replacing any
// existing row with the same id. Applying the same entry twice therefore
// yields one row.
func UpsertEntry(db *sql.DB, e *model.WorklogEntry) error {
	return upsertEntry(db, e)
}

// execer abstracts *sql.DB and *sql.Tx for write statements.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertEntry(x execer, e *model.WorklogEntry) error {
	_, err := x.Exec(
		`INSERT INTO worklog (id, issue_key, author, started, duration_seconds, comment)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   issue_key = excluded.issue_key,
		   author = excluded.author,
		   started = excluded.started,
		   duration_seconds = excluded.duration_seconds,
		   comment = excluded.comment`,
		e.ID, e.IssueKey, e.Author, e.Started.Format(startedFormat), e.DurationSeconds, e.Comment,
	)
	if err != nil {
		return fmt.Errorf("upserting worklog %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEntry removes a worklog entry by its remote id. Returns ErrNotFound
// if no such row exists.
func DeleteEntry(db *sql.DB, entryID string) error {
	res, err := db.Exec(`DELETE FROM worklog WHERE id = ?`, entryID)
	if err != nil {
		return fmt.Errorf("deleting worklog %s: %w", entryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting worklog %s: %w", entryID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEntries returns all entries for the given issue keys with
// since <= started < until, ordered by start time. An empty key set means
// all keys. The zero time disables the corresponding bound.
func ListEntries(db *sql.DB, issueKeys []string, since, until time.Time) ([]model.WorklogEntry, error) {
	var conds []string
	var args []any

	if len(issueKeys) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(issueKeys)), ",")
		conds = append(conds, fmt.Sprintf("issue_key IN (%s)", placeholders))
		for _, key := range issueKeys {
			args = append(args, key)
		}
	}
	// Stored timestamps keep their original UTC offset, so windowing and
	// ordering must compare the instant, not the string.
	if !since.IsZero() {
		conds = append(conds, "datetime(started) >= datetime(?)")
		args = append(args, since.UTC().Format(startedFormat))
	}
	if !until.IsZero() {
		conds = append(conds, "datetime(started) < datetime(?)")
		args = append(args, until.UTC().Format(startedFormat))
	}

	query := `SELECT id, issue_key, author, started, duration_seconds, comment FROM worklog`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY datetime(started)"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing worklogs: %w", err)
	}
	defer rows.Close()

	var out []model.WorklogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// GetEntry retrieves a single worklog entry by its remote id.
func GetEntry(db *sql.DB, entryID string) (*model.WorklogEntry, error) {
	row := db.QueryRow(
		`SELECT id, issue_key, author, started, duration_seconds, comment
		 FROM worklog WHERE id = ?`, entryID,
	)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return e, err
}

// scanner abstracts *sql.Row and *sql.Rows for scanning a single row.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*model.WorklogEntry, error) {
	var e model.WorklogEntry
	var started string
	var author, comment sql.NullString
	if err := s.Scan(&e.ID, &e.IssueKey, &author, &started, &e.DurationSeconds, &comment); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning worklog row: %w", err)
	}
	e.Author = author.String
	e.Comment = comment.String

	t, err := time.Parse(startedFormat, started)
	if err != nil {
		return nil, fmt.Errorf("parsing started timestamp %q: %w", started, err)
	}
	e.Started = t
	return &e, nil
}

// ReplaceIssuePage atomically replaces the cached data for one issue with a
// freshly fetched page: the issue row, its component links, and every entry
// with started >= since. Entries outside the fetched window are preserved.
// Readers in other processes only ever observe the page before or after the
// replacement, never in between.
func ReplaceIssuePage(db *sql.DB, issue *model.Issue, since time.Time, entries []model.WorklogEntry) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO issue (key, numeric_id, summary) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET numeric_id = excluded.numeric_id, summary = excluded.summary`,
		issue.Key, issue.NumericID, issue.Summary,
	)
	if err != nil {
		return fmt.Errorf("upserting issue %s: %w", issue.Key, err)
	}

	for _, c := range issue.Components {
		if _, err := tx.Exec(
			`INSERT INTO component (id, name) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
			c.ID, c.Name,
		); err != nil {
			return fmt.Errorf("upserting component %d: %w", c.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO issue_component (issue_key, component_id) VALUES (?, ?)`,
			issue.Key, c.ID,
		); err != nil {
			return fmt.Errorf("linking component %d to %s: %w", c.ID, issue.Key, err)
		}
	}

	_, err = tx.Exec(
		`DELETE FROM worklog WHERE issue_key = ? AND datetime(started) >= datetime(?)`,
		issue.Key, since.UTC().Format(startedFormat),
	)
	if err != nil {
		return fmt.Errorf("clearing synced window for %s: %w", issue.Key, err)
	}

	for i := range entries {
		if err := upsertEntry(tx, &entries[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
