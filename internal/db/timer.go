package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/punchcard-cli/punchcard/internal/model"
)

// ErrTimerExists is returned by CreateTimer when a timer is already running.
var ErrTimerExists = errors.New("a timer is already running")

// CreateTimer persists the active timer. The timer table holds at most one
// row, so the insert doubles as the check: two invocations racing here cannot
// both succeed, the loser gets ErrTimerExists with the original timer intact.
func CreateTimer(db *sql.DB, t *model.Timer) error {
	res, err := db.Exec(
		`INSERT INTO timer (id, issue_key, started_at, comment) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		t.IssueKey, t.StartedAt.Format(startedFormat), t.Comment,
	)
	if err != nil {
		return fmt.Errorf("creating timer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("creating timer: %w", err)
	}
	if n == 0 {
		return ErrTimerExists
	}
	return nil
}

// GetTimer returns the active timer, or ErrNotFound when none is running.
func GetTimer(db *sql.DB) (*model.Timer, error) {
	var t model.Timer
	var startedAt string
	var comment sql.NullString
	err := db.QueryRow(
		`SELECT issue_key, started_at, comment FROM timer WHERE id = 1`,
	).Scan(&t.IssueKey, &startedAt, &comment)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading timer: %w", err)
	}
	t.Comment = comment.String

	t.StartedAt, err = time.Parse(startedFormat, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing timer start %q: %w", startedAt, err)
	}
	return &t, nil
}

// DeleteTimer removes the active timer. Deleting when none exists is a no-op.
func DeleteTimer(db *sql.DB) error {
	if _, err := db.Exec(`DELETE FROM timer WHERE id = 1`); err != nil {
		return fmt.Errorf("deleting timer: %w", err)
	}
	return nil
}
