// Package timer implements the active-timer state machine: at most one
// in-progress time-logging session, persisted across process invocations.
package timer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/punchcard-cli/punchcard/internal/db"
	"github.com/punchcard-cli/punchcard/internal/model"
)

var (
	// ErrAlreadyRunning is returned by Start when a timer exists. The
	// original timer is left untouched.
	ErrAlreadyRunning = errors.New("a timer is already running")

	// ErrNoActiveTimer is returned by Stop and Discard when idle.
	ErrNoActiveTimer = errors.New("no active timer")

	// ErrNegativeDuration is returned by Stop when the stop time precedes
	// the start time. The timer stays running.
	ErrNegativeDuration = errors.New("stop time precedes timer start")
)

// Submitter creates a worklog entry on the remote tracker. Satisfied by
// *jira.Client.
type Submitter interface {
	CreateWorklog(ctx context.Context, issueKey string, started time.Time, durationSeconds int, comment string) (*model.WorklogEntry, error)
}

// Service drives the timer state machine over the persisted timer row.
type Service struct {
	conn   *sql.DB
	remote Submitter
}

// NewService returns a timer service over the given store and remote.
func NewService(conn *sql.DB, remote Submitter) *Service {
	return &Service{conn: conn, remote: remote}
}

// Start begins a new timer for the issue. start may be zero, meaning now.
// The check for an existing timer and the creation of the new one are a
// single atomic operation; two racing invocations cannot both succeed.
func (s *Service) Start(issueKey, comment string, start time.Time) (*model.Timer, error) {
	issueKey = model.NormalizeIssueKey(issueKey)
	if err := model.ValidateIssueKey(issueKey); err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = time.Now()
	}

	t := &model.Timer{IssueKey: issueKey, StartedAt: start, Comment: comment}
	if err := db.CreateTimer(s.conn, t); err != nil {
		if errors.Is(err, db.ErrTimerExists) {
			if running, getErr := db.GetTimer(s.conn); getErr == nil {
				return nil, fmt.Errorf("%w for %s since %s",
					ErrAlreadyRunning, running.IssueKey, running.StartedAt.Format("15:04"))
			}
			return nil, ErrAlreadyRunning
		}
		return nil, err
	}
	return t, nil
}

// Active returns the running timer, or nil when idle.
func (s *Service) Active() (*model.Timer, error) {
	t, err := db.GetTimer(s.conn)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// Stop ends the active timer, submits the accrued time as a worklog entry,
// and transitions back to idle. stop may be zero, meaning now; a non-empty
// commentOverride replaces the comment given at start.
//
// The timer row is removed only after the remote accepts the entry, so a
// remote failure leaves the timer running and Stop safe to retry. The client
// never guesses whether a timed-out submission landed remotely.
func (s *Service) Stop(ctx context.Context, commentOverride string, stop time.Time) (*model.WorklogEntry, error) {
	t, err := db.GetTimer(s.conn)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoActiveTimer
	}
	if err != nil {
		return nil, err
	}

	if stop.IsZero() {
		stop = time.Now()
	}
	seconds := int(stop.Sub(t.StartedAt).Seconds())
	if seconds < 0 {
		return nil, fmt.Errorf("%w: timer started %s, stop given as %s",
			ErrNegativeDuration, t.StartedAt.Format("15:04"), stop.Format("15:04"))
	}

	comment := t.Comment
	if commentOverride != "" {
		comment = commentOverride
	}

	entry, err := s.remote.CreateWorklog(ctx, t.IssueKey, t.StartedAt, seconds, comment)
	if err != nil {
		return nil, fmt.Errorf("submitting worklog for %s: %w", t.IssueKey, err)
	}

	// Mirror the accepted entry, then clear the timer.
	if err := db.EnsureIssue(s.conn, t.IssueKey); err != nil {
		return nil, err
	}
	if err := db.UpsertEntry(s.conn, entry); err != nil {
		return nil, err
	}
	if err := db.DeleteTimer(s.conn); err != nil {
		return nil, err
	}
	return entry, nil
}

// Discard drops the active timer without submitting anything.
func (s *Service) Discard() (*model.Timer, error) {
	t, err := db.GetTimer(s.conn)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoActiveTimer
	}
	if err != nil {
		return nil, err
	}
	if err := db.DeleteTimer(s.conn); err != nil {
		return nil, err
	}
	return t, nil
}
