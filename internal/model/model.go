package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// issueKeyPattern matches tracker issue keys such as "TIME-94": an upper-case
// project prefix, a dash, and a numeric sequence.
var issueKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*-[0-9]+$`)

// ErrInvalidIssueKey is wrapped by every issue-key validation failure, so
// callers can classify it without matching message text.
var ErrInvalidIssueKey = errors.New("invalid issue key")

// NormalizeIssueKey upper-cases and trims a user-supplied issue key.
func NormalizeIssueKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// ValidateIssueKey returns an error if key is not a well-formed issue key.
// The key is expected to be normalized already.
func ValidateIssueKey(key string) error {
	if !issueKeyPattern.MatchString(key) {
		return fmt.Errorf("%w %q: expected a key like TIME-94", ErrInvalidIssueKey, key)
	}
	return nil
}

// Issue is a cached row mirroring a remote work item. The remote tracker is
// authoritative for its existence and summary; rows are only ever created or
// refreshed by sync, never invented locally.
type Issue struct {
	Key        string      `json:"key"`
	NumericID  int64       `json:"numeric_id"`
	Summary    string      `json:"summary"`
	Components []Component `json:"components,omitempty"`
}

// Component is a named category attached to zero or more issues. Purely
// descriptive; populated only by sync.
type Component struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// WorklogEntry is one recorded span of time spent against an issue. The ID is
// assigned by the remote tracker and is the natural key everywhere; an entry
// does not exist locally until the remote has accepted it.
type WorklogEntry struct {
	ID              string    `json:"id"`
	IssueKey        string    `json:"issue_key"`
	Author          string    `json:"author"`
	Started         time.Time `json:"started"`
	DurationSeconds int       `json:"duration_seconds"`
	Comment         string    `json:"comment,omitempty"`
}

// Timer is a pending, not-yet-submitted worklog entry whose duration accrues
// until stopped. At most one exists at any moment, persisted so a later
// process invocation can still stop it.
type Timer struct {
	IssueKey  string    `json:"issue_key"`
	StartedAt time.Time `json:"started_at"`
	Comment   string    `json:"comment,omitempty"`
}

// Elapsed returns the time accrued on the timer as of now.
func (t *Timer) Elapsed(now time.Time) time.Duration {
	return now.Sub(t.StartedAt)
}
