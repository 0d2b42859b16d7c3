// Package sync reconciles the local worklog cache against the remote
// tracker. The remote is always authoritative; each issue key's fetched
// window fully replaces what was cached for it.
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/punchcard-cli/punchcard/internal/db"
	"github.com/punchcard-cli/punchcard/internal/jira"
	"github.com/punchcard-cli/punchcard/internal/model"
)

// DefaultWindow is how far back a sync reaches when no --since is given.
const DefaultWindow = 30 * 24 * time.Hour

// defaultFanout bounds the number of concurrent per-issue fetches. The
// remote tracker is the only slow resource; the local writes behind it are
// serialized by the store's single connection.
const defaultFanout = 4

// Remote is the tracker surface the engine consumes. Satisfied by
// *jira.Client.
type Remote interface {
	Myself(ctx context.Context) (*jira.Account, error)
	GetIssue(ctx context.Context, key string) (*model.Issue, error)
	GetWorklogs(ctx context.Context, issueKey string, since time.Time) ([]model.WorklogEntry, error)
}

// Options selects what to synchronise.
type Options struct {
	// IssueKeys to sync. Empty means "derive from the store": every key
	// that has entries cached locally.
	IssueKeys []string

	// Since bounds the fetched window. Zero means DefaultWindow ago.
	Since time.Time

	// AllUsers keeps entries from every author instead of filtering down
	// to the configured user.
	AllUsers bool
}

// IssueResult is the outcome for one issue key.
type IssueResult struct {
	Key     string `json:"key"`
	Entries int    `json:"entries"`
	Err     error  `json:"-"`
}

// Result is the outcome of a sync run.
type Result struct {
	Since  time.Time     `json:"since"`
	Issues []IssueResult `json:"issues"`
}

// Failed returns the issue results that errored.
func (r *Result) Failed() []IssueResult {
	var out []IssueResult
	for _, ir := range r.Issues {
		if ir.Err != nil {
			out = append(out, ir)
		}
	}
	return out
}

// PartialError reports per-issue failures while the rest of the sync
// completed. It is distinct from a global failure: the succeeded keys are
// fully upserted and a re-run converges.
type PartialError struct {
	Failed []IssueResult
}

func (e *PartialError) Error() string {
	keys := make([]string, len(e.Failed))
	for i, ir := range e.Failed {
		keys[i] = ir.Key
	}
	sort.Strings(keys)
	return fmt.Sprintf("sync failed for %d of the requested issues: %s",
		len(e.Failed), strings.Join(keys, ", "))
}

// Engine pulls remote truth into the local store.
type Engine struct {
	conn   *sql.DB
	remote Remote
	fanout int
}

// NewEngine returns a sync engine over the given store and remote.
func NewEngine(conn *sql.DB, remote Remote) *Engine {
	return &Engine{conn: conn, remote: remote, fanout: defaultFanout}
}

// Run synchronises the selected issue keys. Per-issue failures are collected
// into the Result and a *PartialError; a global failure (authentication
// rejected, no keys to sync) aborts immediately with a nil Result. Issue
// keys are processed independently, so an interrupted run leaves completed
// keys fully upserted and re-running with the same options converges.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	since := opts.Since
	if since.IsZero() {
		since = time.Now().Add(-DefaultWindow)
	}

	keys, err := e.resolveKeys(opts.IssueKeys)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.New("no issue keys given and none found in the local store")
	}

	// Resolve the author filter up front; a rejected token is a global
	// failure, not a per-issue one.
	var account *jira.Account
	if !opts.AllUsers {
		account, err = e.remote.Myself(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving current user: %w", err)
		}
	}

	result := &Result{Since: since, Issues: make([]IssueResult, len(keys))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fanout)
	for i, key := range keys {
		g.Go(func() error {
			n, err := e.syncIssue(gctx, key, since, account)
			if err != nil {
				// Authentication rejections abort the whole run; anything
				// else is recorded against this key and the rest continue.
				if errors.Is(err, jira.ErrAuth) {
					return err
				}
				result.Issues[i] = IssueResult{Key: key, Err: err}
				return nil
			}
			result.Issues[i] = IssueResult{Key: key, Entries: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if failed := result.Failed(); len(failed) > 0 {
		return result, &PartialError{Failed: failed}
	}
	return result, nil
}

// resolveKeys normalizes the requested keys, falling back to the distinct
// keys present in the store when none were given.
func (e *Engine) resolveKeys(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return db.DistinctIssueKeys(e.conn)
	}

	keys := make([]string, 0, len(requested))
	for _, key := range requested {
		key = model.NormalizeIssueKey(key)
		if err := model.ValidateIssueKey(key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// syncIssue fetches one issue's metadata and worklog window and replaces the
// cached page atomically.
func (e *Engine) syncIssue(ctx context.Context, key string, since time.Time, account *jira.Account) (int, error) {
	issue, err := e.remote.GetIssue(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("fetching issue: %w", err)
	}

	entries, err := e.remote.GetWorklogs(ctx, key, since)
	if err != nil {
		return 0, fmt.Errorf("fetching worklogs: %w", err)
	}

	if account != nil {
		filtered := entries[:0]
		for _, entry := range entries {
			if entry.Author == account.AccountID {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	if err := db.ReplaceIssuePage(e.conn, issue, since, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
