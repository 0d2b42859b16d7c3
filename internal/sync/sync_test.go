package sync

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/punchcard-cli/punchcard/internal/db"
	"github.com/punchcard-cli/punchcard/internal/jira"
	"github.com/punchcard-cli/punchcard/internal/model"
)

func mustOpen(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.Initialize(conn); err != nil {
		t.Fatalf("initializing database: %v", err)
	}
	return conn
}

type fakeRemote struct {
	account  jira.Account
	issues   map[string]*model.Issue
	worklogs map[string][]model.WorklogEntry

	issueErrs map[string]error
	myselfErr error
}

func (f *fakeRemote) Myself(ctx context.Context) (*jira.Account, error) {
	if f.myselfErr != nil {
		return nil, f.myselfErr
	}
	return &f.account, nil
}

func (f *fakeRemote) GetIssue(ctx context.Context, key string) (*model.Issue, error) {
	if err := f.issueErrs[key]; err != nil {
		return nil, err
	}
	issue, ok := f.issues[key]
	if !ok {
		return nil, jira.ErrNotFound
	}
	return issue, nil
}

func (f *fakeRemote) GetWorklogs(ctx context.Context, issueKey string, since time.Time) ([]model.WorklogEntry, error) {
	var out []model.WorklogEntry
	for _, entry := range f.worklogs[issueKey] {
		if !entry.Started.Before(since) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func entry(id, key, author string, started time.Time) model.WorklogEntry {
	return model.WorklogEntry{
		ID:              id,
		IssueKey:        key,
		Author:          author,
		Started:         started,
		DurationSeconds: 3600,
	}
}

func TestRunReplacesCachedWindow(t *testing.T) {
	conn := mustOpen(t)
	since := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	// Stale local entry inside the window that the remote no longer has.
	issue := &model.Issue{Key: "TIME-94", NumericID: 94, Summary: "old summary"}
	stale := entry("stale-1", "TIME-94", "me", since.Add(24*time.Hour))
	if err := db.ReplaceIssuePage(conn, issue, since, []model.WorklogEntry{stale}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	remote := &fakeRemote{
		account: jira.Account{AccountID: "me"},
		issues: map[string]*model.Issue{
			"TIME-94": {Key: "TIME-94", NumericID: 94, Summary: "new summary"},
		},
		worklogs: map[string][]model.WorklogEntry{
			"TIME-94": {
				entry("w-1", "TIME-94", "me", since.Add(48*time.Hour)),
				entry("w-2", "TIME-94", "me", since.Add(72*time.Hour)),
			},
		},
	}

	engine := NewEngine(conn, remote)
	result, err := engine.Run(context.Background(), Options{Since: since})
	if err != nil {
		t.Fatalf("running sync: %v", err)
	}
	if len(result.Issues) != 1 || result.Issues[0].Entries != 2 {
		t.Fatalf("unexpected result: %+v", result.Issues)
	}

	entries, err := db.ListEntries(conn, nil, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("listing entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after sync, got %d", len(entries))
	}
	for _, e := range entries {
		if e.ID == "stale-1" {
			t.Fatal("stale entry survived the sync")
		}
	}

	got, err := db.GetIssue(conn, "TIME-94")
	if err != nil {
		t.Fatalf("reading issue: %v", err)
	}
	if got.Summary != "new summary" {
		t.Errorf("issue summary = %q, want %q", got.Summary, "new summary")
	}
}

func TestRunDerivesKeysFromStore(t *testing.T) {
	conn := mustOpen(t)
	since := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	issue := &model.Issue{Key: "TIME-7", NumericID: 7}
	seed := entry("seed-1", "TIME-7", "me", since.Add(time.Hour))
	if err := db.ReplaceIssuePage(conn, issue, since, []model.WorklogEntry{seed}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	remote := &fakeRemote{
		account: jira.Account{AccountID: "me"},
		issues: map[string]*model.Issue{
			"TIME-7": {Key: "TIME-7", NumericID: 7, Summary: "tracked"},
		},
		worklogs: map[string][]model.WorklogEntry{
			"TIME-7": {entry("w-1", "TIME-7", "me", since.Add(time.Hour))},
		},
	}

	result, err := NewEngine(conn, remote).Run(context.Background(), Options{Since: since})
	if err != nil {
		t.Fatalf("running sync: %v", err)
	}
	if len(result.Issues) != 1 || result.Issues[0].Key != "TIME-7" {
		t.Fatalf("unexpected issues: %+v", result.Issues)
	}
}

func TestRunFiltersToCurrentUser(t *testing.T) {
	conn := mustOpen(t)
	since := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	remote := &fakeRemote{
		account: jira.Account{AccountID: "me"},
		issues: map[string]*model.Issue{
			"TIME-1": {Key: "TIME-1", NumericID: 1},
		},
		worklogs: map[string][]model.WorklogEntry{
			"TIME-1": {
				entry("w-1", "TIME-1", "me", since.Add(time.Hour)),
				entry("w-2", "TIME-1", "someone-else", since.Add(2*time.Hour)),
			},
		},
	}

	result, err := NewEngine(conn, remote).Run(context.Background(), Options{
		IssueKeys: []string{"time-1"},
		Since:     since,
	})
	if err != nil {
		t.Fatalf("running sync: %v", err)
	}
	if result.Issues[0].Entries != 1 {
		t.Fatalf("expected 1 entry after author filter, got %d", result.Issues[0].Entries)
	}

	entries, err := db.ListEntries(conn, nil, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("listing entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Author != "me" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestRunAllUsersKeepsEveryAuthor(t *testing.T) {
	conn := mustOpen(t)
	since := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	remote := &fakeRemote{
		issues: map[string]*model.Issue{
			"TIME-1": {Key: "TIME-1", NumericID: 1},
		},
		worklogs: map[string][]model.WorklogEntry{
			"TIME-1": {
				entry("w-1", "TIME-1", "me", since.Add(time.Hour)),
				entry("w-2", "TIME-1", "someone-else", since.Add(2*time.Hour)),
			},
		},
		// Myself must not be consulted when every author is kept.
		myselfErr: errors.New("unexpected call"),
	}

	result, err := NewEngine(conn, remote).Run(context.Background(), Options{
		IssueKeys: []string{"TIME-1"},
		Since:     since,
		AllUsers:  true,
	})
	if err != nil {
		t.Fatalf("running sync: %v", err)
	}
	if result.Issues[0].Entries != 2 {
		t.Fatalf("expected 2 entries, got %d", result.Issues[0].Entries)
	}
}

func TestRunCollectsPartialFailures(t *testing.T) {
	conn := mustOpen(t)
	since := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	remote := &fakeRemote{
		account: jira.Account{AccountID: "me"},
		issues: map[string]*model.Issue{
			"TIME-1": {Key: "TIME-1", NumericID: 1},
		},
		worklogs: map[string][]model.WorklogEntry{
			"TIME-1": {entry("w-1", "TIME-1", "me", since.Add(time.Hour))},
		},
		issueErrs: map[string]error{
			"TIME-2": jira.ErrNotFound,
		},
	}

	result, err := NewEngine(conn, remote).Run(context.Background(), Options{
		IssueKeys: []string{"TIME-1", "TIME-2"},
		Since:     since,
	})
	var partial *PartialError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialError, got %v", err)
	}
	if len(partial.Failed) != 1 || partial.Failed[0].Key != "TIME-2" {
		t.Fatalf("unexpected failures: %+v", partial.Failed)
	}

	// The succeeded key is still fully upserted.
	if result.Issues[0].Entries != 1 {
		t.Fatalf("expected the healthy key to sync, got %+v", result.Issues[0])
	}
	entries, err := db.ListEntries(conn, []string{"TIME-1"}, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("listing entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry for TIME-1, got %d", len(entries))
	}
}

func TestRunAbortsOnAuthFailure(t *testing.T) {
	conn := mustOpen(t)

	remote := &fakeRemote{
		account: jira.Account{AccountID: "me"},
		issueErrs: map[string]error{
			"TIME-1": jira.ErrAuth,
		},
	}

	_, err := NewEngine(conn, remote).Run(context.Background(), Options{
		IssueKeys: []string{"TIME-1", "TIME-2"},
	})
	if !errors.Is(err, jira.ErrAuth) {
		t.Fatalf("expected auth failure to abort, got %v", err)
	}
}

func TestRunRejectsInvalidKey(t *testing.T) {
	conn := mustOpen(t)
	remote := &fakeRemote{account: jira.Account{AccountID: "me"}}

	_, err := NewEngine(conn, remote).Run(context.Background(), Options{
		IssueKeys: []string{"not a key"},
	})
	if !errors.Is(err, model.ErrInvalidIssueKey) {
		t.Fatalf("err = %v, want ErrInvalidIssueKey", err)
	}
}

func TestRunRerunConverges(t *testing.T) {
	conn := mustOpen(t)
	since := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	remote := &fakeRemote{
		account: jira.Account{AccountID: "me"},
		issues: map[string]*model.Issue{
			"TIME-1": {Key: "TIME-1", NumericID: 1},
		},
		worklogs: map[string][]model.WorklogEntry{
			"TIME-1": {entry("w-1", "TIME-1", "me", since.Add(time.Hour))},
		},
	}

	opts := Options{IssueKeys: []string{"TIME-1"}, Since: since}
	engine := NewEngine(conn, remote)
	for i := 0; i < 2; i++ {
		if _, err := engine.Run(context.Background(), opts); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	entries, err := db.ListEntries(conn, nil, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("listing entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after repeated syncs, got %d", len(entries))
	}
}
