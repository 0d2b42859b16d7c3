// Package jira is a minimal client for the remote worklog service's REST
// API: issue summaries, paginated worklogs, and worklog creation/deletion.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/punchcard-cli/punchcard/internal/model"
)

// startedFormat is the wire format the tracker uses for worklog timestamps.
const startedFormat = "2006-01-02T15:04:05.000-0700"

// pageSize is the number of worklogs requested per page.
const pageSize = 100

var (
	// ErrAuth means the tracker rejected our credentials. Nothing further
	// can succeed, so callers abort rather than retry.
	ErrAuth = errors.New("authentication rejected by tracker")

	// ErrNotFound means the issue or worklog does not exist remotely.
	ErrNotFound = errors.New("not found on tracker")
)

// Client is an authenticated tracker API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a tracker client authenticating with the given API token.
// Requests are bounded by the client's timeout; a remote call can never hang
// past it.
func NewClient(ctx context.Context, baseURL, token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = 30 * time.Second
	return &Client{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// Account identifies a tracker user.
type Account struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

// issueResponse is the tracker's issue representation, narrowed to the
// fields the cache mirrors.
type issueResponse struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary    string `json:"summary"`
		Components []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"components"`
	} `json:"fields"`
}

// worklogResponse is one page of worklogs for an issue.
type worklogResponse struct {
	StartAt    int           `json:"startAt"`
	MaxResults int           `json:"maxResults"`
	Total      int           `json:"total"`
	Worklogs   []wireWorklog `json:"worklogs"`
}

type wireWorklog struct {
	ID               string  `json:"id"`
	Author           Account `json:"author"`
	Started          string  `json:"started"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
	Comment          string  `json:"comment"`
}

// Myself returns the identity the token authenticates as. Used to filter
// synced worklogs down to the configured user.
func (c *Client) Myself(ctx context.Context) (*Account, error) {
	var acc Account
	if err := c.get(ctx, "/rest/api/2/myself", &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetIssue fetches the summary and component links for one issue key.
func (c *Client) GetIssue(ctx context.Context, key string) (*model.Issue, error) {
	var resp issueResponse
	path := "/rest/api/2/issue/" + url.PathEscape(key) + "?fields=summary,components"
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	numericID, _ := strconv.ParseInt(resp.ID, 10, 64)
	issue := &model.Issue{
		Key:       resp.Key,
		NumericID: numericID,
		Summary:   resp.Fields.Summary,
	}
	for _, comp := range resp.Fields.Components {
		id, _ := strconv.ParseInt(comp.ID, 10, 64)
		issue.Components = append(issue.Components, model.Component{ID: id, Name: comp.Name})
	}
	return issue, nil
}

// GetWorklogs fetches all worklogs for an issue started at or after since,
// concatenating remote pages until exhaustion.
func (c *Client) GetWorklogs(ctx context.Context, issueKey string, since time.Time) ([]model.WorklogEntry, error) {
	var all []model.WorklogEntry

	for startAt := 0; ; {
		path := fmt.Sprintf("/rest/api/2/issue/%s/worklog?startedAfter=%d&startAt=%d&maxResults=%d",
			url.PathEscape(issueKey), since.UnixMilli(), startAt, pageSize)

		var page worklogResponse
		if err := c.get(ctx, path, &page); err != nil {
			return nil, err
		}

		for _, wl := range page.Worklogs {
			entry, err := wl.toEntry(issueKey)
			if err != nil {
				return nil, err
			}
			all = append(all, *entry)
		}

		startAt += len(page.Worklogs)
		if startAt >= page.Total || len(page.Worklogs) == 0 {
			break
		}
	}

	return all, nil
}

// CreateWorklog submits a new worklog entry and returns the accepted entry,
// with the id the tracker assigned. The caller mirrors it into the local
// store only after this succeeds.
func (c *Client) CreateWorklog(ctx context.Context, issueKey string, started time.Time, durationSeconds int, comment string) (*model.WorklogEntry, error) {
	body := map[string]any{
		"started":          started.Format(startedFormat),
		"timeSpentSeconds": durationSeconds,
		"comment":          comment,
	}

	var created wireWorklog
	path := "/rest/api/2/issue/" + url.PathEscape(issueKey) + "/worklog"
	if err := c.do(ctx, http.MethodPost, path, body, &created); err != nil {
		return nil, err
	}
	return created.toEntry(issueKey)
}

// DeleteWorklog deletes a worklog entry remotely. Callers remove the local
// row only after this confirms; ErrNotFound means it was already gone.
func (c *Client) DeleteWorklog(ctx context.Context, issueKey, entryID string) error {
	path := "/rest/api/2/issue/" + url.PathEscape(issueKey) + "/worklog/" + url.PathEscape(entryID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (w *wireWorklog) toEntry(issueKey string) (*model.WorklogEntry, error) {
	started, err := time.Parse(startedFormat, w.Started)
	if err != nil {
		return nil, fmt.Errorf("parsing worklog %s started %q: %w", w.ID, w.Started, err)
	}
	return &model.WorklogEntry{
		ID:              w.ID,
		IssueKey:        issueKey,
		Author:          w.Author.AccountID,
		Started:         started,
		DurationSeconds: w.TimeSpentSeconds,
		Comment:         w.Comment,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tracker request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("tracker error %d on %s %s: %s", resp.StatusCode, method, path, bytes.TrimSpace(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding tracker response: %w", err)
	}
	return nil
}
