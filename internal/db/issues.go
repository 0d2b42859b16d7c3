package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/punchcard-cli/punchcard/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// UpsertIssue inserts or refreshes the cached row for an issue. The remote
// tracker is authoritative, so an existing row is fully overwritten.
func UpsertIssue(db *sql.DB, issue *model.Issue) error {
	_, err := db.Exec(
		`INSERT INTO issue (key, numeric_id, summary) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET numeric_id = excluded.numeric_id, summary = excluded.summary`,
		issue.Key, issue.NumericID, issue.Summary,
	)
	if err != nil {
		return fmt.Errorf("upserting issue %s: %w", issue.Key, err)
	}
	return nil
}

// EnsureIssue creates a placeholder row for an issue key if none exists,
// leaving an already-cached summary untouched. Worklog rows reference the
// issue table, so a locally created entry needs this before the next sync
// fills in the real summary.
func EnsureIssue(db *sql.DB, key string) error {
	if _, err := db.Exec(`INSERT OR IGNORE INTO issue (key) VALUES (?)`, key); err != nil {
		return fmt.Errorf("ensuring issue %s: %w", key, err)
	}
	return nil
}

// GetIssue retrieves a cached issue by key, with its components hydrated.
func GetIssue(db *sql.DB, key string) (*model.Issue, error) {
	issue := &model.Issue{}
	err := db.QueryRow(
		`SELECT key, numeric_id, summary FROM issue WHERE key = ?`, key,
	).Scan(&issue.Key, &issue.NumericID, &issue.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading issue %s: %w", key, err)
	}

	issue.Components, err = ComponentsForIssue(db, key)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// IssueUsage pairs a cached issue with the number of worklog entries
// recorded against it.
type IssueUsage struct {
	Issue   model.Issue `json:"issue"`
	Entries int         `json:"entries"`
}

// ListIssuesByUsage returns all cached issues ordered by how often they have
// been logged against, most used first. Issues with equal usage sort by key.
func ListIssuesByUsage(db *sql.DB) ([]IssueUsage, error) {
	rows, err := db.Query(
		`SELECT i.key, i.numeric_id, i.summary, COUNT(w.id)
		 FROM issue i LEFT JOIN worklog w ON w.issue_key = i.key
		 GROUP BY i.key
		 ORDER BY COUNT(w.id) DESC, i.key`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	defer rows.Close()

	var out []IssueUsage
	for rows.Next() {
		var u IssueUsage
		if err := rows.Scan(&u.Issue.Key, &u.Issue.NumericID, &u.Issue.Summary, &u.Entries); err != nil {
			return nil, fmt.Errorf("scanning issue row: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DistinctIssueKeys returns the keys present in the store, most used first.
// This is the default scope when a report or sync names no explicit issues.
func DistinctIssueKeys(db *sql.DB) ([]string, error) {
	rows, err := db.Query(
		`SELECT issue_key FROM worklog GROUP BY issue_key ORDER BY COUNT(*) DESC, issue_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing issue keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning issue key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// UpsertComponent inserts or renames a component by its remote id.
func UpsertComponent(db *sql.DB, c model.Component) error {
	_, err := db.Exec(
		`INSERT INTO component (id, name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		c.ID, c.Name,
	)
	if err != nil {
		return fmt.Errorf("upserting component %d: %w", c.ID, err)
	}
	return nil
}

// LinkIssueComponent records the association between an issue and a
// component. Linking twice is a no-op.
func LinkIssueComponent(db *sql.DB, issueKey string, componentID int64) error {
	_, err := db.Exec(
		`INSERT OR IGNORE INTO issue_component (issue_key, component_id) VALUES (?, ?)`,
		issueKey, componentID,
	)
	if err != nil {
		return fmt.Errorf("linking component %d to %s: %w", componentID, issueKey, err)
	}
	return nil
}

// ComponentsForIssue returns all components linked to an issue.
func ComponentsForIssue(db *sql.DB, issueKey string) ([]model.Component, error) {
	rows, err := db.Query(
		`SELECT c.id, c.name FROM component c
		 JOIN issue_component ic ON ic.component_id = c.id
		 WHERE ic.issue_key = ?
		 ORDER BY c.name`,
		issueKey,
	)
	if err != nil {
		return nil, fmt.Errorf("listing components for %s: %w", issueKey, err)
	}
	defer rows.Close()

	var out []model.Component
	for rows.Next() {
		var c model.Component
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning component row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
