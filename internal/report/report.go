// Package report aggregates worklog entries into tabular summaries.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/punchcard-cli/punchcard/internal/model"
)

// GroupBy selects the bucketing of report rows.
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

// ParseGroupBy validates a --group flag value.
func ParseGroupBy(s string) (GroupBy, error) {
	switch GroupBy(s) {
	case GroupByDay, GroupByWeek, GroupByMonth:
		return GroupBy(s), nil
	default:
		return "", fmt.Errorf("unknown grouping %q (want day, week or month)", s)
	}
}

// Row is one bucket of the report: a label, per-issue seconds keyed by the
// table's issue columns, and the row total.
type Row struct {
	Label        string         `json:"label"`
	Seconds      map[string]int `json:"seconds"`
	TotalSeconds int            `json:"total_seconds"`
}

// Table is an aggregated report. IssueKeys are the columns, ordered by first
// appearance in the input entries; Rows are ordered by bucket label, which
// sorts chronologically for every grouping.
type Table struct {
	IssueKeys    []string `json:"issue_keys"`
	Rows         []Row    `json:"rows"`
	TotalSeconds int      `json:"total_seconds"`
}

// Aggregate buckets entries by the grouping. An entry lands entirely in the
// bucket of its start date; durations are never split across buckets even
// when they cross midnight.
func Aggregate(entries []model.WorklogEntry, group GroupBy) *Table {
	table := &Table{}
	seen := make(map[string]bool)
	rows := make(map[string]*Row)
	var labels []string

	for _, entry := range entries {
		if !seen[entry.IssueKey] {
			seen[entry.IssueKey] = true
			table.IssueKeys = append(table.IssueKeys, entry.IssueKey)
		}

		label := bucketLabel(entry.Started, group)
		row, ok := rows[label]
		if !ok {
			row = &Row{Label: label, Seconds: make(map[string]int)}
			rows[label] = row
			labels = append(labels, label)
		}
		row.Seconds[entry.IssueKey] += entry.DurationSeconds
		row.TotalSeconds += entry.DurationSeconds
		table.TotalSeconds += entry.DurationSeconds
	}

	// Entries arrive ordered by start time, but buckets of different sizes
	// can interleave appearance order; label order is chronological either
	// way because every label format sorts lexicographically by date.
	sort.Strings(labels)
	for _, label := range labels {
		table.Rows = append(table.Rows, *rows[label])
	}
	return table
}

func bucketLabel(t time.Time, group GroupBy) string {
	switch group {
	case GroupByWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case GroupByMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// FormatHHMM renders seconds as zero-padded hours and minutes, "07:30".
// Totals above a day keep accumulating hours, "37:30".
func FormatHHMM(seconds int) string {
	minutes := seconds / 60
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
