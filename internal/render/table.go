package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/punchcard-cli/punchcard/internal/model"
	"github.com/punchcard-cli/punchcard/internal/report"
)

const maxCommentWidth = 40

// StyledText applies a lipgloss style to text when colors are enabled.
// When colors are disabled, it returns the plain text unchanged.
func StyledText(text string, style lipgloss.Style) string {
	if ColorsEnabled() {
		return style.Render(text)
	}
	return text
}

// truncate shortens a string to maxLen runes, appending an ellipsis if truncated.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// EmptyState renders a styled empty-state message with an optional contextual hint.
// When colors are enabled the message is rendered in dim gray and the hint is italic.
// When quiet is true the hint is suppressed.
func EmptyState(message, hint string, quiet bool) string {
	if !ColorsEnabled() {
		if quiet || hint == "" {
			return message
		}
		return message + "\n" + hint
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)

	result := dimStyle.Render(message)
	if !quiet && hint != "" {
		result += "\n" + hintStyle.Render(hint)
	}
	return result
}

// RenderReport renders an aggregated report as a table: one row per bucket,
// one column per issue key, a trailing Total column and a closing Total row.
func RenderReport(r *report.Table) string {
	if len(r.Rows) == 0 {
		return EmptyState("No worklog entries found.", "Fetch some with: punchcard sync", false)
	}

	headers := append([]string{""}, r.IssueKeys...)
	headers = append(headers, "Total")

	rows := make([][]string, 0, len(r.Rows)+1)
	for _, row := range r.Rows {
		rows = append(rows, reportRowCells(r.IssueKeys, row))
	}

	totals := []string{"Total"}
	for _, key := range r.IssueKeys {
		var sum int
		for _, row := range r.Rows {
			sum += row.Seconds[key]
		}
		totals = append(totals, report.FormatHHMM(sum))
	}
	totals = append(totals, report.FormatHHMM(r.TotalSeconds))
	rows = append(rows, totals)

	if !ColorsEnabled() {
		return renderPlainReport(headers, rows)
	}

	lastRow := len(rows) - 1
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)

			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if row == lastRow {
				return s.Bold(true)
			}
			if col == 0 {
				return s.Foreground(lipgloss.Color("15"))
			}
			if col == len(headers)-1 {
				return s.Bold(true)
			}
			return s
		})

	return t.Render()
}

func reportRowCells(keys []string, row report.Row) []string {
	cells := []string{row.Label}
	for _, key := range keys {
		if seconds, ok := row.Seconds[key]; ok {
			cells = append(cells, report.FormatHHMM(seconds))
		} else {
			cells = append(cells, "")
		}
	}
	return append(cells, report.FormatHHMM(row.TotalSeconds))
}

func renderPlainReport(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], cell)
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	var total int
	for _, w := range widths {
		total += w + 2
	}
	b.WriteString(strings.Repeat("-", total-2) + "\n")
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

// RenderEntries renders worklog entries as a table ordered as given.
func RenderEntries(entries []model.WorklogEntry) string {
	if len(entries) == 0 {
		return EmptyState("No worklog entries found.", "Fetch some with: punchcard sync", false)
	}

	headers := []string{"ID", "Issue", "Started", "Duration", "Comment"}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.ID,
			entry.IssueKey,
			entry.Started.Format("2006-01-02 15:04"),
			report.FormatHHMM(entry.DurationSeconds),
			truncate(entry.Comment, maxCommentWidth),
		})
	}

	if !ColorsEnabled() {
		return renderPlainReport(headers, rows)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if col == 1 {
				return s.Bold(true)
			}
			return s
		})

	return t.Render()
}

// RenderIssues renders cached issues with their usage counts, in the order
// given.
func RenderIssues(issues []model.Issue, counts []int) string {
	if len(issues) == 0 {
		return EmptyState("No issues cached.", "Fetch some with: punchcard sync -i KEY-1", false)
	}

	headers := []string{"Key", "Entries", "Summary"}
	rows := make([][]string, 0, len(issues))
	for i, issue := range issues {
		rows = append(rows, []string{
			issue.Key,
			fmt.Sprintf("%d", counts[i]),
			truncate(issue.Summary, maxCommentWidth),
		})
	}

	if !ColorsEnabled() {
		return renderPlainReport(headers, rows)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if col == 0 {
				return s.Bold(true)
			}
			return s
		})

	return t.Render()
}

// RenderTimer renders the active timer as a one-line status, e.g.
// "Timer running on TIME-94 for 25 minutes (started 25 minutes ago)".
func RenderTimer(timer *model.Timer, nowSeconds int) string {
	line := fmt.Sprintf("Timer running on %s for %s (started %s)",
		timer.IssueKey,
		report.FormatHHMM(nowSeconds),
		humanize.Time(timer.StartedAt),
	)
	if timer.Comment != "" {
		line += fmt.Sprintf("\n  %s", truncate(timer.Comment, maxCommentWidth))
	}
	if !ColorsEnabled() {
		return line
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(line)
}
