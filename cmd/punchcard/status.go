package main

import (
	"strings"
	"time"

	"github.com/punchcard-cli/punchcard/internal/db"
	"github.com/punchcard-cli/punchcard/internal/duration"
	"github.com/punchcard-cli/punchcard/internal/model"
	"github.com/punchcard-cli/punchcard/internal/output"
	"github.com/punchcard-cli/punchcard/internal/render"
	"github.com/punchcard-cli/punchcard/internal/report"
	"github.com/punchcard-cli/punchcard/internal/timer"
	"github.com/spf13/cobra"
)

// statusView is the JSON payload for the status command.
type statusView struct {
	Timer   *model.Timer         `json:"timer,omitempty"`
	Report  *report.Table        `json:"report,omitempty"`
	Entries []model.WorklogEntry `json:"entries,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active timer and a report over cached worklogs",
	Long: `Show the active timer, if any, followed by an aggregated report over
the locally cached worklog entries. The report window defaults to the current
ISO week; no network access is involved. With --list the individual cached
entries are shown instead of the report, including the entry ids that del
takes.`,
	Example: `  punchcard status
  punchcard status --group week --since 2024-11-01
  punchcard status -i TIME-94 -i TIME-7
  punchcard status --list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)
		now := time.Now()

		issueFlags, _ := cmd.Flags().GetStringSlice("issues")
		sinceFlag, _ := cmd.Flags().GetString("since")
		untilFlag, _ := cmd.Flags().GetString("until")
		groupFlag, _ := cmd.Flags().GetString("group")
		listMode, _ := cmd.Flags().GetBool("list")

		group, err := report.ParseGroupBy(groupFlag)
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		keys := make([]string, 0, len(issueFlags))
		for _, k := range issueFlags {
			key := model.NormalizeIssueKey(k)
			if err := model.ValidateIssueKey(key); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
			keys = append(keys, key)
		}

		since := startOfISOWeek(now)
		if sinceFlag != "" {
			since, err = duration.ParseDateTime(sinceFlag, now)
			if err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}
		var until time.Time
		if untilFlag != "" {
			until, err = duration.ParseDateTime(untilFlag, now)
			if err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}

		active, err := timer.NewService(conn, nil).Active()
		if err != nil {
			return cmdErr(err, output.ErrStore)
		}

		entries, err := db.ListEntries(conn, keys, since, until)
		if err != nil {
			return cmdErr(err, output.ErrStore)
		}

		view := statusView{Timer: active}
		var body string
		if listMode {
			view.Entries = entries
			body = render.RenderEntries(entries)
		} else {
			view.Report = report.Aggregate(entries, group)
			body = render.RenderReport(view.Report)
		}

		if w.JSONMode {
			w.Success(view, "")
			return nil
		}

		var b strings.Builder
		if active != nil {
			seconds := int(active.Elapsed(now).Seconds())
			b.WriteString(render.RenderTimer(active, seconds))
			b.WriteString("\n\n")
		}
		b.WriteString(body)
		w.Success(nil, b.String())
		return nil
	},
}

// startOfISOWeek returns Monday 00:00 of now's week in now's location.
func startOfISOWeek(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func init() {
	statusCmd.Flags().StringSliceP("issues", "i", nil, "Restrict the report to these issue keys")
	statusCmd.Flags().String("since", "", "Report window start (defaults to Monday of this week)")
	statusCmd.Flags().String("until", "", "Report window end, exclusive (defaults to open-ended)")
	statusCmd.Flags().StringP("group", "g", "day", "Report grouping: day, week or month")
	statusCmd.Flags().BoolP("list", "l", false, "List individual cached entries instead of the report")
	rootCmd.AddCommand(statusCmd)
}
