package main

import (
	"fmt"
	"time"

	"github.com/punchcard-cli/punchcard/internal/db"
	"github.com/punchcard-cli/punchcard/internal/duration"
	"github.com/punchcard-cli/punchcard/internal/model"
	"github.com/punchcard-cli/punchcard/internal/output"
	"github.com/punchcard-cli/punchcard/internal/report"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Log work on an issue",
	Long: `Log one or more worklog entries on an issue.

Durations combine units down to whole minutes: "1h30m", "30m1h", "1d" (7.5h),
"1w" (5 days), "7,5h". A duration may carry a weekday anchor, "Fri:1d",
placing it at 08:00 on the most recent such weekday. Entries are submitted to
the tracker first and mirrored locally once accepted.`,
	Example: `  punchcard add -i TIME-94 -d 1h30m
  punchcard add -i TIME-94 -d 1d -s 2024-11-04
  punchcard add -i TIME-94 -d Mon:1d -d Tue:6h -c "sprint work"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)
		now := time.Now()

		issueFlag, _ := cmd.Flags().GetString("issue")
		durations, _ := cmd.Flags().GetStringArray("duration")
		startedFlag, _ := cmd.Flags().GetString("started")
		comment, _ := cmd.Flags().GetString("comment")

		key := model.NormalizeIssueKey(issueFlag)
		if err := model.ValidateIssueKey(key); err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		specs, err := duration.Expand(durations, now)
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		var explicit time.Time
		if startedFlag != "" {
			if len(specs) != 1 || !specs[0].Start.IsZero() {
				return cmdErr(
					fmt.Errorf("--started requires a single duration without a weekday anchor"),
					output.ErrValidation,
				)
			}
			explicit, err = duration.ParseDateTime(startedFlag, now)
			if err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}

		client, err := getClient(cmd)
		if err != nil {
			return err
		}

		entries := make([]model.WorklogEntry, 0, len(specs))
		var total int
		for _, spec := range specs {
			anchor := spec.Start
			if anchor.IsZero() {
				anchor = explicit
			}
			start, err := duration.CalculateStart(anchor, spec.Seconds, now)
			if err != nil {
				return cmdErr(err, output.ErrValidation)
			}

			entry, err := client.CreateWorklog(cmd.Context(), key, start, spec.Seconds, comment)
			if err != nil {
				return cmdErr(fmt.Errorf("submitting worklog on %s: %w", key, err), remoteCode(err))
			}

			if err := db.EnsureIssue(conn, key); err != nil {
				return cmdErr(err, output.ErrStore)
			}
			if err := db.UpsertEntry(conn, entry); err != nil {
				return cmdErr(err, output.ErrStore)
			}

			entries = append(entries, *entry)
			total += spec.Seconds
		}

		msg := fmt.Sprintf("Logged %s on %s", report.FormatHHMM(total), key)
		if len(entries) > 1 {
			msg = fmt.Sprintf("Logged %d entries (%s total) on %s",
				len(entries), report.FormatHHMM(total), key)
		}
		w.Success(entries, msg)
		return nil
	},
}

func init() {
	addCmd.Flags().StringP("issue", "i", "", "Issue key to log against (required)")
	addCmd.Flags().StringArrayP("duration", "d", nil, "Duration to log, repeatable (required)")
	addCmd.Flags().StringP("started", "s", "", "Start time: HH:MM, YYYY-MM-DD or YYYY-MM-DDTHH:MM")
	addCmd.Flags().StringP("comment", "c", "", "Comment attached to the entries")
	addCmd.MarkFlagRequired("issue")
	addCmd.MarkFlagRequired("duration")
	rootCmd.AddCommand(addCmd)
}
