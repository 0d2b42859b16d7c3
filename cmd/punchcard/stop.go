package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/punchcard-cli/punchcard/internal/duration"
	"github.com/punchcard-cli/punchcard/internal/output"
	"github.com/punchcard-cli/punchcard/internal/report"
	"github.com/punchcard-cli/punchcard/internal/timer"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active timer and submit the accrued time",
	Long: `Stop the active timer and submit the accrued time as a worklog entry.
The timer is only cleared once the tracker accepts the entry; if submission
fails the timer keeps running and stop can be retried. With --discard the
timer is dropped without submitting anything.`,
	Example: `  punchcard stop
  punchcard stop -c "pairing session"
  punchcard stop --at 17:00
  punchcard stop --discard`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)
		now := time.Now()

		comment, _ := cmd.Flags().GetString("comment")
		atFlag, _ := cmd.Flags().GetString("at")
		discard, _ := cmd.Flags().GetBool("discard")

		if discard {
			t, err := timer.NewService(conn, nil).Discard()
			if err != nil {
				if errors.Is(err, timer.ErrNoActiveTimer) {
					return cmdErr(err, output.ErrConflict)
				}
				return cmdErr(err, output.ErrStore)
			}
			w.Success(t, fmt.Sprintf("Discarded timer on %s (%s accrued)",
				t.IssueKey, report.FormatHHMM(int(t.Elapsed(now).Seconds()))))
			return nil
		}

		var stop time.Time
		if atFlag != "" {
			var err error
			stop, err = duration.ParseDateTime(atFlag, now)
			if err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}

		client, err := getClient(cmd)
		if err != nil {
			return err
		}

		entry, err := timer.NewService(conn, client).Stop(cmd.Context(), comment, stop)
		if err != nil {
			switch {
			case errors.Is(err, timer.ErrNoActiveTimer):
				return cmdErr(err, output.ErrConflict)
			case errors.Is(err, timer.ErrNegativeDuration):
				return cmdErr(err, output.ErrValidation)
			default:
				return cmdErr(err, remoteCode(err))
			}
		}

		w.Success(entry, fmt.Sprintf("Logged %s on %s",
			report.FormatHHMM(entry.DurationSeconds), entry.IssueKey))
		return nil
	},
}

func init() {
	stopCmd.Flags().StringP("comment", "c", "", "Comment overriding the one given at start")
	stopCmd.Flags().String("at", "", "Backdated stop time: HH:MM, YYYY-MM-DD or YYYY-MM-DDTHH:MM")
	stopCmd.Flags().Bool("discard", false, "Drop the timer without submitting")
	rootCmd.AddCommand(stopCmd)
}
