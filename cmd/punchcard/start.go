package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/punchcard-cli/punchcard/internal/duration"
	"github.com/punchcard-cli/punchcard/internal/output"
	"github.com/punchcard-cli/punchcard/internal/timer"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [issue-key]",
	Short: "Start a timer on an issue",
	Long: `Start a timer on an issue. At most one timer runs at a time; starting
while one is active fails and leaves the original untouched. Nothing is
submitted until the timer is stopped.`,
	Example: `  punchcard start TIME-94
  punchcard start TIME-94 -c "code review" -s 08:30`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)
		now := time.Now()

		comment, _ := cmd.Flags().GetString("comment")
		startedFlag, _ := cmd.Flags().GetString("started")

		var start time.Time
		if startedFlag != "" {
			var err error
			start, err = duration.ParseDateTime(startedFlag, now)
			if err != nil {
				return cmdErr(err, output.ErrValidation)
			}
			if start.After(now) {
				return cmdErr(fmt.Errorf("timer start %s is in the future", startedFlag), output.ErrValidation)
			}
		}

		t, err := timer.NewService(conn, nil).Start(args[0], comment, start)
		if err != nil {
			if errors.Is(err, timer.ErrAlreadyRunning) {
				return cmdErr(err, output.ErrConflict)
			}
			return cmdErr(err, output.ErrValidation)
		}

		w.Success(t, fmt.Sprintf("Timer started on %s at %s",
			t.IssueKey, t.StartedAt.Format("15:04")))
		return nil
	},
}

func init() {
	startCmd.Flags().StringP("comment", "c", "", "Comment for the eventual worklog entry")
	startCmd.Flags().StringP("started", "s", "", "Backdated start time: HH:MM, YYYY-MM-DD or YYYY-MM-DDTHH:MM")
	rootCmd.AddCommand(startCmd)
}
