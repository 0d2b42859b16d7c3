package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/punchcard-cli/punchcard/internal/duration"
	"github.com/punchcard-cli/punchcard/internal/jira"
	"github.com/punchcard-cli/punchcard/internal/model"
	"github.com/punchcard-cli/punchcard/internal/output"
	"github.com/punchcard-cli/punchcard/internal/sync"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the local cache from the tracker",
	Long: `Fetch worklog entries from the tracker and replace the cached window
for each synced issue. Without --issues, every issue already present in the
cache is refreshed. The window defaults to the last 30 days, and entries by
other users are skipped unless --all-users is given.`,
	Example: `  punchcard sync
  punchcard sync -i TIME-94 --since 2024-10-01
  punchcard sync --all-users`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)
		now := time.Now()

		issueFlags, _ := cmd.Flags().GetStringSlice("issues")
		sinceFlag, _ := cmd.Flags().GetString("since")
		allUsers, _ := cmd.Flags().GetBool("all-users")

		var since time.Time
		if sinceFlag != "" {
			var err error
			since, err = duration.ParseDateTime(sinceFlag, now)
			if err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}

		client, err := getClient(cmd)
		if err != nil {
			return err
		}

		engine := sync.NewEngine(conn, client)
		result, err := engine.Run(cmd.Context(), sync.Options{
			IssueKeys: issueFlags,
			Since:     since,
			AllUsers:  allUsers,
		})

		var partial *sync.PartialError
		if errors.As(err, &partial) {
			for _, ir := range partial.Failed {
				w.Warn("%s: %v", ir.Key, ir.Err)
			}
			return cmdErr(partial, output.ErrPartialSync)
		}
		if err != nil {
			switch {
			case errors.Is(err, model.ErrInvalidIssueKey):
				return cmdErr(err, output.ErrValidation)
			case errors.Is(err, jira.ErrAuth), errors.Is(err, jira.ErrNotFound):
				return cmdErr(err, remoteCode(err))
			default:
				return cmdErr(err, output.ErrGeneral)
			}
		}

		var entries int
		for _, ir := range result.Issues {
			entries += ir.Entries
		}
		w.Success(result, fmt.Sprintf("Synced %d issues (%d entries) since %s",
			len(result.Issues), entries, result.Since.Format("2006-01-02")))
		return nil
	},
}

func init() {
	syncCmd.Flags().StringSliceP("issues", "i", nil, "Issue keys to sync (defaults to every cached issue)")
	syncCmd.Flags().String("since", "", "Sync window start (defaults to 30 days ago)")
	syncCmd.Flags().Bool("all-users", false, "Keep entries from every user, not just yours")
	rootCmd.AddCommand(syncCmd)
}
