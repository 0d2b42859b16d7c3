package main

import (
	"errors"
	"fmt"

	"github.com/punchcard-cli/punchcard/internal/db"
	"github.com/punchcard-cli/punchcard/internal/jira"
	"github.com/punchcard-cli/punchcard/internal/output"
	"github.com/spf13/cobra"
)

var delCmd = &cobra.Command{
	Use:   "del [entry-id]",
	Short: "Delete a worklog entry",
	Long: `Delete a worklog entry from the tracker and the local cache.

The remote copy is removed first; the cached row only goes away once the
tracker has confirmed. An entry the tracker no longer knows about is still
dropped from the cache.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)
		entryID := args[0]

		entry, err := db.GetEntry(conn, entryID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return cmdErr(fmt.Errorf("no cached worklog entry %s", entryID), output.ErrNotFound)
			}
			return cmdErr(err, output.ErrStore)
		}

		client, err := getClient(cmd)
		if err != nil {
			return err
		}

		if err := client.DeleteWorklog(cmd.Context(), entry.IssueKey, entryID); err != nil {
			if !errors.Is(err, jira.ErrNotFound) {
				return cmdErr(fmt.Errorf("deleting worklog on %s: %w", entry.IssueKey, err), remoteCode(err))
			}
			w.Warn("entry %s was already gone from the tracker", entryID)
		}

		if err := db.DeleteEntry(conn, entryID); err != nil {
			return cmdErr(err, output.ErrStore)
		}

		w.Success(entry, fmt.Sprintf("Deleted entry %s from %s", entryID, entry.IssueKey))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(delCmd)
}
