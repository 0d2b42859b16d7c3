package main

import (
	"github.com/punchcard-cli/punchcard/internal/db"
	"github.com/punchcard-cli/punchcard/internal/model"
	"github.com/punchcard-cli/punchcard/internal/output"
	"github.com/punchcard-cli/punchcard/internal/render"
	"github.com/spf13/cobra"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List cached issues, most logged-against first",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		usages, err := db.ListIssuesByUsage(conn)
		if err != nil {
			return cmdErr(err, output.ErrStore)
		}

		if w.JSONMode {
			w.Success(usages, "")
			return nil
		}

		issues := make([]model.Issue, len(usages))
		counts := make([]int, len(usages))
		for i, u := range usages {
			issues[i] = u.Issue
			counts[i] = u.Entries
		}
		w.Success(nil, render.RenderIssues(issues, counts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(codesCmd)
}
