package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/punchcard-cli/punchcard/internal/config"
	"github.com/punchcard-cli/punchcard/internal/db"
	"github.com/punchcard-cli/punchcard/internal/jira"
	"github.com/punchcard-cli/punchcard/internal/output"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type contextKey string

const (
	dbKey  contextKey = "db"
	cfgKey contextKey = "cfg"
)

// CmdError wraps an error with a machine-readable error code for structured output.
type CmdError struct {
	Err  error
	Code output.ErrorCode
}

func (e *CmdError) Error() string { return e.Err.Error() }

func cmdErr(err error, code output.ErrorCode) *CmdError {
	return &CmdError{Err: err, Code: code}
}

var rootCmd = &cobra.Command{
	Use:     "punchcard",
	Short:   "Worklog cache and time logging CLI for a remote issue tracker",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve()
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		ctx := context.WithValue(cmd.Context(), cfgKey, cfg)

		if _, ok := cmd.Annotations["skipDB"]; ok {
			cmd.SetContext(ctx)
			return nil
		}

		conn, err := db.OpenStore(cfg.Store.Path)
		if err != nil {
			return cmdErr(fmt.Errorf("opening local store: %w", err), output.ErrStore)
		}

		cmd.SetContext(context.WithValue(ctx, dbKey, conn))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		conn, ok := cmd.Context().Value(dbKey).(*sql.DB)
		if ok && conn != nil {
			return conn.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress non-essential output")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func getWriter(cmd *cobra.Command) *output.Writer {
	jsonMode, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	return output.New(jsonMode, quietMode)
}

func getCfg(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(cfgKey).(*config.Config)
	return cfg
}

func getDB(cmd *cobra.Command) *sql.DB {
	conn, _ := cmd.Context().Value(dbKey).(*sql.DB)
	return conn
}

// getClient builds a tracker client from the resolved configuration. Commands
// that reach the remote call this; local-only commands never need credentials.
func getClient(cmd *cobra.Command) (*jira.Client, error) {
	cfg := getCfg(cmd)
	if err := cfg.RequireTracker(); err != nil {
		return nil, cmdErr(err, output.ErrValidation)
	}
	return jira.NewClient(cmd.Context(), cfg.Tracker.URL, cfg.Tracker.Token), nil
}

// remoteCode classifies a tracker error into an output code.
func remoteCode(err error) output.ErrorCode {
	if errors.Is(err, jira.ErrNotFound) {
		return output.ErrNotFound
	}
	return output.ErrRemote
}

// Execute runs the root command and returns an exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		jsonMode, _ := rootCmd.PersistentFlags().GetBool("json")
		quietMode, _ := rootCmd.PersistentFlags().GetBool("quiet")
		w := output.New(jsonMode, quietMode)

		var ce *CmdError
		if errors.As(err, &ce) {
			return w.Error(ce.Err, ce.Code)
		}
		return w.Error(err, output.ErrGeneral)
	}
	return 0
}
