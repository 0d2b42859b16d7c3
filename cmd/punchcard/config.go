package main

import (
	"fmt"
	"os"

	"github.com/punchcard-cli/punchcard/internal/db"
	"github.com/punchcard-cli/punchcard/internal/output"
	"github.com/punchcard-cli/punchcard/internal/render"
	"github.com/spf13/cobra"
)

type configInfo struct {
	ConfigPath    string `json:"config_path"`
	ConfigExists  bool   `json:"config_exists"`
	TrackerURL    string `json:"tracker_url"`
	TrackerUser   string `json:"tracker_user"`
	Token         string `json:"token"`
	StorePath     string `json:"store_path"`
	StoreBytes    int64  `json:"store_bytes"`
	SchemaVersion int    `json:"schema_version"`
}

const initGuide = `# punchcard is configured

Next steps:

1. Put your tracker URL, user and API token into the config file,
   or export ` + "`PUNCHCARD_TOKEN`" + ` instead of storing the token on disk.
2. Fetch your recent worklogs: ` + "`punchcard sync -i KEY-1`" + `
3. See where the time went: ` + "`punchcard status --group week`" + `
`

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Display punchcard configuration",
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		if initFlag, _ := cmd.Flags().GetBool("init"); initFlag {
			if err := cfg.WriteTemplate(); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
			guide, err := render.RenderMarkdown(initGuide)
			if err != nil {
				guide = initGuide
			}
			if w.JSONMode {
				w.Success(map[string]string{"config_path": cfg.Path}, "")
				return nil
			}
			w.Info("Wrote %s", cfg.Path)
			w.Success(nil, guide)
			return nil
		}

		info := configInfo{
			ConfigPath:  cfg.Path,
			TrackerURL:  cfg.Tracker.URL,
			TrackerUser: cfg.Tracker.User,
			Token:       cfg.MaskedToken(),
			StorePath:   cfg.Store.Path,
		}
		if _, err := os.Stat(cfg.Path); err == nil {
			info.ConfigExists = true
		}

		if stat, err := os.Stat(cfg.Store.Path); err == nil {
			info.StoreBytes = stat.Size()

			conn, err := db.Open(cfg.Store.Path)
			if err != nil {
				return cmdErr(fmt.Errorf("opening local store: %w", err), output.ErrStore)
			}
			defer conn.Close()

			info.SchemaVersion, err = db.SchemaVersion(conn)
			if err != nil {
				return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrStore)
			}
		}

		w.Success(info, formatConfigHuman(info))
		return nil
	},
}

func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func formatConfigHuman(info configInfo) string {
	configPath := info.ConfigPath
	if !info.ConfigExists {
		configPath += " (not found, run 'punchcard config --init')"
	}

	lines := fmt.Sprintf("Config file:     %s\n", configPath)
	lines += fmt.Sprintf("Tracker URL:     %s\n", valueOrUnset(info.TrackerURL))
	lines += fmt.Sprintf("Tracker user:    %s\n", valueOrUnset(info.TrackerUser))
	lines += fmt.Sprintf("API token:       %s\n", info.Token)
	lines += fmt.Sprintf("Local store:     %s", info.StorePath)
	if info.StoreBytes > 0 {
		lines += fmt.Sprintf("\nStore size:      %s\n", formatSize(info.StoreBytes))
		lines += fmt.Sprintf("Schema version:  %d", info.SchemaVersion)
	}
	return lines
}

func valueOrUnset(val string) string {
	if val == "" {
		return "(unset)"
	}
	return val
}

func init() {
	configCmd.Flags().Bool("init", false, "Write a commented starter config file")
	rootCmd.AddCommand(configCmd)
}
