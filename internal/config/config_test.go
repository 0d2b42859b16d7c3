package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("PUNCHCARD_CONFIG", path)
	return path
}

func TestResolveReadsTOML(t *testing.T) {
	writeConfig(t, `
[tracker]
url = "https://tracker.example.com"
user = "worker@example.com"
token = "secret-token"

[store]
path = "/tmp/worklog-test.db"
`)
	t.Setenv("PUNCHCARD_TOKEN", "")

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Tracker.URL != "https://tracker.example.com" {
		t.Errorf("url = %q", cfg.Tracker.URL)
	}
	if cfg.Tracker.Token != "secret-token" {
		t.Errorf("token = %q", cfg.Tracker.Token)
	}
	if cfg.Store.Path != "/tmp/worklog-test.db" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if err := cfg.RequireTracker(); err != nil {
		t.Errorf("RequireTracker: %v", err)
	}
}

func TestResolveTokenEnvOverride(t *testing.T) {
	writeConfig(t, `
[tracker]
url = "https://tracker.example.com"
user = "worker@example.com"
token = "file-token"
`)
	t.Setenv("PUNCHCARD_TOKEN", "env-token")

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Tracker.Token != "env-token" {
		t.Errorf("token = %q, want env override", cfg.Tracker.Token)
	}
}

func TestResolveMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PUNCHCARD_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))
	t.Setenv("PUNCHCARD_TOKEN", "")

	cfg, err := Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Store.Path == "" {
		t.Error("store path not defaulted")
	}
	if err := cfg.RequireTracker(); err == nil {
		t.Error("RequireTracker = nil on empty config, want error")
	}
}

func TestMaskedToken(t *testing.T) {
	cfg := &Config{Tracker: Tracker{Token: "abcdef123456"}}
	masked := cfg.MaskedToken()
	if masked != "********3456" {
		t.Errorf("MaskedToken = %q", masked)
	}

	cfg.Tracker.Token = ""
	if cfg.MaskedToken() != "(unset)" {
		t.Errorf("MaskedToken empty = %q", cfg.MaskedToken())
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "# existing")
	cfg := &Config{Path: path}
	if err := cfg.WriteTemplate(); err == nil {
		t.Error("WriteTemplate over existing file = nil, want error")
	}
}
