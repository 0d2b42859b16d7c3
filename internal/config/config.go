package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	configEnvVar = "PUNCHCARD_CONFIG"
	tokenEnvVar  = "PUNCHCARD_TOKEN"
	dbFileName   = "worklog.db"
)

// Tracker holds the connection details for the remote issue tracker.
type Tracker struct {
	URL   string `toml:"url"`
	User  string `toml:"user"`
	Token string `toml:"token"`
}

// Store holds the local cache settings.
type Store struct {
	Path string `toml:"path"`
}

// Config is the validated application configuration. The core only ever
// consumes a ready Config; credential handling stays here.
type Config struct {
	Tracker Tracker `toml:"tracker"`
	Store   Store   `toml:"store"`

	// Path is where the configuration was loaded from (or would be).
	Path string `toml:"-"`
}

// DefaultPath returns the default configuration file location,
// $XDG_CONFIG_HOME/punchcard/config.toml or the OS equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config directory: %w", err)
	}
	return filepath.Join(dir, "punchcard", "config.toml"), nil
}

// Resolve loads the configuration, checking PUNCHCARD_CONFIG first and
// falling back to the default path. A missing file yields a Config with
// defaults filled in; commands that need the remote reject it via
// RequireTracker. PUNCHCARD_TOKEN overrides the token from the file.
func Resolve() (*Config, error) {
	path := os.Getenv(configEnvVar)
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{Path: path}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file yet; defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if tok := os.Getenv(tokenEnvVar); tok != "" {
		cfg.Tracker.Token = tok
	}

	if cfg.Store.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.Store.Path = filepath.Join(home, ".punchcard", dbFileName)
	}

	return cfg, nil
}

// RequireTracker returns an error unless the remote tracker is fully
// configured. Commands that only read the local store don't call this.
func (c *Config) RequireTracker() error {
	var missing []string
	if c.Tracker.URL == "" {
		missing = append(missing, "tracker.url")
	}
	if c.Tracker.User == "" {
		missing = append(missing, "tracker.user")
	}
	if c.Tracker.Token == "" {
		missing = append(missing, "tracker.token (or "+tokenEnvVar+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete configuration in %s: missing %s",
			c.Path, strings.Join(missing, ", "))
	}
	return nil
}

// MaskedToken returns the token with all but the last four characters hidden,
// for display purposes.
func (c *Config) MaskedToken() string {
	tok := c.Tracker.Token
	if tok == "" {
		return "(unset)"
	}
	if len(tok) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(tok)-4) + tok[len(tok)-4:]
}

// template is the starter configuration written by WriteTemplate.
const template = `# punchcard configuration

[tracker]
url = "https://your-instance.example.com"
user = "you@example.com"
# Prefer the PUNCHCARD_TOKEN environment variable over storing the
# API token here.
token = ""

[store]
# Defaults to ~/.punchcard/worklog.db when omitted.
# path = ""
`

// WriteTemplate writes a commented starter configuration to the resolved
// path. It refuses to overwrite an existing file.
func (c *Config) WriteTemplate() error {
	if _, err := os.Stat(c.Path); err == nil {
		return fmt.Errorf("config file %s already exists", c.Path)
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(c.Path, []byte(template), 0o600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
