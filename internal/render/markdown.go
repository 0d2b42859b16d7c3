package render

import (
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
)

// ColorsEnabled reports whether terminal styling should be used for tables,
// the timer line and rendered markdown. Styling is off when the NO_COLOR
// environment variable is set (any value) or TERM is "dumb".
func ColorsEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// RenderMarkdown renders markdown help text, such as the post-init guide,
// for the terminal. With styling disabled the raw markdown is returned, and
// a glamour failure falls back to it as well.
func RenderMarkdown(content string) (string, error) {
	if content == "" || !ColorsEnabled() {
		return content, nil
	}

	rendered, err := glamour.RenderWithEnvironmentConfig(content)
	if err != nil {
		return content, err
	}

	return strings.TrimSpace(rendered), nil
}
