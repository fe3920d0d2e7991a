// Package logging builds the leveled key/value logger shared by every
// tabtime component.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/runnerr0/tabtime/internal/config"
)

// New returns the root logger configured from cfg. Output goes to stderr
// unless w is non-nil.
func New(cfg config.LoggingConfig, w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := hclog.LevelFromString(cfg.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "tabtime",
		Level:      level,
		Output:     w,
		JSONFormat: cfg.JSON,
	})
}

// Discard returns a logger that drops everything; handy when a caller does
// not care about diagnostics.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}

// OrDiscard returns l, or a null logger when l is nil.
func OrDiscard(l hclog.Logger) hclog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
