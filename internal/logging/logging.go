// Package logging constructs the structured logrus.Logger the cmd/ binaries
// use: cmd/attention-broker logs its startup line with it, and
// cmd/atomspace-server hands it to atomstore.New, which keeps it but does
// not log through it. The attention and query packages do not log
// (SPEC_FULL.md §1 AMBIENT STACK).
// This is ambient bootstrap wiring, not core logic: spec.md §1 places
// "logger initialization" out of scope for the core itself, so this
// package only builds a logrus.Logger for cmd/ to hand down.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Config controls the logger's level and output format.
type Config struct {
	// Level is a logrus level name ("debug", "info", "warn", "error").
	// Empty defaults to "info".
	Level string
	// JSON selects logrus.JSONFormatter over TextFormatter.
	JSON bool
}

// New builds a logrus.Logger writing to stderr per cfg.
func New(cfg Config) *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(os.Stderr)

	if cfg.JSON {
		lg.SetFormatter(&logrus.JSONFormatter{})
	} else {
		lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	lg.SetLevel(level)
	return lg
}
