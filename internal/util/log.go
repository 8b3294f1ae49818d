// Package util holds small shared helpers (logging construction).
package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil { lvl = zerolog.InfoLevel }
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

// NewConsoleLogger renders human-readable output for interactive backtest runs.
func NewConsoleLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil { lvl = zerolog.InfoLevel }
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(out).With().Timestamp().Logger().Level(lvl)
}
