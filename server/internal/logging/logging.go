// Package logging configures the process-wide slog logger. The level lives in
// a slog.LevelVar so config hot reload can change it without rebuilding the
// handler.
package logging

import (
	"io"
	"log/slog"
	"os"
)

var level = new(slog.LevelVar)

// Init installs a JSON (or text, when format is "text") handler writing to
// stdout as the default slog logger and returns it.
func Init(lvl slog.Level, format string) *slog.Logger {
	return InitWriter(os.Stdout, lvl, format)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, lvl slog.Level, format string) *slog.Logger {
	level.Set(lvl)
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(h).With("service", "regionstats")
	slog.SetDefault(logger)
	return logger
}

// SetLevel changes the level of the logger installed by Init.
func SetLevel(lvl slog.Level) {
	if level.Level() != lvl {
		slog.Info("log level changed", "from", level.Level().String(), "to", lvl.String())
	}
	level.Set(lvl)
}

// Level returns the current log level.
func Level() slog.Level { return level.Level() }

// Component returns the default logger tagged with a component name.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
