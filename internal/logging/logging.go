// Package logging owns the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	level  = new(slog.LevelVar)
	logger = New(os.Stderr, FormatText)
)

// Logger returns the process logger.
func Logger() *slog.Logger {
	return logger
}

// SetLevel changes the level of every logger built by this package.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Configure rebuilds the process logger and installs it as the slog default.
func Configure(w io.Writer, levelName, format string) error {
	parsed, err := ParseLevel(levelName)
	if err != nil {
		return err
	}
	switch format {
	case "", FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	level.Set(parsed)
	logger = New(w, format)
	slog.SetDefault(logger)
	return nil
}

// New builds a logger writing to w at the shared level. Text output is
// colored only when w is a terminal.
func New(w io.Writer, format string) *slog.Logger {
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(w),
	}))
}

// ParseLevel accepts debug, info, warn/warning and error. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
