// Package logging builds the tint-backed slog loggers used by dcosdeploy.
//
// Run progress and manager output go to stdout; the logger writes to stderr.
// Debug shows resolution decisions such as skipped units, warn carries
// forwarded stderr of local commands.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Level is a log level settable from --log-level and DCOS_DEPLOY_LOG_LEVEL.
// It implements pflag.Value.
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// ParseLevel accepts debug, info, warn (or warning) and error in any case.
// An empty value is info.
func ParseLevel(value string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", value)
	}
}

func (l Level) String() string {
	return strings.ToLower(slog.Level(l).String())
}

// Set parses value into l.
func (l *Level) Set(value string) error {
	parsed, err := ParseLevel(value)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Type names the flag value in usage output.
func (l *Level) Type() string { return "level" }

// NewLogger constructs a slog.Logger configured with a tint handler and level.
func NewLogger(w io.Writer, level Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      slog.Level(level),
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	})

	return slog.New(handler)
}

// isTerminal reports whether w is a character device such as an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
