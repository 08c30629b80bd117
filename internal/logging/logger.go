package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps debug|info|warn|error to an slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds the process logger: a JSON handler when format is "json",
// text otherwise, wrapped in a CorrelationHandler. A nil w writes to stderr.
// Pass a *slog.LevelVar to change the level at runtime.
func New(w io.Writer, level slog.Leveler, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	var inner slog.Handler
	if format == "json" {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewCorrelationHandler(inner))
}

// Default returns l, or an info-level text logger on stderr when l is nil.
func Default(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return New(os.Stderr, slog.LevelInfo, "text")
}
