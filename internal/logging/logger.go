// Package logging builds the operational slog.Logger of narloop and the
// decisions.jsonl trace of executed operations.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// LevelTrace sits below Debug and logs every rule table derivation.
const LevelTrace = slog.LevelDebug - 4

var levelNames = map[string]slog.Level{
	"info":  slog.LevelInfo,
	"debug": slog.LevelDebug,
	"trace": LevelTrace,
}

// ParseLevel accepts info, debug and trace in any case. Anything else is
// info.
func ParseLevel(s string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(s)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// NewLogger returns a logger at level writing to w, as JSON when format
// is "json" and as logfmt text otherwise.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: traceLabel,
	}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// traceLabel prints LevelTrace as TRACE instead of DEBUG-4.
func traceLabel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}
