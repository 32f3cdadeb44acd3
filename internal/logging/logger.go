// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"emitron/cli/internal/session"
)

// Logger writes tagged, masked log lines through a pterm logger.
// It implements session.Logger.
type Logger struct {
	pl *pterm.Logger
}

var _ session.Logger = (*Logger)(nil)

// ParseLevel maps trace|debug|info|warn|error|disabled to a pterm level.
func ParseLevel(s string) (pterm.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return pterm.LogLevelTrace, nil
	case "debug":
		return pterm.LogLevelDebug, nil
	case "", "info":
		return pterm.LogLevelInfo, nil
	case "warn", "warning":
		return pterm.LogLevelWarn, nil
	case "error":
		return pterm.LogLevelError, nil
	case "off", "disabled", "none":
		return pterm.LogLevelDisabled, nil
	default:
		return pterm.LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a Logger writing to w (stderr when nil). format is "text" or "json".
func New(w io.Writer, level, format string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	pl := pterm.DefaultLogger.WithLevel(lvl).WithWriter(w)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		pl = pl.WithFormatter(pterm.LogFormatterColorful)
	case "json":
		pl = pl.WithFormatter(pterm.LogFormatterJSON)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return &Logger{pl: pl}, nil
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{pl: pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled).WithWriter(io.Discard)}
}

// WithTime toggles timestamps, mostly for deterministic tests.
func (l *Logger) WithTime(show bool) *Logger {
	return &Logger{pl: l.pl.WithTime(show)}
}

func (l *Logger) LogEvent(tag, message string) {
	l.pl.Info(Mask(message), l.pl.Args("tag", tag))
}

func (l *Logger) LogFailure(tag, reason string) {
	l.pl.Error(Mask(reason), l.pl.Args("tag", tag))
}

// Debug logs a masked debug line with key/value pairs.
func (l *Logger) Debug(msg string, kv ...any) {
	l.pl.Debug(Mask(msg), l.pl.Args(maskArgs(kv)...))
}

// Warn logs a masked warning with key/value pairs.
func (l *Logger) Warn(msg string, kv ...any) {
	l.pl.Warn(Mask(msg), l.pl.Args(maskArgs(kv)...))
}

func maskArgs(kv []any) []any {
	out := make([]any, len(kv))
	for i, v := range kv {
		if s, ok := v.(string); ok && i%2 == 1 {
			out[i] = Mask(s)
			continue
		}
		out[i] = v
	}
	return out
}
