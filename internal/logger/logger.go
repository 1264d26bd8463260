// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps a slog.Logger so that derived loggers keep the package type.
type Logger struct {
	*slog.Logger
}

// New returns a text logger writing to stderr at the given level.
func New(level slog.Level) *Logger {
	return NewLogger(level, os.Stderr)
}

// NewLogger returns a text logger writing to output at the given level.
func NewLogger(level slog.Level, output io.Writer) *Logger {
	return &Logger{slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}))}
}

// With returns a Logger that includes the given attributes in each output operation.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// Err returns a slog attribute for an error.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}

// ParseLevel maps a textual log level to a slog.Level. Besides the slog names it
// accepts WARNING and CRITICAL. Unknown values fall back to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
