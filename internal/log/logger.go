// Package log provides structured logging for typoscan.
//
// Scanning code logs through the Logger interface, which is backed by the
// standard library's slog. Packages accept a Logger in their options and fall
// back to the process-wide default when none is given.
//
// Output semantics:
//   - stdout carries results: summaries, reports, JSON
//   - stderr carries diagnostics at the selected level
//
// Verbosity levels:
//   - ERROR (--quiet): fatal problems only
//   - WARN (default): skipped candidates and recoverable issues
//   - INFO (--verbose): checkpoints, corpus size, timings
//   - DEBUG (--debug): per-candidate scoring details
package log

import (
	"io"
	"log/slog"
	"sync"
)

// Logger is the interface for structured logging.
// Methods match slog's signature for easy integration.
type Logger interface {
	// Debug logs per-candidate detail only useful when troubleshooting.
	Debug(msg string, args ...any)

	// Info logs operational context such as checkpoint writes.
	Info(msg string, args ...any)

	// Warn logs recoverable issues, e.g. a candidate that was skipped.
	Warn(msg string, args ...any)

	// Error logs failures that stop the current operation.
	Error(msg string, args ...any)

	// With returns a Logger that adds the given key-value pairs to
	// every subsequent entry.
	With(args ...any) Logger
}

// slogLogger wraps slog.Logger to implement the Logger interface.
type slogLogger struct {
	l *slog.Logger
}

// New creates a Logger backed by slog with the given handler.
func New(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

// NewCLI returns a text Logger writing to w at the given level.
// Timestamps are dropped since the output is read by people, not collectors.
func NewCLI(w io.Writer, level slog.Level) Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func (s *slogLogger) Debug(msg string, args ...any) {
	s.l.Debug(msg, args...)
}

func (s *slogLogger) Info(msg string, args ...any) {
	s.l.Info(msg, args...)
}

func (s *slogLogger) Warn(msg string, args ...any) {
	s.l.Warn(msg, args...)
}

func (s *slogLogger) Error(msg string, args ...any) {
	s.l.Error(msg, args...)
}

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

// noopLogger discards all log output.
type noopLogger struct{}

// NewNoop returns a logger that discards all output.
func NewNoop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }

var (
	defaultLogger Logger = noopLogger{}
	defaultMu     sync.RWMutex
)

// Default returns the process-wide logger, a noop until SetDefault is called.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger. main calls it once after
// the verbosity flags are parsed.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
