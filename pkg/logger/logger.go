// Package logger provides structured logging for mediaq.
//
// Every component logs through the Logger interface, which wraps slog
// with level parsing, output routing, and a component-tagging helper
// so each subsystem's lines stay attributable in mixed output.
//
// Example usage:
//
//	log := logger.New(logger.Config{Level: "debug", Format: "json"})
//	log.Component("watcher").Info("started", "dir", dir)
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the logging surface used across mediaq.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, args ...any)

	// Info logs an informational message with optional key-value pairs.
	Info(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Component returns a child logger tagged with a component name.
	Component(name string) Logger

	// With returns a child logger carrying additional context fields.
	With(args ...any) Logger
}

// Config contains logger configuration.
type Config struct {
	// Level is the minimum level emitted (debug, info, warn, error).
	// Unknown values fall back to info.
	Level string

	// Output is the destination: "stdout", "stderr" (default), or a
	// file path opened for appending.
	Output string

	// Format is "text" (default) or "json".
	Format string
}

// levelByName maps configuration strings to slog levels.
var levelByName = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// slogLogger implements Logger on top of a slog.Logger.
type slogLogger struct {
	sl *slog.Logger
}

// New builds a Logger from cfg.
//
// A bad log destination must never take the pipeline down, so output
// open failures fall back to stderr rather than erroring.
func New(cfg Config) Logger {
	level, ok := levelByName[strings.ToLower(cfg.Level)]
	if !ok {
		level = slog.LevelInfo
	}

	sink := resolveOutput(cfg.Output)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(sink, opts)
	} else {
		handler = slog.NewTextHandler(sink, opts)
	}

	return &slogLogger{sl: slog.New(handler)}
}

// resolveOutput maps an output name to a writer.
func resolveOutput(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout
	case "stderr", "":
		return os.Stderr
	}

	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // nolint:gosec // log destination comes from operator config
	if err != nil {
		return os.Stderr
	}
	return f
}

// Debug implements Logger.Debug.
func (l *slogLogger) Debug(msg string, args ...any) {
	l.sl.Debug(msg, args...)
}

// Info implements Logger.Info.
func (l *slogLogger) Info(msg string, args ...any) {
	l.sl.Info(msg, args...)
}

// Warn implements Logger.Warn.
func (l *slogLogger) Warn(msg string, args ...any) {
	l.sl.Warn(msg, args...)
}

// Error implements Logger.Error.
func (l *slogLogger) Error(msg string, args ...any) {
	l.sl.Error(msg, args...)
}

// Component implements Logger.Component.
func (l *slogLogger) Component(name string) Logger {
	return &slogLogger{sl: l.sl.With(slog.String("component", name))}
}

// With implements Logger.With.
func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{sl: l.sl.With(args...)}
}

// Default returns a logger with default configuration
// (info level, stderr, text format).
func Default() Logger {
	return New(Config{})
}

// Noop returns a logger that discards all log messages.
//
// Useful for testing or when logging should be disabled.
func Noop() Logger {
	return &slogLogger{sl: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
