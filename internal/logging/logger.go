// Package logging provides structured logging for adfleet.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LevelInfo  LogLevel = "info"
	LevelError LogLevel = "error"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// Config holds logging configuration
type Config struct {
	Level  LogLevel  // Minimum log level to output
	Format LogFormat // Output format (json or text)
	Output io.Writer // Output destination (defaults to stderr)
	Quiet  bool      // If true, suppress non-error output
}

// Logger wraps slog.Logger with secure logging practices
type Logger struct {
	logger *slog.Logger
	config Config
}

// NewLogger creates a new logger instance
func NewLogger(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: convertLogLevel(config.Level),
	}

	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	return &Logger{
		logger: slog.New(handler),
		config: config,
	}
}

func convertLogLevel(level LogLevel) slog.Level {
	if level == LevelError {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Info logs an informational message
func (l *Logger) Info(msg string, args ...any) {
	if l.config.Quiet {
		return
	}
	l.logger.Info(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	if l.config.Quiet {
		return
	}
	l.logger.Warn(msg, args...)
}

// InfoContext logs an informational message with context
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	if l.config.Quiet {
		return
	}
	l.logger.InfoContext(ctx, msg, args...)
}

// LogBind logs a successful directory bind.
// Never log the password or the raw bind DN with embedded secrets.
func (l *Logger) LogBind(server string, port int, user string, duration time.Duration) {
	l.Info("directory bind established",
		"server", server,
		"port", port,
		"user", user,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogBindError logs a directory bind failure
func (l *Logger) LogBindError(server string, port int, err error) {
	l.Error("directory bind failed",
		"server", server,
		"port", port,
		"error", err.Error(),
	)
}

// LogSearch logs a directory search
func (l *Logger) LogSearch(base string, filter string, entries int, duration time.Duration) {
	l.Info("directory search completed",
		"base", base,
		"filter", filter,
		"entries", entries,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogSearchError logs a directory search failure
func (l *Logger) LogSearchError(base string, filter string, err error) {
	l.Error("directory search failed",
		"base", base,
		"filter", filter,
		"error", err.Error(),
	)
}

// LogResolve logs selector resolution
func (l *Logger) LogResolve(selector string, kind string, count int) {
	l.Info("targets resolved",
		"selector", selector,
		"kind", kind,
		"count", count,
	)
}

// LogSessionError logs a remote-session failure securely
func (l *Logger) LogSessionError(name string, address string, err error) {
	l.Error("remote session failed",
		"computer", name,
		"address", address,
		"error", err.Error(),
		// Never log credentials or the command itself
	)
}

// LogOutcome logs a completed per-target execution
func (l *Logger) LogOutcome(name string, success bool, duration time.Duration) {
	l.Info("target completed",
		"computer", name,
		"success", success,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogDispatchStart logs the start of a dispatch round
func (l *Logger) LogDispatchStart(roundID string, targetCount int, concurrency int) {
	l.Info("dispatch started",
		"round_id", roundID,
		"target_count", targetCount,
		"concurrency", concurrency,
	)
}

// LogDispatchComplete logs the completion of a dispatch round
func (l *Logger) LogDispatchComplete(roundID string, targetCount, successCount, failureCount int, duration time.Duration) {
	l.Info("dispatch completed",
		"round_id", roundID,
		"target_count", targetCount,
		"success_count", successCount,
		"failure_count", failureCount,
		"total_duration_ms", duration.Milliseconds(),
	)
}

// LogExport logs a durable export
func (l *Logger) LogExport(path string, rows int) {
	l.Info("results exported",
		"path", path,
		"rows", rows,
	)
}

// LogConfigLoad logs configuration loading events
func (l *Logger) LogConfigLoad(source string) {
	l.Info("configuration loaded", "source", source)
}

// LogConfigError logs configuration errors
func (l *Logger) LogConfigError(source string, err error) {
	l.Error("configuration error",
		"source", source,
		"error", err.Error(),
	)
}

// IsQuiet returns whether the logger is in quiet mode
func (l *Logger) IsQuiet() bool {
	return l.config.Quiet
}

// NewLoggerFromConfig creates a logger from application configuration
func NewLoggerFromConfig(logLevel, logFormat string, quiet bool) *Logger {
	level := LevelInfo
	if logLevel == "error" {
		level = LevelError
	}

	format := FormatText
	if logFormat == "json" {
		format = FormatJSON
	}

	return NewLogger(Config{
		Level:  level,
		Format: format,
		Quiet:  quiet,
	})
}
