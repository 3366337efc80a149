// Package logger provides a small leveled logging interface for sedm components.
// Packages log through the Logger interface so tests can swap in a
// BufferLogger; the default implementation writes through log/slog.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger defines the interface for logging operations.
// All methods accept a format string and arguments, similar to fmt.Printf.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// slogLogger implements Logger on top of a *slog.Logger. The component
// name is attached as a "component" attribute on every record.
type slogLogger struct {
	component string
	l         *slog.Logger
}

// New creates a logger for the named component writing to handler h.
func New(component string, h slog.Handler) Logger {
	return &slogLogger{component: component, l: slog.New(h)}
}

// NewEnvLogger creates a text logger on stderr that respects SEDM_DEBUG.
// Debug records are only emitted when SEDM_DEBUG is non-empty.
func NewEnvLogger(component string) Logger {
	level := slog.LevelInfo
	if os.Getenv("SEDM_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return New(component, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewHandler builds a slog handler from config-style level and format strings.
// Unknown levels fall back to info; format "json" selects the JSON handler.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel converts a level name to a slog.Level. Accepts debug, info,
// warn/warning and error in any case.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether level is one ParseLevel understands explicitly.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func (l *slogLogger) log(level slog.Level, format string, args ...interface{}) {
	if l.component != "" {
		l.l.Log(context.Background(), level, fmt.Sprintf(format, args...), slog.String("component", l.component))
		return
	}
	l.l.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (l *slogLogger) Debug(format string, args ...interface{}) {
	l.log(slog.LevelDebug, format, args...)
}

func (l *slogLogger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *slogLogger) Warn(format string, args ...interface{}) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *slogLogger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

// noopLogger implements Logger but discards all messages.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures log messages for testing.
// It is safe for concurrent use; bridge sessions log from several goroutines.
type BufferLogger struct {
	mu       sync.Mutex
	Messages []LogMessage
}

// NewBufferLogger creates a logger that captures messages for inspection.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{
		Messages: make([]LogMessage, 0),
	}
}

func (l *BufferLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.add("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.add("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.add("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.add("error", format, args...) }

// HasLevel returns true if any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the captured messages.
func (l *BufferLogger) Snapshot() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.Messages))
	copy(out, l.Messages)
	return out
}

// Clear removes all captured messages.
func (l *BufferLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = l.Messages[:0]
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewEnvLogger("")
)

// Default returns the process-wide default logger.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger for the package.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
