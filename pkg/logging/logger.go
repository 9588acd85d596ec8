// Package logging provides structured logging for provisioning
// passes with console, JSON (zap) and multi-destination output.
package logging

// Logger defines the interface for structured logging.
type Logger interface {
	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning message.
	Warn(msg string, fields ...Field)

	// Error logs an error message.
	Error(msg string, fields ...Field)

	// Debug logs a debug-level message.
	Debug(msg string, fields ...Field)

	// WithFields returns a Logger with additional default
	// fields attached to every subsequent log entry.
	WithFields(fields ...Field) Logger

	// Close flushes any buffers and releases resources.
	Close() error
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// LogLevel represents logging severity levels.
type LogLevel int

const (
	// LevelDebug is the most verbose level.
	LevelDebug LogLevel = iota
	// LevelInfo is the default level.
	LevelInfo
	// LevelWarn indicates potential issues.
	LevelWarn
	// LevelError indicates failures.
	LevelError
)

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// mergeFields returns base overlaid with fields, preserving
// the order keys were first seen.
func mergeFields(base []Field, fields []Field) []Field {
	out := make([]Field, 0, len(base)+len(fields))
	index := make(map[string]int, len(base)+len(fields))
	for _, f := range append(append([]Field{}, base...), fields...) {
		if i, ok := index[f.Key]; ok {
			out[i] = f
			continue
		}
		index[f.Key] = len(out)
		out = append(out, f)
	}
	return out
}
