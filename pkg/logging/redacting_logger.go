package logging

import (
	"strings"

	"digital.vasic.provision/pkg/env"
)

// redactedMark replaces every masked secret.
const redactedMark = "[REDACTED]"

// minSecretLen is the shortest configured secret that is
// masked inside free text.
const minSecretLen = 5

// RedactingLogger is a decorator that masks configured secrets
// (share passwords, licence keys) in messages and field values
// before they reach the inner logger. Fields whose key names a
// credential are masked whole.
type RedactingLogger struct {
	inner    Logger
	replacer *strings.Replacer
}

// NewRedactingLogger creates a logger that masks the given
// secrets. Secrets shorter than five bytes are ignored in free
// text.
func NewRedactingLogger(inner Logger, secrets ...string) *RedactingLogger {
	var pairs []string
	for _, s := range secrets {
		if len(s) >= minSecretLen {
			pairs = append(pairs, s, redactedMark)
		}
	}
	r := &RedactingLogger{inner: inner}
	if len(pairs) > 0 {
		r.replacer = strings.NewReplacer(pairs...)
	}
	return r
}

func (r *RedactingLogger) redact(s string) string {
	if r.replacer == nil {
		return s
	}
	return r.replacer.Replace(s)
}

func (r *RedactingLogger) redactFields(fields []Field) []Field {
	if len(fields) == 0 {
		return fields
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Key: f.Key, Value: r.redactValue(f.Key, f.Value)}
	}
	return out
}

func (r *RedactingLogger) redactValue(key string, v any) any {
	switch val := v.(type) {
	case string:
		if val != "" && env.IsSecretKey(key) {
			return redactedMark
		}
		return r.redact(val)
	case []string:
		// relaunch arguments may carry credentials
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = r.redact(s)
		}
		return out
	case error:
		return r.redact(val.Error())
	default:
		return v
	}
}

func (r *RedactingLogger) Info(msg string, fields ...Field) {
	r.inner.Info(r.redact(msg), r.redactFields(fields)...)
}

func (r *RedactingLogger) Warn(msg string, fields ...Field) {
	r.inner.Warn(r.redact(msg), r.redactFields(fields)...)
}

func (r *RedactingLogger) Error(msg string, fields ...Field) {
	r.inner.Error(r.redact(msg), r.redactFields(fields)...)
}

func (r *RedactingLogger) Debug(msg string, fields ...Field) {
	r.inner.Debug(r.redact(msg), r.redactFields(fields)...)
}

// WithFields redacts fields before attaching them to the inner
// logger. The secret set is shared with the child.
func (r *RedactingLogger) WithFields(fields ...Field) Logger {
	return &RedactingLogger{
		inner:    r.inner.WithFields(r.redactFields(fields)...),
		replacer: r.replacer,
	}
}

// Close closes the inner logger.
func (r *RedactingLogger) Close() error {
	return r.inner.Close()
}
