package logging

import "errors"

// MultiLogger sends every entry to each of its sinks, for
// example the console and a JSON pass log.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger combines sinks. Nil sinks are dropped.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	m := &MultiLogger{sinks: make([]Logger, 0, len(sinks))}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiLogger) each(fn func(Logger)) {
	for _, s := range m.sinks {
		fn(s)
	}
}

func (m *MultiLogger) Info(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Info(msg, fields...) })
}

func (m *MultiLogger) Warn(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Warn(msg, fields...) })
}

func (m *MultiLogger) Error(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Error(msg, fields...) })
}

func (m *MultiLogger) Debug(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Debug(msg, fields...) })
}

// WithFields derives a child from every sink.
func (m *MultiLogger) WithFields(fields ...Field) Logger {
	child := &MultiLogger{sinks: make([]Logger, 0, len(m.sinks))}
	m.each(func(l Logger) {
		child.sinks = append(child.sinks, l.WithFields(fields...))
	})
	return child
}

// Close closes every sink, even after a failure, and joins the
// errors.
func (m *MultiLogger) Close() error {
	var errs []error
	m.each(func(l Logger) {
		errs = append(errs, l.Close())
	})
	return errors.Join(errs...)
}
