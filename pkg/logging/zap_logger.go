package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig configures the ZapLogger.
type LoggerConfig struct {
	// OutputPath is the JSON Lines file. Empty means stdout.
	OutputPath string
	Level      LogLevel
	Verbose    bool
	Fields     []Field
}

// ZapLogger implements Logger with JSON Lines output through
// go.uber.org/zap.
type ZapLogger struct {
	z      *zap.Logger
	closer io.Closer
}

// NewZapLogger creates a JSON logger. If OutputPath is empty,
// logs are written to stdout.
func NewZapLogger(config LoggerConfig) (*ZapLogger, error) {
	var (
		ws     zapcore.WriteSyncer
		closer io.Closer
	)
	if config.OutputPath != "" {
		dir := filepath.Dir(config.OutputPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf(
				"failed to create log directory: %w", err,
			)
		}
		file, err := os.OpenFile(
			config.OutputPath,
			os.O_CREATE|os.O_WRONLY|os.O_APPEND,
			0o644,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to open log file: %w", err,
			)
		}
		ws = zapcore.AddSync(file)
		closer = file
	} else {
		ws = zapcore.Lock(os.Stdout)
	}

	level := config.Level
	if config.Verbose {
		level = LevelDebug
	}
	return newZapLogger(ws, level, closer, config.Fields), nil
}

// NewZapLoggerTo creates a JSON logger writing to w. Writes are
// serialized, so w may be shared between goroutines.
func NewZapLoggerTo(w io.Writer, level LogLevel) *ZapLogger {
	return newZapLogger(zapcore.Lock(zapcore.AddSync(w)), level, nil, nil)
}

// Discard returns a logger that drops every entry.
func Discard() *ZapLogger {
	return &ZapLogger{z: zap.NewNop()}
}

func newZapLogger(
	ws zapcore.WriteSyncer,
	level LogLevel,
	closer io.Closer,
	fields []Field,
) *ZapLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg), ws, zapLevel(level),
	)
	z := zap.New(core).With(toZap(fields)...)
	return &ZapLogger{z: z, closer: closer}
}

func zapLevel(l LogLevel) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZap(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

// Info logs an informational message.
func (l *ZapLogger) Info(msg string, fields ...Field) {
	l.z.Info(msg, toZap(fields)...)
}

// Warn logs a warning message.
func (l *ZapLogger) Warn(msg string, fields ...Field) {
	l.z.Warn(msg, toZap(fields)...)
}

// Error logs an error message.
func (l *ZapLogger) Error(msg string, fields ...Field) {
	l.z.Error(msg, toZap(fields)...)
}

// Debug logs a debug message.
func (l *ZapLogger) Debug(msg string, fields ...Field) {
	l.z.Debug(msg, toZap(fields)...)
}

// WithFields returns a new Logger with additional default
// fields. Closing the child does not close the parent's file.
func (l *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{z: l.z.With(toZap(fields)...)}
}

// Close flushes and closes the underlying file, if any.
func (l *ZapLogger) Close() error {
	_ = l.z.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// SetupLogging creates a JSON logger writing pass.log in
// logsDir.
func SetupLogging(
	logsDir string,
	verbose bool,
) (*ZapLogger, error) {
	return NewZapLogger(LoggerConfig{
		OutputPath: filepath.Join(logsDir, "pass.log"),
		Level:      LevelInfo,
		Verbose:    verbose,
	})
}
