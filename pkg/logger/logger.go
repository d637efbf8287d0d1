// Package logger provides structured logging for the Student Integration Hub.
// It keeps a small field-based API on top of zap so callers never import zap directly.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
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

func (l Level) zapLevel() zapcore.Level {
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

// ParseLevel parses a string into a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// Common field constructors for convenience.
func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Any(key string, value any) Field         { return Field{Key: key, Value: value} }

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time creates a time field.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.UTC().Format(time.RFC3339)}
}

// Options configures the logger.
type Options struct {
	// AppName is attached to every entry as "app".
	AppName string

	// Level is the minimum level written.
	Level Level

	// Output receives JSON lines. Defaults to stdout.
	Output io.Writer

	// FilePath enables a rotated log file in addition to Output.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	AddCaller bool
}

// DefaultOptions returns sensible defaults for the logger.
func DefaultOptions() Options {
	return Options{
		Level:      LevelInfo,
		Output:     os.Stdout,
		MaxSizeMB:  128,
		MaxBackups: 30,
		MaxAgeDays: 30,
		AddCaller:  true,
	}
}

// Logger wraps a zap logger.
type Logger struct {
	z     *zap.Logger
	level Level
}

// New creates a new Logger with the given options.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	encCfg := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "timestamp",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(opts.Output)}
	if opts.FilePath != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.NewMultiWriteSyncer(sinks...),
		zap.NewAtomicLevelAt(opts.Level.zapLevel()),
	)

	zopts := []zap.Option{}
	if opts.AddCaller {
		zopts = append(zopts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if opts.AppName != "" {
		zopts = append(zopts, zap.Fields(zap.String("app", opts.AppName)))
	}

	return &Logger{z: zap.New(core, zopts...), level: opts.Level}
}

// Default creates a logger with default options.
func Default() *Logger {
	return New(DefaultOptions())
}

// Nop returns a logger that discards everything. Handy in tests.
func Nop() *Logger {
	return &Logger{z: zap.NewNop(), level: LevelError}
}

// With returns a new Logger with the given fields added.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{z: l.z.With(toZap(fields)...), level: l.level}
}

// Level returns the configured minimum level.
func (l *Logger) Level() Level { return l.level }

func (l *Logger) Debug(msg string, fields ...Field) { l.z.Debug(msg, toZap(fields)...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.z.Info(msg, toZap(fields)...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, toZap(fields)...) }
func (l *Logger) Error(msg string, fields ...Field) { l.z.Error(msg, toZap(fields)...) }

// Sync flushes buffered entries. Call it before exit.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func toZap(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

// Context key for logger.
type ctxKey struct{}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context, or returns a default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}

// RequestIDKey is a common field key for request tracing.
const RequestIDKey = "request_id"

// WithRequestID returns a logger with request ID field added.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(String(RequestIDKey, requestID))
}

// Domain logging helpers.
func UserID(id string) Field        { return String("user_id", id) }
func Feature(name string) Field     { return String("feature", name) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
