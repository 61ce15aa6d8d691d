// Package log provides structured JSON logging for the retry engine
// and CLI surfaces.
//
// Engine logs are operational detail, not child output: they always go
// to stderr (or a caller-supplied writer) so the child's stdout stays
// untouched. The default level is error; --log-level raises verbosity.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap with the project's encoder conventions: JSON lines,
// timestamp/level/message keys, RFC3339Nano timestamps.
type Logger struct {
	zap *zap.Logger
}

// ParseLevel maps a --log-level value onto a zap level. The empty
// string means the default (error).
func ParseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error", "":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("invalid log level %q\nValid options: debug, info, warn, error", s)
	}
}

// New creates a logger writing to stderr at the given level.
func New(level string) (*Logger, error) {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a logger writing to w at the given level.
// Tests use this to capture output.
func NewWithWriter(level string, w io.Writer) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		lvl,
	)

	return &Logger{zap: zap.New(core)}, nil
}

// With returns a child logger carrying the given context fields on
// every entry. The engine uses it to stamp run identity once.
func (l *Logger) With(fields map[string]any) *Logger {
	zfields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zfields = append(zfields, zap.Any(k, v))
	}
	return &Logger{zap: l.zap.With(zfields...)}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}
