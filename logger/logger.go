package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin wrapper that holds both the raw zap.Logger and its
// "Sugared" counterpart for convenience.
type Logger struct {
	*zap.Logger
	*zap.SugaredLogger
}

// New creates a logger writing JSON to stderr. Stdout is left to the
// outcome lines of the traffic generator.
// Accepted levels (case-insensitive): "debug", "info", "warn", "error".
func New(level string) (*Logger, error) {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(level string, w io.Writer) (*Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	// JSON, ISO-8601 timestamps, capital level
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zapLevel,
	)

	zapLogger := zap.New(core, zap.AddCaller())
	return &Logger{
		Logger:        zapLogger,
		SugaredLogger: zapLogger.Sugar(),
	}, nil
}

// WithRunID returns a copy of the logger with a run_id field attached.
func WithRunID(l *zap.Logger, runID string) *zap.Logger {
	return l.With(zap.String("run_id", runID))
}

// Flush forces any buffered log entries to be written.
// Call this from main just before the program exits.
func Flush(l *zap.Logger) {
	// Sync on a console-backed file returns EINVAL/ENOTTY on some
	// platforms; nothing useful can be done with it at exit.
	_ = l.Sync()
}
