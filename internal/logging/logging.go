// Package logging builds the process logger and carries request scoped
// loggers through a context.
//
// Records are written through zap: JSON in production, console output
// everywhere else. Callers only see *slog.Logger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// EnvProduction selects the JSON encoder.
const EnvProduction = "production"

type contextKey struct{}

// New returns a logger writing to w at the given minimum level.
func New(w io.Writer, env string, level slog.Level) *slog.Logger {
	logger, _ := NewWithCore(w, env, level)
	return logger
}

// NewWithCore is New but also returns the zap core so the caller can Sync it
// before exiting.
func NewWithCore(w io.Writer, env string, level slog.Level) (*slog.Logger, zapcore.Core) {
	var encoder zapcore.Encoder
	if strings.EqualFold(strings.TrimSpace(env), EnvProduction) {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(zapLevel(level)))
	return slog.New(zapslog.NewHandler(core)), core
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// ContextWithLogger returns a derived context that carries the provided logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}
