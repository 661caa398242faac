// Package logger provides a small leveled facade over log/slog, shared by
// every package in this module so log output stays uniform regardless of
// which subsystem emits it.
package logger

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

var (
	mu  sync.RWMutex
	log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
)

// Level controls the minimum level emitted by the package logger.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Configure replaces the package logger, e.g. to point at a file or change level.
func Configure(handler slog.Handler) {
	mu.Lock()
	defer mu.Unlock()
	log = slog.New(handler)
}

// SetLevel rebuilds the default stderr handler at the given level.
func SetLevel(level Level) {
	Configure(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug(msg string, kv ...any) { current().Debug(msg, kv...) }
func Info(msg string, kv ...any)  { current().Info(msg, kv...) }
func Warn(msg string, kv ...any)  { current().Warn(msg, kv...) }
func Error(msg string, kv ...any) { current().Error(msg, kv...) }

func DebugCtx(ctx context.Context, msg string, kv ...any) { current().DebugContext(ctx, msg, kv...) }
func InfoCtx(ctx context.Context, msg string, kv ...any)  { current().InfoContext(ctx, msg, kv...) }
func WarnCtx(ctx context.Context, msg string, kv ...any)  { current().WarnContext(ctx, msg, kv...) }
func ErrorCtx(ctx context.Context, msg string, kv ...any) { current().ErrorContext(ctx, msg, kv...) }

// With returns a child logger with the given attributes attached, mirroring
// slog.Logger.With but returned through the package facade so callers keep
// using logger.Info/Debug/etc. on the result.
func With(kv ...any) *slog.Logger {
	return current().With(kv...)
}
