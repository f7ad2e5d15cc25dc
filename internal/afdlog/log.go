// Package afdlog is AFD's internal diagnostic logger: process startup,
// configuration reload, panics. It is distinct from the Structured Logs
// (internal/logwriter), which are a specified on-disk record format for
// input/output/delete/transfer events, not a logging-framework concern.
//
// Grounded on rclone's own choice of log/slog (fs/log/slog_test.go)
// plus its custom severities between slog's built-in levels.
package afdlog

import (
	"context"
	"log/slog"
	"os"
)

// Custom severities, matching AFD's original INFO/WARN/ERROR/FATAL/OFFLINE
// set layered onto slog's four built-in levels.
const (
	LevelNotice    = slog.Level(2)
	LevelOffline   = slog.Level(6)
	LevelCritical  = slog.Level(10)
	LevelNoInfo    = slog.Level(-8)
)

func levelString(l slog.Level) string {
	switch l {
	case LevelNoInfo:
		return "NO_INFO"
	case LevelNotice:
		return "NOTICE"
	case LevelOffline:
		return "OFFLINE"
	case LevelCritical:
		return "CRITICAL"
	default:
		return l.String()
	}
}

// New builds a text-handler slog.Logger writing to w, replacing the level
// key with AFD's named severities.
func New(w *os.File) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: LevelNoInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lv, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelString(lv))
				}
			}
			return a
		},
	})
	return slog.New(h)
}

// Default is the process-wide logger, writing to stderr. It is created
// at package initialization and read by everything else by direct
// reference.
var Default = New(os.Stderr)

// WithHost returns a logger attributing subsequent records to a host alias.
func WithHost(l *slog.Logger, host string) *slog.Logger {
	return l.With("host", host)
}

// Notice logs at LevelNotice: recoverable condition worth an operator's
// attention but not yet an error (host auto-paused, config reloaded).
func Notice(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.Log(ctx, LevelNotice, msg, args...)
}

// Offline logs at LevelOffline: a host transitioned to error-offline.
func Offline(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.Log(ctx, LevelOffline, msg, args...)
}

// Critical logs at LevelCritical: the process cannot continue safely.
func Critical(ctx context.Context, l *slog.Logger, msg string, args ...any) {
	l.Log(ctx, LevelCritical, msg, args...)
}
