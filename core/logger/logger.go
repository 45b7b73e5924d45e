package logger

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/nowkit/nowkit/core/buildinfo"
)

var (
	initOnce sync.Once
	levelVar slog.LevelVar

	// L is the base logger shared by all components.
	L *slog.Logger
)

// Options configure the global structured logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is "json" or "text". Empty means json.
	Format string
}

// Init configures the global structured logger. It may be called only once;
// subsequent calls are no-ops.
func Init(opts Options) {
	initOnce.Do(func() {
		levelVar.Set(parseLevel(opts.Level))

		hopts := &slog.HandlerOptions{Level: &levelVar}
		var handler slog.Handler
		switch strings.ToLower(strings.TrimSpace(opts.Format)) {
		case "text", "kv", "pretty":
			handler = slog.NewTextHandler(os.Stdout, hopts)
		default:
			handler = slog.NewJSONHandler(os.Stdout, hopts)
		}

		L = slog.New(handler)
		slog.SetDefault(L)

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", "app"),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
		)
	})
}

// SetLevel adjusts the log level at runtime.
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

// Component constructs a logger scoped to the provided component attribute.
func Component(name string) *slog.Logger {
	base := L
	if base == nil {
		base = slog.Default()
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return base
	}
	return base.With("component", trimmed)
}

// Event logs with component scope resolved automatically. The event name is
// attached as the conventional "event" attribute.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	log := Component(component)
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	if rid := RIDFrom(ctx); rid != "" {
		attrs = append(attrs, slog.String("rid", rid))
	}
	log.LogAttrs(ctx, level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}
