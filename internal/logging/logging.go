// Package logging sets up the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Component names used as the "component" attribute on every log line,
// mirroring the category taxonomy the rest of the pipeline is organized
// around (audio, provider, qwenasr, pipeline, transport).
const (
	ComponentAudio     = "audio"
	ComponentProvider  = "provider"
	ComponentQwenASR   = "qwenasr"
	ComponentPipeline  = "pipeline"
	ComponentTransport = "transport"
	ComponentApp       = "app"
)

// ParseLevel maps a config string ("debug", "info", "warn", "error") to a
// slog.Level, defaulting to Info for anything unrecognized.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Init installs a JSON slog handler on slog.Default writing to w at the
// given level. Call once at process startup.
func Init(w io.Writer, level slog.Level) {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// For returns a logger with a fixed "component" attribute, so call sites
// read as logging.For(logging.ComponentQwenASR).Info("...", "model", name)
// instead of repeating the attribute at every call.
func For(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
