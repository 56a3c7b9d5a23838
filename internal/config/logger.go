package config

import (
	"io"
	"log/slog"
	"strings"
)

// Logger builds the process logger from App.LogFormat ("json" or "text") and
// App.LogLevel. Unknown levels fall back to info.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(c.App.LogFormat, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	return slog.New(h).With("app", c.App.Name)
}
