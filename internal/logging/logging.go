// Package logging builds the zerolog logger shared by the server components.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/indigo-web/minihttp/config"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the configured level. The console format is
// meant for humans, json for log collectors.
func New(cfg config.Log, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}

	switch cfg.Format {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format: %q", cfg.Format)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
