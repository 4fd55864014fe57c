package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates a logger for the named binary based on the configuration.
func NewLogger(cfg LoggerConfig, app string) zerolog.Logger {
	return newLogger(cfg, app, os.Stdout)
}

func newLogger(cfg LoggerConfig, app string, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", app).
		Logger()
}
