package deribit

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates a structured logger for the client and its workers.
//
// level is any name zerolog.ParseLevel accepts ("debug", "info", "warn",
// "error", and also "trace", "fatal", "panic", "disabled"); an empty or
// unrecognised string falls back to info. With pretty set the output is human-readable console text,
// otherwise JSON. Worker goroutines tag their events with a component field
// and the client's connection id, so a single logger value serves the whole
// client.
func NewLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var output io.Writer = os.Stderr
	if pretty {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli}
	}

	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}
