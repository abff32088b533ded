// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger.
//
// Console output goes to stderr so that stdout stays clean for dry-run
// command previews and JSON probe output.
func Init(verbose, jsonOutput bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
	if jsonOutput {
		output = os.Stderr
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// NewLogger creates a logger writing to the given writers.
// With no writers it returns the global logger.
func NewLogger(writers ...io.Writer) zerolog.Logger {
	switch len(writers) {
	case 0:
		return log.Logger
	case 1:
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	default:
		return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	}
}

// WithComponent creates a logger with a component field.
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
