// Package obslog provides structured logging for protobase using zerolog.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance.
	Logger zerolog.Logger
)

// Level represents a log level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger.
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// Component creates a child logger tagged with a component name, e.g.
// "pagestore", "txn", "atom", "collection".
func Component(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithPointer tags a logger with the stream/offset of an atom pointer.
func WithPointer(l zerolog.Logger, streamID string, offset uint64) zerolog.Logger {
	return l.With().Str("stream_id", streamID).Uint64("offset", offset).Logger()
}

// WithDatabase tags a logger with a database name.
func WithDatabase(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("database", name).Logger()
}

// Helper functions for common logging patterns.
func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}
