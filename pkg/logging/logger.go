// Package logging configures the zerolog logger shared by the harvester.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug adds per-page and per-attempt detail.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs run start and completion.
	LevelInfo LogLevel = "info"

	// LevelWarn logs failed attempts and early stops.
	LevelWarn LogLevel = "warn"

	// LevelError logs failed runs only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Loggers derived from log.Logger
// before Setup keep the previous writer.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(levelOf(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name from flags or config files.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// levelOf maps a LogLevel to zerolog, falling back to info.
func levelOf(level LogLevel) zerolog.Level {
	parsed, err := ParseLevel(string(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	switch parsed {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug:
//   - Each page request (product_id, cursor, page)
//   - Cache hit/miss for a page key
//   - Retry scheduling (attempt, outcome, backoff)
//   - Gate contention
//
// Info:
//   - Run start and completion (pages, accepted, status, path)
//   - A page that succeeded after a retry
//
// Warn:
//   - Failed attempts (status, outcome)
//   - Retry budget exhausted, pagination stopped early
//   - Cache errors (page fetched from the API instead)
//
// Error:
//   - No connectivity on the first page
//   - Output file could not be written
//
// Context Fields:
//   - component: client, paginator, session, cache, cli
//   - run_id: session run identifier
//   - product_id: Steam AppID
//   - cursor: page cursor sent to the API
//   - page: 1-based page number
//   - attempt: 1-based attempt within a page
//   - outcome: success, rate_limited, server_error, transport_error, malformed_response
//   - status: HTTP status code
