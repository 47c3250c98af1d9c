// Package logging configures zerolog for the crawler command and its packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names used for the "component" field.
const (
	ComponentCrawler    = "crawler"
	ComponentAuth       = "auth"
	ComponentHTTP       = "http"
	ComponentPagination = "pagination"
	ComponentExport     = "export"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// JSON switches from the human-readable console writer to JSON lines.
	JSON bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns console output at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		JSON:   false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ValidateLevel reports whether s names a supported level.
func ValidateLevel(s string) error {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: per-request detail
//   - query parameters, login encoding being attempted
//   - response status and byte counts
//   - token length (never the token itself)
//
// Info: normal progress
//   - page fetched and rows accumulated
//   - authentication succeeded
//   - output files written
//
// Warn: conditions that end pagination or a login attempt
//   - non-200 status, empty page, failure on a later page
//   - a login encoding that produced no token
//
// Error: fatal conditions right before a non-zero exit
//
// Context Fields:
//   - run_id: identifier of one crawl invocation
//   - page: listing page number
//   - status: HTTP status code
//   - encoding: login request encoding (json, form)
//   - rows: number of rows on a page or in a file
//   - path: output file path
