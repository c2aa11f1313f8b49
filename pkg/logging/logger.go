// Package logging configures the zerolog logger shared by the graph client
// packages and the graphctl command.
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
	// LevelDebug logs every graph call, cache decision and batch round.
	LevelDebug LogLevel = "debug"

	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Component names used with NewLogger.
const (
	ComponentClient = "graph-client"
	ComponentProxy  = "graph-proxy"
	ComponentCLI    = "graphctl"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel `yaml:"level"`

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool `yaml:"pretty"`

	// Output defaults to os.Stderr.
	Output io.Writer `yaml:"-"`
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel validates a level name from a flag or config file.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level. Unknown levels are Info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
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
//   - Each graph call (method, path, status, duration)
//   - Cache hit/miss and conditional reads
//   - Batch rounds, chunk dispatch and cursor pages
//
// Info:
//   - Retries after transient errors
//   - Proxy startup/shutdown
//
// Warn:
//   - Params or fields an endpoint does not declare (outside strict mode)
//   - Usage throttling (app, business or ad account usage high)
//   - Cache errors (the call goes to the API instead)
//
// Error:
//   - Calls failing after retries
//   - Usage blocks
//   - Configuration errors
//
// Context Fields:
//   - component: graph-client, graph-proxy, graphctl
//   - path: graph path below the API version
//   - method: HTTP method
//   - status_code: HTTP status code
//   - error_class: client, server, rate_limit, network
//   - batch_id: correlation ID of a batch call
//   - node, endpoint: request builder target
