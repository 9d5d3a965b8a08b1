package log

import (
	"io"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/ladcache/internal/adapters/log"
	"github.com/bft-labs/ladcache/internal/ports"
)

// Logger provides structured logging capabilities.
type Logger = ports.Logger

// Field represents a key-value pair for structured logging.
type Field = ports.Field

// Field constructors.
var (
	String   = ports.String
	Int      = ports.Int
	Int64    = ports.Int64
	Uint64   = ports.Uint64
	Bool     = ports.Bool
	Duration = ports.Duration
	Err      = ports.Err
	Any      = ports.Any
)

// NewZerologLogger adapts logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return logAdapter.NewZerologAdapterWithLogger(logger)
}

// NewConsoleLogger writes human-readable lines to w at level and above.
func NewConsoleLogger(w io.Writer, level zerolog.Level) Logger {
	return logAdapter.NewConsoleAdapter(w, level)
}

// NewNoopLogger returns a logger that discards everything.
func NewNoopLogger() Logger {
	return logAdapter.NewNoopLogger()
}
