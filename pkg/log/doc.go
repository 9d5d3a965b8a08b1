// Package log exposes the structured logging interface used by ladcache so
// that embedding applications can supply or construct a logger.
//
// # Usage
//
// Wrap an existing zerolog logger:
//
//	logger := log.NewZerologLogger(zerolog.New(os.Stderr))
//	svc, err := ladcache.New(cfg, ladcache.WithLogger(logger))
//
// Or discard everything:
//
//	logger := log.NewNoopLogger()
//
// # Custom Loggers
//
// Any type with Debug, Info, Warn, Error and With methods taking [Field]
// values satisfies [Logger].
package log
