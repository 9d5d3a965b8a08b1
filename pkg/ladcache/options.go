package ladcache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/ladcache/internal/ports"
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Option configures optional behavior of a Service.
type Option func(*options)

type options struct {
	logger       ports.Logger
	eventHandler EventHandler
	acceptors    []ports.SourceAcceptor
	registerer   prometheus.Registerer
	store        ports.Store
	dictionary   ports.Dictionary
	dictPath     string
	watchDict    bool
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for service events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithAcceptor adds a source acceptor served while the service runs. The
// service closes it on Stop.
func WithAcceptor(acc ports.SourceAcceptor) Option {
	return func(o *options) {
		o.acceptors = append(o.acceptors, acc)
	}
}

// WithRegisterer registers the service's Prometheus collectors with reg.
// Without it no metrics are recorded.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithStore replaces the in-memory store.
func WithStore(store ports.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithDictionary sets the dictionary used to reconstruct values.
func WithDictionary(dict ports.Dictionary) Option {
	return func(o *options) {
		o.dictionary = dict
	}
}

// WithDictionaryFile loads the dictionary from a YAML file. With watch the
// file is reloaded whenever it changes while the service runs.
func WithDictionaryFile(path string, watch bool) Option {
	return func(o *options) {
		o.dictPath = path
		o.watchDict = watch
	}
}
