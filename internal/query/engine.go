// Package query runs history and latest-value queries against a store.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/ladcache/internal/domain"
	"github.com/bft-labs/ladcache/internal/metrics"
	"github.com/bft-labs/ladcache/internal/ports"
)

// DefaultTimeout bounds one query when the engine is built without
// WithTimeout.
const DefaultTimeout = 10 * time.Second

const (
	opHistory = "history"
	opLatest  = "latest"
)

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the per-query deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithMetrics records query latency and outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine executes queries. It is safe for concurrent use.
type Engine struct {
	store   ports.Store
	logger  ports.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewEngine creates an engine over store.
func NewEngine(store ports.Store, logger ports.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		logger:  logger,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// History returns up to params.MaxResults records for one entity, most
// recent first in params' time domain. params must name an entity and a
// concrete time type.
//
// When the deadline expires after some records were gathered, those are
// returned without error.
func (e *Engine) History(ctx context.Context, params domain.QueryParams) ([]domain.Record, error) {
	start := time.Now()
	recs, err := e.history(ctx, params)
	e.metrics.QueryDone(opHistory, time.Since(start), len(recs), err)
	return recs, err
}

func (e *Engine) history(ctx context.Context, params domain.QueryParams) ([]domain.Record, error) {
	if params.EntityID() == "" {
		return nil, &QueryError{Op: opHistory, Params: params, Err: fmt.Errorf("%w: history requires an entity id", domain.ErrInvalidQuery)}
	}
	if !params.TimeType().Concrete() {
		return nil, &QueryError{Op: opHistory, Params: params, Err: fmt.Errorf("%w: history requires a concrete time type, got %s", domain.ErrInvalidQuery, params.TimeType())}
	}

	limit := params.MaxResults()
	out := make([]domain.Record, 0, min(limit, 64))
	err := e.pages(ctx, opHistory, params, func(page []domain.Record) bool {
		n := min(len(page), limit-len(out))
		out = append(out, page[:n]...)
		return len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the most recent record of every entity params selects,
// ordered by record creation time. The result cap, time type, source and
// recorded state of params are overridden; the other filters apply.
func (e *Engine) Latest(ctx context.Context, params domain.QueryParams) ([]domain.Record, error) {
	start := time.Now()
	recs, err := e.latest(ctx, params)
	e.metrics.QueryDone(opLatest, time.Since(start), len(recs), err)
	return recs, err
}

func (e *Engine) latest(ctx context.Context, params domain.QueryParams) ([]domain.Record, error) {
	broad, err := params.Builder().
		MaxResults(1).
		TimeType(domain.TimeAny).
		Source(domain.SourceAll).
		RecordedState(domain.RecordedBoth).
		ClearBounds().
		Build()
	if err != nil {
		return nil, &QueryError{Op: opLatest, Params: params, Err: err}
	}

	type key struct {
		kind domain.Kind
		id   string
	}
	seen := make(map[key]struct{})
	var out []domain.Record
	err = e.pages(ctx, opLatest, broad, func(page []domain.Record) bool {
		for _, rec := range page {
			k := key{rec.Kind(), rec.EntityID()}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, rec)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// pages calls fn with each store page until fn returns false, the store is
// exhausted or the deadline passes. A deadline with nothing gathered is an
// error; otherwise the partial result stands.
func (e *Engine) pages(ctx context.Context, op string, params domain.QueryParams, fn func([]domain.Record) bool) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	gathered := 0
	cursor := domain.Cursor{}
	for {
		if err := ctx.Err(); err != nil {
			return e.interrupted(op, params, gathered, err)
		}

		page, err := e.store.Query(ctx, params, cursor)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return e.interrupted(op, params, gathered, ctxErr)
			}
			if !errors.Is(err, domain.ErrStore) {
				err = fmt.Errorf("%w: %v", domain.ErrStore, err)
			}
			return &QueryError{Op: op, Params: params, Err: err}
		}

		gathered += len(page.Records)
		if !fn(page.Records) || !page.More {
			return nil
		}
		cursor = page.Next
	}
}

func (e *Engine) interrupted(op string, params domain.QueryParams, gathered int, cause error) error {
	if gathered > 0 {
		e.logger.Warn("query interrupted, returning partial results",
			ports.String("op", op),
			ports.Int("results", gathered),
			ports.Err(cause),
		)
		return nil
	}
	return &QueryError{Op: op, Params: params, Err: fmt.Errorf("%w: %v", domain.ErrDeadline, cause)}
}
