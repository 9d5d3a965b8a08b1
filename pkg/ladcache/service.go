package ladcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/ladcache/internal/adapters/codec"
	"github.com/bft-labs/ladcache/internal/adapters/dictionary"
	logAdapter "github.com/bft-labs/ladcache/internal/adapters/log"
	"github.com/bft-labs/ladcache/internal/adapters/memstore"
	"github.com/bft-labs/ladcache/internal/app"
	"github.com/bft-labs/ladcache/internal/domain"
	"github.com/bft-labs/ladcache/internal/metrics"
	"github.com/bft-labs/ladcache/internal/ports"
	"github.com/bft-labs/ladcache/internal/query"
	"github.com/bft-labs/ladcache/internal/reconstruct"
)

type (
	// Stream is one live ingestion pipeline.
	Stream = app.Stream

	// StreamStats is a snapshot of a stream's counters.
	StreamStats = app.StreamStats

	// QueryEngine answers Latest and History queries.
	QueryEngine = query.Engine

	// Reconstructor turns stored records into typed values.
	Reconstructor = reconstruct.Reconstructor
)

// NewQuery starts a query with default parameters.
func NewQuery() *domain.QueryBuilder {
	return domain.NewQueryBuilder()
}

// Service is a telemetry cache that can be embedded in other applications.
// Use New to create an instance, then Start to begin ingesting.
type Service struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	logger    ports.Logger
	metrics   *metrics.Metrics

	store    ports.Store
	dict     ports.Dictionary
	watcher  *dictionary.Watcher
	ingestor *app.Ingestor
	engine   *query.Engine
	recon    *reconstruct.Reconstructor

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Service in StateStopped. Returns an error if the
// configuration is invalid or the dictionary file cannot be loaded.
func New(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logAdapter.NewNoopLogger()
	}

	m, err := metrics.New(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	store := o.store
	if store == nil {
		store = memstore.New(
			memstore.WithHistoryDepth(cfg.HistoryDepth),
			memstore.WithPageSize(cfg.PageSize),
			memstore.WithMaxAge(cfg.MaxAge),
		)
	}

	var watcher *dictionary.Watcher
	dict := o.dictionary
	switch {
	case dict != nil:
	case o.dictPath != "":
		d, err := dictionary.Load(o.dictPath)
		if err != nil {
			return nil, err
		}
		if o.watchDict {
			watcher = dictionary.NewWatcher(d, logger, 0)
			watcher.OnReload(func(err error) {
				if o.eventHandler != nil {
					o.eventHandler.OnDictionaryReload(DictionaryReloadEvent{Path: d.Path(), Err: err})
				}
			})
		}
		dict = d
	default:
		dict = dictionary.New()
	}

	reconOpts := []reconstruct.Option{reconstruct.WithMetrics(m)}
	if len(cfg.LSTSpacecraft) > 0 {
		reconOpts = append(reconOpts, reconstruct.WithLSTSpacecraft(cfg.LSTSpacecraft...))
	}

	return &Service{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(logger, stateEmitter{handler: o.eventHandler}),
		logger:    logger,
		metrics:   m,
		store:     store,
		dict:      dict,
		watcher:   watcher,
		ingestor: app.NewIngestor(codec.NewDecoder(), store, logger, m, app.StreamConfig{
			ChunkQueue:    cfg.ChunkQueue,
			RecordQueue:   cfg.RecordQueue,
			MaxRecordSize: cfg.MaxRecordSize,
		}),
		engine: query.NewEngine(store, logger,
			query.WithTimeout(cfg.QueryTimeout),
			query.WithMetrics(m),
		),
		recon: reconstruct.New(dict, logger, reconOpts...),
	}, nil
}

// Start serves every configured acceptor in the background and returns.
// The provided context bounds the lifetime of the service.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.ctx = runCtx
	s.cancel = cancel
	s.lifecycle.SetCancel(cancel)

	if s.watcher != nil {
		if err := s.watcher.Start(runCtx); err != nil {
			s.logger.Error("dictionary watcher failed", ports.Err(err))
			cancel()
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "dictionary watcher: "+err.Error())
			return err
		}
	}

	if r, ok := s.store.(ports.Reaper); ok && s.config.MaxAge > 0 {
		s.lifecycle.Go(func() { s.reapLoop(runCtx, r) })
	}

	for _, acc := range s.opts.acceptors {
		s.lifecycle.Go(func() {
			if err := s.ingestor.Serve(runCtx, acc); err != nil {
				s.logger.Error("acceptor stopped", ports.Err(err))
			}
		})
	}

	return s.lifecycle.TransitionTo(app.StateRunning, "acceptors serving")
}

func (s *Service) reapLoop(ctx context.Context, r ports.Reaper) {
	ticker := time.NewTicker(s.config.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Reap(); n > 0 {
				s.metrics.RecordsRemoved("reaped", n)
				s.logger.Debug("reaped expired entities", ports.Int("records", n))
			}
		}
	}
}

// Stop closes the acceptors, drains every live stream and waits up to
// ShutdownTimeout for them. Returns nil on graceful shutdown,
// ErrShutdownTimeout if forced.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	for _, acc := range s.opts.acceptors {
		if err := acc.Close(); err != nil {
			s.logger.Debug("close acceptor", ports.Err(err))
		}
	}
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.lifecycle.Go(func() { s.ingestor.StopAll(true) })

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Service) Status() State {
	return s.lifecycle.State()
}

// Ingest starts a stream for src. The stream ends when src reports end of
// stream, when ctx is done or when the service stops. Returns ErrNotRunning
// unless the service is running.
func (s *Service) Ingest(ctx context.Context, src ports.ChunkSource) (*Stream, error) {
	if s.Status() != StateRunning {
		return nil, domain.ErrNotRunning
	}
	s.mu.Lock()
	runCtx := s.ctx
	s.mu.Unlock()

	// The stream stops with whichever of ctx and the service ends first.
	streamCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(runCtx, cancel)
	st, err := s.ingestor.Ingest(streamCtx, src)
	if err != nil {
		stop()
		cancel()
		return nil, err
	}
	go func() {
		<-st.Done()
		stop()
		cancel()
	}()
	return st, nil
}

// Streams returns a snapshot of every live stream.
func (s *Service) Streams() []StreamStats {
	return s.ingestor.Streams()
}

// Queries returns the query engine.
func (s *Service) Queries() *QueryEngine {
	return s.engine
}

// Reconstructor returns the reconstructor bound to the service's
// dictionary.
func (s *Service) Reconstructor() *Reconstructor {
	return s.recon
}

// LatestValues runs a Latest query and reconstructs the results. Records
// that cannot be reconstructed are skipped.
func (s *Service) LatestValues(ctx context.Context, params domain.QueryParams) ([]domain.Value, error) {
	recs, err := s.engine.Latest(ctx, params)
	if err != nil {
		return nil, err
	}
	return s.recon.All(recs), nil
}

// HistoryValues runs a History query and reconstructs the results.
func (s *Service) HistoryValues(ctx context.Context, params domain.QueryParams) ([]domain.Value, error) {
	recs, err := s.engine.History(ctx, params)
	if err != nil {
		return nil, err
	}
	return s.recon.All(recs), nil
}

// Clear drops every stored record. Returns an ErrStore error if the store
// does not support it.
func (s *Service) Clear() error {
	m, ok := s.store.(ports.StoreMaintainer)
	if !ok {
		return fmt.Errorf("%w: clear not supported", domain.ErrStore)
	}
	m.Clear()
	s.logger.Info("store cleared")
	return nil
}

// Prune drops every stored record matching params and returns how many
// were removed.
func (s *Service) Prune(ctx context.Context, params domain.QueryParams) (int, error) {
	m, ok := s.store.(ports.StoreMaintainer)
	if !ok {
		return 0, fmt.Errorf("%w: prune not supported", domain.ErrStore)
	}
	n, err := m.Prune(ctx, params)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordsRemoved("pruned", n)
	s.logger.Info("store pruned", ports.Int("records", n), ports.String("query", params.String()))
	return n, nil
}
