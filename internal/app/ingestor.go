package app

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/ladcache/internal/domain"
	"github.com/bft-labs/ladcache/internal/metrics"
	"github.com/bft-labs/ladcache/internal/ports"
)

// Ingestor owns the set of live streams feeding one store.
type Ingestor struct {
	decoder ports.RecordDecoder
	store   ports.Store
	logger  ports.Logger
	metrics *metrics.Metrics
	cfg     StreamConfig

	mu       sync.Mutex
	streams  map[string]*Stream
	stopping bool
	wg       sync.WaitGroup
}

// NewIngestor creates an ingestor. Every stream it starts decodes with
// decoder and inserts into store.
func NewIngestor(decoder ports.RecordDecoder, store ports.Store, logger ports.Logger, m *metrics.Metrics, cfg StreamConfig) *Ingestor {
	return &Ingestor{
		decoder: decoder,
		store:   store,
		logger:  logger,
		metrics: m,
		cfg:     cfg,
		streams: make(map[string]*Stream),
	}
}

// Ingest starts a stream for src and tracks it until it finishes. It
// returns ErrNotRunning while StopAll is in progress, after closing src.
func (in *Ingestor) Ingest(ctx context.Context, src ports.ChunkSource) (*Stream, error) {
	in.mu.Lock()
	if in.stopping {
		in.mu.Unlock()
		_ = src.Close()
		return nil, domain.ErrNotRunning
	}
	st := NewStream(src, in.decoder, in.store, in.logger, in.metrics, in.cfg)
	in.streams[st.ID()] = st
	in.wg.Add(1)
	in.mu.Unlock()

	st.Start(ctx)
	go func() {
		defer in.wg.Done()
		<-st.Done()
		in.mu.Lock()
		delete(in.streams, st.ID())
		in.mu.Unlock()
	}()
	return st, nil
}

// Serve accepts sources from acc and ingests each one until ctx is done or
// acc is closed. Transient accept errors are retried with backoff.
func (in *Ingestor) Serve(ctx context.Context, acc ports.SourceAcceptor) error {
	b := newBackoff(DefaultBackoffInitial, DefaultBackoffMax)
	for {
		src, err := acc.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrAcceptorClosed) {
				return nil
			}
			in.logger.Warn("accept failed",
				ports.Err(err),
				ports.Duration("retry_in", b.Current()),
			)
			if !b.Wait(ctx) {
				return nil
			}
			continue
		}
		b.Reset()

		if _, err := in.Ingest(ctx, src); err != nil {
			return err
		}
	}
}

// Streams returns a snapshot of every live stream.
func (in *Ingestor) Streams() []StreamStats {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]StreamStats, 0, len(in.streams))
	for _, st := range in.streams {
		out = append(out, st.Stats())
	}
	return out
}

// StopAll stops every live stream and waits for them to finish. Ingest
// is refused until StopAll returns.
func (in *Ingestor) StopAll(drain bool) {
	in.mu.Lock()
	in.stopping = true
	live := make([]*Stream, 0, len(in.streams))
	for _, st := range in.streams {
		live = append(live, st)
	}
	in.mu.Unlock()

	for _, st := range live {
		go st.Stop(drain)
	}
	in.wg.Wait()

	in.mu.Lock()
	in.stopping = false
	in.mu.Unlock()
}
