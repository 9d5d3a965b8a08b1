package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bft-labs/ladcache/internal/domain"
	"github.com/bft-labs/ladcache/internal/framing"
	"github.com/bft-labs/ladcache/internal/metrics"
	"github.com/bft-labs/ladcache/internal/ports"
)

// Default queue sizes between stream stages.
const (
	DefaultChunkQueue  = 16
	DefaultRecordQueue = 256
)

// StreamConfig sizes the queues between the stages of a stream.
type StreamConfig struct {
	ChunkQueue    int
	RecordQueue   int
	MaxRecordSize uint32
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.ChunkQueue <= 0 {
		c.ChunkQueue = DefaultChunkQueue
	}
	if c.RecordQueue <= 0 {
		c.RecordQueue = DefaultRecordQueue
	}
	if c.MaxRecordSize == 0 {
		c.MaxRecordSize = domain.DefaultMaxRecordSize
	}
	return c
}

// StreamStats is a snapshot of one stream's counters.
type StreamStats struct {
	ID     string
	Source string

	Chunks    uint64
	BytesRead uint64

	// Dropped counts transport messages lost before reaching the reader,
	// for sources that report it. Non-zero means the stream has gaps.
	Dropped uint64

	framing.Stats

	Stored      uint64
	StoreErrors uint64
}

// Stream moves one producer's bytes into the store. A reader goroutine
// pulls chunks from the source, a framer goroutine turns them into records
// and an inserter goroutine writes those to the store, in order. The stages
// are joined by bounded queues, so a slow store eventually blocks the
// reader and nothing else.
type Stream struct {
	id      string
	src     ports.ChunkSource
	framer  *framing.Framer
	store   ports.Store
	logger  ports.Logger
	metrics *metrics.Metrics
	label   string

	chunkQueue  chan []byte
	recordQueue chan domain.Record

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	abandon   chan struct{}
	done      chan struct{}

	chunks      atomic.Uint64
	bytesRead   atomic.Uint64
	dropped     atomic.Uint64
	stored      atomic.Uint64
	storeErrors atomic.Uint64

	mu     sync.Mutex
	fstats framing.Stats
	err    error
}

// NewStream wires src to store. Nothing runs until Start.
func NewStream(src ports.ChunkSource, decoder ports.RecordDecoder, store ports.Store, logger ports.Logger, m *metrics.Metrics, cfg StreamConfig) *Stream {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	return &Stream{
		id:          id,
		src:         src,
		framer:      framing.NewFramer(decoder, framing.WithMaxRecordSize(cfg.MaxRecordSize), framing.WithStreamID(id)),
		store:       store,
		logger:      logger.With(ports.String("stream", id), ports.String("source", src.Name())),
		metrics:     m,
		label:       sourceLabel(src.Name()),
		chunkQueue:  make(chan []byte, cfg.ChunkQueue),
		recordQueue: make(chan domain.Record, cfg.RecordQueue),
		abandon:     make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// sourceLabel reduces a source name such as "tcp:10.0.0.1:5000" to its
// transport so metric label cardinality stays bounded.
func sourceLabel(name string) string {
	if i := strings.IndexByte(name, ':'); i > 0 {
		return name[:i]
	}
	return name
}

// ID returns the stream identifier used in logs and frame errors.
func (s *Stream) ID() string { return s.id }

// Start launches the stages. Cancelling ctx has the effect of Stop(true).
// Calling Start more than once has no effect.
func (s *Stream) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		readCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		// Draining inserts must outlive the reader's context.
		insertCtx := context.WithoutCancel(ctx)

		s.metrics.StreamOpened()
		s.logger.Info("stream started")

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			s.read(readCtx)
		}()
		go func() {
			defer wg.Done()
			s.frame()
		}()
		go func() {
			defer wg.Done()
			s.insert(insertCtx)
		}()
		go func() {
			wg.Wait()
			cancel()
			s.metrics.StreamClosed()
			st := s.Stats()
			s.logger.Info("stream finished",
				ports.Uint64("bytes", st.BytesRead),
				ports.Uint64("dropped_messages", st.Dropped),
				ports.Uint64("frames", st.Frames),
				ports.Uint64("stored", st.Stored),
				ports.Uint64("framing_errors", st.FramingErrors),
				ports.Uint64("decode_errors", st.DecodeErrors),
				ports.Uint64("skipped_bytes", st.SkippedBytes),
			)
			close(s.done)
		}()
	})
}

// Stop stops the reader and waits for the stream to finish. With drain the
// chunks and records already queued are still framed and stored; without
// it they are dropped. Stop on a stream that was never started closes its
// source.
func (s *Stream) Stop(drain bool) {
	s.startOnce.Do(func() {
		if err := s.src.Close(); err != nil {
			s.logger.Debug("close source", ports.Err(err))
		}
		close(s.done)
	})
	s.stopOnce.Do(func() {
		if !drain {
			close(s.abandon)
		}
		if s.cancel != nil {
			s.cancel()
		}
	})
	<-s.done
}

// Done is closed once every stage has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the reader, or nil if the source
// reached end of stream or the stream was stopped.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats returns a snapshot of the stream's counters. Framer counters are
// refreshed after each chunk.
func (s *Stream) Stats() StreamStats {
	s.mu.Lock()
	fs := s.fstats
	s.mu.Unlock()
	return StreamStats{
		ID:          s.id,
		Source:      s.src.Name(),
		Chunks:      s.chunks.Load(),
		BytesRead:   s.bytesRead.Load(),
		Dropped:     s.dropped.Load(),
		Stats:       fs,
		Stored:      s.stored.Load(),
		StoreErrors: s.storeErrors.Load(),
	}
}

func (s *Stream) abandoned() bool {
	select {
	case <-s.abandon:
		return true
	default:
		return false
	}
}

func (s *Stream) read(ctx context.Context) {
	defer close(s.chunkQueue)
	defer func() {
		if err := s.src.Close(); err != nil {
			s.logger.Debug("close source", ports.Err(err))
		}
	}()
	lr, _ := s.src.(ports.LossReporter)
	defer s.checkLoss(lr)

	for {
		chunk, err := s.src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, ports.ErrEndOfStream):
				s.logger.Debug("end of stream")
			case ctx.Err() != nil:
			default:
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
				s.logger.Error("read failed", ports.Err(err))
			}
			return
		}
		if len(chunk) == 0 {
			continue
		}
		s.chunks.Add(1)
		s.bytesRead.Add(uint64(len(chunk)))
		s.checkLoss(lr)

		select {
		case s.chunkQueue <- chunk:
		case <-ctx.Done():
			return
		}
	}
}

// checkLoss records any new transport losses lr reports. Only the reader
// goroutine calls it.
func (s *Stream) checkLoss(lr ports.LossReporter) {
	if lr == nil {
		return
	}
	total := lr.Dropped()
	prev := s.dropped.Load()
	if total <= prev {
		return
	}
	s.dropped.Store(total)
	s.metrics.MessagesDropped(s.label, total-prev)
	s.logger.Warn("transport dropped messages, stream has a gap",
		ports.Uint64("dropped", total-prev),
		ports.Uint64("dropped_total", total),
	)
}

func (s *Stream) frame() {
	defer close(s.recordQueue)
	defer func() {
		s.framer.Reset()
		s.snapshot()
	}()

	for {
		select {
		case <-s.abandon:
			return
		case chunk, ok := <-s.chunkQueue:
			if !ok {
				return
			}
			if s.abandoned() {
				return
			}
			s.framer.Push(chunk)
		}

		for {
			rec, err := s.framer.Next()
			if err != nil {
				s.frameError(err)
				continue
			}
			if rec == nil {
				break
			}
			s.metrics.FrameDecoded(s.label, s.framer.LastFrame().Length)
			select {
			case s.recordQueue <- rec:
			case <-s.abandon:
				return
			}
		}
		s.snapshot()
	}
}

func (s *Stream) frameError(err error) {
	var fe *framing.FrameError
	if !errors.As(err, &fe) {
		s.logger.Error("framer failed", ports.Err(err))
		return
	}
	s.metrics.FrameError(s.label, fe.Kind.String())
	s.logger.Warn("frame dropped",
		ports.String("kind", fe.Kind.String()),
		ports.Int64("offset", fe.Offset),
		ports.Uint64("length", uint64(fe.Length)),
		ports.Err(fe.Err),
	)
}

// snapshot publishes the framer's counters. Only the framer goroutine
// calls it.
func (s *Stream) snapshot() {
	st := s.framer.Stats()
	s.mu.Lock()
	skipped := st.SkippedBytes - s.fstats.SkippedBytes
	s.fstats = st
	s.mu.Unlock()
	s.metrics.BytesSkipped(s.label, skipped)
}

func (s *Stream) insert(ctx context.Context) {
	for rec := range s.recordQueue {
		if s.abandoned() {
			continue
		}
		err := s.store.Insert(ctx, rec)
		s.metrics.RecordStored(rec.Kind().String(), err)
		if err != nil {
			s.storeErrors.Add(1)
			s.logger.Warn("insert failed",
				ports.String("kind", rec.Kind().String()),
				ports.String("entity", rec.EntityID()),
				ports.Err(err),
			)
			continue
		}
		s.stored.Add(1)
	}
}
