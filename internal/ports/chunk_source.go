package ports

import (
	"context"
	"io"
)

// ChunkSource delivers the raw bytes of one producer connection as
// arbitrarily sized chunks. Chunk boundaries carry no meaning.
type ChunkSource interface {
	// Next blocks until the next chunk is available. It returns io.EOF once
	// the producer is done. The returned slice is owned by the caller.
	Next(ctx context.Context) ([]byte, error)

	// Name identifies the producer in logs and metrics.
	Name() string

	// Close releases the underlying connection and unblocks Next.
	Close() error
}

// SourceAcceptor produces one ChunkSource per producer.
type SourceAcceptor interface {
	// Accept blocks until a new producer is available.
	// Returns domain.ErrAcceptorClosed after Close.
	Accept(ctx context.Context) (ChunkSource, error)

	// Close stops accepting and unblocks Accept.
	Close() error
}

// ErrEndOfStream is returned by ChunkSource.Next when the producer is done.
var ErrEndOfStream = io.EOF

// LossReporter is implemented by sources whose transport can discard data
// before Next sees it. Any increase means the stream has a gap.
type LossReporter interface {
	// Dropped returns how many transport messages were discarded so far.
	Dropped() uint64
}
