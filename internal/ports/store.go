package ports

import (
	"context"

	"github.com/bft-labs/ladcache/internal/domain"
)

// Store holds ingested records and answers paged queries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Insert adds a record. The store may evict older records of the same
	// entity to stay within its bounds.
	Insert(ctx context.Context, rec domain.Record) error

	// Query returns one page of records matching params, most recent first
	// in params' time domain. MaxResults caps the records per entity.
	// Pass the zero Cursor for the first page and page.Next afterwards.
	Query(ctx context.Context, params domain.QueryParams, cursor domain.Cursor) (domain.ResultPage, error)
}

// StoreMaintainer is implemented by stores that can drop records on
// request.
type StoreMaintainer interface {
	// Clear drops every record.
	Clear()

	// Prune drops every record matching params and returns how many were
	// removed. MaxResults is ignored.
	Prune(ctx context.Context, params domain.QueryParams) (int, error)
}

// Reaper is implemented by stores that expire idle entities.
type Reaper interface {
	// Reap drops every entity that has not received a record within the
	// store's maximum age and returns how many records went with them.
	Reap() int
}
