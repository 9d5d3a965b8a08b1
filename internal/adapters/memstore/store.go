// Package memstore implements ports.Store as a bounded in-memory cache.
//
// Each entity keeps a fixed-depth history of its most recently inserted
// records. Older records are evicted on insert. Queries filter, order by the
// requested time domain and return results in pages. Entities that stop
// receiving records can be reaped after a maximum age.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bft-labs/ladcache/internal/domain"
)

const (
	// DefaultHistoryDepth is the number of records kept per entity.
	DefaultHistoryDepth = 100

	// DefaultPageSize is the number of records returned per Query call.
	DefaultPageSize = 256
)

type entityKey struct {
	kind domain.Kind
	id   string
}

// history is a ring of one entity's records in insertion order.
type history struct {
	recs       []domain.Record
	start      int
	lastInsert time.Time
}

func (h *history) add(rec domain.Record, depth int) (evicted bool) {
	if len(h.recs) < depth {
		h.recs = append(h.recs, rec)
		return false
	}
	h.recs[h.start] = rec
	h.start = (h.start + 1) % len(h.recs)
	return true
}

func (h *history) each(fn func(domain.Record)) {
	for i := range h.recs {
		fn(h.recs[(h.start+i)%len(h.recs)])
	}
}

// retain keeps the records for which keep returns true, in order, and
// returns how many were removed.
func (h *history) retain(keep func(domain.Record) bool) int {
	kept := make([]domain.Record, 0, len(h.recs))
	h.each(func(rec domain.Record) {
		if keep(rec) {
			kept = append(kept, rec)
		}
	})
	removed := len(h.recs) - len(kept)
	h.recs, h.start = kept, 0
	return removed
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryDepth sets how many records are kept per entity.
func WithHistoryDepth(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.depth = n
		}
	}
}

// WithPageSize sets how many records one Query call returns at most.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxAge makes Reap drop every entity that has not received a record
// for d. Zero disables reaping.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithClock replaces time.Now for insert times and reaping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a bounded, thread-safe record cache.
type Store struct {
	mu         sync.RWMutex
	entities   map[entityKey]*history
	depth      int
	pageSize   int
	maxAge     time.Duration
	now        func() time.Time
	nextInsert int64
	size       int
	evicted    uint64
	pruned     uint64
	reaped     uint64
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entities: make(map[entityKey]*history),
		depth:    DefaultHistoryDepth,
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert stores rec and assigns its insert number. The store takes ownership
// of rec.
func (s *Store) Insert(ctx context.Context, rec domain.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	if rec == nil || rec.EntityID() == "" {
		return fmt.Errorf("%w: record without entity id", domain.ErrStore)
	}

	key := entityKey{kind: rec.Kind(), id: rec.EntityID()}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Header().InsertNumber = s.nextInsert
	s.nextInsert++

	h, ok := s.entities[key]
	if !ok {
		h = &history{}
		s.entities[key] = h
	}
	h.lastInsert = s.now()
	if h.add(rec, s.depth) {
		s.evicted++
	} else {
		s.size++
	}
	return nil
}

// Query returns one page of matches. Each entity contributes at most
// params.MaxResults records, its most recent in params' time domain. The
// page is ordered most recent first across entities, insert number breaking
// ties. Cursors index into a fresh snapshot on every call, so concurrent
// inserts may shift later pages.
func (s *Store) Query(ctx context.Context, params domain.QueryParams, cursor domain.Cursor) (domain.ResultPage, error) {
	if err := ctx.Err(); err != nil {
		return domain.ResultPage{}, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	if cursor.Offset < 0 {
		return domain.ResultPage{}, fmt.Errorf("%w: negative cursor %d", domain.ErrStore, cursor.Offset)
	}

	tt := params.TimeType()
	matches := s.collect(params)
	slices.SortStableFunc(matches, func(a, b domain.Record) int {
		return compareDesc(a.Header(), b.Header(), tt)
	})

	if cursor.Offset >= len(matches) {
		return domain.ResultPage{}, nil
	}
	end := min(cursor.Offset+s.pageSize, len(matches))
	page := domain.ResultPage{
		Records: slices.Clone(matches[cursor.Offset:end]),
		More:    end < len(matches),
	}
	if page.More {
		page.Next = domain.Cursor{Offset: end}
	}
	return page, nil
}

func (s *Store) collect(params domain.QueryParams) []domain.Record {
	tt := params.TimeType()
	limit := params.MaxResults()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Record
	visit := func(h *history) {
		var hits []domain.Record
		h.each(func(rec domain.Record) {
			if params.Matches(rec) {
				hits = append(hits, rec)
			}
		})
		if len(hits) == 0 {
			return
		}
		slices.SortStableFunc(hits, func(a, b domain.Record) int {
			return compareDesc(a.Header(), b.Header(), tt)
		})
		if len(hits) > limit {
			hits = hits[:limit]
		}
		out = append(out, hits...)
	}

	if id := params.EntityID(); id != "" {
		for _, k := range []domain.Kind{domain.KindChannel, domain.KindEvent} {
			if h, ok := s.entities[entityKey{kind: k, id: id}]; ok {
				visit(h)
			}
		}
		return out
	}
	for _, h := range s.entities {
		visit(h)
	}
	return out
}

// Clear removes every record. Insert numbers keep increasing.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entities)
	s.size = 0
}

// Prune removes every record params matches, regardless of its result cap,
// and returns how many were removed. Entities left empty are dropped.
func (s *Store) Prune(ctx context.Context, params domain.QueryParams) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, h := range s.entities {
		if id := params.EntityID(); id != "" && key.id != id {
			continue
		}
		removed += h.retain(func(rec domain.Record) bool { return !params.Matches(rec) })
		if len(h.recs) == 0 {
			delete(s.entities, key)
		}
	}
	s.size -= removed
	s.pruned += uint64(removed)
	return removed, nil
}

// Reap drops every entity whose last insert is older than the maximum age
// and returns how many records went with them. It does nothing unless the
// store was built WithMaxAge.
func (s *Store) Reap() int {
	if s.maxAge <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, h := range s.entities {
		if h.lastInsert.Before(cutoff) {
			removed += len(h.recs)
			delete(s.entities, key)
		}
	}
	s.size -= removed
	s.reaped += uint64(removed)
	return removed
}

// compareDesc orders a before b when a is more recent in domain tt.
func compareDesc(a, b *domain.RecordHeader, tt domain.TimeType) int {
	ka, kb := a.Key(tt), b.Key(tt)
	switch {
	case kb.Before(ka):
		return -1
	case ka.Before(kb):
		return 1
	case a.InsertNumber > b.InsertNumber:
		return -1
	case a.InsertNumber < b.InsertNumber:
		return 1
	default:
		return 0
	}
}

// Stats describes the store's contents.
type Stats struct {
	Records  int
	Entities int
	Evicted  uint64
	Pruned   uint64
	Reaped   uint64
}

// Stats returns a snapshot of the store's counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Records:  s.size,
		Entities: len(s.entities),
		Evicted:  s.evicted,
		Pruned:   s.pruned,
		Reaped:   s.reaped,
	}
}
