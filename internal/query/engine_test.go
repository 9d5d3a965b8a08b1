package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/ladcache/internal/adapters/log"
	"github.com/bft-labs/ladcache/internal/adapters/memstore"
	"github.com/bft-labs/ladcache/internal/domain"
)

func sample(id string, ert, created int64, realtime bool) *domain.ChannelSample {
	h := domain.NewHeader()
	h.ErtMillis, h.ErtNanos = ert, 0
	h.EventTime = created
	return &domain.ChannelSample{RecordHeader: h, ChannelID: id, Realtime: realtime}
}

func seeded(t *testing.T, opts []memstore.Option, recs ...domain.Record) *memstore.Store {
	t.Helper()
	s := memstore.New(opts...)
	for _, r := range recs {
		require.NoError(t, s.Insert(context.Background(), r))
	}
	return s
}

func ertOf(recs []domain.Record) []int64 {
	var out []int64
	for _, r := range recs {
		out = append(out, r.Header().ErtMillis)
	}
	return out
}

// countingStore wraps a store and counts Query calls.
type countingStore struct {
	*memstore.Store
	calls int
	err   error
	delay time.Duration
}

func (c *countingStore) Query(ctx context.Context, q domain.QueryParams, cur domain.Cursor) (domain.ResultPage, error) {
	c.calls++
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return domain.ResultPage{}, ctx.Err()
		}
	}
	if c.err != nil {
		return domain.ResultPage{}, c.err
	}
	return c.Store.Query(ctx, q, cur)
}

func TestHistory_TenRecordsMaxFive(t *testing.T) {
	var recs []domain.Record
	// insert out of ERT order
	for _, ert := range []int64{4, 9, 1, 7, 10, 2, 8, 3, 6, 5} {
		recs = append(recs, sample("A-1234", ert, 100, true))
	}
	recs = append(recs, sample("B-0001", 99, 100, true))
	e := NewEngine(seeded(t, nil, recs...), log.NewNoopLogger())

	q, err := domain.NewQueryBuilder().
		TimeType(domain.TimeERT).
		EntityID("A-1234").
		MaxResults(5).
		Build()
	require.NoError(t, err)

	got, err := e.History(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 9, 8, 7, 6}, ertOf(got))
	for _, r := range got {
		assert.Equal(t, "A-1234", r.EntityID())
	}
}

func TestHistory_PagesUntilSatisfied(t *testing.T) {
	var recs []domain.Record
	for i := int64(1); i <= 20; i++ {
		recs = append(recs, sample("A", i, i, true))
	}
	store := &countingStore{Store: seeded(t, []memstore.Option{memstore.WithPageSize(3)}, recs...)}
	e := NewEngine(store, log.NewNoopLogger())

	q, err := domain.NewQueryBuilder().TimeType(domain.TimeERT).EntityID("A").MaxResults(7).Build()
	require.NoError(t, err)

	got, err := e.History(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 19, 18, 17, 16, 15, 14}, ertOf(got))
	assert.Equal(t, 3, store.calls)
}

func TestHistory_StopsWhenStoreExhausted(t *testing.T) {
	store := &countingStore{Store: seeded(t, []memstore.Option{memstore.WithPageSize(2)},
		sample("A", 1, 1, true), sample("A", 2, 2, true), sample("A", 3, 3, false))}
	e := NewEngine(store, log.NewNoopLogger())

	q, err := domain.NewQueryBuilder().TimeType(domain.TimeERT).EntityID("A").MaxResults(50).Build()
	require.NoError(t, err)

	got, err := e.History(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, ertOf(got))
	assert.Equal(t, 2, store.calls)
}

func TestHistory_ValidationBeforeStore(t *testing.T) {
	tests := []struct {
		name string
		b    *domain.QueryBuilder
	}{
		{name: "missing entity", b: domain.NewQueryBuilder().TimeType(domain.TimeERT)},
		{name: "time type any", b: domain.NewQueryBuilder().EntityID("A")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &countingStore{Store: memstore.New()}
			e := NewEngine(store, log.NewNoopLogger())
			q, err := tt.b.Build()
			require.NoError(t, err)

			_, err = e.History(context.Background(), q)
			var qe *QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, "history", qe.Op)
			assert.ErrorIs(t, err, domain.ErrInvalidQuery)
			assert.Zero(t, store.calls)
		})
	}
}

func TestHistory_StoreErrorWrapped(t *testing.T) {
	store := &countingStore{Store: memstore.New(), err: errors.New("disk on fire")}
	e := NewEngine(store, log.NewNoopLogger())
	q, err := domain.NewQueryBuilder().TimeType(domain.TimeSCET).EntityID("A").Build()
	require.NoError(t, err)

	_, err = e.History(context.Background(), q)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, 1, store.calls, "store errors are not retried")
}

func TestHistory_DeadlineWithNothingGathered(t *testing.T) {
	store := &countingStore{Store: memstore.New(), delay: time.Second}
	e := NewEngine(store, log.NewNoopLogger(), WithTimeout(10*time.Millisecond))
	q, err := domain.NewQueryBuilder().TimeType(domain.TimeERT).EntityID("A").Build()
	require.NoError(t, err)

	_, err = e.History(context.Background(), q)
	assert.ErrorIs(t, err, domain.ErrDeadline)
}

// slowSecondPage answers the first page at once and blocks on later ones.
type slowSecondPage struct {
	countingStore
}

func (s *slowSecondPage) Query(ctx context.Context, q domain.QueryParams, cur domain.Cursor) (domain.ResultPage, error) {
	if cur.Offset > 0 {
		s.delay = time.Second
	}
	return s.countingStore.Query(ctx, q, cur)
}

func TestHistory_DeadlineReturnsPartial(t *testing.T) {
	var recs []domain.Record
	for i := int64(1); i <= 6; i++ {
		recs = append(recs, sample("A", i, i, true))
	}
	store := &slowSecondPage{countingStore{Store: seeded(t, []memstore.Option{memstore.WithPageSize(2)}, recs...)}}
	e := NewEngine(store, log.NewNoopLogger(), WithTimeout(20*time.Millisecond))
	q, err := domain.NewQueryBuilder().TimeType(domain.TimeERT).EntityID("A").MaxResults(6).Build()
	require.NoError(t, err)

	got, err := e.History(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 5}, ertOf(got))
}

func TestLatest_OnePerEntity(t *testing.T) {
	store := seeded(t, []memstore.Option{memstore.WithPageSize(1)},
		sample("A", 1, 10, true),
		sample("A", 5, 20, false),
		sample("B", 3, 15, true),
		sample("C", 2, 5, false),
	)
	e := NewEngine(store, log.NewNoopLogger())

	// source, recorded state, time type and cap are overridden
	q, err := domain.NewQueryBuilder().
		Source(domain.SourceRealtime).
		RecordedState(domain.RealtimeOnly).
		TimeType(domain.TimeERT).
		Lower(domain.TimeKey{Major: 100}).
		MaxResults(10).
		Build()
	require.NoError(t, err)

	got, err := e.Latest(context.Background(), q)
	require.NoError(t, err)

	var ids []string
	for _, r := range got {
		ids = append(ids, fmt.Sprintf("%s@%d", r.EntityID(), r.Header().EventTime))
	}
	assert.Equal(t, []string{"A@20", "B@15", "C@5"}, ids)
}

func TestLatest_KeepsOtherFilters(t *testing.T) {
	store := seeded(t, nil, sample("A", 1, 10, true), sample("B", 1, 10, true))
	e := NewEngine(store, log.NewNoopLogger())

	q, err := domain.NewQueryBuilder().EntityPatterns("^B$").Build()
	require.NoError(t, err)

	got, err := e.Latest(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].EntityID())
}

func TestTimeTypeFor(t *testing.T) {
	tests := []struct {
		s    ComparisonStrategy
		want domain.TimeType
	}{
		{LastReceived, domain.TimeRecordCreation},
		{CompareERT, domain.TimeERT},
		{CompareSCET, domain.TimeSCET},
		{CompareSCLK, domain.TimeSCLK},
	}
	for _, tt := range tests {
		t.Run(tt.s.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, TimeTypeFor(tt.s))
		})
	}

	assert.Panics(t, func() { TimeTypeFor(ComparisonStrategy(99)) })
}

func TestParseComparisonStrategy(t *testing.T) {
	s, err := ParseComparisonStrategy(" SCLK ")
	require.NoError(t, err)
	assert.Equal(t, CompareSCLK, s)

	_, err = ParseComparisonStrategy("lst")
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}
