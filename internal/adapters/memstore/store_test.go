package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/ladcache/internal/domain"
)

func channel(id string, ert int64, realtime bool) *domain.ChannelSample {
	h := domain.NewHeader()
	h.ErtMillis, h.ErtNanos = ert, 0
	h.EventTime = 1000 - ert
	return &domain.ChannelSample{RecordHeader: h, ChannelID: id, Realtime: realtime}
}

func event(name string, ert int64) *domain.EventRecord {
	h := domain.NewHeader()
	h.ErtMillis, h.ErtNanos = ert, 0
	h.EventTime = ert
	return &domain.EventRecord{RecordHeader: h, EventID: 1, Name: name, Level: "WARNING_HI"}
}

func build(t *testing.T, b *domain.QueryBuilder) domain.QueryParams {
	t.Helper()
	q, err := b.Build()
	require.NoError(t, err)
	return q
}

func ids(page domain.ResultPage) []string {
	var out []string
	for _, r := range page.Records {
		out = append(out, fmt.Sprintf("%s@%d", r.EntityID(), r.Header().ErtMillis))
	}
	return out
}

func TestStore_InsertAssignsInsertNumbers(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, b := channel("A", 1, true), event("E", 2)
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, b))

	assert.Equal(t, int64(0), a.InsertNumber)
	assert.Equal(t, int64(1), b.InsertNumber)
	assert.Equal(t, Stats{Records: 2, Entities: 2}, s.Stats())
}

func TestStore_InsertRejects(t *testing.T) {
	s := New()

	err := s.Insert(context.Background(), &domain.ChannelSample{RecordHeader: domain.NewHeader()})
	assert.ErrorIs(t, err, domain.ErrStore)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Insert(ctx, channel("A", 1, true))
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestStore_EvictsOldestPerEntity(t *testing.T) {
	s := New(WithHistoryDepth(3))
	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, s.Insert(ctx, channel("A", i, true)))
	}
	require.NoError(t, s.Insert(ctx, channel("B", 9, true)))

	q := build(t, domain.NewQueryBuilder().EntityID("A").TimeType(domain.TimeERT).MaxResults(10))
	page, err := s.Query(ctx, q, domain.Cursor{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A@5", "A@4", "A@3"}, ids(page))
	assert.False(t, page.More)
	assert.Equal(t, Stats{Records: 4, Entities: 2, Evicted: 2}, s.Stats())
}

func TestStore_QueryOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	// ERT order and event-time order are reversed in these fixtures
	for _, ert := range []int64{3, 1, 2} {
		require.NoError(t, s.Insert(ctx, channel("A", ert, true)))
	}

	tests := []struct {
		name string
		tt   domain.TimeType
		want []string
	}{
		{name: "ert", tt: domain.TimeERT, want: []string{"A@3", "A@2", "A@1"}},
		{name: "record creation", tt: domain.TimeRecordCreation, want: []string{"A@1", "A@2", "A@3"}},
		{name: "any uses creation time", tt: domain.TimeAny, want: []string{"A@1", "A@2", "A@3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := build(t, domain.NewQueryBuilder().TimeType(tt.tt).MaxResults(10))
			page, err := s.Query(ctx, q, domain.Cursor{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page))
		})
	}
}

func TestStore_TiesBrokenByInsertNumber(t *testing.T) {
	s := New()
	ctx := context.Background()
	first, second := channel("A", 7, true), channel("A", 7, true)
	require.NoError(t, s.Insert(ctx, first))
	require.NoError(t, s.Insert(ctx, second))

	q := build(t, domain.NewQueryBuilder().EntityID("A").TimeType(domain.TimeERT).MaxResults(2))
	page, err := s.Query(ctx, q, domain.Cursor{})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Same(t, second, page.Records[0])
	assert.Same(t, first, page.Records[1])
}

func TestStore_MaxResultsIsPerEntity(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, s.Insert(ctx, channel("A", i, true)))
		require.NoError(t, s.Insert(ctx, channel("B", i+10, true)))
	}

	q := build(t, domain.NewQueryBuilder().TimeType(domain.TimeERT))
	page, err := s.Query(ctx, q, domain.Cursor{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B@13", "A@3"}, ids(page))
}

func TestStore_Filters(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, channel("A", 1, true)))
	require.NoError(t, s.Insert(ctx, channel("A", 2, false)))
	require.NoError(t, s.Insert(ctx, event("A", 3)))

	tests := []struct {
		name string
		b    *domain.QueryBuilder
		want []string
	}{
		{"realtime only", domain.NewQueryBuilder().RecordedState(domain.RealtimeOnly), []string{"A@1"}},
		{"recorded source", domain.NewQueryBuilder().Source(domain.SourceRecorded).QueryType(domain.QueryChannel), []string{"A@2"}},
		{"events", domain.NewQueryBuilder().QueryType(domain.QueryEvent), []string{"A@3"}},
		{"event level", domain.NewQueryBuilder().EventLevels("warning_hi"), []string{"A@3"}},
		{"conflicting source and state", domain.NewQueryBuilder().Source(domain.SourceRealtime).RecordedState(domain.RecordedOnly), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := build(t, tt.b.TimeType(domain.TimeERT).MaxResults(10))
			page, err := s.Query(ctx, q, domain.Cursor{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page))
		})
	}
}

func TestStore_Paging(t *testing.T) {
	s := New(WithPageSize(4))
	ctx := context.Background()
	for i := int64(1); i <= 10; i++ {
		require.NoError(t, s.Insert(ctx, channel("A", i, true)))
	}
	q := build(t, domain.NewQueryBuilder().EntityID("A").TimeType(domain.TimeERT).MaxResults(10))

	var got []string
	cursor := domain.Cursor{}
	pages := 0
	for {
		page, err := s.Query(ctx, q, cursor)
		require.NoError(t, err)
		pages++
		got = append(got, ids(page)...)
		if !page.More {
			break
		}
		cursor = page.Next
	}
	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"A@10", "A@9", "A@8", "A@7", "A@6", "A@5", "A@4", "A@3", "A@2", "A@1"}, got)

	page, err := s.Query(ctx, q, domain.Cursor{Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.False(t, page.More)
}

func TestStore_ConcurrentInsertAndQuery(t *testing.T) {
	s := New(WithHistoryDepth(10))
	ctx := context.Background()
	q := build(t, domain.NewQueryBuilder().MaxResults(1))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = s.Insert(ctx, channel(fmt.Sprintf("C-%d", w), int64(i), true))
				_, _ = s.Query(ctx, q, domain.Cursor{})
			}
		}(w)
	}
	wg.Wait()

	st := s.Stats()
	assert.Equal(t, 40, st.Records)
	assert.Equal(t, 4, st.Entities)
	assert.Equal(t, uint64(760), st.Evicted)
}

func TestStore_Clear(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, channel("A", 1, true)))
	require.NoError(t, s.Insert(ctx, event("E", 2)))

	s.Clear()
	assert.Equal(t, Stats{}, s.Stats())

	page, err := s.Query(ctx, build(t, domain.NewQueryBuilder().MaxResults(10)), domain.Cursor{})
	require.NoError(t, err)
	assert.Empty(t, page.Records)

	next := channel("A", 3, true)
	require.NoError(t, s.Insert(ctx, next))
	assert.Equal(t, int64(2), next.InsertNumber)
}

func TestStore_Prune(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := int64(1); i <= 4; i++ {
		require.NoError(t, s.Insert(ctx, channel("A", i, i%2 == 0)))
	}
	require.NoError(t, s.Insert(ctx, channel("B", 5, false)))
	require.NoError(t, s.Insert(ctx, event("E", 6)))

	// MaxResults does not limit what is pruned.
	n, err := s.Prune(ctx, build(t, domain.NewQueryBuilder().QueryType(domain.QueryChannel).Source(domain.SourceRecorded)))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, Stats{Records: 3, Entities: 2, Pruned: 3}, s.Stats())

	page, err := s.Query(ctx, build(t, domain.NewQueryBuilder().TimeType(domain.TimeERT).MaxResults(10)), domain.Cursor{})
	require.NoError(t, err)
	assert.Equal(t, []string{"E@6", "A@4", "A@2"}, ids(page))

	n, err = s.Prune(ctx, build(t, domain.NewQueryBuilder().EntityID("A")))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, s.Stats().Entities)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Prune(cancelled, build(t, domain.NewQueryBuilder()))
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestStore_Reap(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	s := New(WithMaxAge(time.Minute), WithClock(clock))
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, channel("A", 1, true)))
	require.NoError(t, s.Insert(ctx, channel("A", 2, true)))
	now = now.Add(45 * time.Second)
	require.NoError(t, s.Insert(ctx, channel("B", 3, true)))

	now = now.Add(30 * time.Second)
	assert.Equal(t, 2, s.Reap())
	assert.Equal(t, Stats{Records: 1, Entities: 1, Reaped: 2}, s.Stats())

	// A fresh insert keeps an entity alive.
	require.NoError(t, s.Insert(ctx, channel("B", 4, true)))
	now = now.Add(50 * time.Second)
	assert.Equal(t, 0, s.Reap())

	now = now.Add(11 * time.Second)
	assert.Equal(t, 2, s.Reap())
	assert.Equal(t, 0, s.Stats().Entities)
}

func TestStore_ReapDisabled(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert(context.Background(), channel("A", 1, true)))
	assert.Equal(t, 0, s.Reap())
	assert.Equal(t, 1, s.Stats().Records)
}
