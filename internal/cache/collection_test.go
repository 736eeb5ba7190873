package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func newTestCollection(t *testing.T) (*Collection[item], *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := New(mr.Addr(), "", 0, zerolog.Nop())
	t.Cleanup(func() { _ = client.Close() })

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	col := NewCollection[item](client, KeyCars, DefaultPolicy, zerolog.Nop())
	col.now = func() time.Time { return clock }
	return col, mr, &clock
}

func TestCollection_PopulateThenHit(t *testing.T) {
	col, mr, _ := newTestCollection(t)
	ctx := context.Background()

	_, ok := col.Get(ctx)
	assert.False(t, ok)

	col.Populate(ctx, []item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}})

	got, ok := col.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, []item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}, got)
	assert.Equal(t, 5*time.Minute, mr.TTL(KeyCars))
}

func TestCollection_SlidingExpiry(t *testing.T) {
	col, mr, _ := newTestCollection(t)
	ctx := context.Background()

	col.Populate(ctx, []item{{ID: 1}})
	mr.FastForward(5*time.Minute + time.Second)

	_, ok := col.Get(ctx)
	assert.False(t, ok)
}

func TestCollection_HitSlidesTTLUpToAbsoluteDeadline(t *testing.T) {
	col, mr, clock := newTestCollection(t)
	ctx := context.Background()

	col.Populate(ctx, []item{{ID: 1}})

	mr.FastForward(4 * time.Minute)
	*clock = clock.Add(4 * time.Minute)
	_, ok := col.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, mr.TTL(KeyCars))

	mr.FastForward(4 * time.Minute)
	*clock = clock.Add(4 * time.Minute)
	_, ok = col.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, mr.TTL(KeyCars), "ttl capped by the absolute deadline")
}

func TestCollection_AbsoluteExpiry(t *testing.T) {
	col, mr, clock := newTestCollection(t)
	ctx := context.Background()

	col.Populate(ctx, []item{{ID: 1}})
	*clock = clock.Add(10*time.Minute + time.Second)

	_, ok := col.Get(ctx)
	assert.False(t, ok)
	assert.False(t, mr.Exists(KeyCars))
}

func TestCollection_CorruptPayloadIsEvicted(t *testing.T) {
	col, mr, _ := newTestCollection(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(KeyCars, "not-json"))

	_, ok := col.Get(ctx)
	assert.False(t, ok)
	assert.False(t, mr.Exists(KeyCars))
}

func TestCollection_Invalidate(t *testing.T) {
	col, mr, _ := newTestCollection(t)
	ctx := context.Background()

	col.Populate(ctx, []item{{ID: 1}})
	col.Invalidate(ctx)

	assert.False(t, mr.Exists(KeyCars))
	_, ok := col.Get(ctx)
	assert.False(t, ok)
}

func TestCollection_ReadThrough(t *testing.T) {
	col, _, _ := newTestCollection(t)
	ctx := context.Background()

	calls := 0
	load := func(ctx context.Context) ([]item, error) {
		calls++
		return []item{{ID: calls}}, nil
	}

	first, err := col.ReadThrough(ctx, load)
	require.NoError(t, err)
	second, err := col.ReadThrough(ctx, load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestCollection_ReadThroughLoadErrorCachesNothing(t *testing.T) {
	col, mr, _ := newTestCollection(t)
	ctx := context.Background()

	_, err := col.ReadThrough(ctx, func(ctx context.Context) ([]item, error) {
		return nil, errors.New("db down")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists(KeyCars))
}

func TestCollection_RedisDownFallsThroughToLoader(t *testing.T) {
	col, mr, _ := newTestCollection(t)
	ctx := context.Background()
	mr.Close()

	got, err := col.ReadThrough(ctx, func(ctx context.Context) ([]item, error) {
		return []item{{ID: 7}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: 7}}, got)

	col.Invalidate(ctx)
}

func TestCollection_NilClientIsAlwaysMiss(t *testing.T) {
	col := NewCollection[item](nil, KeyCars, DefaultPolicy, zerolog.Nop())
	ctx := context.Background()

	col.Populate(ctx, []item{{ID: 1}})
	_, ok := col.Get(ctx)
	assert.False(t, ok)
}

func TestCollection_InvalidateDuringLoadSkipsStalePopulate(t *testing.T) {
	col, mr, _ := newTestCollection(t)
	ctx := context.Background()

	stale, err := col.ReadThrough(ctx, func(ctx context.Context) ([]item, error) {
		snapshot := []item{{ID: 1, Name: "before write"}}
		// a writer commits and invalidates while this reader is still loading
		col.Invalidate(ctx)
		return snapshot, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: 1, Name: "before write"}}, stale)

	assert.False(t, mr.Exists(KeyCars), "stale snapshot must not be cached")
	_, ok := col.Get(ctx)
	assert.False(t, ok)

	fresh, err := col.ReadThrough(ctx, func(ctx context.Context) ([]item, error) {
		return []item{{ID: 1, Name: "after write"}}, nil
	})
	require.NoError(t, err)
	got, ok := col.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, fresh, got)
}

func TestCollection_InvalidateBumpsGeneration(t *testing.T) {
	col, mr, _ := newTestCollection(t)
	ctx := context.Background()

	col.Invalidate(ctx)
	col.Invalidate(ctx)

	gen, err := mr.Get(KeyCars + ":gen")
	require.NoError(t, err)
	assert.Equal(t, "2", gen)
}
