package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/cache"
)

type doc struct {
	Value float64 `json:"value"`
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSnapshotDisabledWithoutClient(t *testing.T) {
	ctx := context.Background()
	snap := cache.NewSnapshot(nil, "k", time.Minute)

	stored, err := snap.Store(ctx, 0, doc{Value: 1})
	require.NoError(t, err)
	assert.False(t, stored)

	var out doc
	ok, err := snap.Load(ctx, &out)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, snap.Invalidate(ctx))
}

func TestSnapshotRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	snap := cache.NewSnapshot(client, cache.CurrentValuesKey, cache.CurrentValuesTTL)

	gen, err := snap.Generation(ctx)
	require.NoError(t, err)
	stored, err := snap.Store(ctx, gen, doc{Value: 21.5})
	require.NoError(t, err)
	require.True(t, stored)

	var out doc
	ok, err := snap.Load(ctx, &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 21.5, out.Value)

	mr.FastForward(2 * cache.CurrentValuesTTL)
	ok, err = snap.Load(ctx, &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotRefusesValueComputedBeforeInvalidate(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	snap := cache.NewSnapshot(client, cache.CurrentValuesKey, cache.CurrentValuesTTL)

	// A reader takes the generation, then an ingest lands before it stores.
	gen, err := snap.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, snap.Invalidate(ctx))

	stored, err := snap.Store(ctx, gen, doc{Value: 1})
	require.NoError(t, err)
	assert.False(t, stored)

	var out doc
	ok, err := snap.Load(ctx, &out)
	require.NoError(t, err)
	assert.False(t, ok, "stale value must not be cached")

	fresh, err := snap.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, fresh)
	stored, err = snap.Store(ctx, fresh, doc{Value: 2})
	require.NoError(t, err)
	assert.True(t, stored)
}
