package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/distribuidora/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first mark wins", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "key-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)

		done, err := store.IsProcessed(ctx, "key-1")
		require.NoError(t, err)
		assert.True(t, done)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "key-2", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		done, err := store.IsProcessed(ctx, "key-2")
		require.NoError(t, err)
		assert.False(t, done)

		isNew, err = store.MarkProcessed(ctx, "key-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("forget releases the key", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "key-3", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Forget(ctx, "key-3"))

		isNew, err := store.MarkProcessed(ctx, "key-3", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(context.Background(), "same-fingerprint", time.Hour)
			if err == nil && isNew {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, 1, store.Size())
}

func TestTTLMap_Sweep(t *testing.T) {
	m := newTTLMap[int](time.Hour)
	defer m.close()

	m.set("short", 1, time.Millisecond)
	m.set("long", 2, time.Hour)
	time.Sleep(5 * time.Millisecond)
	m.sweep()

	assert.Equal(t, 1, m.size())
	v, ok := m.get("long")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	// close is idempotent
	m.close()
}

func TestInMemoryRoutePathCache(t *testing.T) {
	c := NewInMemoryRoutePathCache()
	defer c.Close()
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "a,b")
	require.NoError(t, err)
	assert.False(t, ok)

	path := json.RawMessage(`[{"lat":-34.6,"lng":-58.4}]`)
	require.NoError(t, c.Put(ctx, "a,b", path, time.Hour))
	path[0] = 'X'

	got, ok, err := c.Get(ctx, "a,b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"lat":-34.6,"lng":-58.4}]`, string(got))
}

func TestConnect_DisabledUsesInMemory(t *testing.T) {
	backends, err := Connect(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	defer backends.Close()

	assert.Nil(t, backends.Client)
	assert.IsType(t, &InMemoryIdempotencyStore{}, backends.Idempotency)
	assert.IsType(t, &InMemoryRoutePathCache{}, backends.RoutePaths)
}

func TestConnect_UnreachableRedis(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	backends, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, backends.Client)
	_ = backends.Close()

	_, err = Connect(context.Background(), cfg, WithInMemoryFallback(false))
	assert.Error(t, err)
}
