package localstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newOp(t *testing.T, opType string, payload any) *offline.Operation {
	t.Helper()
	op, err := offline.NewOperation(opType, payload)
	require.NoError(t, err)
	return op
}

func TestQueueRepository_InsertRejectsActiveDuplicate(t *testing.T) {
	repo := NewQueueRepository(openTestStore(t))
	ctx := context.Background()

	first := newOp(t, offline.TypeCustomerCreate, map[string]any{"code": "C1", "name": "Kiosco"})
	require.NoError(t, repo.Insert(ctx, first))

	dup := newOp(t, offline.TypeCustomerCreate, map[string]any{"name": "Kiosco", "code": "C1"})
	assert.ErrorIs(t, repo.Insert(ctx, dup), offline.ErrDuplicateOperation)

	// still suppressed while processing
	require.NoError(t, repo.MarkProcessing(ctx, first.ID))
	assert.ErrorIs(t, repo.Insert(ctx, dup), offline.ErrDuplicateOperation)

	// allowed again once the first is finished
	require.NoError(t, repo.MarkCompleted(ctx, first.ID))
	assert.NoError(t, repo.Insert(ctx, dup))
}

func TestQueueRepository_ListByStatusKeepsEnqueueOrder(t *testing.T) {
	repo := NewQueueRepository(openTestStore(t))
	ctx := context.Background()

	base := time.Now().UTC()
	var ids []uuid.UUID
	for i := range 5 {
		op := newOp(t, offline.TypeOrderCreate, map[string]any{"n": i})
		op.EnqueuedAt = base.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, repo.Insert(ctx, op))
		ids = append(ids, op.ID)
	}

	ops, err := repo.ListByStatus(ctx, offline.StatusPending, 3)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	for i, op := range ops {
		assert.Equal(t, ids[i], op.ID)
		assert.Equal(t, offline.StatusPending, op.Status)
	}

	all, err := repo.ListByStatus(ctx, offline.StatusPending, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestQueueRepository_Transitions(t *testing.T) {
	repo := NewQueueRepository(openTestStore(t))
	ctx := context.Background()

	op := newOp(t, offline.TypePaymentCreate, map[string]any{"amount": "10.00"})
	require.NoError(t, repo.Insert(ctx, op))

	t.Run("cannot complete without claiming", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkCompleted(ctx, op.ID), offline.ErrInvalidTransition)
	})

	t.Run("claim counts the attempt", func(t *testing.T) {
		require.NoError(t, repo.MarkProcessing(ctx, op.ID))
		got, err := repo.Get(ctx, op.ID)
		require.NoError(t, err)
		assert.Equal(t, offline.StatusProcessing, got.Status)
		assert.Equal(t, 1, got.Attempts)
		assert.NotNil(t, got.StartedAt)
	})

	t.Run("second claim is refused", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkProcessing(ctx, op.ID), offline.ErrNotClaimable)
	})

	t.Run("release goes back to pending with the reason", func(t *testing.T) {
		require.NoError(t, repo.Release(ctx, op.ID, "connection refused"))
		got, err := repo.Get(ctx, op.ID)
		require.NoError(t, err)
		assert.Equal(t, offline.StatusPending, got.Status)
		assert.Equal(t, "connection refused", got.LastError)
		assert.Nil(t, got.StartedAt)
	})

	t.Run("failed is terminal", func(t *testing.T) {
		require.NoError(t, repo.MarkProcessing(ctx, op.ID))
		require.NoError(t, repo.MarkFailed(ctx, op.ID, "VALIDATION_ERROR: amount"))
		got, err := repo.Get(ctx, op.ID)
		require.NoError(t, err)
		assert.Equal(t, offline.StatusFailed, got.Status)
		assert.Equal(t, 2, got.Attempts)
		assert.ErrorIs(t, repo.MarkProcessing(ctx, op.ID), offline.ErrNotClaimable)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkProcessing(ctx, uuid.New()), offline.ErrOperationNotFound)
		_, err := repo.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, offline.ErrOperationNotFound)
	})
}

func TestQueueRepository_ConcurrentClaimHasOneWinner(t *testing.T) {
	repo := NewQueueRepository(openTestStore(t))
	ctx := context.Background()

	op := newOp(t, offline.TypeOrderDeliver, map[string]any{"order_id": uuid.NewString()})
	require.NoError(t, repo.Insert(ctx, op))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.MarkProcessing(ctx, op.ID) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestQueueRepository_ReclaimStaleAndStats(t *testing.T) {
	repo := NewQueueRepository(openTestStore(t))
	ctx := context.Background()

	stuck := newOp(t, offline.TypeOrderCreate, map[string]any{"n": 1})
	done := newOp(t, offline.TypeOrderCreate, map[string]any{"n": 2})
	require.NoError(t, repo.Insert(ctx, stuck))
	require.NoError(t, repo.Insert(ctx, done))
	require.NoError(t, repo.MarkProcessing(ctx, stuck.ID))
	require.NoError(t, repo.MarkProcessing(ctx, done.ID))
	require.NoError(t, repo.MarkCompleted(ctx, done.ID))

	stats, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[offline.StatusProcessing])
	assert.Equal(t, int64(1), stats[offline.StatusCompleted])
	assert.Equal(t, int64(0), stats[offline.StatusFailed])

	n, err := repo.ReclaimStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, offline.StatusPending, got.Status)

	purged, err := repo.Purge(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	stats, err = repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total())
}

func TestCacheStore_PutGetDelete(t *testing.T) {
	cache := NewCacheStore(openTestStore(t))
	ctx := context.Background()

	_, err := cache.Get(ctx, "products")
	assert.ErrorIs(t, err, offline.ErrCacheMiss)

	require.NoError(t, cache.Put(ctx, "products", []byte(`[{"sku":"A"}]`)))
	require.NoError(t, cache.Put(ctx, "products", []byte(`[{"sku":"B"}]`)))

	got, err := cache.Get(ctx, "products")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"sku":"B"}]`, string(got))

	require.NoError(t, cache.Delete(ctx, "products"))
	require.NoError(t, cache.Delete(ctx, "products"))
	_, err = cache.Get(ctx, "products")
	assert.ErrorIs(t, err, offline.ErrCacheMiss)
}

func TestCacheStore_KeysByPrefix(t *testing.T) {
	cache := NewCacheStore(openTestStore(t))
	ctx := context.Background()

	for _, k := range []string{"route:b", "route:a", "routeX", "product:1", "route_%"} {
		require.NoError(t, cache.Put(ctx, k, []byte(`1`)))
	}

	keys, err := cache.Keys(ctx, "route:")
	require.NoError(t, err)
	assert.Equal(t, []string{"route:a", "route:b"}, keys)

	keys, err = cache.Keys(ctx, "route_")
	require.NoError(t, err)
	assert.Equal(t, []string{"route_%"}, keys)
}

// Values written before a restart are read back unchanged after it.
func TestStore_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "distribuidora.db")
	ctx := context.Background()

	type savedRoute struct {
		Stops    []string          `json:"stops"`
		Distance float64           `json:"distance"`
		Meta     map[string]string `json:"meta"`
	}
	want := savedRoute{Stops: []string{"a", "b"}, Distance: 12.5, Meta: map[string]string{"zone": "sur"}}
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewCacheStore(store).Put(ctx, "route:sur", raw))
	op := newOp(t, offline.TypeRouteCreate, want)
	require.NoError(t, NewQueueRepository(store).Insert(ctx, op))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := NewCacheStore(reopened).Get(ctx, "route:sur")
	require.NoError(t, err)
	var decoded savedRoute
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, want, decoded)

	pending, err := NewQueueRepository(reopened).ListByStatus(ctx, offline.StatusPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, op.Fingerprint, pending[0].Fingerprint)
}
