package event

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryOutboxRepo is an in-memory shared.OutboxRepository
type memoryOutboxRepo struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newMemoryOutboxRepo() *memoryOutboxRepo {
	return &memoryOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memoryOutboxRepo) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *memoryOutboxRepo) byStatus(status shared.OutboxStatus) []*shared.OutboxEntry {
	var result []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == status {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

func (r *memoryOutboxRepo) FindPending(_ context.Context, limit int) ([]*shared.OutboxEntry, error) {
	result := r.byStatus(shared.OutboxStatusPending)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memoryOutboxRepo) FindRetryable(context.Context, time.Time, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutboxRepo) MarkProcessing(context.Context, []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memoryOutboxRepo) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	result := r.byStatus(shared.OutboxStatusDead)
	total := int64(len(result))
	start := (page - 1) * pageSize
	if start >= len(result) {
		return nil, total, nil
	}
	end := min(start+pageSize, len(result))
	return result[start:end], total, nil
}

func (r *memoryOutboxRepo) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryOutboxRepo) Update(_ context.Context, entry *shared.OutboxEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *memoryOutboxRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *memoryOutboxRepo) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (r *memoryOutboxRepo) add(status shared.OutboxStatus) *shared.OutboxEntry {
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "order.created",
		AggregateID:   uuid.New(),
		AggregateType: "Order",
		Status:        status,
		MaxRetries:    5,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if status == shared.OutboxStatusDead {
		entry.RetryCount = 5
		entry.LastError = "broker unreachable"
	}
	r.entries[entry.ID] = entry
	return entry
}

func TestOutboxService_GetDeadLetterEntries(t *testing.T) {
	repo := newMemoryOutboxRepo()
	service := NewOutboxService(repo, zap.NewNop())
	for range 5 {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusPending)

	result, err := service.GetDeadLetterEntries(context.Background(), OutboxFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, 3, result.TotalPages)
	assert.Len(t, result.Items, 2)
	for _, entry := range result.Items {
		assert.Equal(t, "DEAD", entry.Status)
	}
}

func TestOutboxService_RetryDeadEntry(t *testing.T) {
	repo := newMemoryOutboxRepo()
	service := NewOutboxService(repo, nil)
	dead := repo.add(shared.OutboxStatusDead)

	result, err := service.RetryDeadEntry(context.Background(), dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", result.Status)
	assert.Zero(t, result.RetryCount)
	assert.Empty(t, result.LastError)

	t.Run("not found", func(t *testing.T) {
		_, err := service.RetryDeadEntry(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("entry not dead", func(t *testing.T) {
		pending := repo.add(shared.OutboxStatusPending)
		_, err := service.RetryDeadEntry(context.Background(), pending.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestOutboxService_RetryAllDeadEntries(t *testing.T) {
	repo := newMemoryOutboxRepo()
	service := NewOutboxService(repo, nil)
	for range 3 {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusSent)

	count, err := service.RetryAllDeadEntries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Empty(t, repo.byStatus(shared.OutboxStatusDead))
	assert.Len(t, repo.byStatus(shared.OutboxStatusPending), 3)
}

func TestOutboxService_GetStats(t *testing.T) {
	repo := newMemoryOutboxRepo()
	service := NewOutboxService(repo, nil)
	for _, status := range []shared.OutboxStatus{
		shared.OutboxStatusPending,
		shared.OutboxStatusPending,
		shared.OutboxStatusProcessing,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusSent,
		shared.OutboxStatusFailed,
		shared.OutboxStatusDead,
	} {
		repo.add(status)
	}

	stats, err := service.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(3), stats.Sent)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Dead)
	assert.Equal(t, int64(4), stats.Backlog)
	assert.Equal(t, int64(8), stats.Total)
}
