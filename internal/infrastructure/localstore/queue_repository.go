package localstore

import (
	"context"
	"errors"
	"time"

	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueRepository implements offline.QueueRepository on SQLite
type QueueRepository struct {
	db *gorm.DB
}

// NewQueueRepository creates a QueueRepository over the store
func NewQueueRepository(store *Store) *QueueRepository {
	return &QueueRepository{db: store.DB}
}

// Insert stores a pending operation. The partial unique index on active
// fingerprints turns a concurrent duplicate into offline.ErrDuplicateOperation.
func (r *QueueRepository) Insert(ctx context.Context, op *offline.Operation) error {
	err := r.db.WithContext(ctx).Create(operationFromDomain(op)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return offline.ErrDuplicateOperation
	}
	return err
}

// Get loads one operation
func (r *QueueRepository) Get(ctx context.Context, id uuid.UUID) (*offline.Operation, error) {
	var m operationModel
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, offline.ErrOperationNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

// ListByStatus returns operations oldest first; limit <= 0 means no limit
func (r *QueueRepository) ListByStatus(ctx context.Context, status offline.Status, limit int) ([]*offline.Operation, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("enqueued_at ASC, rowid ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []operationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	ops := make([]*offline.Operation, len(rows))
	for i := range rows {
		ops[i] = rows[i].toDomain()
	}
	return ops, nil
}

// MarkProcessing claims a pending operation and counts the attempt
func (r *QueueRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	return r.transition(ctx, id, offline.StatusPending, offline.StatusProcessing, map[string]any{
		"status":       offline.StatusProcessing,
		"started_at":   now,
		"completed_at": nil,
		"attempts":     gorm.Expr("attempts + 1"),
	})
}

// MarkCompleted finishes a processing operation
func (r *QueueRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, offline.StatusProcessing, offline.StatusCompleted, map[string]any{
		"status":       offline.StatusCompleted,
		"completed_at": time.Now().UTC(),
		"last_error":   "",
	})
}

// MarkFailed finishes a processing operation with the rejection reason
func (r *QueueRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.transition(ctx, id, offline.StatusProcessing, offline.StatusFailed, map[string]any{
		"status":       offline.StatusFailed,
		"completed_at": time.Now().UTC(),
		"last_error":   reason,
	})
}

// Release returns a processing operation to pending after a transient failure
func (r *QueueRepository) Release(ctx context.Context, id uuid.UUID, reason string) error {
	return r.transition(ctx, id, offline.StatusProcessing, offline.StatusPending, map[string]any{
		"status":     offline.StatusPending,
		"started_at": nil,
		"last_error": reason,
	})
}

// transition applies a conditional status update. A missing row reports
// ErrOperationNotFound; a row in another status reports ErrNotClaimable when
// claiming and ErrInvalidTransition otherwise.
func (r *QueueRepository) transition(ctx context.Context, id uuid.UUID, from, to offline.Status, updates map[string]any) error {
	if !from.CanTransitionTo(to) {
		return offline.ErrInvalidTransition
	}
	result := r.db.WithContext(ctx).
		Model(&operationModel{}).
		Where("id = ? AND status = ?", id.String(), from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	if from == offline.StatusPending {
		return offline.ErrNotClaimable
	}
	return offline.ErrInvalidTransition
}

// ReclaimStale moves operations stuck in processing since before olderThan back to pending
func (r *QueueRepository) ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&operationModel{}).
		Where("status = ? AND started_at < ?", offline.StatusProcessing, olderThan.UTC()).
		Updates(map[string]any{
			"status":     offline.StatusPending,
			"started_at": nil,
			"last_error": "reclaimed after interrupted replay",
		})
	return result.RowsAffected, result.Error
}

// CountByStatus counts operations per status; every status is present
func (r *QueueRepository) CountByStatus(ctx context.Context) (offline.Stats, error) {
	var rows []struct {
		Status offline.Status
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&operationModel{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	stats := make(offline.Stats, len(offline.AllStatuses))
	for _, s := range offline.AllStatuses {
		stats[s] = 0
	}
	for _, row := range rows {
		stats[row.Status] = row.Count
	}
	return stats, nil
}

// Purge deletes completed operations finished before olderThan
func (r *QueueRepository) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND completed_at < ?", offline.StatusCompleted, olderThan.UTC()).
		Delete(&operationModel{})
	return result.RowsAffected, result.Error
}

var _ offline.QueueRepository = (*QueueRepository)(nil)
