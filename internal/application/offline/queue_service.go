// Package offline implements the agent side of offline operation: the
// mutation queue, its replay against the server and connectivity tracking.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueueService accepts write intents while offline and exposes the queue
// state machine to the replayer and the local API
type QueueService struct {
	repo   offline.QueueRepository
	cache  offline.CacheStore
	logger *zap.Logger
}

// NewQueueService creates a new QueueService
func NewQueueService(repo offline.QueueRepository, cache offline.CacheStore, logger *zap.Logger) *QueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{repo: repo, cache: cache, logger: logger}
}

// Enqueue persists a pending operation and returns it. When an operation with
// the same fingerprint is still pending or processing it returns nil, nil.
func (s *QueueService) Enqueue(ctx context.Context, operationType string, payload any) (*offline.Operation, error) {
	op, err := offline.NewOperation(operationType, payload)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, op); err != nil {
		if errors.Is(err, offline.ErrDuplicateOperation) {
			s.logger.Debug("duplicate operation suppressed",
				zap.String("operation_type", operationType),
				zap.String("fingerprint", op.Fingerprint),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("enqueue %s: %w", operationType, err)
	}
	s.logger.Info("operation enqueued",
		zap.String("operation_id", op.ID.String()),
		zap.String("operation_type", operationType),
	)
	return op, nil
}

// Get returns one operation
func (s *QueueService) Get(ctx context.Context, id uuid.UUID) (*offline.Operation, error) {
	return s.repo.Get(ctx, id)
}

// ListPending returns pending operations oldest first, at most limit
func (s *QueueService) ListPending(ctx context.Context, limit int) ([]*offline.Operation, error) {
	return s.repo.ListByStatus(ctx, offline.StatusPending, limit)
}

// ListFailed returns operations the server rejected
func (s *QueueService) ListFailed(ctx context.Context, limit int) ([]*offline.Operation, error) {
	return s.repo.ListByStatus(ctx, offline.StatusFailed, limit)
}

// List returns operations in a status
func (s *QueueService) List(ctx context.Context, status offline.Status, limit int) ([]*offline.Operation, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return s.repo.ListByStatus(ctx, status, limit)
}

// MarkProcessing claims a pending operation
func (s *QueueService) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkProcessing(ctx, id)
}

// MarkCompleted records a successful dispatch
func (s *QueueService) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkCompleted(ctx, id)
}

// MarkFailed records a permanent rejection. Failed operations are never retried.
func (s *QueueService) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return s.repo.MarkFailed(ctx, id, reason)
}

// Release puts a processing operation back to pending after a transient failure
func (s *QueueService) Release(ctx context.Context, id uuid.UUID, reason string) error {
	return s.repo.Release(ctx, id, reason)
}

// ReclaimStale recovers operations left in processing by an interrupted replay
func (s *QueueService) ReclaimStale(ctx context.Context, staleAfter time.Duration) (int64, error) {
	n, err := s.repo.ReclaimStale(ctx, time.Now().Add(-staleAfter))
	if err == nil && n > 0 {
		s.logger.Warn("reclaimed stale operations", zap.Int64("count", n))
	}
	return n, err
}

// Stats counts operations per status
func (s *QueueService) Stats(ctx context.Context) (offline.Stats, error) {
	return s.repo.CountByStatus(ctx)
}

// Purge removes completed operations older than the retention
func (s *QueueService) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.Purge(ctx, time.Now().Add(-retention))
}

// CacheData stores value as JSON under key
func (s *QueueService) CacheData(ctx context.Context, key string, value any) error {
	if key == "" {
		return errors.New("cache key is required")
	}
	var raw []byte
	switch v := value.(type) {
	case json.RawMessage:
		if !json.Valid(v) {
			return errors.New("cache value is not valid JSON")
		}
		raw = v
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode cache value %s: %w", key, err)
		}
		raw = b
	}
	return s.cache.Put(ctx, key, raw)
}

// GetCachedData decodes the value under key into dest.
// A missing key returns offline.ErrCacheMiss.
func (s *QueueService) GetCachedData(ctx context.Context, key string, dest any) error {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return err
	}
	if rm, ok := dest.(*json.RawMessage); ok {
		*rm = append((*rm)[:0], raw...)
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode cache value %s: %w", key, err)
	}
	return nil
}

// DeleteCachedData removes key
func (s *QueueService) DeleteCachedData(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}
