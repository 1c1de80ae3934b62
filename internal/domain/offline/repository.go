package offline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Stats counts operations per status
type Stats map[Status]int64

// Total sums every status
func (s Stats) Total() int64 {
	var total int64
	for _, n := range s {
		total += n
	}
	return total
}

// QueueRepository persists queued operations.
// Status changes are conditional on the current status so concurrent replays cannot both claim an operation.
type QueueRepository interface {
	// Insert stores a pending operation, or returns ErrDuplicateOperation if an
	// active operation with the same fingerprint exists
	Insert(ctx context.Context, op *Operation) error
	Get(ctx context.Context, id uuid.UUID) (*Operation, error)

	// ListByStatus returns operations oldest first; limit <= 0 means no limit
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Operation, error)

	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Release(ctx context.Context, id uuid.UUID, reason string) error

	// ReclaimStale moves operations stuck in processing since before olderThan back to pending
	ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error)
	CountByStatus(ctx context.Context) (Stats, error)
	// Purge deletes completed operations finished before olderThan
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// CacheStore is a local key-value store of JSON documents that survives restarts
type CacheStore interface {
	Put(ctx context.Context, key string, value []byte) error
	// Get returns ErrCacheMiss for an unknown key
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
