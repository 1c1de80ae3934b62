package logistics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// RouteRepository defines the interface for route persistence.
// Reads apply the caller's row scope.
type RouteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Route, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Route, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindCandidates returns routes visiting at least minShared of customerIDs,
	// most shared stops first, then most recently scheduled
	FindCandidates(ctx context.Context, customerIDs []uuid.UUID, minShared, limit int) ([]*Route, error)

	Save(ctx context.Context, route *Route) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PathCache keeps optimized paths computed for a stop set, keyed by StopSetKey
type PathCache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Put(ctx context.Context, key string, path json.RawMessage, ttl time.Duration) error
}
