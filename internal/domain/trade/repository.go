package trade

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRepository defines the interface for order persistence.
// Reads apply the caller's row scope taken from the context.
type OrderRepository interface {
	// FindByID finds an order with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByNumber finds an order by its number
	FindByNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindAll lists orders matching the filter (items not loaded)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)

	// Count counts orders matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// NextOrderNumber allocates a new order number
	NextOrderNumber(ctx context.Context) (string, error)

	// Save creates an order with its items, or updates it with an optimistic version check
	Save(ctx context.Context, order *Order) error
}

// PurchaseRepository defines the interface for purchase persistence
type PurchaseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Purchase, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Purchase, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	NextPurchaseNumber(ctx context.Context) (string, error)
	Save(ctx context.Context, purchase *Purchase) error
}
