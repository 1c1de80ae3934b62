package finance

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRepository defines the interface for payment persistence.
// Reads apply the caller's row scope.
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Payment, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// SumByOrder totals incoming payments for an order
	SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)

	// SumByPurchase totals outgoing payments for a purchase
	SumByPurchase(ctx context.Context, purchaseID uuid.UUID) (decimal.Decimal, error)

	Save(ctx context.Context, payment *Payment) error
}
