package partner

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerRepository persists customers. Lookups return shared.ErrNotFound
// for unknown ids or codes; Save fails with shared.ErrConcurrencyConflict when
// the stored version moved on.
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	// FindByCode is case insensitive
	FindByCode(ctx context.Context, code string) (*Customer, error)
	// FindByIDs skips ids that do not exist
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Customer, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Customer, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SupplierRepository is the supplier counterpart of CustomerRepository
type SupplierRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Supplier, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, supplier *Supplier) error
	Delete(ctx context.Context, id uuid.UUID) error
}
