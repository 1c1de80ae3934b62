package persistence

import (
	"context"
	"time"

	"github.com/distribuidora/backend/internal/domain/finance"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/datascope"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPaymentRepository implements finance.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment within the caller's scope
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Payment, error) {
	var model models.PaymentModel
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Scopes(datascope.Scope(ctx, identity.ResourcePayment)).
			Where("payments.id = ?", id).
			First(&model).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists payments matching the filter
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]finance.Payment, error) {
	var paymentModels []models.PaymentModel
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		query := r.applyFilter(tx.Model(&models.PaymentModel{}).Scopes(datascope.Scope(ctx, identity.ResourcePayment)), filter)
		return applyPagination(query, filter, paymentSort, "paid_at").Find(&paymentModels).Error
	})
	if err != nil {
		return nil, err
	}
	payments := make([]finance.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// Count counts payments matching the filter
func (r *GormPaymentRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		query := tx.Model(&models.PaymentModel{}).Scopes(datascope.Scope(ctx, identity.ResourcePayment))
		return r.applyFilter(query, filter).Count(&count).Error
	})
	return count, err
}

// SumByOrder totals the payments recorded against an order. The order itself
// is scope-checked by the caller; the total spans every payer so the
// outstanding balance is right.
func (r *GormPaymentRepository) SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, "order_id = ?", orderID)
}

// SumByPurchase totals the payments recorded against a purchase
func (r *GormPaymentRepository) SumByPurchase(ctx context.Context, purchaseID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, "purchase_id = ?", purchaseID)
}

func (r *GormPaymentRepository) sum(ctx context.Context, query string, arg any) (decimal.Decimal, error) {
	total := decimal.Zero
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Model(&models.PaymentModel{}).
			Select("COALESCE(SUM(amount), 0)").
			Where(query, arg).
			Row().Scan(&total)
	})
	return total, err
}

// Save records a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *finance.Payment) error {
	return withSession(ctx, r.db, func(tx *gorm.DB) error {
		return saveAggregate(tx, models.PaymentModelFromDomain(payment), payment.ID, &payment.BaseAggregateRoot)
	})
}

func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if v, ok := filterUUID(filter, "order_id"); ok {
		query = query.Where("payments.order_id = ?", v)
	}
	if v, ok := filterUUID(filter, "purchase_id"); ok {
		query = query.Where("payments.purchase_id = ?", v)
	}
	if v, ok := filterString(filter, "direction"); ok {
		query = query.Where("payments.direction = ?", v)
	}
	if v, ok := filterString(filter, "method"); ok {
		query = query.Where("payments.method = ?", v)
	}
	if v, ok := filter.Filters["from"].(time.Time); ok {
		query = query.Where("payments.paid_at >= ?", v)
	}
	if v, ok := filter.Filters["to"].(time.Time); ok {
		query = query.Where("payments.paid_at < ?", v)
	}
	return query
}

var _ finance.PaymentRepository = (*GormPaymentRepository)(nil)
