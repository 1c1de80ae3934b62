package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const purchaseNumberSequence = "purchase_number_seq"

// GormPurchaseRepository implements trade.PurchaseRepository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// FindByID finds a purchase with its items
func (r *GormPurchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Purchase, error) {
	var model models.PurchaseModel
	err := dbFor(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists purchases matching the filter without their items
func (r *GormPurchaseRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Purchase, error) {
	var purchaseModels []models.PurchaseModel
	query := applyPagination(r.applyFilter(dbFor(ctx, r.db).Model(&models.PurchaseModel{}), filter),
		filter, purchaseSort, "created_at")
	if err := query.Find(&purchaseModels).Error; err != nil {
		return nil, err
	}
	purchases := make([]trade.Purchase, len(purchaseModels))
	for i, model := range purchaseModels {
		purchases[i] = *model.ToDomain()
	}
	return purchases, nil
}

// Count counts purchases matching the filter
func (r *GormPurchaseRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(dbFor(ctx, r.db).Model(&models.PurchaseModel{}), filter).Count(&count).Error
	return count, err
}

// NextPurchaseNumber allocates a purchase number.
// Format: PUR-YYYY-NNNNN
func (r *GormPurchaseRepository) NextPurchaseNumber(ctx context.Context) (string, error) {
	n, err := nextSequenceValue(ctx, r.db, purchaseNumberSequence)
	if err != nil {
		return "", fmt.Errorf("allocate purchase number: %w", err)
	}
	return fmt.Sprintf("PUR-%d-%05d", time.Now().Year(), n), nil
}

// Save creates or updates a purchase and its items in one transaction
func (r *GormPurchaseRepository) Save(ctx context.Context, purchase *trade.Purchase) error {
	return withSession(ctx, r.db, func(tx *gorm.DB) error {
		model := models.PurchaseModelFromDomain(purchase)
		if err := saveAggregate(tx, model, purchase.ID, &purchase.BaseAggregateRoot, "Items"); err != nil {
			return err
		}
		return replaceItems(tx, &models.PurchaseItemModel{}, "purchase_id", purchase.ID,
			itemIDs(model.Items, func(it models.PurchaseItemModel) uuid.UUID { return it.ID }), model.Items)
	})
}

func (r *GormPurchaseRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("purchase_number ILIKE ? OR supplier_name ILIKE ?", pattern, pattern)
	}
	if v, ok := filterString(filter, "status"); ok {
		query = query.Where("status = ?", v)
	}
	if v, ok := filterUUID(filter, "supplier_id"); ok {
		query = query.Where("supplier_id = ?", v)
	}
	return query
}

var _ trade.PurchaseRepository = (*GormPurchaseRepository)(nil)
