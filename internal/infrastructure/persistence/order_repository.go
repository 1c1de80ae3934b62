package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/datascope"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderNumberSequence backs NextOrderNumber; created by the migrations
const orderNumberSequence = "order_number_seq"

// GormOrderRepository implements trade.OrderRepository using GORM.
// Every read is narrowed to the caller's row scope.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its items. Orders outside the caller's scope
// are reported as not found.
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.findOne(ctx, "orders.id = ?", id)
}

// FindByNumber finds an order by its number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*trade.Order, error) {
	return r.findOne(ctx, "orders.order_number = ?", orderNumber)
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, arg any) (*trade.Order, error) {
	var model models.OrderModel
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Scopes(datascope.Scope(ctx, identity.ResourceOrder)).
			Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
			Where(query, arg).
			First(&model).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists orders matching the filter without their items
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Order, error) {
	var orderModels []models.OrderModel
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		query := r.applyFilter(tx.Model(&models.OrderModel{}).Scopes(datascope.Scope(ctx, identity.ResourceOrder)), filter)
		return applyPagination(query, filter, orderSort, "created_at").Find(&orderModels).Error
	})
	if err != nil {
		return nil, err
	}
	orders := make([]trade.Order, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, nil
}

// Count counts orders matching the filter within the caller's scope
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := withSession(ctx, r.db, func(tx *gorm.DB) error {
		query := tx.Model(&models.OrderModel{}).Scopes(datascope.Scope(ctx, identity.ResourceOrder))
		return r.applyFilter(query, filter).Count(&count).Error
	})
	return count, err
}

// NextOrderNumber allocates an order number from a database sequence.
// Format: ORD-YYYY-NNNNN (e.g., ORD-2026-00042)
func (r *GormOrderRepository) NextOrderNumber(ctx context.Context) (string, error) {
	n, err := nextSequenceValue(ctx, r.db, orderNumberSequence)
	if err != nil {
		return "", fmt.Errorf("allocate order number: %w", err)
	}
	return fmt.Sprintf("ORD-%d-%05d", time.Now().Year(), n), nil
}

// Save creates an order with its items, or updates it with an optimistic
// version check. Removed items are deleted and the rest upserted.
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	return withSession(ctx, r.db, func(tx *gorm.DB) error {
		model := models.OrderModelFromDomain(order)
		if err := saveAggregate(tx, model, order.ID, &order.BaseAggregateRoot, "Items"); err != nil {
			return err
		}
		return replaceItems(tx, &models.OrderItemModel{}, "order_id", order.ID, itemIDs(model.Items, func(it models.OrderItemModel) uuid.UUID { return it.ID }), model.Items)
	})
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("orders.order_number ILIKE ? OR orders.customer_name ILIKE ?", pattern, pattern)
	}
	if v, ok := filterString(filter, "status"); ok {
		query = query.Where("orders.status = ?", v)
	}
	if v, ok := filterUUID(filter, "customer_id"); ok {
		query = query.Where("orders.customer_id = ?", v)
	}
	if v, ok := filterUUID(filter, "driver_id"); ok {
		query = query.Where("orders.assigned_driver_id = ?", v)
	}
	if v, ok := filter.Filters["from"].(time.Time); ok {
		query = query.Where("orders.created_at >= ?", v)
	}
	if v, ok := filter.Filters["to"].(time.Time); ok {
		query = query.Where("orders.created_at < ?", v)
	}
	return query
}

// nextSequenceValue reads the next value of a PostgreSQL sequence
func nextSequenceValue(ctx context.Context, db *gorm.DB, sequence string) (int64, error) {
	var n int64
	if err := dbFor(ctx, db).Raw("SELECT nextval(?)", sequence).Scan(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// replaceItems deletes the child rows of parentID not in keep and upserts items
func replaceItems[T any](tx *gorm.DB, model *T, parentColumn string, parentID uuid.UUID, keep []uuid.UUID, items []T) error {
	del := tx.Where(parentColumn+" = ?", parentID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(model).Error; err != nil {
		return translateError(err)
	}
	if len(items) == 0 {
		return nil
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&items).Error
	return translateError(err)
}

func itemIDs[T any](items []T, id func(T) uuid.UUID) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = id(it)
	}
	return ids
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)
