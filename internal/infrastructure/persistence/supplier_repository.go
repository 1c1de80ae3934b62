package persistence

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSupplierRepository stores suppliers in the suppliers table
type GormSupplierRepository struct {
	db *gorm.DB
}

func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

func (r *GormSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Supplier, error) {
	row, err := findOne[models.SupplierModel](dbFor(ctx, r.db), "id = ?", id)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *GormSupplierRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Supplier, error) {
	var rows []models.SupplierModel
	if err := applyPagination(r.filtered(ctx, filter), filter, supplierSort, "name").Find(&rows).Error; err != nil {
		return nil, err
	}
	return convert(rows, (*models.SupplierModel).ToDomain), nil
}

func (r *GormSupplierRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Count(&n).Error
	return n, err
}

func (r *GormSupplierRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return exists(dbFor(ctx, r.db), &models.SupplierModel{}, "code = ?", codeKey(code))
}

func (r *GormSupplierRepository) Save(ctx context.Context, supplier *partner.Supplier) error {
	return saveAggregate(dbFor(ctx, r.db), models.SupplierModelFromDomain(supplier), supplier.ID, &supplier.BaseAggregateRoot)
}

func (r *GormSupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(dbFor(ctx, r.db), &models.SupplierModel{}, id)
}

func (r *GormSupplierRepository) filtered(ctx context.Context, filter shared.Filter) *gorm.DB {
	query := dbFor(ctx, r.db).Model(&models.SupplierModel{})
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("name ILIKE ? OR code ILIKE ? OR tax_id ILIKE ?", p, p, p)
	}
	if v, ok := filterString(filter, "status"); ok {
		query = query.Where("status = ?", v)
	}
	return query
}

var _ partner.SupplierRepository = (*GormSupplierRepository)(nil)
