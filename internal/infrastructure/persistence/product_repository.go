package persistence

import (
	"context"
	"errors"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository stores products; stock changes go through Save
// under the version check
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	row, err := findOne[models.ProductModel](dbFor(ctx, r.db), "id = ?", id)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	row, err := findOne[models.ProductModel](dbFor(ctx, r.db), "sku = ?", codeKey(sku))
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindByIDs finds products by IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var productModels []models.ProductModel
	if err := dbFor(ctx, r.db).Where("id IN ?", ids).Find(&productModels).Error; err != nil {
		return nil, err
	}
	return convert(productModels, (*models.ProductModel).ToDomain), nil
}

// FindByIDsForUpdate loads products with SELECT ... FOR UPDATE, ordered by ID so
// concurrent orders lock rows in the same sequence
func (r *GormProductRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	if txFromContext(ctx) == nil {
		return nil, errors.New("FindByIDsForUpdate requires a transaction")
	}
	var productModels []models.ProductModel
	if err := dbFor(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&productModels).Error; err != nil {
		return nil, err
	}
	return convert(productModels, (*models.ProductModel).ToDomain), nil
}

// FindAll finds products matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	var productModels []models.ProductModel
	query := applyPagination(r.applyFilter(dbFor(ctx, r.db).Model(&models.ProductModel{}), filter),
		filter, productSort, "name")
	if err := query.Find(&productModels).Error; err != nil {
		return nil, err
	}
	return convert(productModels, (*models.ProductModel).ToDomain), nil
}

// FindLowStock lists active products at or under their minimum stock
func (r *GormProductRepository) FindLowStock(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	var productModels []models.ProductModel
	query := dbFor(ctx, r.db).Model(&models.ProductModel{}).
		Where("status = ? AND min_stock > 0 AND stock <= min_stock", catalog.ProductStatusActive)
	query = applyPagination(query, filter, productSort, "stock")
	if err := query.Find(&productModels).Error; err != nil {
		return nil, err
	}
	return convert(productModels, (*models.ProductModel).ToDomain), nil
}

// Count counts products matching the filter
func (r *GormProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	err := r.applyFilter(dbFor(ctx, r.db).Model(&models.ProductModel{}), filter).Count(&count).Error
	return count, err
}

func (r *GormProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return exists(dbFor(ctx, r.db), &models.ProductModel{}, "sku = ?", codeKey(sku))
}

// Save creates a product or updates it with an optimistic version check
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return saveAggregate(dbFor(ctx, r.db), models.ProductModelFromDomain(product), product.ID, &product.BaseAggregateRoot)
}

// SaveAll saves several products; call inside a transaction for atomicity
func (r *GormProductRepository) SaveAll(ctx context.Context, products []*catalog.Product) error {
	db := dbFor(ctx, r.db)
	for _, p := range products {
		if err := saveAggregate(db, models.ProductModelFromDomain(p), p.ID, &p.BaseAggregateRoot); err != nil {
			return err
		}
	}
	return nil
}

func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(dbFor(ctx, r.db), &models.ProductModel{}, id)
}

func (r *GormProductRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("name ILIKE ? OR sku ILIKE ? OR description ILIKE ?", pattern, pattern, pattern)
	}
	if v, ok := filterString(filter, "status"); ok {
		query = query.Where("status = ?", v)
	}
	if v, ok := filterString(filter, "unit"); ok {
		query = query.Where("unit = ?", v)
	}
	if v, ok := filter.Filters["low_stock"].(bool); ok && v {
		query = query.Where("min_stock > 0 AND stock <= min_stock")
	}
	return query
}


var _ catalog.ProductRepository = (*GormProductRepository)(nil)
