package persistence

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository stores customers in the customers table
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	row, err := findOne[models.CustomerModel](dbFor(ctx, r.db), "id = ?", id)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

func (r *GormCustomerRepository) FindByCode(ctx context.Context, code string) (*partner.Customer, error) {
	row, err := findOne[models.CustomerModel](dbFor(ctx, r.db), "code = ?", codeKey(code))
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindByIDs skips unknown IDs
func (r *GormCustomerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]partner.Customer, error) {
	if len(ids) == 0 {
		return []partner.Customer{}, nil
	}
	var rows []models.CustomerModel
	if err := dbFor(ctx, r.db).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return convert(rows, (*models.CustomerModel).ToDomain), nil
}

func (r *GormCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Customer, error) {
	var rows []models.CustomerModel
	query := applyPagination(r.filtered(ctx, filter), filter, customerSort, "name")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return convert(rows, (*models.CustomerModel).ToDomain), nil
}

func (r *GormCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var n int64
	err := r.filtered(ctx, filter).Count(&n).Error
	return n, err
}

func (r *GormCustomerRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return exists(dbFor(ctx, r.db), &models.CustomerModel{}, "code = ?", codeKey(code))
}

// Save inserts a new customer or updates a loaded one under its version check
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return saveAggregate(dbFor(ctx, r.db), models.CustomerModelFromDomain(customer), customer.ID, &customer.BaseAggregateRoot)
}

func (r *GormCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(dbFor(ctx, r.db), &models.CustomerModel{}, id)
}

// filtered scopes the customers table to the search text plus the status,
// city and zone filters
func (r *GormCustomerRepository) filtered(ctx context.Context, filter shared.Filter) *gorm.DB {
	query := dbFor(ctx, r.db).Model(&models.CustomerModel{})
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where("name ILIKE ? OR code ILIKE ? OR phone ILIKE ? OR tax_id ILIKE ?", p, p, p, p)
	}
	for _, col := range []string{"status", "city", "zone"} {
		if v, ok := filterString(filter, col); ok {
			query = query.Where(col+" = ?", v)
		}
	}
	return query
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)
