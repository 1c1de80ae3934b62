package persistence

import (
	"context"
	"strings"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository stores staff accounts in the users table
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	return saveAggregate(dbFor(ctx, r.db), models.UserModelFromDomain(user), user.ID, &user.BaseAggregateRoot)
}

func (r *GormUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(dbFor(ctx, r.db), &models.UserModel{}, id)
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	row, err := findOne[models.UserModel](dbFor(ctx, r.db), "id = ?", id)
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindByUsername ignores case and surrounding blanks
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	row, err := findOne[models.UserModel](dbFor(ctx, r.db), "username = ?", lowerKey(username))
	if err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// FindAll pages users by username and returns the unpaged total
func (r *GormUserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	query := r.applyFilter(dbFor(ctx, r.db).Model(&models.UserModel{}), filter)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("username ASC")
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	var rows []models.UserModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	users := make([]*identity.User, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, total, nil
}

func (r *GormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return exists(dbFor(ctx, r.db), &models.UserModel{}, "username = ?", lowerKey(username))
}

func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return exists(dbFor(ctx, r.db), &models.UserModel{}, "LOWER(email) = ?", lowerKey(email))
}

func (r *GormUserRepository) applyFilter(query *gorm.DB, filter identity.UserFilter) *gorm.DB {
	if filter.Keyword != "" {
		pattern := likePattern(filter.Keyword)
		query = query.Where("username ILIKE ? OR email ILIKE ? OR full_name ILIKE ?", pattern, pattern, pattern)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", string(*filter.Role))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	return query
}

func lowerKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
