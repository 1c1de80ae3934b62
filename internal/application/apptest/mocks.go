package apptest

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// value unpacks a (T, error) return; a nil first argument yields the zero T
func value[T any](args mock.Arguments) (T, error) {
	v, _ := args.Get(0).(T)
	return v, args.Error(1)
}

// ProductRepository is a testify mock of catalog.ProductRepository
type ProductRepository struct {
	mock.Mock
}

func (m *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return value[*catalog.Product](m.Called(ctx, id))
}

func (m *ProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	return value[*catalog.Product](m.Called(ctx, sku))
}

func (m *ProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	return value[[]catalog.Product](m.Called(ctx, ids))
}

func (m *ProductRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	return value[[]catalog.Product](m.Called(ctx, ids))
}

func (m *ProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	return value[[]catalog.Product](m.Called(ctx, filter))
}

func (m *ProductRepository) FindLowStock(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	return value[[]catalog.Product](m.Called(ctx, filter))
}

func (m *ProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	return value[int64](m.Called(ctx, filter))
}

func (m *ProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return value[bool](m.Called(ctx, sku))
}

func (m *ProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *ProductRepository) SaveAll(ctx context.Context, products []*catalog.Product) error {
	return m.Called(ctx, products).Error(0)
}

func (m *ProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// UserRepository is a testify mock of identity.UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Save(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return value[*identity.User](m.Called(ctx, id))
}

func (m *UserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	return value[*identity.User](m.Called(ctx, username))
}

func (m *UserRepository) FindAll(ctx context.Context, filter identity.UserFilter) ([]*identity.User, int64, error) {
	args := m.Called(ctx, filter)
	users, _ := args.Get(0).([]*identity.User)
	total, _ := args.Get(1).(int64)
	return users, total, args.Error(2)
}

func (m *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return value[bool](m.Called(ctx, username))
}

func (m *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return value[bool](m.Called(ctx, email))
}

func (m *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

var (
	_ catalog.ProductRepository = (*ProductRepository)(nil)
	_ identity.UserRepository   = (*UserRepository)(nil)
)
