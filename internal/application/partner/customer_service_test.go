package partner

import (
	"context"
	"testing"

	"github.com/distribuidora/backend/internal/application/apptest"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCustomerRepository is a mock implementation of CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByCode(ctx context.Context, code string) (*partner.Customer, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]partner.Customer, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Customer, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCustomerRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return m.Called(ctx, customer).Error(0)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func newCustomerService(repo *MockCustomerRepository) (*CustomerService, *apptest.Recorder) {
	rec := &apptest.Recorder{}
	return NewCustomerService(repo, &apptest.TxManager{}, rec), rec
}

func storedCustomer(t *testing.T) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer("C-001", "Almacen Don Pepe")
	require.NoError(t, err)
	c.ClearDomainEvents()
	c.MarkPersisted()
	return c
}

func TestCustomerService_Create(t *testing.T) {
	repo := new(MockCustomerRepository)
	svc, rec := newCustomerService(repo)
	ctx, actor := apptest.ActorContext(identity.RoleSalesRep)

	lat, lng := -34.6, -58.4
	limit := decimal.NewFromInt(50000)
	req := CreateCustomerRequest{
		Code:        "c-001",
		Name:        "Almacen Don Pepe",
		TaxID:       "20-12345678-9",
		Contact:     Contact{Phone: "+54 11 5555 0000", Email: "Pepe@Example.com", Address: "Av. Siempre Viva 742"},
		City:        "Buenos Aires",
		Zone:        "Norte",
		Latitude:    &lat,
		Longitude:   &lng,
		CreditLimit: &limit,
	}

	repo.On("ExistsByCode", mock.Anything, "c-001").Return(false, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*partner.Customer")).Return(nil)

	resp, err := svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "C-001", resp.Code)
	assert.Equal(t, "20-12345678-9", resp.TaxID)
	assert.Equal(t, "pepe@example.com", resp.Email)
	assert.Equal(t, "Norte", resp.Zone)
	assert.Equal(t, lat, *resp.Latitude)
	assert.True(t, limit.Equal(resp.CreditLimit))
	require.NotNil(t, resp.CreatedBy)
	assert.Equal(t, actor.UserID, *resp.CreatedBy)
	assert.Equal(t, []string{partner.EventTypeCustomerCreated}, rec.Types())
	repo.AssertExpectations(t)
}

func TestCustomerService_Create_DuplicateCode(t *testing.T) {
	repo := new(MockCustomerRepository)
	svc, rec := newCustomerService(repo)

	repo.On("ExistsByCode", mock.Anything, "C-001").Return(true, nil)

	_, err := svc.Create(context.Background(), CreateCustomerRequest{Code: "C-001", Name: "Dup"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	assert.Empty(t, rec.Events)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCustomerService_Update_PartialFields(t *testing.T) {
	repo := new(MockCustomerRepository)
	svc, _ := newCustomerService(repo)
	existing := storedCustomer(t)
	require.NoError(t, existing.SetContact("Pepe", "111", "pepe@example.com"))

	phone := "222"
	zone := "Sur"
	repo.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)
	repo.On("Save", mock.Anything, existing).Return(nil)

	resp, err := svc.Update(context.Background(), existing.ID, UpdateCustomerRequest{ContactPatch: ContactPatch{Phone: &phone}, Zone: &zone})
	require.NoError(t, err)
	assert.Equal(t, "222", resp.Phone)
	assert.Equal(t, "Pepe", resp.ContactName)
	assert.Equal(t, "pepe@example.com", resp.Email)
	assert.Equal(t, "Sur", resp.Zone)
	assert.Equal(t, "Almacen Don Pepe", resp.Name)
}

func TestCustomerService_Update_ConcurrencyConflict(t *testing.T) {
	repo := new(MockCustomerRepository)
	svc, _ := newCustomerService(repo)
	existing := storedCustomer(t)
	name := "Renamed"

	repo.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)
	repo.On("Save", mock.Anything, existing).Return(shared.ErrConcurrencyConflict)

	_, err := svc.Update(context.Background(), existing.ID, UpdateCustomerRequest{Name: &name})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestCustomerService_List(t *testing.T) {
	repo := new(MockCustomerRepository)
	svc, _ := newCustomerService(repo)
	c := storedCustomer(t)

	match := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 1 && f.PageSize == 20 && f.OrderBy == "name" && f.OrderDir == "asc" &&
			f.Filters["zone"] == "Norte" && f.Search == "pepe"
	})
	repo.On("FindAll", mock.Anything, match).Return([]partner.Customer{*c}, nil)
	repo.On("Count", mock.Anything, match).Return(int64(21), nil)

	page, err := svc.List(context.Background(), CustomerListFilter{ListQuery: ListQuery{Search: "pepe"}, Zone: "Norte"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(21), page.Total)
	assert.Equal(t, 2, page.TotalPages)
}

func TestCustomerService_DeactivateAndDelete(t *testing.T) {
	repo := new(MockCustomerRepository)
	svc, _ := newCustomerService(repo)
	c := storedCustomer(t)

	repo.On("FindByID", mock.Anything, c.ID).Return(c, nil)
	repo.On("Save", mock.Anything, c).Return(nil)
	repo.On("Delete", mock.Anything, c.ID).Return(nil)

	resp, err := svc.Deactivate(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "inactive", resp.Status)

	_, err = svc.Deactivate(context.Background(), c.ID)
	assert.Error(t, err)

	require.NoError(t, svc.Delete(context.Background(), c.ID))
}

func TestCustomerService_GetByID_NotFound(t *testing.T) {
	repo := new(MockCustomerRepository)
	svc, _ := newCustomerService(repo)
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	_, err := svc.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), id), shared.ErrNotFound)
}
