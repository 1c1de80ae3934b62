package partner

import (
	"context"
	"testing"

	"github.com/distribuidora/backend/internal/application/apptest"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSupplierRepository struct {
	mock.Mock
}

func (m *MockSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Supplier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Supplier, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSupplierRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockSupplierRepository) Save(ctx context.Context, supplier *partner.Supplier) error {
	return m.Called(ctx, supplier).Error(0)
}

func (m *MockSupplierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func TestSupplierService_Create(t *testing.T) {
	repo := new(MockSupplierRepository)
	rec := &apptest.Recorder{}
	svc := NewSupplierService(repo, &apptest.TxManager{}, rec)

	repo.On("ExistsByCode", mock.Anything, "S-01").Return(false, nil)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*partner.Supplier")).Return(nil)

	resp, err := svc.Create(context.Background(), CreateSupplierRequest{
		Code:         "S-01",
		Name:         "Bebidas del Sur",
		Contact:      Contact{Address: "Ruta 3 km 20", Email: "ventas@bebidas.com"},
		PaymentTerms: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, "S-01", resp.Code)
	assert.Equal(t, "Ruta 3 km 20", resp.Address)
	assert.Equal(t, 30, resp.PaymentTerms)
	assert.Equal(t, []string{partner.EventTypeSupplierCreated}, rec.Types())
}

func TestSupplierService_UpdateAndSetActive(t *testing.T) {
	repo := new(MockSupplierRepository)
	svc := NewSupplierService(repo, &apptest.TxManager{}, nil)
	s, err := partner.NewSupplier("S-01", "Bebidas del Sur")
	require.NoError(t, err)
	s.MarkPersisted()

	repo.On("FindByID", mock.Anything, s.ID).Return(s, nil)
	repo.On("Save", mock.Anything, s).Return(nil)

	terms := 60
	resp, err := svc.Update(context.Background(), s.ID, UpdateSupplierRequest{PaymentTerms: &terms})
	require.NoError(t, err)
	assert.Equal(t, 60, resp.PaymentTerms)
	assert.Equal(t, "Bebidas del Sur", resp.Name)

	resp, err = svc.SetActive(context.Background(), s.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "inactive", resp.Status)

	bad := 400
	_, err = svc.Update(context.Background(), s.ID, UpdateSupplierRequest{PaymentTerms: &bad})
	assert.Error(t, err)
}

func TestSupplierService_Delete_Referenced(t *testing.T) {
	repo := new(MockSupplierRepository)
	svc := NewSupplierService(repo, &apptest.TxManager{}, nil)
	s, err := partner.NewSupplier("S-01", "Bebidas del Sur")
	require.NoError(t, err)
	referenced := shared.NewDomainError("REFERENCED", "Record is referenced by other records")

	repo.On("FindByID", mock.Anything, s.ID).Return(s, nil)
	repo.On("Delete", mock.Anything, s.ID).Return(referenced)

	err = svc.Delete(context.Background(), s.ID)
	de, ok := shared.IsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "REFERENCED", de.Code)
}
