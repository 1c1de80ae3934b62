package trade

import (
	"context"
	"testing"

	"github.com/distribuidora/backend/internal/application/apptest"
	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type purchaseFixture struct {
	svc       *PurchaseService
	purchases *mockPurchaseRepository
	products  *apptest.ProductRepository
	suppliers *mockSupplierRepository
	rec       *apptest.Recorder
}

func newPurchaseFixture() *purchaseFixture {
	f := &purchaseFixture{
		purchases: new(mockPurchaseRepository),
		products:  new(apptest.ProductRepository),
		suppliers: new(mockSupplierRepository),
		rec:       &apptest.Recorder{},
	}
	f.svc = NewPurchaseService(f.purchases, f.products, f.suppliers, &apptest.TxManager{}, f.rec, nil)
	return f
}

func draftPurchase(t *testing.T, productID uuid.UUID, qty, cost int64) *trade.Purchase {
	t.Helper()
	p, err := trade.NewPurchase("COM-000001", uuid.New(), "Molinos SA")
	require.NoError(t, err)
	require.NoError(t, p.AddItem(productID, "Harina 1kg", "HAR-1KG", decimal.NewFromInt(qty), decimal.NewFromInt(cost)))
	p.MarkPersisted()
	return p
}

func TestPurchaseService_Create(t *testing.T) {
	f := newPurchaseFixture()
	ctx, actor := apptest.ActorContext(identity.RoleWarehouse)
	supplier, err := partner.NewSupplier("S-001", "Molinos SA")
	require.NoError(t, err)
	product := testProduct(t, "HAR-1KG", 0, 0)

	f.suppliers.On("FindByID", mock.Anything, supplier.ID).Return(supplier, nil)
	f.products.On("FindByIDs", mock.Anything, []uuid.UUID{product.ID}).Return([]catalog.Product{product}, nil)
	f.purchases.On("NextPurchaseNumber", mock.Anything).Return("COM-000007", nil)
	f.purchases.On("Save", mock.Anything, mock.MatchedBy(func(p *trade.Purchase) bool {
		return p.CreatedBy != nil && *p.CreatedBy == actor.UserID
	})).Return(nil)

	resp, err := f.svc.Create(ctx, CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Items:      []PurchaseItemInput{{ProductID: product.ID, Quantity: decimal.NewFromInt(50), UnitCost: decimal.NewFromInt(60)}},
		Notes:      "pago a 30 dias",
	})
	require.NoError(t, err)
	assert.Equal(t, "COM-000007", resp.PurchaseNumber)
	assert.Equal(t, "draft", resp.Status)
	assert.Equal(t, "Molinos SA", resp.SupplierName)
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(3000)))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "HAR-1KG", resp.Items[0].ProductSKU)
}

func TestPurchaseService_Create_UnknownProduct(t *testing.T) {
	f := newPurchaseFixture()
	supplier, err := partner.NewSupplier("S-001", "Molinos SA")
	require.NoError(t, err)
	missing := uuid.New()

	f.suppliers.On("FindByID", mock.Anything, supplier.ID).Return(supplier, nil)
	f.products.On("FindByIDs", mock.Anything, []uuid.UUID{missing}).Return([]catalog.Product{}, nil)
	f.purchases.On("NextPurchaseNumber", mock.Anything).Return("COM-000008", nil)

	_, err = f.svc.Create(context.Background(), CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Items:      []PurchaseItemInput{{ProductID: missing, Quantity: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.purchases.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestPurchaseService_Receive_AddsStockAndCost(t *testing.T) {
	f := newPurchaseFixture()
	product := testProduct(t, "HAR-1KG", 3, 0)
	purchase := draftPurchase(t, product.ID, 20, 55)

	f.purchases.On("FindByID", mock.Anything, purchase.ID).Return(purchase, nil)
	f.purchases.On("Save", mock.Anything, purchase).Return(nil)
	f.products.On("FindByIDsForUpdate", mock.Anything, []uuid.UUID{product.ID}).Return([]catalog.Product{product}, nil)
	f.products.On("SaveAll", mock.Anything, mock.MatchedBy(func(ps []*catalog.Product) bool {
		return len(ps) == 1 && ps[0].Stock.Equal(decimal.NewFromInt(23)) && ps[0].Cost.Equal(decimal.NewFromInt(55))
	})).Return(nil)

	resp, err := f.svc.Receive(context.Background(), purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, "received", resp.Status)
	assert.NotNil(t, resp.ReceivedAt)
	assert.Equal(t, []string{trade.EventTypePurchaseReceived}, f.rec.Types())
	f.products.AssertExpectations(t)

	_, err = f.svc.Receive(context.Background(), purchase.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPurchaseService_Cancel(t *testing.T) {
	f := newPurchaseFixture()
	purchase := draftPurchase(t, uuid.New(), 1, 1)
	f.purchases.On("FindByID", mock.Anything, purchase.ID).Return(purchase, nil)
	f.purchases.On("Save", mock.Anything, purchase).Return(nil)

	resp, err := f.svc.Cancel(context.Background(), purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)

	_, err = f.svc.Receive(context.Background(), purchase.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	f.products.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
}
