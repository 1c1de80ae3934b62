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

type orderFixture struct {
	svc       *OrderService
	orders    *mockOrderRepository
	products  *apptest.ProductRepository
	customers *mockCustomerRepository
	tx        *apptest.TxManager
	rec       *apptest.Recorder
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:    new(mockOrderRepository),
		products:  new(apptest.ProductRepository),
		customers: new(mockCustomerRepository),
		tx:        &apptest.TxManager{},
		rec:       &apptest.Recorder{},
	}
	f.svc = NewOrderService(f.orders, f.products, f.customers, f.tx, f.rec, nil)
	return f
}

func testCustomer(t *testing.T) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer("C-001", "Almacen Don Pepe")
	require.NoError(t, err)
	c.ClearDomainEvents()
	c.MarkPersisted()
	return c
}

func testProduct(t *testing.T, sku string, stock, minStock int64) catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sku, "Producto "+sku, "unidad", decimal.NewFromInt(100))
	require.NoError(t, err)
	require.NoError(t, p.AdjustStock(decimal.NewFromInt(stock)))
	require.NoError(t, p.SetMinStock(decimal.NewFromInt(minStock)))
	p.ClearDomainEvents()
	p.MarkPersisted()
	return *p
}

func pendingOrder(t *testing.T, productID uuid.UUID, qty int64) *trade.Order {
	t.Helper()
	o, err := trade.NewOrder("PED-000001", uuid.New(), "Almacen Don Pepe")
	require.NoError(t, err)
	require.NoError(t, o.AddItem(productID, "Aceite", "ACE-900", decimal.NewFromInt(qty), decimal.NewFromInt(100)))
	require.NoError(t, o.Place())
	o.ClearDomainEvents()
	o.MarkPersisted()
	return o
}

func TestOrderService_Create_DeductsStock(t *testing.T) {
	f := newOrderFixture()
	ctx, actor := apptest.ActorContext(identity.RoleSalesRep)
	customer := testCustomer(t)
	a := testProduct(t, "ACE-900", 10, 0)
	b := testProduct(t, "HAR-1KG", 5, 4)

	f.customers.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	f.orders.On("NextOrderNumber", mock.Anything).Return("PED-000042", nil)
	f.products.On("FindByIDsForUpdate", mock.Anything, mock.Anything).Return([]catalog.Product{a, b}, nil)
	f.products.On("SaveAll", mock.Anything, mock.MatchedBy(func(ps []*catalog.Product) bool {
		stock := map[string]string{}
		for _, p := range ps {
			stock[p.SKU] = p.Stock.String()
		}
		return len(ps) == 2 && stock["ACE-900"] == "7" && stock["HAR-1KG"] == "3"
	})).Return(nil)
	f.orders.On("Save", mock.Anything, mock.AnythingOfType("*trade.Order")).Return(nil)

	special := decimal.NewFromInt(90)
	resp, err := f.svc.Create(ctx, CreateOrderRequest{
		CustomerID: customer.ID,
		Items: []OrderItemInput{
			{ProductID: a.ID, Quantity: decimal.NewFromInt(2)},
			{ProductID: b.ID, Quantity: decimal.NewFromInt(2), UnitPrice: &special},
			{ProductID: a.ID, Quantity: decimal.NewFromInt(1)},
		},
		Notes: "Entregar por la mañana",
	})
	require.NoError(t, err)

	assert.Equal(t, "PED-000042", resp.OrderNumber)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, 2, resp.ItemCount)
	assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(480)))
	require.NotNil(t, resp.CreatedBy)
	assert.Equal(t, actor.UserID, *resp.CreatedBy)
	assert.Contains(t, f.rec.Types(), trade.EventTypeOrderCreated)
	assert.Contains(t, f.rec.Types(), catalog.EventTypeStockLow)
	assert.Equal(t, 1, f.tx.Calls)
	f.products.AssertExpectations(t)
	f.orders.AssertExpectations(t)
}

func TestOrderService_Create_InsufficientStock(t *testing.T) {
	f := newOrderFixture()
	customer := testCustomer(t)
	a := testProduct(t, "ACE-900", 1, 0)

	f.customers.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	f.orders.On("NextOrderNumber", mock.Anything).Return("PED-000043", nil)
	f.products.On("FindByIDsForUpdate", mock.Anything, []uuid.UUID{a.ID}).Return([]catalog.Product{a}, nil)

	_, err := f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: a.ID, Quantity: decimal.NewFromInt(2)}},
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	f.products.AssertNotCalled(t, "SaveAll", mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, f.rec.Events)
}

func TestOrderService_Create_UnknownProduct(t *testing.T) {
	f := newOrderFixture()
	customer := testCustomer(t)
	missing := uuid.New()

	f.customers.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)
	f.orders.On("NextOrderNumber", mock.Anything).Return("PED-000044", nil)
	f.products.On("FindByIDsForUpdate", mock.Anything, []uuid.UUID{missing}).Return([]catalog.Product{}, nil)

	_, err := f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: missing, Quantity: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrderService_Create_InactiveCustomer(t *testing.T) {
	f := newOrderFixture()
	customer := testCustomer(t)
	require.NoError(t, customer.Deactivate())
	f.customers.On("FindByID", mock.Anything, customer.ID).Return(customer, nil)

	_, err := f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: customer.ID,
		Items:      []OrderItemInput{{ProductID: uuid.New(), Quantity: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Zero(t, f.tx.Calls)
}

func TestOrderService_Lifecycle(t *testing.T) {
	f := newOrderFixture()
	order := pendingOrder(t, uuid.New(), 1)
	driverCtx, driver := apptest.ActorContext(identity.RoleDriver)

	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orders.On("Save", mock.Anything, order).Return(nil)

	adminCtx, _ := apptest.ActorContext(identity.RoleAdmin)
	_, err := f.svc.Deliver(adminCtx, order.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	resp, err := f.svc.Prepare(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "prepared", resp.Status)

	_, err = f.svc.Dispatch(context.Background(), order.ID)
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "NO_DRIVER", de.Code)

	_, err = f.svc.AssignDriver(context.Background(), order.ID, AssignDriverRequest{DriverID: driver.UserID})
	require.NoError(t, err)

	resp, err = f.svc.Dispatch(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "in_transit", resp.Status)

	resp, err = f.svc.Deliver(driverCtx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", resp.Status)
	assert.NotNil(t, resp.DeliveredAt)

	assert.Equal(t, []string{
		trade.EventTypeOrderStatusChanged,
		trade.EventTypeOrderDriverAssigned,
		trade.EventTypeOrderStatusChanged,
		trade.EventTypeOrderStatusChanged,
	}, f.rec.Types())
}

func TestOrderService_Deliver_OnlyAssignedDriver(t *testing.T) {
	f := newOrderFixture()
	order := pendingOrder(t, uuid.New(), 1)
	require.NoError(t, order.AssignDriver(uuid.New()))
	require.NoError(t, order.Prepare())
	require.NoError(t, order.Dispatch())
	order.ClearDomainEvents()

	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orders.On("Save", mock.Anything, order).Return(nil)

	otherDriver, _ := apptest.ActorContext(identity.RoleDriver)
	_, err := f.svc.Deliver(otherDriver, order.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, trade.OrderStatusInTransit, order.Status)

	_, err = f.svc.Deliver(context.Background(), order.ID)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	adminCtx, _ := apptest.ActorContext(identity.RoleAdmin)
	resp, err := f.svc.Deliver(adminCtx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", resp.Status)
}

func TestOrderService_Cancel_RestoresStock(t *testing.T) {
	f := newOrderFixture()
	product := testProduct(t, "ACE-900", 4, 0)
	order := pendingOrder(t, product.ID, 3)

	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orders.On("Save", mock.Anything, order).Return(nil)
	f.products.On("FindByIDsForUpdate", mock.Anything, []uuid.UUID{product.ID}).Return([]catalog.Product{product}, nil)
	f.products.On("SaveAll", mock.Anything, mock.MatchedBy(func(ps []*catalog.Product) bool {
		return len(ps) == 1 && ps[0].Stock.Equal(decimal.NewFromInt(7))
	})).Return(nil)

	resp, err := f.svc.Cancel(context.Background(), order.ID, CancelOrderRequest{Reason: "cliente cerrado"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
	assert.Equal(t, "cliente cerrado", resp.CancelReason)
	f.products.AssertExpectations(t)

	_, err = f.svc.Cancel(context.Background(), order.ID, CancelOrderRequest{Reason: "otra vez"})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestOrderService_List_Filters(t *testing.T) {
	f := newOrderFixture()
	driverID := uuid.New()
	match := mock.MatchedBy(func(fl shared.Filter) bool {
		return fl.Filters["status"] == "pending" && fl.Filters["driver_id"] == driverID && fl.OrderBy == "created_at"
	})
	f.orders.On("FindAll", mock.Anything, match).Return([]trade.Order{}, nil)
	f.orders.On("Count", mock.Anything, match).Return(int64(0), nil)

	page, err := f.svc.List(context.Background(), OrderListFilter{Status: "pending", DriverID: &driverID})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 20, page.PageSize)
}

func TestOrderService_Update_ConcurrencyConflict(t *testing.T) {
	f := newOrderFixture()
	order := pendingOrder(t, uuid.New(), 1)
	notes := "tocar timbre"
	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orders.On("Save", mock.Anything, order).Return(shared.ErrConcurrencyConflict)

	_, err := f.svc.Update(context.Background(), order.ID, UpdateOrderRequest{Notes: &notes})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Empty(t, f.rec.Events)
}
