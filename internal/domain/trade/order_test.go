package trade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlacedOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder("PED-000001", uuid.New(), "Kiosco Central")
	require.NoError(t, err)
	require.NoError(t, o.AddItem(uuid.New(), "Yerba", "YERBA-1KG", decimal.NewFromInt(2), decimal.NewFromInt(3500)))
	require.NoError(t, o.Place())
	o.ClearDomainEvents()
	return o
}

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusPrepared, OrderStatusCancelled},
		OrderStatusPrepared:  {OrderStatusInTransit, OrderStatusCancelled},
		OrderStatusInTransit: {OrderStatusDelivered, OrderStatusCancelled},
	}
	all := []OrderStatus{OrderStatusPending, OrderStatusPrepared, OrderStatusInTransit, OrderStatusDelivered, OrderStatusCancelled}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatus("shipped").IsValid())
}

func TestOrder_AddItem(t *testing.T) {
	o, err := NewOrder("PED-1", uuid.New(), "Cliente")
	require.NoError(t, err)

	productID := uuid.New()
	require.NoError(t, o.AddItem(productID, "Azucar", "AZ-1", decimal.NewFromInt(2), decimal.NewFromInt(100)))
	require.NoError(t, o.AddItem(productID, "Azucar", "AZ-1", decimal.NewFromInt(3), decimal.NewFromInt(100)))
	require.NoError(t, o.AddItem(uuid.New(), "Harina", "HA-1", decimal.NewFromInt(1), decimal.NewFromInt(50)))

	assert.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromInt(550)))
	assert.True(t, o.QuantitiesByProduct()[productID].Equal(decimal.NewFromInt(5)))

	assert.Error(t, o.AddItem(uuid.New(), "X", "X", decimal.Zero, decimal.NewFromInt(1)))
	assert.Error(t, o.AddItem(uuid.Nil, "X", "X", decimal.NewFromInt(1), decimal.NewFromInt(1)))
}

func TestOrder_Place(t *testing.T) {
	o, err := NewOrder("PED-2", uuid.New(), "Cliente")
	require.NoError(t, err)
	assert.Error(t, o.Place())

	_, err = NewOrder("", uuid.New(), "Cliente")
	assert.Error(t, err)
	_, err = NewOrder("PED-3", uuid.Nil, "Cliente")
	assert.Error(t, err)
}

func TestOrder_HappyPath(t *testing.T) {
	o := newPlacedOrder(t)
	driver := uuid.New()

	require.NoError(t, o.Prepare())
	assert.Equal(t, OrderStatusPrepared, o.Status)
	assert.NotNil(t, o.PreparedAt)

	err := o.Dispatch()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver")

	require.NoError(t, o.AssignDriver(driver))
	assert.True(t, o.IsAssignedTo(driver))
	assert.False(t, o.IsAssignedTo(uuid.New()))

	require.NoError(t, o.Dispatch())
	assert.Equal(t, OrderStatusInTransit, o.Status)
	assert.Error(t, o.AssignDriver(uuid.New()))

	require.NoError(t, o.Deliver())
	assert.Equal(t, OrderStatusDelivered, o.Status)
	assert.NotNil(t, o.DeliveredAt)

	assert.Error(t, o.Cancel("too late"))
	assert.Error(t, o.Prepare())
}

func TestOrder_CannotSkipStates(t *testing.T) {
	o := newPlacedOrder(t)
	require.NoError(t, o.AssignDriver(uuid.New()))

	assert.Error(t, o.Dispatch())
	assert.Error(t, o.Deliver())
	assert.Equal(t, OrderStatusPending, o.Status)
}

func TestOrder_Cancel(t *testing.T) {
	o := newPlacedOrder(t)

	assert.Error(t, o.Cancel(""))
	require.NoError(t, o.Cancel("customer closed"))
	assert.Equal(t, OrderStatusCancelled, o.Status)
	assert.Equal(t, "customer closed", o.CancelReason)

	events := o.GetDomainEvents()
	require.Len(t, events, 1)
	ev := events[0].(*OrderStatusChangedEvent)
	assert.Equal(t, OrderStatusPending, ev.From)
	assert.Equal(t, OrderStatusCancelled, ev.To)
	assert.Equal(t, "customer closed", ev.Reason)
}

func TestOrder_VersionIncrementsOnTransition(t *testing.T) {
	o := newPlacedOrder(t)
	v := o.Version
	require.NoError(t, o.Prepare())
	assert.Equal(t, v+1, o.Version)
}

func TestPurchase(t *testing.T) {
	p, err := NewPurchase("COM-000001", uuid.New(), "Molinos SA")
	require.NoError(t, err)

	assert.Error(t, p.Receive())

	require.NoError(t, p.AddItem(uuid.New(), "Harina", "HA-1", decimal.NewFromInt(100), decimal.NewFromInt(40)))
	assert.True(t, p.TotalAmount.Equal(decimal.NewFromInt(4000)))

	require.NoError(t, p.Receive())
	assert.Equal(t, PurchaseStatusReceived, p.Status)
	assert.NotNil(t, p.ReceivedAt)
	require.Len(t, p.GetDomainEvents(), 1)

	assert.Error(t, p.Cancel())
	assert.Error(t, p.AddItem(uuid.New(), "X", "X", decimal.NewFromInt(1), decimal.Zero))
}
