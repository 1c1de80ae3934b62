package trade

import (
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeOrder    = "Order"
	AggregateTypePurchase = "Purchase"

	EventTypeOrderCreated        = "order.created"
	EventTypeOrderStatusChanged  = "order.status_changed"
	EventTypeOrderDriverAssigned = "order.driver_assigned"
	EventTypePurchaseReceived    = "purchase.received"
)

// OrderCreatedEvent is published when an order is placed
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		TotalAmount:     o.TotalAmount,
		ItemCount:       len(o.Items),
	}
}

// OrderStatusChangedEvent is published on every lifecycle transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string      `json:"order_number"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
	Reason      string      `json:"reason,omitempty"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		From:            from,
		To:              o.Status,
		Reason:          o.CancelReason,
	}
}

// OrderDriverAssignedEvent is published when a driver is assigned
type OrderDriverAssignedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string    `json:"order_number"`
	DriverID    uuid.UUID `json:"driver_id"`
}

// NewOrderDriverAssignedEvent creates a new OrderDriverAssignedEvent
func NewOrderDriverAssignedEvent(o *Order) *OrderDriverAssignedEvent {
	return &OrderDriverAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDriverAssigned, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		DriverID:        *o.AssignedDriverID,
	}
}

// PurchaseReceivedEvent is published when purchased goods enter stock
type PurchaseReceivedEvent struct {
	shared.BaseDomainEvent
	PurchaseNumber string          `json:"purchase_number"`
	SupplierID     uuid.UUID       `json:"supplier_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// NewPurchaseReceivedEvent creates a new PurchaseReceivedEvent
func NewPurchaseReceivedEvent(p *Purchase) *PurchaseReceivedEvent {
	return &PurchaseReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseReceived, AggregateTypePurchase, p.ID),
		PurchaseNumber:  p.PurchaseNumber,
		SupplierID:      p.SupplierID,
		TotalAmount:     p.TotalAmount,
	}
}
