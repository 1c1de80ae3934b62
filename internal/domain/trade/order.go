package trade

import (
	"fmt"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the delivery lifecycle of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPrepared  OrderStatus = "prepared"
	OrderStatusInTransit OrderStatus = "in_transit"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPrepared, OrderStatusInTransit, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusPrepared || target == OrderStatusCancelled
	case OrderStatusPrepared:
		return target == OrderStatusInTransit || target == OrderStatusCancelled
	case OrderStatusInTransit:
		return target == OrderStatusDelivered || target == OrderStatusCancelled
	}
	return false
}

// OrderItem is a line of an order. Product name and SKU are snapshotted at placement.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	ProductSKU  string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// Order is a customer order delivered by a driver
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber      string
	CustomerID       uuid.UUID
	CustomerName     string
	Items            []OrderItem
	Status           OrderStatus
	TotalAmount      decimal.Decimal
	AssignedDriverID *uuid.UUID
	DeliveryDate     *time.Time
	Notes            string
	CancelReason     string
	PreparedAt       *time.Time
	DispatchedAt     *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
}

// NewOrder creates a pending order for a customer
func NewOrder(orderNumber string, customerID uuid.UUID, customerName string) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer is required")
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		CustomerID:        customerID,
		CustomerName:      customerName,
		Items:             make([]OrderItem, 0),
		Status:            OrderStatusPending,
		TotalAmount:       decimal.Zero,
	}, nil
}

// AddItem adds a line while the order is pending. The same product is merged into one line.
func (o *Order) AddItem(productID uuid.UUID, productName, productSKU string, quantity, unitPrice decimal.Decimal) error {
	if o.Status != OrderStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Items can only be changed on pending orders")
	}
	if productID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product is required")
	}
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			o.Items[i].Quantity = o.Items[i].Quantity.Add(quantity)
			o.Items[i].Amount = o.Items[i].Quantity.Mul(o.Items[i].UnitPrice)
			o.recalculateTotal()
			return nil
		}
	}

	o.Items = append(o.Items, OrderItem{
		ID:          uuid.New(),
		OrderID:     o.ID,
		ProductID:   productID,
		ProductName: productName,
		ProductSKU:  productSKU,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      quantity.Mul(unitPrice),
	})
	o.recalculateTotal()
	return nil
}

// Place validates a freshly built order and records the creation event
func (o *Order) Place() error {
	if len(o.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Order must have at least one item")
	}
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return nil
}

// QuantitiesByProduct sums quantities per product
func (o *Order) QuantitiesByProduct() map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(o.Items))
	for _, item := range o.Items {
		out[item.ProductID] = out[item.ProductID].Add(item.Quantity)
	}
	return out
}

// SetDeliveryDate sets the planned delivery date
func (o *Order) SetDeliveryDate(date time.Time) error {
	if o.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot change a closed order")
	}
	o.DeliveryDate = &date
	o.IncrementVersion()
	return nil
}

// SetNotes sets delivery notes
func (o *Order) SetNotes(notes string) error {
	if o.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Cannot change a closed order")
	}
	o.Notes = notes
	o.IncrementVersion()
	return nil
}

// AssignDriver assigns the driver who will deliver the order
func (o *Order) AssignDriver(driverID uuid.UUID) error {
	if driverID == uuid.Nil {
		return shared.NewDomainError("INVALID_DRIVER", "Driver is required")
	}
	if o.Status != OrderStatusPending && o.Status != OrderStatusPrepared {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot assign driver to order in %s status", o.Status))
	}
	o.AssignedDriverID = &driverID
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderDriverAssignedEvent(o))
	return nil
}

// IsAssignedTo reports whether userID is the assigned driver
func (o *Order) IsAssignedTo(userID uuid.UUID) bool {
	return o.AssignedDriverID != nil && *o.AssignedDriverID == userID
}

// Prepare marks the order as picked and packed
func (o *Order) Prepare() error {
	if err := o.transition(OrderStatusPrepared); err != nil {
		return err
	}
	now := time.Now()
	o.PreparedAt = &now
	return nil
}

// Dispatch hands the order to its driver. A driver must be assigned.
func (o *Order) Dispatch() error {
	if o.AssignedDriverID == nil {
		return shared.NewDomainError("NO_DRIVER", "A driver must be assigned before dispatch")
	}
	if err := o.transition(OrderStatusInTransit); err != nil {
		return err
	}
	now := time.Now()
	o.DispatchedAt = &now
	return nil
}

// Deliver marks the order as delivered to the customer
func (o *Order) Deliver() error {
	if err := o.transition(OrderStatusDelivered); err != nil {
		return err
	}
	now := time.Now()
	o.DeliveredAt = &now
	return nil
}

// Cancel cancels the order. The caller restores stock for every line.
func (o *Order) Cancel(reason string) error {
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move order from %s to %s", o.Status, OrderStatusCancelled))
	}
	now := time.Now()
	o.CancelledAt = &now
	o.CancelReason = reason
	return o.transition(OrderStatusCancelled)
}

func (o *Order) transition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}
	from := o.Status
	o.Status = target
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	return nil
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Amount)
	}
	o.TotalAmount = total
	o.Touch()
}

// ItemCount returns the number of lines
func (o *Order) ItemCount() int {
	return len(o.Items)
}
