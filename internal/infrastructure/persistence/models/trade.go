package models

import (
	"time"

	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate
type OrderModel struct {
	AggregateModel
	OrderNumber      string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID       uuid.UUID         `gorm:"type:uuid;not null;index"`
	CustomerName     string            `gorm:"type:varchar(200);not null"`
	Status           trade.OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	TotalAmount      decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
	AssignedDriverID *uuid.UUID        `gorm:"type:uuid;index"`
	DeliveryDate     *time.Time        `gorm:"type:date"`
	Notes            string            `gorm:"type:text"`
	CancelReason     string            `gorm:"type:varchar(500)"`
	PreparedAt       *time.Time
	DispatchedAt     *time.Time
	DeliveredAt      *time.Time
	CancelledAt      *time.Time
	Items            []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	ProductSKU  string          `gorm:"column:product_sku;type:varchar(50);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *trade.Order {
	items := make([]trade.OrderItem, len(m.Items))
	for i, it := range m.Items {
		items[i] = trade.OrderItem{
			ID:          it.ID,
			OrderID:     it.OrderID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
		}
	}
	return &trade.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		CustomerID:        m.CustomerID,
		CustomerName:      m.CustomerName,
		Items:             items,
		Status:            m.Status,
		TotalAmount:       m.TotalAmount,
		AssignedDriverID:  m.AssignedDriverID,
		DeliveryDate:      m.DeliveryDate,
		Notes:             m.Notes,
		CancelReason:      m.CancelReason,
		PreparedAt:        m.PreparedAt,
		DispatchedAt:      m.DispatchedAt,
		DeliveredAt:       m.DeliveredAt,
		CancelledAt:       m.CancelledAt,
	}
}

// OrderModelFromDomain creates a persistence model from a domain Order
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:      o.OrderNumber,
		CustomerID:       o.CustomerID,
		CustomerName:     o.CustomerName,
		Status:           o.Status,
		TotalAmount:      o.TotalAmount,
		AssignedDriverID: o.AssignedDriverID,
		DeliveryDate:     o.DeliveryDate,
		Notes:            o.Notes,
		CancelReason:     o.CancelReason,
		PreparedAt:       o.PreparedAt,
		DispatchedAt:     o.DispatchedAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.Items = make([]OrderItemModel, len(o.Items))
	for i, it := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:          it.ID,
			OrderID:     o.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount,
			CreatedAt:   o.CreatedAt,
		}
	}
	return m
}

// PurchaseModel is the persistence model for the Purchase aggregate
type PurchaseModel struct {
	AggregateModel
	PurchaseNumber string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	SupplierName   string               `gorm:"type:varchar(200);not null"`
	Status         trade.PurchaseStatus `gorm:"type:varchar(20);not null;default:'draft'"`
	TotalAmount    decimal.Decimal      `gorm:"type:decimal(18,2);not null"`
	Notes          string               `gorm:"type:text"`
	ReceivedAt     *time.Time
	CancelledAt    *time.Time
	Items          []PurchaseItemModel `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PurchaseModel) TableName() string {
	return "purchases"
}

// PurchaseItemModel is the persistence model for a purchase line
type PurchaseItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	PurchaseID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	ProductSKU  string          `gorm:"column:product_sku;type:varchar(50);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseItemModel) TableName() string {
	return "purchase_items"
}

// ToDomain converts the persistence model to a domain Purchase
func (m *PurchaseModel) ToDomain() *trade.Purchase {
	items := make([]trade.PurchaseItem, len(m.Items))
	for i, it := range m.Items {
		items[i] = trade.PurchaseItem{
			ID:          it.ID,
			PurchaseID:  it.PurchaseID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
			UnitCost:    it.UnitCost,
			Amount:      it.Amount,
		}
	}
	return &trade.Purchase{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PurchaseNumber:    m.PurchaseNumber,
		SupplierID:        m.SupplierID,
		SupplierName:      m.SupplierName,
		Items:             items,
		Status:            m.Status,
		TotalAmount:       m.TotalAmount,
		Notes:             m.Notes,
		ReceivedAt:        m.ReceivedAt,
		CancelledAt:       m.CancelledAt,
	}
}

// PurchaseModelFromDomain creates a persistence model from a domain Purchase
func PurchaseModelFromDomain(p *trade.Purchase) *PurchaseModel {
	m := &PurchaseModel{
		PurchaseNumber: p.PurchaseNumber,
		SupplierID:     p.SupplierID,
		SupplierName:   p.SupplierName,
		Status:         p.Status,
		TotalAmount:    p.TotalAmount,
		Notes:          p.Notes,
		ReceivedAt:     p.ReceivedAt,
		CancelledAt:    p.CancelledAt,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Items = make([]PurchaseItemModel, len(p.Items))
	for i, it := range p.Items {
		m.Items[i] = PurchaseItemModel{
			ID:          it.ID,
			PurchaseID:  p.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
			UnitCost:    it.UnitCost,
			Amount:      it.Amount,
			CreatedAt:   p.CreatedAt,
		}
	}
	return m
}
