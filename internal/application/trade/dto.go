package trade

import (
	"time"

	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItemInput is one requested line. UnitPrice defaults to the product price.
type OrderItemInput struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// CreateOrderRequest represents a request to place an order
type CreateOrderRequest struct {
	CustomerID   uuid.UUID        `json:"customer_id" binding:"required"`
	Items        []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	DeliveryDate *time.Time       `json:"delivery_date"`
	Notes        string           `json:"notes" binding:"max=2000"`
	DriverID     *uuid.UUID       `json:"driver_id"`
}

// UpdateOrderRequest changes the editable fields of an open order
type UpdateOrderRequest struct {
	DeliveryDate *time.Time `json:"delivery_date"`
	Notes        *string    `json:"notes" binding:"omitempty,max=2000"`
}

// AssignDriverRequest assigns a driver to an order
type AssignDriverRequest struct {
	DriverID uuid.UUID `json:"driver_id" binding:"required"`
}

// CancelOrderRequest cancels an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// OrderListFilter represents query parameters for listing orders
type OrderListFilter struct {
	Search     string     `form:"search"`
	Status     string     `form:"status" binding:"omitempty,oneof=pending prepared in_transit delivered cancelled"`
	CustomerID *uuid.UUID `form:"-"`
	DriverID   *uuid.UUID `form:"-"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"min=0"`
	PageSize   int        `form:"page_size" binding:"min=0,max=200"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderItemResponse represents an order line in API responses
type OrderItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	OrderNumber      string              `json:"order_number"`
	CustomerID       uuid.UUID           `json:"customer_id"`
	CustomerName     string              `json:"customer_name"`
	Items            []OrderItemResponse `json:"items,omitempty"`
	ItemCount        int                 `json:"item_count"`
	Status           string              `json:"status"`
	TotalAmount      decimal.Decimal     `json:"total_amount"`
	AssignedDriverID *uuid.UUID          `json:"assigned_driver_id,omitempty"`
	DeliveryDate     *time.Time          `json:"delivery_date,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	CancelReason     string              `json:"cancel_reason,omitempty"`
	PreparedAt       *time.Time          `json:"prepared_at,omitempty"`
	DispatchedAt     *time.Time          `json:"dispatched_at,omitempty"`
	DeliveredAt      *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time          `json:"cancelled_at,omitempty"`
	CreatedBy        *uuid.UUID          `json:"created_by,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Version          int                 `json:"version"`
}

// ToOrderResponse converts a domain order to a response
func ToOrderResponse(o *trade.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		}
	}
	return OrderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		CustomerID:       o.CustomerID,
		CustomerName:     o.CustomerName,
		Items:            items,
		ItemCount:        o.ItemCount(),
		Status:           string(o.Status),
		TotalAmount:      o.TotalAmount,
		AssignedDriverID: o.AssignedDriverID,
		DeliveryDate:     o.DeliveryDate,
		Notes:            o.Notes,
		CancelReason:     o.CancelReason,
		PreparedAt:       o.PreparedAt,
		DispatchedAt:     o.DispatchedAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
		CreatedBy:        o.CreatedBy,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Version:          o.Version,
	}
}

// PurchaseItemInput is one line of a purchase
type PurchaseItemInput struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreatePurchaseRequest represents a request to create a draft purchase
type CreatePurchaseRequest struct {
	SupplierID uuid.UUID           `json:"supplier_id" binding:"required"`
	Items      []PurchaseItemInput `json:"items" binding:"required,min=1,dive"`
	Notes      string              `json:"notes" binding:"max=2000"`
}

// PurchaseListFilter represents query parameters for listing purchases
type PurchaseListFilter struct {
	Search     string     `form:"search"`
	Status     string     `form:"status" binding:"omitempty,oneof=draft received cancelled"`
	SupplierID *uuid.UUID `form:"-"`
	Page       int        `form:"page" binding:"min=0"`
	PageSize   int        `form:"page_size" binding:"min=0,max=200"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PurchaseItemResponse represents a purchase line in API responses
type PurchaseItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Amount      decimal.Decimal `json:"amount"`
}

// PurchaseResponse represents a purchase in API responses
type PurchaseResponse struct {
	ID             uuid.UUID              `json:"id"`
	PurchaseNumber string                 `json:"purchase_number"`
	SupplierID     uuid.UUID              `json:"supplier_id"`
	SupplierName   string                 `json:"supplier_name"`
	Items          []PurchaseItemResponse `json:"items,omitempty"`
	Status         string                 `json:"status"`
	TotalAmount    decimal.Decimal        `json:"total_amount"`
	Notes          string                 `json:"notes,omitempty"`
	ReceivedAt     *time.Time             `json:"received_at,omitempty"`
	CancelledAt    *time.Time             `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Version        int                    `json:"version"`
}

// ToPurchaseResponse converts a domain purchase to a response
func ToPurchaseResponse(p *trade.Purchase) PurchaseResponse {
	items := make([]PurchaseItemResponse, len(p.Items))
	for i, item := range p.Items {
		items[i] = PurchaseItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			UnitCost:    item.UnitCost,
			Amount:      item.Amount,
		}
	}
	return PurchaseResponse{
		ID:             p.ID,
		PurchaseNumber: p.PurchaseNumber,
		SupplierID:     p.SupplierID,
		SupplierName:   p.SupplierName,
		Items:          items,
		Status:         string(p.Status),
		TotalAmount:    p.TotalAmount,
		Notes:          p.Notes,
		ReceivedAt:     p.ReceivedAt,
		CancelledAt:    p.CancelledAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Version:        p.Version,
	}
}
