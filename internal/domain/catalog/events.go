package catalog

import (
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeProduct = "Product"

	EventTypeProductCreated = "product.created"
	EventTypeStockLow       = "stock.low"
)

// ProductCreatedEvent is published when a product is created
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(p *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, p.ID),
		SKU:             p.SKU,
		Name:            p.Name,
	}
}

// StockLowEvent is published when a deduction leaves stock at or below MinStock
type StockLowEvent struct {
	shared.BaseDomainEvent
	SKU      string          `json:"sku"`
	Stock    decimal.Decimal `json:"stock"`
	MinStock decimal.Decimal `json:"min_stock"`
}

// NewStockLowEvent creates a new StockLowEvent
func NewStockLowEvent(p *Product) *StockLowEvent {
	return &StockLowEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockLow, AggregateTypeProduct, p.ID),
		SKU:             p.SKU,
		Stock:           p.Stock,
		MinStock:        p.MinStock,
	}
}
