package catalog

import (
	"regexp"
	"strings"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

var skuRegex = regexp.MustCompile(`^[A-Za-z0-9_\-.]+$`)

// Product is a sellable item with its on-hand stock.
// Stock never goes negative: every decrement goes through DeductStock.
type Product struct {
	shared.BaseAggregateRoot
	SKU         string
	Name        string
	Description string
	Unit        string
	Price       decimal.Decimal // selling price
	Cost        decimal.Decimal // last purchase cost
	Stock       decimal.Decimal
	MinStock    decimal.Decimal // low stock alert threshold
	Status      ProductStatus
}

// NewProduct creates a new active product with zero stock
func NewProduct(sku, name, unit string, price decimal.Decimal) (*Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" || len(sku) > 50 || !skuRegex.MatchString(sku) {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU must be 1-50 letters, numbers, dots, underscores or hyphens")
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name must be 1-200 characters")
	}
	unit = strings.TrimSpace(unit)
	if unit == "" || len(unit) > 20 {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit must be 1-20 characters")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               strings.ToUpper(sku),
		Name:              name,
		Unit:              unit,
		Price:             price,
		Cost:              decimal.Zero,
		Stock:             decimal.Zero,
		MinStock:          decimal.Zero,
		Status:            ProductStatusActive,
	}
	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// Update changes name and description
func (p *Product) Update(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name must be 1-200 characters")
	}
	p.Name = name
	p.Description = description
	p.IncrementVersion()
	return nil
}

// SetPrices sets the selling price and cost
func (p *Product) SetPrices(price, cost decimal.Decimal) error {
	if price.IsNegative() || cost.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Prices cannot be negative")
	}
	p.Price = price
	p.Cost = cost
	p.IncrementVersion()
	return nil
}

// SetMinStock sets the minimum stock level for alerts
func (p *Product) SetMinStock(minStock decimal.Decimal) error {
	if minStock.IsNegative() {
		return shared.NewDomainError("INVALID_MIN_STOCK", "Minimum stock cannot be negative")
	}
	p.MinStock = minStock
	p.IncrementVersion()
	return nil
}

// HasStock reports whether quantity can be taken without going negative
func (p *Product) HasStock(quantity decimal.Decimal) bool {
	return p.Stock.GreaterThanOrEqual(quantity)
}

// DeductStock takes quantity out of stock for an order
func (p *Product) DeductStock(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !p.HasStock(quantity) {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			"Insufficient stock for "+p.SKU+": available "+p.Stock.String()+", requested "+quantity.String())
	}
	p.Stock = p.Stock.Sub(quantity)
	p.IncrementVersion()
	if p.IsLowStock() {
		p.AddDomainEvent(NewStockLowEvent(p))
	}
	return nil
}

// AddStock puts quantity back into stock (purchase received, order cancelled)
func (p *Product) AddStock(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	p.Stock = p.Stock.Add(quantity)
	p.IncrementVersion()
	return nil
}

// AdjustStock sets stock to an absolute counted value
func (p *Product) AdjustStock(counted decimal.Decimal) error {
	if counted.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Stock cannot be negative")
	}
	p.Stock = counted
	p.IncrementVersion()
	return nil
}

// IsLowStock reports whether stock is at or under the alert threshold
func (p *Product) IsLowStock() bool {
	return p.MinStock.IsPositive() && p.Stock.LessThanOrEqual(p.MinStock)
}

// Activate activates the product
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Product is already active")
	}
	if p.Status == ProductStatusDiscontinued {
		return shared.NewDomainError("INVALID_STATE", "Discontinued products cannot be reactivated")
	}
	p.Status = ProductStatusActive
	p.IncrementVersion()
	return nil
}

// Deactivate hides the product from new orders
func (p *Product) Deactivate() error {
	if p.Status != ProductStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Only active products can be deactivated")
	}
	p.Status = ProductStatusInactive
	p.IncrementVersion()
	return nil
}

// Discontinue permanently retires the product
func (p *Product) Discontinue() error {
	if p.Status == ProductStatusDiscontinued {
		return shared.NewDomainError("INVALID_STATE", "Product is already discontinued")
	}
	p.Status = ProductStatusDiscontinued
	p.IncrementVersion()
	return nil
}

// IsActive returns true if the product can be ordered
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}
