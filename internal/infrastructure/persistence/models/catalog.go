package models

import (
	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product aggregate.
// The stock column carries a CHECK (stock >= 0) constraint in the schema.
type ProductModel struct {
	AggregateModel
	SKU         string                `gorm:"column:sku;type:varchar(50);not null;uniqueIndex"`
	Name        string                `gorm:"type:varchar(200);not null"`
	Description string                `gorm:"type:text"`
	Unit        string                `gorm:"type:varchar(20);not null"`
	Price       decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Cost        decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Stock       decimal.Decimal       `gorm:"type:decimal(18,3);not null;check:stock >= 0"`
	MinStock    decimal.Decimal       `gorm:"type:decimal(18,3);not null"`
	Status      catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		SKU:               m.SKU,
		Name:              m.Name,
		Description:       m.Description,
		Unit:              m.Unit,
		Price:             m.Price,
		Cost:              m.Cost,
		Stock:             m.Stock,
		MinStock:          m.MinStock,
		Status:            m.Status,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Unit:        p.Unit,
		Price:       p.Price,
		Cost:        p.Cost,
		Stock:       p.Stock,
		MinStock:    p.MinStock,
		Status:      p.Status,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}
