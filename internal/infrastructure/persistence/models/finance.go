package models

import (
	"time"

	"github.com/distribuidora/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment aggregate.
// Exactly one of OrderID and PurchaseID is set.
type PaymentModel struct {
	AggregateModel
	OrderID    *uuid.UUID               `gorm:"type:uuid;index"`
	PurchaseID *uuid.UUID               `gorm:"type:uuid;index"`
	Direction  finance.PaymentDirection `gorm:"type:varchar(20);not null"`
	Method     finance.PaymentMethod    `gorm:"type:varchar(20);not null"`
	Amount     decimal.Decimal          `gorm:"type:decimal(18,2);not null"`
	Reference  string                   `gorm:"type:varchar(100)"`
	PaidAt     time.Time                `gorm:"not null;index"`
	Notes      string                   `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *finance.Payment {
	return &finance.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderID:           m.OrderID,
		PurchaseID:        m.PurchaseID,
		Direction:         m.Direction,
		Method:            m.Method,
		Amount:            m.Amount,
		Reference:         m.Reference,
		PaidAt:            m.PaidAt,
		Notes:             m.Notes,
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{
		OrderID:    p.OrderID,
		PurchaseID: p.PurchaseID,
		Direction:  p.Direction,
		Method:     p.Method,
		Amount:     p.Amount,
		Reference:  p.Reference,
		PaidAt:     p.PaidAt,
		Notes:      p.Notes,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}
