package models

import (
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for the Customer aggregate
type CustomerModel struct {
	AggregateModel
	Code        string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string                 `gorm:"type:varchar(200);not null"`
	TaxID       string                 `gorm:"type:varchar(50)"`
	ContactName string                 `gorm:"type:varchar(100)"`
	Phone       string                 `gorm:"type:varchar(50);index"`
	Email       string                 `gorm:"type:varchar(200)"`
	Address     string                 `gorm:"type:text"`
	City        string                 `gorm:"type:varchar(100)"`
	Zone        string                 `gorm:"type:varchar(100);index"`
	Latitude    *float64               `gorm:"type:double precision"`
	Longitude   *float64               `gorm:"type:double precision"`
	CreditLimit decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	Status      partner.CustomerStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Notes       string                 `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer
func (m *CustomerModel) ToDomain() *partner.Customer {
	return &partner.Customer{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		TaxID:             m.TaxID,
		ContactName:       m.ContactName,
		Phone:             m.Phone,
		Email:             m.Email,
		Address:           m.Address,
		City:              m.City,
		Zone:              m.Zone,
		Latitude:          m.Latitude,
		Longitude:         m.Longitude,
		CreditLimit:       m.CreditLimit,
		Status:            m.Status,
		Notes:             m.Notes,
	}
}

// CustomerModelFromDomain creates a persistence model from a domain Customer
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{
		Code:        c.Code,
		Name:        c.Name,
		TaxID:       c.TaxID,
		ContactName: c.ContactName,
		Phone:       c.Phone,
		Email:       c.Email,
		Address:     c.Address,
		City:        c.City,
		Zone:        c.Zone,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		CreditLimit: c.CreditLimit,
		Status:      c.Status,
		Notes:       c.Notes,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}

// SupplierModel is the persistence model for the Supplier aggregate
type SupplierModel struct {
	AggregateModel
	Code         string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string                 `gorm:"type:varchar(200);not null"`
	TaxID        string                 `gorm:"type:varchar(50)"`
	ContactName  string                 `gorm:"type:varchar(100)"`
	Phone        string                 `gorm:"type:varchar(50)"`
	Email        string                 `gorm:"type:varchar(200)"`
	Address      string                 `gorm:"type:text"`
	PaymentTerms int                    `gorm:"not null"`
	Status       partner.SupplierStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Notes        string                 `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// ToDomain converts the persistence model to a domain Supplier
func (m *SupplierModel) ToDomain() *partner.Supplier {
	return &partner.Supplier{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Name:              m.Name,
		TaxID:             m.TaxID,
		ContactName:       m.ContactName,
		Phone:             m.Phone,
		Email:             m.Email,
		Address:           m.Address,
		PaymentTerms:      m.PaymentTerms,
		Status:            m.Status,
		Notes:             m.Notes,
	}
}

// SupplierModelFromDomain creates a persistence model from a domain Supplier
func SupplierModelFromDomain(s *partner.Supplier) *SupplierModel {
	m := &SupplierModel{
		Code:         s.Code,
		Name:         s.Name,
		TaxID:        s.TaxID,
		ContactName:  s.ContactName,
		Phone:        s.Phone,
		Email:        s.Email,
		Address:      s.Address,
		PaymentTerms: s.PaymentTerms,
		Status:       s.Status,
		Notes:        s.Notes,
	}
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	return m
}
