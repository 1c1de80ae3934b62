package partner

import (
	"time"

	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contact is the reachability block shared by customers and suppliers
type Contact struct {
	ContactName string `json:"contact_name" binding:"max=100"`
	Phone       string `json:"phone" binding:"max=50"`
	Email       string `json:"email" binding:"omitempty,email,max=200"`
	Address     string `json:"address" binding:"max=500"`
}

func (c Contact) empty() bool {
	return c.ContactName == "" && c.Phone == "" && c.Email == ""
}

// ContactPatch changes only the contact fields that are set
type ContactPatch struct {
	ContactName *string `json:"contact_name" binding:"omitempty,max=100"`
	Phone       *string `json:"phone" binding:"omitempty,max=50"`
	Email       *string `json:"email" binding:"omitempty,email,max=200"`
	Address     *string `json:"address" binding:"omitempty,max=500"`
}

func (p ContactPatch) touchesContact() bool {
	return p.ContactName != nil || p.Phone != nil || p.Email != nil
}

// merge overlays the set fields on the current contact name, phone and email
func (p ContactPatch) merge(name, phone, email string) (string, string, string) {
	return valueOr(p.ContactName, name), valueOr(p.Phone, phone), valueOr(p.Email, email)
}

// ListQuery holds the search, status and paging parameters both lists accept
type ListQuery struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive"`
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=200"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// Party is the part of a response common to customers and suppliers
type Party struct {
	Contact
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type CreateCustomerRequest struct {
	Contact
	Code        string           `json:"code" binding:"required,min=1,max=50"`
	Name        string           `json:"name" binding:"required,min=1,max=200"`
	TaxID       string           `json:"tax_id" binding:"max=50"`
	City        string           `json:"city" binding:"max=100"`
	Zone        string           `json:"zone" binding:"max=100"`
	Latitude    *float64         `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude   *float64         `json:"longitude" binding:"omitempty,min=-180,max=180"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
	Notes       string           `json:"notes"`
}

// UpdateCustomerRequest leaves nil fields unchanged
type UpdateCustomerRequest struct {
	ContactPatch
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	TaxID       *string          `json:"tax_id" binding:"omitempty,max=50"`
	City        *string          `json:"city" binding:"omitempty,max=100"`
	Zone        *string          `json:"zone" binding:"omitempty,max=100"`
	Latitude    *float64         `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude   *float64         `json:"longitude" binding:"omitempty,min=-180,max=180"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
	Notes       *string          `json:"notes"`
}

type CustomerListFilter struct {
	ListQuery
	City string `form:"city"`
	Zone string `form:"zone"`
}

type CustomerResponse struct {
	Party
	City        string          `json:"city"`
	Zone        string          `json:"zone"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	CreatedBy   *uuid.UUID      `json:"created_by,omitempty"`
}

// ToCustomerResponse converts a domain customer to a response
func ToCustomerResponse(c *partner.Customer) CustomerResponse {
	return CustomerResponse{
		Party: Party{
			Contact:   Contact{ContactName: c.ContactName, Phone: c.Phone, Email: c.Email, Address: c.Address},
			ID:        c.ID,
			Code:      c.Code,
			Name:      c.Name,
			TaxID:     c.TaxID,
			Status:    string(c.Status),
			Notes:     c.Notes,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
			Version:   c.Version,
		},
		City:        c.City,
		Zone:        c.Zone,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		CreditLimit: c.CreditLimit,
		CreatedBy:   c.CreatedBy,
	}
}

type CreateSupplierRequest struct {
	Contact
	Code         string `json:"code" binding:"required,min=1,max=50"`
	Name         string `json:"name" binding:"required,min=1,max=200"`
	TaxID        string `json:"tax_id" binding:"max=50"`
	PaymentTerms int    `json:"payment_terms" binding:"min=0,max=365"`
	Notes        string `json:"notes"`
}

// UpdateSupplierRequest leaves nil fields unchanged
type UpdateSupplierRequest struct {
	ContactPatch
	Name         *string `json:"name" binding:"omitempty,min=1,max=200"`
	TaxID        *string `json:"tax_id" binding:"omitempty,max=50"`
	PaymentTerms *int    `json:"payment_terms" binding:"omitempty,min=0,max=365"`
	Notes        *string `json:"notes"`
}

type SupplierListFilter struct {
	ListQuery
}

type SupplierResponse struct {
	Party
	PaymentTerms int `json:"payment_terms"`
}

// ToSupplierResponse converts a domain supplier to a response
func ToSupplierResponse(s *partner.Supplier) SupplierResponse {
	return SupplierResponse{
		Party: Party{
			Contact:   Contact{ContactName: s.ContactName, Phone: s.Phone, Email: s.Email, Address: s.Address},
			ID:        s.ID,
			Code:      s.Code,
			Name:      s.Name,
			TaxID:     s.TaxID,
			Status:    string(s.Status),
			Notes:     s.Notes,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
			Version:   s.Version,
		},
		PaymentTerms: s.PaymentTerms,
	}
}
