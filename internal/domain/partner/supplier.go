package partner

import (
	"strings"

	"github.com/distribuidora/backend/internal/domain/shared"
)

// SupplierStatus represents the status of a supplier
type SupplierStatus string

const (
	SupplierStatusActive   SupplierStatus = "active"
	SupplierStatusInactive SupplierStatus = "inactive"
)

// Supplier is a vendor the distributor buys stock from
type Supplier struct {
	shared.BaseAggregateRoot
	Code         string
	Name         string
	TaxID        string
	ContactName  string
	Phone        string
	Email        string
	Address      string
	PaymentTerms int // days
	Status       SupplierStatus
	Notes        string
}

// NewSupplier creates a new active supplier
func NewSupplier(code, name string) (*Supplier, error) {
	if err := validateCode("SUPPLIER", code); err != nil {
		return nil, err
	}
	if err := validateName("SUPPLIER", name); err != nil {
		return nil, err
	}

	supplier := &Supplier{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(strings.TrimSpace(code)),
		Name:              strings.TrimSpace(name),
		Status:            SupplierStatusActive,
	}
	supplier.AddDomainEvent(NewSupplierCreatedEvent(supplier))
	return supplier, nil
}

// Update changes the supplier's name, tax ID and address
func (s *Supplier) Update(name, taxID, address string) error {
	if err := validateName("SUPPLIER", name); err != nil {
		return err
	}
	s.Name = strings.TrimSpace(name)
	s.TaxID = strings.TrimSpace(taxID)
	s.Address = strings.TrimSpace(address)
	s.IncrementVersion()
	return nil
}

// SetContact sets contact person, phone and email
func (s *Supplier) SetContact(contactName, phone, email string) error {
	if err := validateContact(contactName, phone, email); err != nil {
		return err
	}
	s.ContactName = strings.TrimSpace(contactName)
	s.Phone = strings.TrimSpace(phone)
	s.Email = strings.ToLower(strings.TrimSpace(email))
	s.IncrementVersion()
	return nil
}

// SetPaymentTerms sets the payment terms in days
func (s *Supplier) SetPaymentTerms(days int) error {
	if days < 0 || days > 365 {
		return shared.NewDomainError("INVALID_PAYMENT_TERMS", "Payment terms must be between 0 and 365 days")
	}
	s.PaymentTerms = days
	s.IncrementVersion()
	return nil
}

// SetNotes sets free-form notes
func (s *Supplier) SetNotes(notes string) {
	s.Notes = notes
	s.IncrementVersion()
}

// Deactivate deactivates the supplier
func (s *Supplier) Deactivate() error {
	if s.Status == SupplierStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Supplier is already inactive")
	}
	s.Status = SupplierStatusInactive
	s.IncrementVersion()
	return nil
}

// Activate activates the supplier
func (s *Supplier) Activate() error {
	if s.Status == SupplierStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Supplier is already active")
	}
	s.Status = SupplierStatusActive
	s.IncrementVersion()
	return nil
}

// IsActive returns true if purchases can be placed with the supplier
func (s *Supplier) IsActive() bool {
	return s.Status == SupplierStatusActive
}
