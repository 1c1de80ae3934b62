package partner

import (
	"regexp"
	"strings"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

var (
	codeRegex  = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// Customer is a shop or business the distributor delivers to
type Customer struct {
	shared.BaseAggregateRoot
	Code        string
	Name        string
	TaxID       string
	ContactName string
	Phone       string
	Email       string
	Address     string
	City        string
	Zone        string // delivery zone, used to group route stops
	Latitude    *float64
	Longitude   *float64
	CreditLimit decimal.Decimal
	Status      CustomerStatus
	Notes       string
}

// NewCustomer creates a new active customer
func NewCustomer(code, name string) (*Customer, error) {
	if err := validateCode("CUSTOMER", code); err != nil {
		return nil, err
	}
	if err := validateName("CUSTOMER", name); err != nil {
		return nil, err
	}

	customer := &Customer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(strings.TrimSpace(code)),
		Name:              strings.TrimSpace(name),
		CreditLimit:       decimal.Zero,
		Status:            CustomerStatusActive,
	}
	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))
	return customer, nil
}

// Update changes the customer's name and tax ID
func (c *Customer) Update(name, taxID string) error {
	if err := validateName("CUSTOMER", name); err != nil {
		return err
	}
	if len(taxID) > 50 {
		return shared.NewDomainError("INVALID_TAX_ID", "Tax ID cannot exceed 50 characters")
	}
	c.Name = strings.TrimSpace(name)
	c.TaxID = strings.TrimSpace(taxID)
	c.IncrementVersion()
	return nil
}

// SetContact sets contact person, phone and email
func (c *Customer) SetContact(contactName, phone, email string) error {
	if err := validateContact(contactName, phone, email); err != nil {
		return err
	}
	c.ContactName = strings.TrimSpace(contactName)
	c.Phone = strings.TrimSpace(phone)
	c.Email = strings.ToLower(strings.TrimSpace(email))
	c.IncrementVersion()
	return nil
}

// SetAddress sets the delivery address and zone
func (c *Customer) SetAddress(address, city, zone string) error {
	if len(address) > 500 {
		return shared.NewDomainError("INVALID_ADDRESS", "Address cannot exceed 500 characters")
	}
	if len(city) > 100 || len(zone) > 100 {
		return shared.NewDomainError("INVALID_ADDRESS", "City and zone cannot exceed 100 characters")
	}
	c.Address = strings.TrimSpace(address)
	c.City = strings.TrimSpace(city)
	c.Zone = strings.TrimSpace(zone)
	c.IncrementVersion()
	return nil
}

// SetLocation sets the geographic coordinates used by route planning
func (c *Customer) SetLocation(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return shared.NewDomainError("INVALID_LOCATION", "Coordinates out of range")
	}
	c.Latitude = &lat
	c.Longitude = &lng
	c.IncrementVersion()
	return nil
}

// SetCreditLimit sets the customer's credit limit
func (c *Customer) SetCreditLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}
	c.CreditLimit = limit
	c.IncrementVersion()
	return nil
}

// SetNotes sets free-form notes
func (c *Customer) SetNotes(notes string) {
	c.Notes = notes
	c.IncrementVersion()
}

// Activate activates the customer
func (c *Customer) Activate() error {
	if c.Status == CustomerStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Customer is already active")
	}
	c.Status = CustomerStatusActive
	c.IncrementVersion()
	return nil
}

// Deactivate deactivates the customer; inactive customers cannot place orders
func (c *Customer) Deactivate() error {
	if c.Status == CustomerStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Customer is already inactive")
	}
	c.Status = CustomerStatusInactive
	c.IncrementVersion()
	return nil
}

// IsActive returns true if the customer can place orders
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}

func validateCode(entity, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", strings.ToLower(entity)+" code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", strings.ToLower(entity)+" code cannot exceed 50 characters")
	}
	if !codeRegex.MatchString(code) {
		return shared.NewDomainError("INVALID_CODE", "Code can only contain letters, numbers, underscores, and hyphens")
	}
	return nil
}

func validateName(entity, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", strings.ToLower(entity)+" name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", strings.ToLower(entity)+" name cannot exceed 200 characters")
	}
	return nil
}

func validateContact(contactName, phone, email string) error {
	if len(contactName) > 100 {
		return shared.NewDomainError("INVALID_CONTACT", "Contact name cannot exceed 100 characters")
	}
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}
	email = strings.TrimSpace(email)
	if email != "" && !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
