package partner

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CustomerService handles customer-related business operations
type CustomerService struct {
	customerRepo partner.CustomerRepository
	txManager    shared.TransactionManager
	events       shared.EventRecorder
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo partner.CustomerRepository, txManager shared.TransactionManager, events shared.EventRecorder) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		txManager:    txManager,
		events:       events,
	}
}

// Create creates a new customer
func (s *CustomerService) Create(ctx context.Context, req CreateCustomerRequest) (*CustomerResponse, error) {
	exists, err := s.customerRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer with this code already exists")
	}

	customer, err := partner.NewCustomer(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if req.TaxID != "" {
		if err := customer.Update(req.Name, req.TaxID); err != nil {
			return nil, err
		}
	}
	if !req.Contact.empty() {
		if err := customer.SetContact(req.ContactName, req.Phone, req.Email); err != nil {
			return nil, err
		}
	}
	if req.Address != "" || req.City != "" || req.Zone != "" {
		if err := customer.SetAddress(req.Address, req.City, req.Zone); err != nil {
			return nil, err
		}
	}
	if req.Latitude != nil && req.Longitude != nil {
		if err := customer.SetLocation(*req.Latitude, *req.Longitude); err != nil {
			return nil, err
		}
	}
	if req.CreditLimit != nil {
		if err := customer.SetCreditLimit(*req.CreditLimit); err != nil {
			return nil, err
		}
	}
	if req.Notes != "" {
		customer.SetNotes(req.Notes)
	}
	if actor, ok := identity.ActorFromContext(ctx); ok {
		customer.SetCreatedBy(actor.UserID)
	}

	if err := s.save(ctx, customer); err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// GetByID retrieves a customer by ID
func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// List retrieves customers with filtering and pagination
func (s *CustomerService) List(ctx context.Context, filter CustomerListFilter) (shared.Paginated[CustomerResponse], error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  map[string]any{},
	}.Normalize("name")
	if filter.OrderDir == "" {
		domainFilter.OrderDir = "asc"
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.City != "" {
		domainFilter.Filters["city"] = filter.City
	}
	if filter.Zone != "" {
		domainFilter.Filters["zone"] = filter.Zone
	}

	customers, err := s.customerRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[CustomerResponse]{}, err
	}
	total, err := s.customerRepo.Count(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[CustomerResponse]{}, err
	}

	items := make([]CustomerResponse, len(customers))
	for i := range customers {
		items[i] = ToCustomerResponse(&customers[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// Update applies the non-nil fields of req
func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.TaxID != nil {
		if err := customer.Update(valueOr(req.Name, customer.Name), valueOr(req.TaxID, customer.TaxID)); err != nil {
			return nil, err
		}
	}
	if req.touchesContact() {
		if err := customer.SetContact(req.ContactPatch.merge(customer.ContactName, customer.Phone, customer.Email)); err != nil {
			return nil, err
		}
	}
	if req.Address != nil || req.City != nil || req.Zone != nil {
		if err := customer.SetAddress(
			valueOr(req.Address, customer.Address),
			valueOr(req.City, customer.City),
			valueOr(req.Zone, customer.Zone),
		); err != nil {
			return nil, err
		}
	}
	if req.Latitude != nil && req.Longitude != nil {
		if err := customer.SetLocation(*req.Latitude, *req.Longitude); err != nil {
			return nil, err
		}
	}
	if req.CreditLimit != nil {
		if err := customer.SetCreditLimit(*req.CreditLimit); err != nil {
			return nil, err
		}
	}
	if req.Notes != nil {
		customer.SetNotes(*req.Notes)
	}

	if err := s.save(ctx, customer); err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// Activate activates a customer
func (s *CustomerService) Activate(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	return s.changeStatus(ctx, id, (*partner.Customer).Activate)
}

// Deactivate deactivates a customer
func (s *CustomerService) Deactivate(ctx context.Context, id uuid.UUID) (*CustomerResponse, error) {
	return s.changeStatus(ctx, id, (*partner.Customer).Deactivate)
}

func (s *CustomerService) changeStatus(ctx context.Context, id uuid.UUID, apply func(*partner.Customer) error) (*CustomerResponse, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(customer); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	response := ToCustomerResponse(customer)
	return &response, nil
}

// Delete deletes a customer. Customers with orders are kept (REFERENCED).
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.customerRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.customerRepo.Delete(ctx, id)
}

func (s *CustomerService) save(ctx context.Context, customer *partner.Customer) error {
	return s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.customerRepo.Save(ctx, customer); err != nil {
			return err
		}
		return shared.RecordEvents(ctx, s.events, customer)
	})
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
