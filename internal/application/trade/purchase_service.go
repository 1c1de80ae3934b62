package trade

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseService handles stock replenishment from suppliers
type PurchaseService struct {
	purchaseRepo trade.PurchaseRepository
	productRepo  catalog.ProductRepository
	supplierRepo partner.SupplierRepository
	txManager    shared.TransactionManager
	events       shared.EventRecorder
	logger       *zap.Logger
}

// NewPurchaseService creates a new PurchaseService
func NewPurchaseService(
	purchaseRepo trade.PurchaseRepository,
	productRepo catalog.ProductRepository,
	supplierRepo partner.SupplierRepository,
	txManager shared.TransactionManager,
	events shared.EventRecorder,
	logger *zap.Logger,
) *PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseService{
		purchaseRepo: purchaseRepo,
		productRepo:  productRepo,
		supplierRepo: supplierRepo,
		txManager:    txManager,
		events:       events,
		logger:       logger,
	}
}

// Create creates a draft purchase
func (s *PurchaseService) Create(ctx context.Context, req CreatePurchaseRequest) (*PurchaseResponse, error) {
	supplier, err := s.supplierRepo.FindByID(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.IsActive() {
		return nil, shared.NewDomainError("INVALID_STATE", "Supplier is inactive")
	}

	ids := make([]uuid.UUID, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	var purchase *trade.Purchase
	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		number, err := s.purchaseRepo.NextPurchaseNumber(ctx)
		if err != nil {
			return err
		}
		purchase, err = trade.NewPurchase(number, supplier.ID, supplier.Name)
		if err != nil {
			return err
		}
		for _, item := range req.Items {
			product, ok := byID[item.ProductID]
			if !ok {
				return shared.NewDomainError("NOT_FOUND", "Product "+item.ProductID.String()+" not found")
			}
			if err := purchase.AddItem(product.ID, product.Name, product.SKU, item.Quantity, item.UnitCost); err != nil {
				return err
			}
		}
		purchase.Notes = req.Notes
		if actor, ok := identity.ActorFromContext(ctx); ok {
			purchase.SetCreatedBy(actor.UserID)
		}
		return s.purchaseRepo.Save(ctx, purchase)
	})
	if err != nil {
		return nil, err
	}
	response := ToPurchaseResponse(purchase)
	return &response, nil
}

// GetByID retrieves a purchase with its items
func (s *PurchaseService) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseResponse, error) {
	purchase, err := s.purchaseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseResponse(purchase)
	return &response, nil
}

// List retrieves purchases with filtering and pagination
func (s *PurchaseService) List(ctx context.Context, filter PurchaseListFilter) (shared.Paginated[PurchaseResponse], error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}.Normalize("created_at")
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.SupplierID != nil {
		domainFilter.Filters["supplier_id"] = *filter.SupplierID
	}

	purchases, err := s.purchaseRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[PurchaseResponse]{}, err
	}
	total, err := s.purchaseRepo.Count(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[PurchaseResponse]{}, err
	}
	items := make([]PurchaseResponse, len(purchases))
	for i := range purchases {
		items[i] = ToPurchaseResponse(&purchases[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// Receive marks the goods as received, adds every line to stock and records
// the line cost as the product's last cost, all in one transaction
func (s *PurchaseService) Receive(ctx context.Context, id uuid.UUID) (*PurchaseResponse, error) {
	var purchase *trade.Purchase
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		purchase, err = s.purchaseRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := purchase.Receive(); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(purchase.Items))
		for i, item := range purchase.Items {
			ids[i] = item.ProductID
		}
		products, err := lockProducts(ctx, s.productRepo, ids)
		if err != nil {
			return err
		}
		for _, item := range purchase.Items {
			product := products[item.ProductID]
			if err := product.AddStock(item.Quantity); err != nil {
				return err
			}
			if err := product.SetPrices(product.Price, item.UnitCost); err != nil {
				return err
			}
		}
		touched := make([]*catalog.Product, 0, len(products))
		for _, product := range products {
			touched = append(touched, product)
		}

		if err := s.productRepo.SaveAll(ctx, touched); err != nil {
			return err
		}
		if err := s.purchaseRepo.Save(ctx, purchase); err != nil {
			return err
		}
		return shared.RecordEvents(ctx, s.events, aggregates(purchase, touched)...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase received",
		zap.String("purchase_number", purchase.PurchaseNumber),
		zap.Int("lines", len(purchase.Items)),
	)
	response := ToPurchaseResponse(purchase)
	return &response, nil
}

// Cancel cancels a draft purchase
func (s *PurchaseService) Cancel(ctx context.Context, id uuid.UUID) (*PurchaseResponse, error) {
	purchase, err := s.purchaseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := purchase.Cancel(); err != nil {
		return nil, err
	}
	if err := s.purchaseRepo.Save(ctx, purchase); err != nil {
		return nil, err
	}
	response := ToPurchaseResponse(purchase)
	return &response, nil
}
