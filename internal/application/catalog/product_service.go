package catalog

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService handles product-related business operations
type ProductService struct {
	productRepo catalog.ProductRepository
	txManager   shared.TransactionManager
	events      shared.EventRecorder
	logger      *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	txManager shared.TransactionManager,
	events shared.EventRecorder,
	logger *zap.Logger,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		productRepo: productRepo,
		txManager:   txManager,
		events:      events,
		logger:      logger,
	}
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	exists, err := s.productRepo.ExistsBySKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Product with this SKU already exists")
	}

	product, err := catalog.NewProduct(req.SKU, req.Name, req.Unit, req.Price)
	if err != nil {
		return nil, err
	}
	if req.Description != "" {
		if err := product.Update(req.Name, req.Description); err != nil {
			return nil, err
		}
	}
	if req.Cost != nil {
		if err := product.SetPrices(req.Price, *req.Cost); err != nil {
			return nil, err
		}
	}
	if req.MinStock != nil {
		if err := product.SetMinStock(*req.MinStock); err != nil {
			return nil, err
		}
	}
	if req.InitialStock != nil {
		if err := product.AdjustStock(*req.InitialStock); err != nil {
			return nil, err
		}
	}
	if actor, ok := identity.ActorFromContext(ctx); ok {
		product.SetCreatedBy(actor.UserID)
	}

	if err := s.save(ctx, product); err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// GetBySKU retrieves a product by SKU
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// List retrieves products with filtering and pagination
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) (shared.Paginated[ProductResponse], error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}.Normalize("name")
	if filter.OrderDir == "" {
		domainFilter.OrderDir = "asc"
	}
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.Unit != "" {
		domainFilter.Filters["unit"] = filter.Unit
	}
	if filter.LowStock {
		domainFilter.Filters["low_stock"] = true
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}

	items := make([]ProductResponse, len(products))
	for i := range products {
		items[i] = ToProductResponse(&products[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// Update applies the non-nil fields of req
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil || req.Description != nil {
		if err := product.Update(valueOr(req.Name, product.Name), valueOr(req.Description, product.Description)); err != nil {
			return nil, err
		}
	}
	if req.Price != nil || req.Cost != nil {
		if err := product.SetPrices(valueOr(req.Price, product.Price), valueOr(req.Cost, product.Cost)); err != nil {
			return nil, err
		}
	}
	if req.MinStock != nil {
		if err := product.SetMinStock(*req.MinStock); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// AdjustStock sets stock to a counted quantity, for stock takes and corrections.
// The row is locked so a concurrent order cannot interleave.
func (s *ProductService) AdjustStock(ctx context.Context, id uuid.UUID, req AdjustStockRequest) (*ProductResponse, error) {
	var product *catalog.Product
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.productRepo.FindByIDsForUpdate(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return shared.ErrNotFound
		}
		product = &locked[0]
		before := product.Stock
		if err := product.AdjustStock(req.Counted); err != nil {
			return err
		}
		if product.IsLowStock() {
			product.AddDomainEvent(catalog.NewStockLowEvent(product))
		}
		if err := s.productRepo.Save(ctx, product); err != nil {
			return err
		}
		s.logger.Info("stock adjusted",
			zap.String("sku", product.SKU),
			zap.String("before", before.String()),
			zap.String("after", product.Stock.String()),
			zap.String("reason", req.Reason),
		)
		return shared.RecordEvents(ctx, s.events, product)
	})
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// Activate makes the product orderable again
func (s *ProductService) Activate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.changeStatus(ctx, id, (*catalog.Product).Activate)
}

// Deactivate hides the product from new orders
func (s *ProductService) Deactivate(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.changeStatus(ctx, id, (*catalog.Product).Deactivate)
}

// Discontinue retires the product permanently
func (s *ProductService) Discontinue(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	return s.changeStatus(ctx, id, (*catalog.Product).Discontinue)
}

func (s *ProductService) changeStatus(ctx context.Context, id uuid.UUID, apply func(*catalog.Product) error) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(product); err != nil {
		return nil, err
	}
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// Delete deletes a product. Products on orders or purchases are kept (REFERENCED).
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.productRepo.Delete(ctx, id)
}

func (s *ProductService) save(ctx context.Context, product *catalog.Product) error {
	return s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.productRepo.Save(ctx, product); err != nil {
			return err
		}
		return shared.RecordEvents(ctx, s.events, product)
	})
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// LowStock lists active products at or under their minimum stock
func (s *ProductService) LowStock(ctx context.Context, page, pageSize int) (shared.Paginated[ProductResponse], error) {
	filter := shared.Filter{Page: page, PageSize: pageSize, OrderDir: "asc"}.Normalize("stock")
	products, err := s.productRepo.FindLowStock(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	filter.Filters["status"] = string(catalog.ProductStatusActive)
	filter.Filters["low_stock"] = true
	total, err := s.productRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	items := make([]ProductResponse, len(products))
	for i := range products {
		items[i] = ToProductResponse(&products[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
