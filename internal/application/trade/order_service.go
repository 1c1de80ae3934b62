package trade

import (
	"context"
	"slices"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles order placement and the delivery lifecycle
type OrderService struct {
	orderRepo    trade.OrderRepository
	productRepo  catalog.ProductRepository
	customerRepo partner.CustomerRepository
	txManager    shared.TransactionManager
	events       shared.EventRecorder
	logger       *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo trade.OrderRepository,
	productRepo catalog.ProductRepository,
	customerRepo partner.CustomerRepository,
	txManager shared.TransactionManager,
	events shared.EventRecorder,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		txManager:    txManager,
		events:       events,
		logger:       logger,
	}
}

// Create places an order and deducts its stock in one transaction.
// Products are locked before the check so two orders cannot oversell the same stock.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Order must have at least one item")
	}

	customer, err := s.customerRepo.FindByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !customer.IsActive() {
		return nil, shared.NewDomainError("INVALID_STATE", "Customer is inactive")
	}

	var order *trade.Order
	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		number, err := s.orderRepo.NextOrderNumber(ctx)
		if err != nil {
			return err
		}
		order, err = trade.NewOrder(number, customer.ID, customer.Name)
		if err != nil {
			return err
		}

		products, err := s.lockProducts(ctx, productIDs(req.Items))
		if err != nil {
			return err
		}
		for _, item := range req.Items {
			product := products[item.ProductID]
			if !product.IsActive() {
				return shared.NewDomainError("INVALID_STATE", "Product "+product.SKU+" is not available")
			}
			price := product.Price
			if item.UnitPrice != nil {
				price = *item.UnitPrice
			}
			if err := order.AddItem(product.ID, product.Name, product.SKU, item.Quantity, price); err != nil {
				return err
			}
		}
		if err := order.Place(); err != nil {
			return err
		}

		touched := make([]*catalog.Product, 0, len(products))
		for productID, qty := range order.QuantitiesByProduct() {
			product := products[productID]
			if err := product.DeductStock(qty); err != nil {
				return err
			}
			touched = append(touched, product)
		}

		if req.DeliveryDate != nil {
			if err := order.SetDeliveryDate(*req.DeliveryDate); err != nil {
				return err
			}
		}
		if req.Notes != "" {
			if err := order.SetNotes(req.Notes); err != nil {
				return err
			}
		}
		if req.DriverID != nil {
			if err := order.AssignDriver(*req.DriverID); err != nil {
				return err
			}
		}
		if actor, ok := identity.ActorFromContext(ctx); ok {
			order.SetCreatedBy(actor.UserID)
		}

		if err := s.productRepo.SaveAll(ctx, touched); err != nil {
			return err
		}
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return err
		}
		return shared.RecordEvents(ctx, s.events, aggregates(order, touched)...)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("customer_id", order.CustomerID.String()),
		zap.String("total", order.TotalAmount.String()),
	)
	response := ToOrderResponse(order)
	return &response, nil
}

// GetByID retrieves an order within the caller's row scope
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// GetByNumber retrieves an order by its number
func (s *OrderService) GetByNumber(ctx context.Context, number string) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// List retrieves orders visible to the caller
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) (shared.Paginated[OrderResponse], error) {
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
	if filter.CustomerID != nil {
		domainFilter.Filters["customer_id"] = *filter.CustomerID
	}
	if filter.DriverID != nil {
		domainFilter.Filters["driver_id"] = *filter.DriverID
	}
	if filter.From != nil {
		domainFilter.Filters["from"] = *filter.From
	}
	if filter.To != nil {
		domainFilter.Filters["to"] = *filter.To
	}

	orders, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}

	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderResponse(&orders[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// Update changes delivery date and notes of an open order
func (s *OrderService) Update(ctx context.Context, id uuid.UUID, req UpdateOrderRequest) (*OrderResponse, error) {
	return s.mutate(ctx, id, func(_ context.Context, order *trade.Order) error {
		if req.DeliveryDate != nil {
			if err := order.SetDeliveryDate(*req.DeliveryDate); err != nil {
				return err
			}
		}
		if req.Notes != nil {
			return order.SetNotes(*req.Notes)
		}
		return nil
	})
}

// AssignDriver assigns the delivering driver
func (s *OrderService) AssignDriver(ctx context.Context, id uuid.UUID, req AssignDriverRequest) (*OrderResponse, error) {
	return s.mutate(ctx, id, func(_ context.Context, order *trade.Order) error {
		return order.AssignDriver(req.DriverID)
	})
}

// Prepare moves a pending order to prepared
func (s *OrderService) Prepare(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, id, func(_ context.Context, order *trade.Order) error {
		return order.Prepare()
	})
}

// Dispatch moves a prepared order to in transit
func (s *OrderService) Dispatch(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, id, func(_ context.Context, order *trade.Order) error {
		return order.Dispatch()
	})
}

// Deliver marks the order delivered. Only the assigned driver or an admin may do it.
func (s *OrderService) Deliver(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, id, func(ctx context.Context, order *trade.Order) error {
		actor, ok := identity.ActorFromContext(ctx)
		if !ok {
			return shared.ErrUnauthorized
		}
		if actor.Role != identity.RoleAdmin && !order.IsAssignedTo(actor.UserID) {
			return shared.NewDomainError("FORBIDDEN", "Only the assigned driver can deliver this order")
		}
		return order.Deliver()
	})
}

// Cancel cancels the order and puts every line back into stock
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	return s.mutate(ctx, id, func(ctx context.Context, order *trade.Order) error {
		if err := order.Cancel(req.Reason); err != nil {
			return err
		}
		quantities := order.QuantitiesByProduct()
		ids := make([]uuid.UUID, 0, len(quantities))
		for productID := range quantities {
			ids = append(ids, productID)
		}
		products, err := s.lockProducts(ctx, ids)
		if err != nil {
			return err
		}
		restored := make([]*catalog.Product, 0, len(products))
		for productID, qty := range quantities {
			product := products[productID]
			if err := product.AddStock(qty); err != nil {
				return err
			}
			restored = append(restored, product)
		}
		return s.productRepo.SaveAll(ctx, restored)
	})
}

// mutate loads the order, applies fn and saves inside one transaction
func (s *OrderService) mutate(ctx context.Context, id uuid.UUID, fn func(context.Context, *trade.Order) error) (*OrderResponse, error) {
	var order *trade.Order
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orderRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, order); err != nil {
			return err
		}
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return err
		}
		return shared.RecordEvents(ctx, s.events, order)
	})
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// lockProducts loads the products FOR UPDATE keyed by ID. A missing ID is NOT_FOUND.
func (s *OrderService) lockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	return lockProducts(ctx, s.productRepo, ids)
}

func lockProducts(ctx context.Context, repo catalog.ProductRepository, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)
	locked, err := repo.FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*catalog.Product, len(locked))
	for i := range locked {
		out[locked[i].ID] = &locked[i]
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, shared.NewDomainError("NOT_FOUND", "Product "+id.String()+" not found")
		}
	}
	return out, nil
}

func productIDs(items []OrderItemInput) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	return ids
}

func aggregates[T shared.AggregateRoot](head shared.AggregateRoot, rest []T) []shared.AggregateRoot {
	out := make([]shared.AggregateRoot, 0, len(rest)+1)
	out = append(out, head)
	for _, agg := range rest {
		out = append(out, agg)
	}
	return out
}

