package finance

import (
	"context"
	"time"

	"github.com/distribuidora/backend/internal/domain/finance"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService records customer and supplier payments
type PaymentService struct {
	paymentRepo  finance.PaymentRepository
	orderRepo    trade.OrderRepository
	purchaseRepo trade.PurchaseRepository
	txManager    shared.TransactionManager
	events       shared.EventRecorder
	logger       *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo finance.PaymentRepository,
	orderRepo trade.OrderRepository,
	purchaseRepo trade.PurchaseRepository,
	txManager shared.TransactionManager,
	events shared.EventRecorder,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		paymentRepo:  paymentRepo,
		orderRepo:    orderRepo,
		purchaseRepo: purchaseRepo,
		txManager:    txManager,
		events:       events,
		logger:       logger,
	}
}

// Record records a payment against the order or purchase named in req
func (s *PaymentService) Record(ctx context.Context, req RecordPaymentRequest) (*PaymentResponse, error) {
	switch {
	case req.OrderID != nil && req.PurchaseID == nil:
		return s.RecordOrderPayment(ctx, *req.OrderID, req)
	case req.PurchaseID != nil && req.OrderID == nil:
		return s.RecordPurchasePayment(ctx, *req.PurchaseID, req)
	default:
		return nil, shared.NewDomainError("INVALID_INPUT", "Exactly one of order_id and purchase_id is required")
	}
}

// RecordOrderPayment records money received for an order.
// Drivers may only collect on orders assigned to them.
func (s *PaymentService) RecordOrderPayment(ctx context.Context, orderID uuid.UUID, req RecordPaymentRequest) (*PaymentResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == trade.OrderStatusCancelled {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot record a payment for a cancelled order")
	}
	actor, ok := identity.ActorFromContext(ctx)
	if ok && actor.Role == identity.RoleDriver && !order.IsAssignedTo(actor.UserID) {
		return nil, shared.NewDomainError("FORBIDDEN", "Drivers can only collect payments for their own deliveries")
	}

	payment, err := finance.NewOrderPayment(order.ID, finance.PaymentMethod(req.Method), req.Amount, paidAt(req.PaidAt))
	if err != nil {
		return nil, err
	}
	return s.save(ctx, payment, req)
}

// RecordPurchasePayment records money paid to a supplier
func (s *PaymentService) RecordPurchasePayment(ctx context.Context, purchaseID uuid.UUID, req RecordPaymentRequest) (*PaymentResponse, error) {
	purchase, err := s.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.Status == trade.PurchaseStatusCancelled {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot record a payment for a cancelled purchase")
	}

	payment, err := finance.NewPurchasePayment(purchase.ID, finance.PaymentMethod(req.Method), req.Amount, paidAt(req.PaidAt))
	if err != nil {
		return nil, err
	}
	return s.save(ctx, payment, req)
}

func (s *PaymentService) save(ctx context.Context, payment *finance.Payment, req RecordPaymentRequest) (*PaymentResponse, error) {
	if err := payment.SetReference(req.Reference, req.Notes); err != nil {
		return nil, err
	}
	if actor, ok := identity.ActorFromContext(ctx); ok {
		payment.SetCreatedBy(actor.UserID)
	}
	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.paymentRepo.Save(ctx, payment); err != nil {
			return err
		}
		return shared.RecordEvents(ctx, s.events, payment)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("direction", string(payment.Direction)),
		zap.String("amount", payment.Amount.String()),
	)
	response := ToPaymentResponse(payment)
	return &response, nil
}

// GetByID retrieves a payment within the caller's row scope
func (s *PaymentService) GetByID(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToPaymentResponse(payment)
	return &response, nil
}

// List retrieves payments visible to the caller
func (s *PaymentService) List(ctx context.Context, filter PaymentListFilter) (shared.Paginated[PaymentResponse], error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}.Normalize("paid_at")
	if filter.OrderID != nil {
		domainFilter.Filters["order_id"] = *filter.OrderID
	}
	if filter.PurchaseID != nil {
		domainFilter.Filters["purchase_id"] = *filter.PurchaseID
	}
	if filter.Direction != "" {
		domainFilter.Filters["direction"] = filter.Direction
	}
	if filter.Method != "" {
		domainFilter.Filters["method"] = filter.Method
	}
	if filter.From != nil {
		domainFilter.Filters["from"] = *filter.From
	}
	if filter.To != nil {
		domainFilter.Filters["to"] = *filter.To
	}

	payments, err := s.paymentRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[PaymentResponse]{}, err
	}
	total, err := s.paymentRepo.Count(ctx, domainFilter)
	if err != nil {
		return shared.Paginated[PaymentResponse]{}, err
	}
	items := make([]PaymentResponse, len(payments))
	for i := range payments {
		items[i] = ToPaymentResponse(&payments[i])
	}
	return shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize), nil
}

// OrderBalance returns the payments of an order with the paid total and what is still owed
func (s *PaymentService) OrderBalance(ctx context.Context, orderID uuid.UUID) (*BalanceResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	paid, err := s.paymentRepo.SumByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return s.balance(ctx, order.TotalAmount, paid, "order_id", order.ID)
}

// PurchaseBalance returns the payments of a purchase with what is still owed to the supplier
func (s *PaymentService) PurchaseBalance(ctx context.Context, purchaseID uuid.UUID) (*BalanceResponse, error) {
	purchase, err := s.purchaseRepo.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	paid, err := s.paymentRepo.SumByPurchase(ctx, purchase.ID)
	if err != nil {
		return nil, err
	}
	return s.balance(ctx, purchase.TotalAmount, paid, "purchase_id", purchase.ID)
}

func (s *PaymentService) balance(ctx context.Context, total, paid decimal.Decimal, key string, id uuid.UUID) (*BalanceResponse, error) {
	filter := shared.Filter{PageSize: 200, OrderDir: "asc"}.Normalize("paid_at")
	filter.Filters[key] = id
	payments, err := s.paymentRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]PaymentResponse, len(payments))
	for i := range payments {
		items[i] = ToPaymentResponse(&payments[i])
	}
	balance := finance.NewBalance(total, paid)
	return &BalanceResponse{
		Balance:  balance,
		Settled:  balance.IsSettled(),
		Payments: items,
	}, nil
}

func paidAt(t *time.Time) time.Time {
	if t == nil {
		return time.Now()
	}
	return *t
}
