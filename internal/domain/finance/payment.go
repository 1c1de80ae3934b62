package finance

import (
	"strings"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentDirection tells whether money comes in from a customer or goes out to a supplier
type PaymentDirection string

const (
	PaymentDirectionIncoming PaymentDirection = "incoming"
	PaymentDirectionOutgoing PaymentDirection = "outgoing"
)

// PaymentMethod represents how the payment was made
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodCheck    PaymentMethod = "check"
)

// IsValid checks if the method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard, PaymentMethodCheck:
		return true
	}
	return false
}

// Payment is money received against an order or paid against a purchase.
// Exactly one of OrderID and PurchaseID is set.
type Payment struct {
	shared.BaseAggregateRoot
	OrderID    *uuid.UUID
	PurchaseID *uuid.UUID
	Direction  PaymentDirection
	Method     PaymentMethod
	Amount     decimal.Decimal
	Reference  string
	PaidAt     time.Time
	Notes      string
}

// NewOrderPayment records a customer payment for an order
func NewOrderPayment(orderID uuid.UUID, method PaymentMethod, amount decimal.Decimal, paidAt time.Time) (*Payment, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order is required")
	}
	p, err := newPayment(PaymentDirectionIncoming, method, amount, paidAt)
	if err != nil {
		return nil, err
	}
	p.OrderID = &orderID
	p.AddDomainEvent(NewPaymentRecordedEvent(p))
	return p, nil
}

// NewPurchasePayment records a payment to a supplier for a purchase
func NewPurchasePayment(purchaseID uuid.UUID, method PaymentMethod, amount decimal.Decimal, paidAt time.Time) (*Payment, error) {
	if purchaseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PURCHASE", "Purchase is required")
	}
	p, err := newPayment(PaymentDirectionOutgoing, method, amount, paidAt)
	if err != nil {
		return nil, err
	}
	p.PurchaseID = &purchaseID
	p.AddDomainEvent(NewPaymentRecordedEvent(p))
	return p, nil
}

func newPayment(direction PaymentDirection, method PaymentMethod, amount decimal.Decimal, paidAt time.Time) (*Payment, error) {
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_METHOD", "Payment method must be cash, transfer, card or check")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	if paidAt.After(time.Now().Add(24 * time.Hour)) {
		return nil, shared.NewDomainError("INVALID_DATE", "Payment date cannot be in the future")
	}
	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Direction:         direction,
		Method:            method,
		Amount:            amount.Round(2),
		PaidAt:            paidAt,
	}, nil
}

// SetReference sets the bank or receipt reference
func (p *Payment) SetReference(reference, notes string) error {
	if len(reference) > 100 {
		return shared.NewDomainError("INVALID_REFERENCE", "Reference cannot exceed 100 characters")
	}
	p.Reference = strings.TrimSpace(reference)
	p.Notes = notes
	return nil
}

// Balance is the payment position of an order or purchase
type Balance struct {
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// NewBalance computes the outstanding amount. Overpayment shows as negative outstanding.
func NewBalance(total, paid decimal.Decimal) Balance {
	return Balance{
		Total:       total,
		Paid:        paid,
		Outstanding: total.Sub(paid),
	}
}

// IsSettled reports whether nothing is outstanding
func (b Balance) IsSettled() bool {
	return !b.Outstanding.IsPositive()
}
