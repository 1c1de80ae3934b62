package finance

import (
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypePayment = "Payment"

	EventTypePaymentRecorded = "payment.recorded"
)

// PaymentRecordedEvent is published when a payment is recorded
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	Direction PaymentDirection `json:"direction"`
	Method    PaymentMethod    `json:"method"`
	Amount    decimal.Decimal  `json:"amount"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID),
		Direction:       p.Direction,
		Method:          p.Method,
		Amount:          p.Amount,
	}
}
