package finance

import (
	"time"

	"github.com/distribuidora/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordPaymentRequest records a payment against an order or a purchase.
// Exactly one of OrderID and PurchaseID must be set.
type RecordPaymentRequest struct {
	OrderID    *uuid.UUID      `json:"order_id"`
	PurchaseID *uuid.UUID      `json:"purchase_id"`
	Method     string          `json:"method" binding:"required,oneof=cash transfer card check"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAt     *time.Time      `json:"paid_at"`
	Reference  string          `json:"reference" binding:"max=100"`
	Notes      string          `json:"notes" binding:"max=2000"`
}

// PaymentListFilter represents query parameters for listing payments
type PaymentListFilter struct {
	OrderID    *uuid.UUID `form:"-"`
	PurchaseID *uuid.UUID `form:"-"`
	Direction  string     `form:"direction" binding:"omitempty,oneof=incoming outgoing"`
	Method     string     `form:"method" binding:"omitempty,oneof=cash transfer card check"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Page       int        `form:"page" binding:"min=0"`
	PageSize   int        `form:"page_size" binding:"min=0,max=200"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    *uuid.UUID      `json:"order_id,omitempty"`
	PurchaseID *uuid.UUID      `json:"purchase_id,omitempty"`
	Direction  string          `json:"direction"`
	Method     string          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	PaidAt     time.Time       `json:"paid_at"`
	RecordedBy *uuid.UUID      `json:"recorded_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ToPaymentResponse converts a domain payment to a response
func ToPaymentResponse(p *finance.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		OrderID:    p.OrderID,
		PurchaseID: p.PurchaseID,
		Direction:  string(p.Direction),
		Method:     string(p.Method),
		Amount:     p.Amount,
		Reference:  p.Reference,
		Notes:      p.Notes,
		PaidAt:     p.PaidAt,
		RecordedBy: p.CreatedBy,
		CreatedAt:  p.CreatedAt,
	}
}

// BalanceResponse is the payment position of an order or purchase
type BalanceResponse struct {
	finance.Balance
	Settled  bool              `json:"settled"`
	Payments []PaymentResponse `json:"payments"`
}
