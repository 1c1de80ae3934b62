package trade

import (
	"fmt"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseStatus represents the status of a purchase from a supplier
type PurchaseStatus string

const (
	PurchaseStatusDraft     PurchaseStatus = "draft"
	PurchaseStatusReceived  PurchaseStatus = "received"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// IsValid checks if the status is a valid PurchaseStatus
func (s PurchaseStatus) IsValid() bool {
	return s == PurchaseStatusDraft || s == PurchaseStatusReceived || s == PurchaseStatusCancelled
}

// PurchaseItem is a line of a purchase
type PurchaseItem struct {
	ID          uuid.UUID
	PurchaseID  uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	ProductSKU  string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Amount      decimal.Decimal
}

// Purchase is a stock replenishment bought from a supplier
type Purchase struct {
	shared.BaseAggregateRoot
	PurchaseNumber string
	SupplierID     uuid.UUID
	SupplierName   string
	Items          []PurchaseItem
	Status         PurchaseStatus
	TotalAmount    decimal.Decimal
	Notes          string
	ReceivedAt     *time.Time
	CancelledAt    *time.Time
}

// NewPurchase creates a draft purchase
func NewPurchase(purchaseNumber string, supplierID uuid.UUID, supplierName string) (*Purchase, error) {
	if purchaseNumber == "" {
		return nil, shared.NewDomainError("INVALID_PURCHASE_NUMBER", "Purchase number cannot be empty")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier is required")
	}
	return &Purchase{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PurchaseNumber:    purchaseNumber,
		SupplierID:        supplierID,
		SupplierName:      supplierName,
		Items:             make([]PurchaseItem, 0),
		Status:            PurchaseStatusDraft,
		TotalAmount:       decimal.Zero,
	}, nil
}

// AddItem adds a line to a draft purchase
func (p *Purchase) AddItem(productID uuid.UUID, productName, productSKU string, quantity, unitCost decimal.Decimal) error {
	if p.Status != PurchaseStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Items can only be changed on draft purchases")
	}
	if productID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product is required")
	}
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit cost cannot be negative")
	}
	p.Items = append(p.Items, PurchaseItem{
		ID:          uuid.New(),
		PurchaseID:  p.ID,
		ProductID:   productID,
		ProductName: productName,
		ProductSKU:  productSKU,
		Quantity:    quantity,
		UnitCost:    unitCost,
		Amount:      quantity.Mul(unitCost),
	})
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.Amount)
	}
	p.TotalAmount = total
	p.Touch()
	return nil
}

// Receive marks the goods as received. The caller adds each line to stock.
func (p *Purchase) Receive() error {
	if p.Status != PurchaseStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot receive purchase in %s status", p.Status))
	}
	if len(p.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot receive a purchase without items")
	}
	now := time.Now()
	p.Status = PurchaseStatusReceived
	p.ReceivedAt = &now
	p.IncrementVersion()
	p.AddDomainEvent(NewPurchaseReceivedEvent(p))
	return nil
}

// Cancel cancels a draft purchase
func (p *Purchase) Cancel() error {
	if p.Status != PurchaseStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel purchase in %s status", p.Status))
	}
	now := time.Now()
	p.Status = PurchaseStatusCancelled
	p.CancelledAt = &now
	p.IncrementVersion()
	return nil
}
