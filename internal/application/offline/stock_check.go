package offline

import (
	"context"
	"errors"
	"fmt"

	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductsCacheKey is where the UI caches the product list it last fetched
const ProductsCacheKey = "products"

// CachedProduct is the subset of a product the stock pre-check reads
type CachedProduct struct {
	ID    uuid.UUID       `json:"id"`
	SKU   string          `json:"sku"`
	Name  string          `json:"name"`
	Stock decimal.Decimal `json:"stock"`
}

// StockLine is one requested product and quantity
type StockLine struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// StockShortfall is a line the cached stock cannot cover
type StockShortfall struct {
	ProductID uuid.UUID       `json:"product_id"`
	SKU       string          `json:"sku,omitempty"`
	Name      string          `json:"name,omitempty"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
	Unknown   bool            `json:"unknown,omitempty"`
}

// StockCheckResult answers whether an order would pass the stock check
type StockCheckResult struct {
	OK         bool             `json:"ok"`
	Shortfalls []StockShortfall `json:"shortfalls"`
}

// StockChecker pre-checks order lines against the cached product list minus
// what queued order.create operations already claim. The server stays the
// authority; this only spares the user a rejected replay.
type StockChecker struct {
	queue  *QueueService
	logger *zap.Logger
}

// NewStockChecker creates a StockChecker
func NewStockChecker(queue *QueueService, logger *zap.Logger) *StockChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockChecker{queue: queue, logger: logger}
}

// ErrNoCachedProducts is returned when the product list was never cached
var ErrNoCachedProducts = errors.New("offline: product list is not cached")

// Check compares lines with the cached stock. Quantities for the same product
// are added up before comparing.
func (c *StockChecker) Check(ctx context.Context, lines []StockLine) (*StockCheckResult, error) {
	var products []CachedProduct
	if err := c.queue.GetCachedData(ctx, ProductsCacheKey, &products); err != nil {
		if errors.Is(err, offline.ErrCacheMiss) {
			return nil, ErrNoCachedProducts
		}
		return nil, err
	}
	byID := make(map[uuid.UUID]CachedProduct, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	reserved, err := c.queuedDemand(ctx)
	if err != nil {
		return nil, err
	}

	requested := make(map[uuid.UUID]decimal.Decimal, len(lines))
	var order []uuid.UUID
	for _, l := range lines {
		if !l.Quantity.IsPositive() {
			return nil, fmt.Errorf("quantity for product %s must be positive", l.ProductID)
		}
		if _, seen := requested[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		requested[l.ProductID] = requested[l.ProductID].Add(l.Quantity)
	}

	result := &StockCheckResult{OK: true, Shortfalls: []StockShortfall{}}
	for _, id := range order {
		qty := requested[id]
		p, ok := byID[id]
		if !ok {
			result.Shortfalls = append(result.Shortfalls, StockShortfall{ProductID: id, Requested: qty, Available: decimal.Zero, Unknown: true})
			continue
		}
		available := p.Stock.Sub(reserved[id])
		if available.IsNegative() {
			available = decimal.Zero
		}
		if qty.GreaterThan(available) {
			result.Shortfalls = append(result.Shortfalls, StockShortfall{
				ProductID: id, SKU: p.SKU, Name: p.Name, Requested: qty, Available: available,
			})
		}
	}
	result.OK = len(result.Shortfalls) == 0
	return result, nil
}

// queuedDemand sums the items of order.create operations not yet replayed
func (c *StockChecker) queuedDemand(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error) {
	demand := map[uuid.UUID]decimal.Decimal{}
	for _, status := range []offline.Status{offline.StatusPending, offline.StatusProcessing} {
		ops, err := c.queue.List(ctx, status, 0)
		if err != nil {
			return nil, err
		}
		for _, op := range ops {
			if op.OperationType != offline.TypeOrderCreate {
				continue
			}
			var payload struct {
				Items []StockLine `json:"items"`
			}
			if err := op.DecodePayload(&payload); err != nil {
				c.logger.Warn("queued order payload unreadable", zap.String("operation_id", op.ID.String()), zap.Error(err))
				continue
			}
			for _, item := range payload.Items {
				demand[item.ProductID] = demand[item.ProductID].Add(item.Quantity)
			}
		}
	}
	return demand, nil
}
