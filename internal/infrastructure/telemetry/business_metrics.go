package telemetry

import (
	"context"
	"errors"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/finance"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/domain/trade"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics turns domain events into counters. It is subscribed to the
// event bus so numbers reflect committed changes only.
type BusinessMetrics struct {
	ordersCreated    *Counter
	orderAmount      metric.Float64Counter
	orderTransitions *Counter
	payments         *Counter
	paymentAmount    metric.Float64Counter
	lowStock         *Counter
	purchases        *Counter
}

// NewBusinessMetrics creates the instruments on meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewBusinessMetrics: meter cannot be nil")
	}
	bm := &BusinessMetrics{}
	var err error
	if bm.ordersCreated, err = NewCounter(meter, "distribuidora_orders_created_total", "Orders placed", "{order}"); err != nil {
		return nil, err
	}
	if bm.orderAmount, err = meter.Float64Counter("distribuidora_order_amount_total",
		metric.WithDescription("Value of orders placed"), metric.WithUnit("{currency}")); err != nil {
		return nil, err
	}
	if bm.orderTransitions, err = NewCounter(meter, "distribuidora_order_transitions_total", "Order status changes by target status", "{transition}"); err != nil {
		return nil, err
	}
	if bm.payments, err = NewCounter(meter, "distribuidora_payments_total", "Payments recorded", "{payment}"); err != nil {
		return nil, err
	}
	if bm.paymentAmount, err = meter.Float64Counter("distribuidora_payment_amount_total",
		metric.WithDescription("Value of payments recorded"), metric.WithUnit("{currency}")); err != nil {
		return nil, err
	}
	if bm.lowStock, err = NewCounter(meter, "distribuidora_stock_low_total", "Products that dropped below minimum stock", "{event}"); err != nil {
		return nil, err
	}
	if bm.purchases, err = NewCounter(meter, "distribuidora_purchases_received_total", "Purchases received into stock", "{purchase}"); err != nil {
		return nil, err
	}
	return bm, nil
}

// EventTypes lists the events the metrics subscribe to
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		trade.EventTypeOrderCreated,
		trade.EventTypeOrderStatusChanged,
		trade.EventTypePurchaseReceived,
		finance.EventTypePaymentRecorded,
		catalog.EventTypeStockLow,
	}
}

// Handle records one event. Unknown events are ignored.
func (bm *BusinessMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *trade.OrderCreatedEvent:
		bm.ordersCreated.Inc(ctx)
		bm.orderAmount.Add(ctx, e.TotalAmount.InexactFloat64())
	case *trade.OrderStatusChangedEvent:
		bm.orderTransitions.Inc(ctx, AttrOrderStatus.String(string(e.To)))
	case *trade.PurchaseReceivedEvent:
		bm.purchases.Inc(ctx)
	case *finance.PaymentRecordedEvent:
		kvs := []attribute.KeyValue{
			AttrPaymentMethod.String(string(e.Method)),
			AttrPaymentDirection.String(string(e.Direction)),
		}
		bm.payments.Add(ctx, 1, kvs...)
		bm.paymentAmount.Add(ctx, e.Amount.InexactFloat64(), metric.WithAttributes(kvs...))
	case *catalog.StockLowEvent:
		bm.lowStock.Inc(ctx, AttrProductSKU.String(e.SKU))
	}
	return nil
}
