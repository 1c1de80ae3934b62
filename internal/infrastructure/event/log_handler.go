package event

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LogHandler writes every delivered event to the log. Low stock is logged
// as a warning so it surfaces in alerting.
type LogHandler struct {
	logger *zap.Logger
}

// NewLogHandler creates a new LogHandler
func NewLogHandler(logger *zap.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// EventTypes subscribes to every event
func (h *LogHandler) EventTypes() []string { return nil }

// Handle logs the event
func (h *LogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
	}
	if low, ok := event.(*catalog.StockLowEvent); ok {
		h.logger.Warn("product stock below minimum", append(fields,
			zap.String("sku", low.SKU),
			zap.String("stock", low.Stock.String()),
			zap.String("min_stock", low.MinStock.String()),
		)...)
		return nil
	}
	h.logger.Info("domain event", fields...)
	return nil
}
