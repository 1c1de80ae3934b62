package event

import (
	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/finance"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/domain/logistics"
	"github.com/distribuidora/backend/internal/domain/partner"
	"github.com/distribuidora/backend/internal/domain/trade"
)

// RegisterDomainEvents registers every domain event type with the serializer
// so the outbox processor can rebuild events from stored payloads
func RegisterDomainEvents(s *EventSerializer) {
	register[partner.CustomerCreatedEvent](s, partner.EventTypeCustomerCreated)
	register[partner.SupplierCreatedEvent](s, partner.EventTypeSupplierCreated)

	register[catalog.ProductCreatedEvent](s, catalog.EventTypeProductCreated)
	register[catalog.StockLowEvent](s, catalog.EventTypeStockLow)

	register[trade.OrderCreatedEvent](s, trade.EventTypeOrderCreated)
	register[trade.OrderStatusChangedEvent](s, trade.EventTypeOrderStatusChanged)
	register[trade.OrderDriverAssignedEvent](s, trade.EventTypeOrderDriverAssigned)
	register[trade.PurchaseReceivedEvent](s, trade.EventTypePurchaseReceived)

	register[finance.PaymentRecordedEvent](s, finance.EventTypePaymentRecorded)
	register[logistics.RouteCreatedEvent](s, logistics.EventTypeRouteCreated)

	register[identity.UserCreatedEvent](s, identity.EventTypeUserCreated)
	register[identity.UserRoleChangedEvent](s, identity.EventTypeUserRoleChanged)
}
