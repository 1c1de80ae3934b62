package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestProduct() *catalog.Product {
	p := &catalog.Product{SKU: "AGUA-500", Name: "Agua 500ml", Stock: decimal.NewFromInt(3), MinStock: decimal.NewFromInt(5)}
	p.ID = uuid.New()
	return p
}

type testHandler struct {
	mu      sync.Mutex
	types   []string
	handled []shared.DomainEvent
	err     error
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{types: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.types }

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

type panicHandler struct{}

func (panicHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panicHandler) EventTypes() []string                            { return nil }

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	created := newTestHandler(catalog.EventTypeProductCreated)
	low := newTestHandler(catalog.EventTypeStockLow)
	all := newTestHandler()
	bus.Subscribe(created)
	bus.Subscribe(low)
	bus.Subscribe(all)

	p := newTestProduct()
	err := bus.Publish(context.Background(), catalog.NewProductCreatedEvent(p), catalog.NewStockLowEvent(p), catalog.NewStockLowEvent(p))
	require.NoError(t, err)

	assert.Equal(t, 1, created.count())
	assert.Equal(t, 2, low.count())
	assert.Equal(t, 3, all.count())
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newTestHandler(catalog.EventTypeProductCreated)
	bus.Subscribe(h, catalog.EventTypeStockLow)

	p := newTestProduct()
	require.NoError(t, bus.Publish(context.Background(), catalog.NewProductCreatedEvent(p)))
	assert.Equal(t, 0, h.count())

	require.NoError(t, bus.Publish(context.Background(), catalog.NewStockLowEvent(p)))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_FailingHandlerDoesNotStopOthers(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newTestHandler()
	failing.err = errors.New("handler down")
	ok := newTestHandler()
	bus.Subscribe(failing)
	bus.Subscribe(panicHandler{})
	bus.Subscribe(ok)

	err := bus.Publish(context.Background(), catalog.NewProductCreatedEvent(newTestProduct()))
	require.NoError(t, err)
	assert.Equal(t, 1, ok.count())
	assert.Equal(t, 2, logs.FilterMessage("event handler failed").Len())
}

func TestInMemoryEventBus_NoHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	assert.NoError(t, bus.Publish(context.Background(), catalog.NewProductCreatedEvent(newTestProduct())))
	assert.NoError(t, bus.Start(context.Background()))
	assert.NoError(t, bus.Stop(context.Background()))
}

func TestLogHandler_WarnsOnLowStock(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewLogHandler(zap.New(core))
	p := newTestProduct()

	require.NoError(t, h.Handle(context.Background(), catalog.NewStockLowEvent(p)))
	require.NoError(t, h.Handle(context.Background(), catalog.NewProductCreatedEvent(p)))

	warn := logs.FilterLevelExact(zap.WarnLevel).All()
	require.Len(t, warn, 1)
	assert.Equal(t, "AGUA-500", warn[0].ContextMap()["sku"])
	assert.Equal(t, 1, logs.FilterMessage("domain event").Len())
	assert.Empty(t, h.EventTypes())
}
