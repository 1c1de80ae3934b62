package event

import (
	"context"
	"errors"
	"testing"

	"github.com/distribuidora/backend/internal/domain/catalog"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, ...shared.DomainEvent) error {
	p.calls++
	return errors.New("broker unavailable")
}

func TestFanoutPublisher_DeliversToEveryPublisher(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newTestHandler()
	bus.Subscribe(h)
	broker := &failingPublisher{}

	fanout := NewFanoutPublisher(broker, nil, bus)
	err := fanout.Publish(context.Background(), catalog.NewProductCreatedEvent(newTestProduct()))

	assert.ErrorContains(t, err, "broker unavailable")
	assert.Equal(t, 1, broker.calls)
	assert.Equal(t, 1, h.count(), "a broker failure must not starve local handlers")
}

func TestFanoutPublisher_Empty(t *testing.T) {
	assert.NoError(t, NewFanoutPublisher().Publish(context.Background(), catalog.NewProductCreatedEvent(newTestProduct())))
}
