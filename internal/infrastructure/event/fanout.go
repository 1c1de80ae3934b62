package event

import (
	"context"
	"errors"

	"github.com/distribuidora/backend/internal/domain/shared"
)

// FanoutPublisher hands every event to each publisher in order. The outbox
// uses it to feed the broker and the in-process handlers from one delivery.
type FanoutPublisher struct {
	publishers []shared.EventPublisher
}

// NewFanoutPublisher creates a FanoutPublisher. Nil publishers are ignored.
func NewFanoutPublisher(publishers ...shared.EventPublisher) *FanoutPublisher {
	out := make([]shared.EventPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return &FanoutPublisher{publishers: out}
}

// Publish calls every publisher and joins their errors. An outbox entry whose
// publish failed is retried as a whole, so in-process handlers should be
// wrapped in an IdempotentHandler.
func (f *FanoutPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ shared.EventPublisher = (*FanoutPublisher)(nil)
