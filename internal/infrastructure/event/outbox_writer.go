package event

import (
	"context"

	"github.com/distribuidora/backend/internal/domain/shared"
)

// OutboxWriter records domain events in the outbox table. The repository
// joins the transaction carried by ctx, so events commit with the change.
type OutboxWriter struct {
	repo       shared.OutboxRepository
	serializer *EventSerializer
}

// NewOutboxWriter creates a new OutboxWriter
func NewOutboxWriter(repo shared.OutboxRepository, serializer *EventSerializer) *OutboxWriter {
	return &OutboxWriter{repo: repo, serializer: serializer}
}

// Record serializes and stores events
func (w *OutboxWriter) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := w.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}
	return w.repo.Save(ctx, entries...)
}

var _ shared.EventRecorder = (*OutboxWriter)(nil)
