package event

import (
	"context"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// Cleanup deletes sent entries older than CleanupRetention every CleanupInterval
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

func (c OutboxProcessorConfig) withDefaults() OutboxProcessorConfig {
	def := DefaultOutboxProcessorConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	if c.CleanupRetention <= 0 {
		c.CleanupRetention = def.CleanupRetention
	}
	return c
}

// OutboxProcessor is the relay between the outbox table and the publisher
// (RabbitMQ fanned out with the in-process bus). Several server instances may
// run one each; MarkProcessing decides which instance delivers an entry.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	publisher  shared.EventPublisher
	serializer *EventSerializer
	cfg        OutboxProcessorConfig
	log        *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	publisher shared.EventPublisher,
	serializer *EventSerializer,
	cfg OutboxProcessorConfig,
	log *zap.Logger,
) *OutboxProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:       repo,
		publisher:  publisher,
		serializer: serializer,
		cfg:        cfg.withDefaults(),
		log:        log.Named("outbox"),
	}
}

// Start launches the relay goroutine; it runs until Stop or until ctx ends
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx)
	p.log.Info("Outbox relay started", zap.Int("batch_size", p.cfg.BatchSize), zap.Duration("poll_interval", p.cfg.PollInterval))
	return nil
}

// Stop waits for an in-flight batch to finish, at most until ctx is done
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case <-p.done:
		p.log.Info("Outbox relay stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) run(ctx context.Context) {
	defer close(p.done)
	poll := time.NewTicker(p.cfg.PollInterval)
	defer poll.Stop()

	// a nil channel never fires, which keeps cleanup off when disabled
	var cleanup <-chan time.Time
	if p.cfg.CleanupEnabled {
		t := time.NewTicker(p.cfg.CleanupInterval)
		defer t.Stop()
		cleanup = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			p.ProcessOnce(ctx)
		case <-cleanup:
			p.purge(ctx)
		}
	}
}

// ProcessOnce relays one batch of new entries, then one batch of failed
// entries whose backoff has elapsed.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) {
	sources := []struct {
		name string
		find func() ([]*shared.OutboxEntry, error)
	}{
		{"pending", func() ([]*shared.OutboxEntry, error) { return p.repo.FindPending(ctx, p.cfg.BatchSize) }},
		{"retryable", func() ([]*shared.OutboxEntry, error) {
			return p.repo.FindRetryable(ctx, time.Now(), p.cfg.BatchSize)
		}},
	}
	for _, src := range sources {
		entries, err := src.find()
		if err != nil {
			p.log.Error("Outbox query failed", zap.String("batch", src.name), zap.Error(err))
			return
		}
		p.relay(ctx, entries)
	}
}

func (p *OutboxProcessor) relay(ctx context.Context, entries []*shared.OutboxEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.log.Error("Claiming outbox entries failed", zap.Error(err))
		return
	}
	for _, entry := range claimed {
		p.publish(ctx, entry)
		if err := p.repo.Update(ctx, entry); err != nil {
			p.log.Error("Saving outbox entry state failed", zap.Stringer("event_id", entry.EventID), zap.Error(err))
		}
	}
}

// publish delivers entry and records the outcome on it. A payload that no
// longer decodes fails like a broker error and ends up dead after its retries.
func (p *OutboxProcessor) publish(ctx context.Context, entry *shared.OutboxEntry) {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.publisher.Publish(ctx, event)
	}
	if err == nil {
		entry.MarkSent()
		return
	}

	entry.MarkFailed(err.Error())
	fields := []zap.Field{
		zap.Stringer("event_id", entry.EventID),
		zap.String("event_type", entry.EventType),
		zap.Int("retry_count", entry.RetryCount),
		zap.Error(err),
	}
	if entry.IsDead() {
		p.log.Warn("Outbox entry is dead, waiting for manual retry",
			append(fields, zap.String("aggregate_type", entry.AggregateType), zap.Stringer("aggregate_id", entry.AggregateID))...)
		return
	}
	p.log.Error("Event delivery failed", append(fields, zap.Timep("next_retry_at", entry.NextRetryAt))...)
}

func (p *OutboxProcessor) purge(ctx context.Context) {
	cutoff := time.Now().Add(-p.cfg.CleanupRetention)
	n, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.log.Error("Outbox cleanup failed", zap.Error(err))
		return
	}
	if n > 0 {
		p.log.Info("Outbox cleanup", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
}
