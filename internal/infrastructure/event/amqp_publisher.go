package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher publishes domain events to a durable topic exchange with
// the event type as routing key. Each publish waits for the broker confirm.
type AMQPPublisher struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	confirms   <-chan amqp.Confirmation
	exchange   string
	serializer *EventSerializer
	logger     *zap.Logger

	mu sync.Mutex
}

// DialAMQP connects, enables publisher confirms and declares the exchange
func DialAMQP(url, exchange string, serializer *EventSerializer, logger *zap.Logger) (*AMQPPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	logger.Info("connected to amqp broker", zap.String("exchange", exchange))
	return &AMQPPublisher{
		conn:       conn,
		ch:         ch,
		confirms:   ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
		exchange:   exchange,
		serializer: serializer,
		logger:     logger,
	}, nil
}

// Publish sends events one at a time and returns on the first failure
func (p *AMQPPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		body, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		if err := p.publish(ctx, event, body); err != nil {
			return fmt.Errorf("publish %s: %w", event.EventType(), err)
		}
	}
	return nil
}

func (p *AMQPPublisher) publish(ctx context.Context, event shared.DomainEvent, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn.IsClosed() {
		return errors.New("amqp connection is closed")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := p.ch.PublishWithContext(ctx, p.exchange, event.EventType(), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    event.EventID().String(),
		Type:         event.EventType(),
		Timestamp:    event.OccurredAt().UTC(),
		Headers: amqp.Table{
			"aggregate_type": event.AggregateType(),
			"aggregate_id":   event.AggregateID().String(),
		},
		Body: body,
	})
	if err != nil {
		return err
	}

	select {
	case confirm, ok := <-p.confirms:
		if !ok {
			return errors.New("amqp channel closed before confirm")
		}
		if !confirm.Ack {
			return errors.New("broker rejected the message")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

var _ shared.EventPublisher = (*AMQPPublisher)(nil)
