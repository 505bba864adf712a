package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	amqp "github.com/rabbitmq/amqp091-go"
	"media-registry/config"
	"media-registry/dto"
	"sync"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EventPublisher sends recording events to the configured exchange, routed by
// event type.
type EventPublisher struct {
	mu       sync.Mutex
	ch       channel
	exchange string
}

func NewEventPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) (*EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.ExchangeName, cfg.Kind, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.ExchangeName, err)
	}
	return newEventPublisher(ch, cfg.ExchangeName), nil
}

func newEventPublisher(ch channel, exchange string) *EventPublisher {
	return &EventPublisher{ch: ch, exchange: exchange}
}

func (p *EventPublisher) PublishRecordingEvent(ctx context.Context, event dto.RecordingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, event.Type.String(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
}

func (p *EventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Close()
}
