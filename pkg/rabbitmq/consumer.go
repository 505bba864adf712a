package rabbitmq

import (
	"context"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"media-registry/config"
	"sync"
)

// Binding names the queue a consumer reads and where failed deliveries go.
// Dead lettering is skipped when DeadLetterExchange is empty.
type Binding struct {
	Queue              string
	RoutingKey         string
	DeadLetterExchange string
	DeadLetterQueue    string
}

func (b Binding) deadLetterRoutingKey() string {
	return "dlq." + b.RoutingKey
}

type Consumer[T any] interface {
	Consume(ctx context.Context, dependencies T) error
}

type consumer[T any] struct {
	conn       *amqp.Connection
	cfg        *config.RabbitMQ
	binding    Binding
	handler    func(ctx context.Context, msg amqp.Delivery, dependencies T) error
	numWorkers int
}

func (c consumer[T]) declare(ctx context.Context, ch *amqp.Channel) error {
	logger := zerolog.Ctx(ctx).With().Str("queue", c.binding.Queue).Logger()

	err := ch.ExchangeDeclare(c.cfg.ExchangeName, c.cfg.Kind, true, false, false, false, nil)
	if err != nil {
		logger.Error().Err(err).Str("exchange", c.cfg.ExchangeName).Msg("failed to declare exchange")
		return err
	}

	var args amqp.Table
	if c.binding.DeadLetterExchange != "" {
		err = ch.ExchangeDeclare(c.binding.DeadLetterExchange, c.cfg.Kind, true, false, false, false, nil)
		if err != nil {
			logger.Error().Err(err).Str("exchange", c.binding.DeadLetterExchange).Msg("failed to declare dlx")
			return err
		}
		dlq, err := ch.QueueDeclare(c.binding.DeadLetterQueue, true, false, false, false, nil)
		if err != nil {
			logger.Error().Err(err).Msg("failed to declare dlq")
			return err
		}
		if err = ch.QueueBind(dlq.Name, c.binding.deadLetterRoutingKey(), c.binding.DeadLetterExchange, false, nil); err != nil {
			logger.Error().Err(err).Msg("failed to bind dlq")
			return err
		}
		args = amqp.Table{
			"x-dead-letter-exchange":    c.binding.DeadLetterExchange,
			"x-dead-letter-routing-key": c.binding.deadLetterRoutingKey(),
		}
	}

	q, err := ch.QueueDeclare(c.binding.Queue, true, false, false, false, args)
	if err != nil {
		logger.Error().Err(err).Msg("failed to declare queue")
		return err
	}

	if err = ch.QueueBind(q.Name, c.binding.RoutingKey, c.cfg.ExchangeName, false, nil); err != nil {
		logger.Error().Err(err).Msg("failed to bind queue")
		return err
	}

	if err = ch.Qos(c.numWorkers, 0, false); err != nil {
		logger.Error().Err(err).Msg("failed to set QoS")
		return err
	}
	return nil
}

func (c consumer[T]) Consume(ctx context.Context, dependencies T) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := c.declare(ctx, ch); err != nil {
		return err
	}

	deliveries, err := ch.Consume(c.binding.Queue, "", false, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("queue", c.binding.Queue).Msg("failed to consume queue")
		return err
	}

	zerolog.Ctx(ctx).Info().Str("queue", c.binding.Queue).Int("workers", c.numWorkers).Msg("consumer started")

	jobs := make(chan amqp.Delivery, c.numWorkers)
	var wg sync.WaitGroup
	for i := 1; i <= c.numWorkers; i++ {
		wg.Add(1)
		go func(workerId int) {
			defer wg.Done()
			for msg := range jobs {
				c.handle(ctx, workerId, msg, dependencies)
			}
		}(i)
	}

	for {
		select {
		case delivery, ok := <-deliveries:
			if !ok {
				close(jobs)
				wg.Wait()
				return nil
			}
			jobs <- delivery
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
}

func (c consumer[T]) handle(ctx context.Context, workerId int, msg amqp.Delivery, dependencies T) {
	logger := zerolog.Ctx(ctx).With().Int("worker", workerId).Str("routing_key", msg.RoutingKey).Logger()
	if err := c.handler(logger.WithContext(ctx), msg, dependencies); err != nil {
		logger.Error().Err(err).Msg("failed to handle message")
		if c.binding.DeadLetterExchange != "" {
			if err := msg.Nack(false, false); err != nil {
				logger.Error().Err(err).Msg("failed to nack message")
			}
			return
		}
	}
	if err := msg.Ack(false); err != nil {
		logger.Error().Err(err).Msg("failed to acknowledge message")
	}
}

func NewConsumer[T any](
	conn *amqp.Connection,
	cfg *config.RabbitMQ,
	binding Binding,
	numWorkers int,
	handler func(ctx context.Context, msg amqp.Delivery, dependencies T) error,
) Consumer[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &consumer[T]{
		conn:       conn,
		cfg:        cfg,
		binding:    binding,
		handler:    handler,
		numWorkers: numWorkers,
	}
}
