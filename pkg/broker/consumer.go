package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrSkipMessage marks a delivery that can never be processed. It is rejected without requeue.
var ErrSkipMessage = errors.New("skip message")

// HandlerFunc processes one delivery. Returning nil acks it, ErrSkipMessage drops it
// and any other error requeues it once.
type HandlerFunc func(ctx context.Context, d amqp.Delivery) error

type Consumer struct {
	url         string
	exchange    string
	queue       string
	bindingKeys []string
	log         *zap.Logger
}

func NewConsumer(url, exchange, queue string, bindingKeys []string, log *zap.Logger) *Consumer {
	return &Consumer{
		url:         url,
		exchange:    exchange,
		queue:       queue,
		bindingKeys: bindingKeys,
		log:         log.With(zap.String("component", "consumer"), zap.String("queue", queue)),
	}
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("Failed to dial broker, retrying", zap.Error(err), zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn, handle)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("Consume loop ended, reconnecting", zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection, handle HandlerFunc) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(20, 0, false); err != nil {
		c.log.Warn("Set QoS failed", zap.Error(err))
	}
	if err := declareExchange(ch, c.exchange); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range c.bindingKeys {
		if err := ch.QueueBind(c.queue, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", key, err)
		}
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.Info("Consumer started", zap.Strings("binding_keys", c.bindingKeys))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.dispatch(ctx, d, handle)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery, handle HandlerFunc) {
	err := handle(ctx, d)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrSkipMessage):
		c.log.Warn("Dropping message", zap.Error(err), zap.String("routing_key", d.RoutingKey))
		_ = d.Nack(false, false)
	default:
		// redelivered messages are not requeued again to avoid hot loops
		c.log.Error("Handle message failed",
			zap.Error(err),
			zap.String("routing_key", d.RoutingKey),
			zap.Bool("redelivered", d.Redelivered))
		_ = d.Nack(false, !d.Redelivered)
	}
}
