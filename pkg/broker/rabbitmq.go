// Package broker publishes and consumes JSON messages on a RabbitMQ topic exchange.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// NewPublisher returns an AMQP publisher, or a logging no-op when url is empty
func NewPublisher(url, exchange string, log *zap.Logger) Publisher {
	if url == "" {
		return &nopPublisher{log: log.With(zap.String("component", "publisher"))}
	}
	return &amqpPublisher{
		url:      url,
		exchange: exchange,
		log:      log.With(zap.String("component", "publisher")),
	}
}

type amqpPublisher struct {
	url      string
	exchange string
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// channel returns a live channel, dialing again when the previous one was closed
func (p *amqpPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(ch, p.exchange); err != nil {
		ch.Close()
		return nil, err
	}

	p.ch = ch
	return ch, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.Error("Broker unavailable", zap.Error(err), zap.String("routing_key", routingKey))
		return err
	}

	err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         routingKey,
		Body:         body,
	})
	if err != nil {
		// force a fresh channel on the next publish
		ch.Close()
		p.ch = nil
		p.log.Error("Failed to publish message", zap.Error(err), zap.String("routing_key", routingKey))
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	p.log.Debug("Message published", zap.String("routing_key", routingKey), zap.Int("bytes", len(body)))
	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	p.conn = nil
	return errors.Join(errs...)
}

type nopPublisher struct {
	log *zap.Logger
}

func (p *nopPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	p.log.Debug("Broker disabled, message dropped", zap.String("routing_key", routingKey))
	return nil
}

func (p *nopPublisher) Close() error { return nil }

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}
