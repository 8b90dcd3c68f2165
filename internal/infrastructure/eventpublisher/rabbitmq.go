package eventpublisher

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iho/walletledger/internal/domain"
)

// ErrNotConfirmed is returned when the broker nacks a message.
var ErrNotConfirmed = errors.New("rabbitmq: publish not confirmed")

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes events to a topic exchange with the event type as routing key.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	confirms chan amqp.Confirmation
	exchange string
}

// NewRabbitMQPublisher dials url, declares a durable topic exchange and enables
// publisher confirms.
func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	return &RabbitMQPublisher{conn: conn, channel: ch, confirms: confirms, exchange: exchange}, nil
}

// Publish sends one persistent message and waits for its confirmation.
// Calls must not run concurrently; the outbox worker publishes sequentially.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	body, err := encode(event)
	if err != nil {
		return err
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, event.EventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.CreatedAt,
		Type:         event.EventType,
		Body:         body,
	})
	if err != nil {
		return err
	}

	select {
	case confirm, ok := <-p.confirms:
		if !ok {
			return amqp.ErrClosed
		}
		if !confirm.Ack {
			return ErrNotConfirmed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel and connection.
func (p *RabbitMQPublisher) Close() error {
	chErr := p.channel.Close()
	if p.conn == nil {
		return chErr
	}
	return errors.Join(chErr, p.conn.Close())
}
