package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-doctor-scheduling/internal/domain/entity"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

var ErrPublishNotConfirmed = errors.New("message not confirmed by broker")

func NewRabbitMQConnection(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	logrus.Info("Successfully connected to RabbitMQ")

	return conn, nil
}

// confirmation is the broker's answer for one published message.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type publishChannel interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
	Close() error
}

// amqpChannel publishes with a deferred confirm per message, so a confirm that
// arrives after its caller gave up can never be read by the next publish.
type amqpChannel struct {
	ch *amqp.Channel
}

func (c amqpChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("channel is not in confirm mode")
	}
	return dc, nil
}

func (c amqpChannel) Close() error {
	return c.ch.Close()
}

// NotificationPublisher publishes notification events to a durable topic
// exchange, routed by event type, and waits for the broker confirm.
type NotificationPublisher struct {
	channel  publishChannel
	exchange string
}

func NewNotificationPublisher(conn *amqp.Connection, exchange string) (*NotificationPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	return &NotificationPublisher{
		channel:  amqpChannel{ch: ch},
		exchange: exchange,
	}, nil
}

func (p *NotificationPublisher) Publish(ctx context.Context, event entity.NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", event.ID, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Type:         string(event.Type),
		Timestamp:    time.Now(),
		Body:         body,
	}

	confirm, err := p.channel.publish(ctx, p.exchange, string(event.Type), msg)
	if err != nil {
		return fmt.Errorf("publish notification %s: %w", event.ID, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("publish notification %s: %w", event.ID, err)
	}
	if !acked {
		return fmt.Errorf("publish notification %s: %w", event.ID, ErrPublishNotConfirmed)
	}
	return nil
}

func (p *NotificationPublisher) Close() error {
	return p.channel.Close()
}
