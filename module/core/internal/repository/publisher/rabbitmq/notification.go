package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/internal/repository/publisher"
	"github.com/nandanugg/autotimer/module/core/wire"
)

var _ publisher.NotificationPublisher = (*NotificationPublisher)(nil)

const (
	ExchangeName = "autotimer.events"
	QueueName    = "timer_notifications"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type NotificationPublisher struct {
	ch    channel
	codec wire.Codec
}

func NewNotificationPublisher(conn *amqp.Connection, codec wire.Codec) (*NotificationPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &NotificationPublisher{ch: ch, codec: codec}, nil
}

func (p *NotificationPublisher) Publish(ctx context.Context, n *domain.Notification) error {
	msg := wire.NotificationMessage{
		Type:       string(n.Type),
		GeofenceID: n.GeofenceID,
		Label:      n.Label,
		Minutes:    n.Minutes,
		Hours:      n.Hours,
		Timestamp:  n.OccurredAt.UnixMilli(),
	}

	body, err := p.codec.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  p.codec.ContentType(),
		DeliveryMode: amqp.Persistent,
		MessageId:    n.Key(),
		Timestamp:    n.OccurredAt,
		Type:         string(n.Type),
		Body:         body,
	})
}
