package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/autotimer/module/core/domain"
	"github.com/nandanugg/autotimer/module/core/wire"
)

type fakeChannel struct {
	exchange string
	msgs     []amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, _ string, _, _ bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.msgs = append(f.msgs, msg)
	return f.err
}

func newTestPublisher(t *testing.T, codecName string, ch *fakeChannel) *NotificationPublisher {
	t.Helper()
	codec, err := wire.NewCodec(codecName)
	if err != nil {
		t.Fatal(err)
	}
	return &NotificationPublisher{ch: ch, codec: codec}
}

func TestPublish_JSON(t *testing.T) {
	ch := &fakeChannel{}
	pub := newTestPublisher(t, "json", ch)

	n := &domain.Notification{
		Type:       domain.NotifyTimerWillStart,
		GeofenceID: "site-1",
		Label:      "Warehouse",
		Minutes:    2,
		OccurredAt: time.Unix(1715003456, 0),
	}
	if err := pub.Publish(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ch.exchange != ExchangeName {
		t.Errorf("expected exchange %s, got %s", ExchangeName, ch.exchange)
	}
	if len(ch.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ch.msgs))
	}
	got := ch.msgs[0]
	if got.MessageId != n.Key() {
		t.Errorf("expected message id %s, got %s", n.Key(), got.MessageId)
	}

	msg, err := wire.Decode(got.ContentType, got.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "timer_will_start" || msg.Minutes != 2 || msg.Timestamp != 1715003456000 {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestPublish_Msgpack(t *testing.T) {
	ch := &fakeChannel{}
	pub := newTestPublisher(t, "msgpack", ch)

	err := pub.Publish(context.Background(), &domain.Notification{
		Type:       domain.NotifyTimerStopped,
		GeofenceID: "site-1",
		Hours:      3.25,
		OccurredAt: time.Unix(1715003456, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.msgs[0].ContentType != wire.ContentTypeMsgpack {
		t.Errorf("expected msgpack content type, got %s", ch.msgs[0].ContentType)
	}
	msg, err := wire.Decode(ch.msgs[0].ContentType, ch.msgs[0].Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Hours != 3.25 {
		t.Errorf("expected 3.25 hours, got %f", msg.Hours)
	}
}

func TestPublish_ChannelError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	pub := newTestPublisher(t, "json", ch)

	err := pub.Publish(context.Background(), &domain.Notification{Type: domain.NotifyTimerStarted, GeofenceID: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
}
