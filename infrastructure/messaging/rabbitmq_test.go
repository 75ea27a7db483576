package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"incident-map/domain/services"
	"incident-map/pkg/logger"
)

func TestMain(m *testing.M) {
	dir, _ := os.MkdirTemp("", "messaging-logs")
	if l, err := logger.NewLogger(dir, false); err == nil {
		logger.SetDefault(l)
	}
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

type recordingChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (c *recordingChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return c.err
}

func (c *recordingChannel) Close() error { return nil }

func TestPublishAlert(t *testing.T) {
	ch := &recordingChannel{}
	p := &AlertPublisher{exchange: "incidents", channel: ch}

	event := &services.AlertEvent{
		ReportID: uuid.New(),
		Title:    "Alert",
		Message:  "Incident occurred",
		Recipients: []services.AlertRecipient{
			{UserID: uuid.New(), Source: services.SourceContact},
		},
	}
	if err := p.PublishAlert(context.Background(), event); err != nil {
		t.Fatalf("PublishAlert: %v", err)
	}

	if ch.exchange != "incidents" || ch.key != RoutingKeySOSAlert {
		t.Errorf("published to %s/%s", ch.exchange, ch.key)
	}
	if ch.msg.DeliveryMode != amqp.Persistent || ch.msg.MessageId != event.ReportID.String() {
		t.Errorf("publishing = %+v", ch.msg)
	}

	var got services.AlertEvent
	if err := json.Unmarshal(ch.msg.Body, &got); err != nil {
		t.Fatalf("body: %v", err)
	}
	if got.ReportID != event.ReportID || len(got.Recipients) != 1 || got.Recipients[0].Source != services.SourceContact {
		t.Errorf("body = %+v", got)
	}
}

func TestPublishAlertErrors(t *testing.T) {
	p := &AlertPublisher{exchange: "incidents"}
	if err := p.PublishAlert(context.Background(), &services.AlertEvent{}); !errors.Is(err, errNotConnected) {
		t.Errorf("disconnected err = %v", err)
	}

	p.channel = &recordingChannel{err: errors.New("channel closed")}
	if err := p.PublishAlert(context.Background(), &services.AlertEvent{}); err == nil {
		t.Error("expected publish error")
	}
}
