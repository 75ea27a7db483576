// Package messaging hands alert events to the notification pipeline over RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"incident-map/domain/services"
	"incident-map/pkg/logger"
)

// RoutingKeySOSAlert is the topic every SOS alert is published on.
const RoutingKeySOSAlert = "alert.sos"

const (
	publishTimeout = 5 * time.Second
	reconnectDelay = 5 * time.Second
)

var errNotConnected = errors.New("rabbitmq: not connected")

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AlertPublisher publishes alert events to a durable topic exchange and
// reconnects in the background when the broker drops the connection.
type AlertPublisher struct {
	url      string
	exchange string

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel publishChannel
	closed  bool
}

var _ services.AlertPublisher = (*AlertPublisher)(nil)

func NewAlertPublisher(url, exchange string) (*AlertPublisher, error) {
	conn, channel, err := dial(url, exchange)
	if err != nil {
		return nil, err
	}

	p := &AlertPublisher{url: url, exchange: exchange, conn: conn, channel: channel}
	go p.handleReconnect(conn)

	logger.Messaging("initialized", "RabbitMQ publisher initialized", map[string]interface{}{"exchange": exchange})
	return p, nil
}

func dial(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return conn, channel, nil
}

// PublishAlert publishes event on RoutingKeySOSAlert.
func (p *AlertPublisher) PublishAlert(ctx context.Context, event *services.AlertEvent) error {
	return p.publish(ctx, RoutingKeySOSAlert, event.ReportID.String(), event)
}

func (p *AlertPublisher) publish(ctx context.Context, routingKey, messageID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	p.mu.RLock()
	channel := p.channel
	p.mu.RUnlock()
	if channel == nil {
		return errNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			MessageId:    messageID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logger.Messaging("published", "Message published", map[string]interface{}{
		"routing_key": routingKey,
		"exchange":    p.exchange,
		"body_size":   len(body),
	})
	return nil
}

func (p *AlertPublisher) handleReconnect(conn *amqp.Connection) {
	for {
		closeErr, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
		if !ok || closeErr == nil {
			return // closed on purpose
		}

		logger.MessagingError("connection_lost", "RabbitMQ connection closed, reconnecting", closeErr, nil)
		p.mu.Lock()
		p.channel = nil
		p.mu.Unlock()

		for {
			time.Sleep(reconnectDelay)

			p.mu.RLock()
			closed := p.closed
			p.mu.RUnlock()
			if closed {
				return
			}

			newConn, channel, err := dial(p.url, p.exchange)
			if err != nil {
				logger.MessagingError("reconnect_failed", "Failed to reconnect to RabbitMQ", err, nil)
				continue
			}

			p.mu.Lock()
			p.conn, p.channel = newConn, channel
			p.mu.Unlock()
			conn = newConn

			logger.Messaging("reconnected", "Reconnected to RabbitMQ", nil)
			break
		}
	}
}

func (p *AlertPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			logger.MessagingError("close_failed", "Failed to close RabbitMQ channel", err, nil)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// HealthCheck verifies the RabbitMQ connection
func (p *AlertPublisher) HealthCheck() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("RabbitMQ connection is closed")
	}
	if p.channel == nil {
		return errNotConnected
	}
	return nil
}
