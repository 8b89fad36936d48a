// Package service holds adapters that deliver domain events to outside
// systems.  Delivery is best effort: errors are logged and returned so
// the caller can ignore them without interrupting the request.
package service

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/civic-service-portal/internal/config"
	"github.com/iliyamo/civic-service-portal/internal/lifecycle"
	"github.com/iliyamo/civic-service-portal/internal/metrics"
	"github.com/iliyamo/civic-service-portal/internal/queue"
)

// EventPublisher publishes request events to a durable RabbitMQ queue
// through the default exchange.  The connection is opened on first use
// and reopened after a failure.
type EventPublisher struct {
	url   string
	queue string
	log   logrus.FieldLogger

	mu   sync.Mutex
	conn *amqp.Connection
}

var _ lifecycle.Publisher = (*EventPublisher)(nil)

// dialTimeout bounds the TCP connect and AMQP handshake to the broker.
const dialTimeout = 5 * time.Second

func NewEventPublisher(cfg config.QueueConfig, log logrus.FieldLogger) *EventPublisher {
	return &EventPublisher{url: cfg.URL, queue: cfg.Queue, log: log.WithField("component", "event-publisher")}
}

// PublishRequestEvent sends ev as a persistent JSON message.
func (p *EventPublisher) PublishRequestEvent(ctx context.Context, ev lifecycle.Event) error {
	err := p.publish(ctx, ev)
	metrics.RecordEventPublished(err == nil)
	if err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"event":      ev.Type,
			"request_id": ev.RequestID,
		}).Warn("publish failed")
	}
	return err
}

func (p *EventPublisher) publish(ctx context.Context, ev lifecycle.Event) error {
	body, err := queue.Encode(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.connection()
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		p.reset()
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent, // store on disk
			Timestamp:    time.Now().UTC(),
			Type:         ev.Type,
			Body:         body,
		})
}

// connection returns the open connection, dialing if needed.  p.mu must
// be held.
func (p *EventPublisher) connection() (*amqp.Connection, error) {
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		return nil, err
	}
	p.conn = conn
	return conn, nil
}

func (p *EventPublisher) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *EventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
