// Package service wires infrastructure to the lifecycle manager: the
// RabbitMQ event publisher and the connector that turns a registered shop
// into an explicit lifecycle.Shop.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	q "github.com/iliyamo/theme-section-installer/internal/queue"
)

// Publisher sends lifecycle events to the section.lifecycle queue.  The
// connection is opened lazily and re-dialled after a failure, so a broker
// outage only costs the events published during it.
type Publisher struct {
	url string
	log logrus.FieldLogger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, log: log.WithField("component", "event-publisher")}
}

// Publish sends ev as a persistent JSON message.  Errors are logged and
// returned so the caller can choose to ignore them.
func (p *Publisher) Publish(ctx context.Context, ev q.SectionEvent) error {
	msg, err := publishing(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: connect failed")
		return err
	}
	if err := ch.PublishWithContext(ctx,
		"",                   // default exchange
		q.SectionEventsQueue, // routing key = queue name
		false,                // mandatory
		false,                // immediate
		msg,
	); err != nil {
		p.log.WithError(err).WithField("event", ev.Type).Warn("rabbitmq: publish failed")
		p.reset()
		return err
	}
	return nil
}

// channel returns the open channel, dialling and declaring the queue
// first when needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(q.SectionEventsQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func publishing(ev q.SectionEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
