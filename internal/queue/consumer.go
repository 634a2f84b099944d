package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AuditLogFile is the file, inside the configured directory, that the
// consumer appends one line per event to.
const AuditLogFile = "lifecycle.log"

// StartAuditConsumer connects to RabbitMQ, declares the section.lifecycle
// queue (durable) and appends every delivered event to
// {logDir}/lifecycle.log.  It reconnects with exponential backoff until ctx
// is cancelled, which is the only way it returns.
func StartAuditConsumer(ctx context.Context, url, logDir string, log logrus.FieldLogger) error {
	log = log.WithField("component", "audit-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !wait(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logDir, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !wait(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}

	if _, err := ch.QueueDeclare(SectionEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.ConsumeWithContext(ctx, SectionEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := HandleMessage(logDir, d.Body); err != nil {
			log.WithError(err).Error("handle message failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleMessage decodes one SectionEvent and appends it to the audit log.
func HandleMessage(logDir string, body []byte) error {
	var ev SectionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, AuditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatEvent(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders ev as a single newline-terminated audit line.
func FormatEvent(ev SectionEvent) string {
	line := fmt.Sprintf("[%s] %s | shop=%s | shop_id=%d", ev.OccurredAt, ev.Type, ev.ShopDomain, ev.ShopID)
	if ev.SectionSlug != "" {
		line += " | section=" + ev.SectionSlug
	}
	if ev.Version != "" {
		line += " | version=" + ev.Version
	}
	if ev.ThemeID != "" {
		line += " | theme=" + ev.ThemeID
	}
	if ev.AssetKey != "" {
		line += " | asset=" + ev.AssetKey
	}
	if ev.Type == EventSectionsCleanedUp {
		line += fmt.Sprintf(" | count=%d", ev.Count)
	}
	return line + "\n"
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
