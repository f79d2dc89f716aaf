package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher is the interface implemented by types that can publish events.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
	Close()
}

// EventProducer publishes JSON messages to durable topic exchanges.
type EventProducer struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	declared map[string]bool
	log      *logrus.Logger
}

// ErrBrokerUnavailable is returned by FallbackPublisher for every message.
var ErrBrokerUnavailable = errors.New("message broker unavailable")

// FallbackPublisher logs instead of publishing. It is used when the broker
// is unreachable at startup so the service can still run. Every message is
// dropped and reported to the caller as ErrBrokerUnavailable.
type FallbackPublisher struct {
	log *logrus.Logger
}

// NewFallbackPublisher creates a logging publisher
func NewFallbackPublisher(log *logrus.Logger) *FallbackPublisher {
	return &FallbackPublisher{log: log}
}

func (p *FallbackPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.log.WithFields(logrus.Fields{
		"exchange":    exchange,
		"routing_key": routingKey,
	}).Warn("message broker unavailable, message dropped")
	return fmt.Errorf("%w: %s/%s dropped", ErrBrokerUnavailable, exchange, routingKey)
}

func (p *FallbackPublisher) Close() {}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer dials the broker and opens a channel
func NewEventProducer(amqpURL string, log *logrus.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &EventProducer{conn: conn, channel: ch, declared: map[string]bool{}, log: log}, nil
}

// Publish sends body as JSON. A failed publish reopens the channel and
// retries once.
func (p *EventProducer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         jsonBody,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publishLocked(ctx, exchange, routingKey, msg)
	if err == nil {
		return nil
	}

	p.log.WithError(err).WithField("exchange", exchange).Warn("publish failed, reopening channel")
	if reopenErr := p.reopenLocked(); reopenErr != nil {
		return fmt.Errorf("publish to %s: %w", exchange, err)
	}
	if err := p.publishLocked(ctx, exchange, routingKey, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", exchange, err)
	}
	return nil
}

func (p *EventProducer) publishLocked(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	if !p.declared[exchange] {
		if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
			return err
		}
		p.declared[exchange] = true
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg)
}

func (p *EventProducer) reopenLocked() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	p.channel = ch
	p.declared = map[string]bool{}
	return nil
}

// Close closes the channel and the connection
func (p *EventProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// Connect returns a broker-backed publisher, or the logging fallback when
// the broker cannot be reached or no URL is configured.
func Connect(amqpURL string, log *logrus.Logger) Publisher {
	if amqpURL == "" {
		log.Info("no AMQP url configured, using fallback publisher")
		return NewFallbackPublisher(log)
	}
	p, err := NewEventProducer(amqpURL, log)
	if err != nil {
		log.WithError(err).Warn("could not connect to message broker, using fallback publisher")
		return NewFallbackPublisher(log)
	}
	return p
}
