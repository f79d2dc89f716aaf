package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/messaging"
)

// EmailRoutingKey is the routing key of outbound email jobs
const EmailRoutingKey = "email.send"

// EmailJob is the message consumed by the mail worker
type EmailJob struct {
	To       string    `json:"to"`
	From     string    `json:"from"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queued_at"`
}

// QueueMailer hands email off to the notifications exchange
type QueueMailer struct {
	publisher messaging.Publisher
	exchange  string
	from      string
}

// NewQueueMailer creates a mailer publishing to exchange
func NewQueueMailer(publisher messaging.Publisher, exchange, from string) *QueueMailer {
	return &QueueMailer{publisher: publisher, exchange: exchange, from: from}
}

// SendEmail publishes an email job
func (m *QueueMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	job := EmailJob{
		To:       to,
		From:     m.from,
		Subject:  subject,
		Body:     body,
		QueuedAt: time.Now().UTC(),
	}
	if err := m.publisher.Publish(ctx, m.exchange, EmailRoutingKey, job); err != nil {
		return fmt.Errorf("queue email: %w", err)
	}
	return nil
}
