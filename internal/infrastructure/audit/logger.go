package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/messaging"
	"github.com/sirupsen/logrus"
)

// EventCounter receives one call per recorded event
type EventCounter interface {
	RecordAuditEvent(eventType domain.AuditEventType, success bool)
}

// Logger implements domain.AuditLogger. Every event is written to the
// structured log and published to the audit exchange.
type Logger struct {
	log       *logrus.Logger
	publisher messaging.Publisher
	exchange  string
	counter   EventCounter
}

// NewLogger creates an audit logger. publisher and counter may be nil.
func NewLogger(log *logrus.Logger, publisher messaging.Publisher, exchange string, counter EventCounter) *Logger {
	return &Logger{log: log, publisher: publisher, exchange: exchange, counter: counter}
}

// RoutingKey derives the topic routing key, e.g. USER_LOGIN_FAILED -> auth.user.login.failed
func RoutingKey(eventType domain.AuditEventType) string {
	return "auth." + strings.ToLower(strings.ReplaceAll(string(eventType), "_", "."))
}

// LogEvent implements domain.AuditLogger
func (l *Logger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event == nil {
		return nil
	}
	if event.IPAddress == "" {
		event.WithClientContext(domain.ClientContextFrom(ctx))
	}

	fields := logrus.Fields{
		"audit":      true,
		"event_type": event.EventType,
		"user_id":    event.UserID,
		"success":    event.Success,
	}
	if event.Email != "" {
		fields["email"] = event.Email
	}
	if event.SessionID != "" {
		fields["session_id"] = event.SessionID
	}
	if event.IPAddress != "" {
		fields["ip"] = event.IPAddress
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := l.log.WithFields(fields)
	if event.Success {
		entry.Info("audit event")
	} else {
		entry.WithField("error", event.ErrorMsg).Warn("audit event")
	}

	if l.counter != nil {
		l.counter.RecordAuditEvent(event.EventType, event.Success)
	}

	if l.publisher == nil {
		return nil
	}
	err := l.publisher.Publish(ctx, l.exchange, RoutingKey(event.EventType), event)
	if errors.Is(err, messaging.ErrBrokerUnavailable) {
		// already written to the log above
		return nil
	}
	return err
}
