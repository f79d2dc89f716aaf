package metrics

import (
	"errors"
	"net/http"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	AuthOutcomesTotal    *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	PublishedAuditEvents *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fittrack_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_auth_outcomes_total",
				Help: "Auth state machine operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		NotificationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_notification_failures_total",
				Help: "Notification deliveries that failed",
			},
			[]string{"channel"},
		),
		PublishedAuditEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fittrack_audit_events_total",
				Help: "Audit events recorded by type and success",
			},
			[]string{"event_type", "success"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthOutcomesTotal,
		m.NotificationFailures,
		m.PublishedAuditEvents,
	)

	return m
}

// RecordAuthOutcome counts one operation result
func (m *Metrics) RecordAuthOutcome(operation string, err error) {
	m.AuthOutcomesTotal.WithLabelValues(operation, Outcome(err)).Inc()
}

// RecordNotificationFailure counts a failed delivery on channel
func (m *Metrics) RecordNotificationFailure(channel string) {
	m.NotificationFailures.WithLabelValues(channel).Inc()
}

// RecordAuditEvent counts an audit event
func (m *Metrics) RecordAuditEvent(eventType domain.AuditEventType, success bool) {
	label := "false"
	if success {
		label = "true"
	}
	m.PublishedAuditEvents.WithLabelValues(string(eventType), label).Inc()
}

// Outcome maps an error to a low-cardinality label
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUserInactive):
		return "unauthorized"
	case errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrOTPInvalid), errors.Is(err, domain.ErrOTPExpired), errors.Is(err, domain.ErrOTPAlreadyUsed):
		return "otp_rejected"
	case errors.Is(err, domain.ErrPasswordChangeRateLimited), errors.Is(err, domain.ErrOTPMaxAttempts), errors.Is(err, domain.ErrOTPResendLimit):
		return "rate_limited"
	case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenMalformed),
		errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
		return "token_rejected"
	default:
		return "error"
	}
}

// Handler serves the registry in the Prometheus text format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
