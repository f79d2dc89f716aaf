package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: "success"},
		{err: domain.NewValidationError("email", "required"), want: "validation"},
		{err: domain.ErrUserAlreadyExists, want: "conflict"},
		{err: fmt.Errorf("login: %w", domain.ErrInvalidCredentials), want: "unauthorized"},
		{err: domain.ErrUserNotFound, want: "not_found"},
		{err: domain.ErrOTPExpired, want: "otp_rejected"},
		{err: domain.ErrPasswordChangeRateLimited, want: "rate_limited"},
		{err: domain.ErrSessionNotFound, want: "token_rejected"},
		{err: errors.New("db down"), want: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}

func TestMetrics_RecordAndServe(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.RecordAuthOutcome("login", nil)
	m.RecordAuthOutcome("login", domain.ErrInvalidCredentials)
	m.RecordAuthOutcome("login", domain.ErrInvalidCredentials)
	m.RecordNotificationFailure("email")
	m.RecordAuditEvent(domain.UserLoginEvent, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthOutcomesTotal.WithLabelValues("login", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthOutcomesTotal.WithLabelValues("login", "unauthorized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFailures.WithLabelValues("email")))

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "fittrack_auth_outcomes_total")
	assert.Contains(t, rec.Body.String(), `event_type="USER_LOGIN"`)
}
