package mocks

import (
	"context"
	"sync"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// SentMessage records a delivery made through the mock
type SentMessage struct {
	To      string
	Subject string
	Body    string
}

// MockNotificationService implements domain.NotificationService interface for testing
type MockNotificationService struct {
	SendSMSFunc   func(ctx context.Context, to, message string) error
	SendEmailFunc func(ctx context.Context, to, subject, body string) error

	mu     sync.Mutex
	Emails []SentMessage
	SMS    []SentMessage
}

// NewMockNotificationService creates a new MockNotificationService with default behaviors
func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

// SendSMS sends an SMS message
func (m *MockNotificationService) SendSMS(ctx context.Context, to, message string) error {
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(ctx, to, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SMS = append(m.SMS, SentMessage{To: to, Body: message})
	return nil
}

// SendEmail records the message
func (m *MockNotificationService) SendEmail(ctx context.Context, to, subject, body string) error {
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, to, subject, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Emails = append(m.Emails, SentMessage{To: to, Subject: subject, Body: body})
	return nil
}

// LastEmail returns the most recent recorded email
func (m *MockNotificationService) LastEmail() (SentMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Emails) == 0 {
		return SentMessage{}, false
	}
	return m.Emails[len(m.Emails)-1], true
}

// Compile-time interface compliance verification
var _ domain.NotificationService = (*MockNotificationService)(nil)
