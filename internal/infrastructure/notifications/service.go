package notifications

import (
	"context"
	"fmt"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// EmailSender delivers a single email
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers a single text message
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Service implements domain.NotificationService by routing to a channel
// specific sender. A nil SMS sender disables SMS.
type Service struct {
	email EmailSender
	sms   SMSSender
}

// NewService creates a notification service
func NewService(email EmailSender, sms SMSSender) *Service {
	return &Service{email: email, sms: sms}
}

// SendEmail implements domain.NotificationService
func (s *Service) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := s.email.SendEmail(ctx, to, subject, body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	return nil
}

// SendSMS implements domain.NotificationService
func (s *Service) SendSMS(ctx context.Context, to, message string) error {
	if s.sms == nil {
		return fmt.Errorf("%w: sms disabled", domain.ErrDeliveryFailed)
	}
	if err := s.sms.SendSMS(ctx, to, message); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	return nil
}
