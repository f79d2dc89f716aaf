package mocks

import (
	"context"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	IssueFunc     func(ctx context.Context, subject string, purpose domain.OTPPurpose) (*domain.OTP, error)
	FindLiveFunc  func(ctx context.Context, subject, code string) (*domain.OTP, error)
	ConsumeFunc   func(ctx context.Context, otp *domain.OTP) error
	VerifyFunc    func(ctx context.Context, subject, code string) (*domain.OTP, error)
	CanResendFunc func(ctx context.Context, subject string) (bool, int64, error)
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// Issue returns a fixed code
func (m *MockOTPService) Issue(ctx context.Context, subject string, purpose domain.OTPPurpose) (*domain.OTP, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, subject, purpose)
	}
	now := time.Now()
	return &domain.OTP{
		ID:        1,
		Subject:   subject,
		Code:      "123456",
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(15 * time.Minute),
	}, nil
}

// FindLive looks up a live code
func (m *MockOTPService) FindLive(ctx context.Context, subject, code string) (*domain.OTP, error) {
	if m.FindLiveFunc != nil {
		return m.FindLiveFunc(ctx, subject, code)
	}
	return nil, domain.ErrOTPInvalid
}

// Consume marks a code used
func (m *MockOTPService) Consume(ctx context.Context, otp *domain.OTP) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, otp)
	}
	return nil
}

// Verify accepts only 123456 by default
func (m *MockOTPService) Verify(ctx context.Context, subject, code string) (*domain.OTP, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, subject, code)
	}
	if code != "123456" {
		return nil, domain.ErrOTPInvalid
	}
	return &domain.OTP{ID: 1, Subject: subject, Code: code, Used: true}, nil
}

// CanResend checks if OTP can be resent
func (m *MockOTPService) CanResend(ctx context.Context, subject string) (bool, int64, error) {
	if m.CanResendFunc != nil {
		return m.CanResendFunc(ctx, subject)
	}
	return true, 0, nil
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
