package mocks

import (
	"context"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	RegisterFunc             func(ctx context.Context, email, username, phone, password string) (*domain.User, error)
	LoginFunc                func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	RequestOTPFunc           func(ctx context.Context, email string) (*domain.OTPIssue, error)
	VerifyOTPFunc            func(ctx context.Context, email, code string) (*domain.AuthResult, error)
	ChangePasswordFunc       func(ctx context.Context, claims *domain.TokenClaims, oldPassword, newPassword string) error
	RequestPasswordResetFunc func(ctx context.Context, email string) (*domain.OTPIssue, error)
	ConfirmPasswordResetFunc func(ctx context.Context, email, code, newPassword string) error
	RefreshTokenFunc         func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	LogoutFunc               func(ctx context.Context, sessionID string) error
	GetUserFunc              func(ctx context.Context, userID uint) (*domain.User, error)
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

func mockUser(email string) *domain.User {
	now := time.Now()
	return &domain.User{
		ID:        1,
		Email:     email,
		Username:  "mock",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func mockResult(email string, otpVerified bool) *domain.AuthResult {
	return &domain.AuthResult{
		User: mockUser(email),
		Tokens: domain.TokenPair{
			AccessToken:  "mock_access_token",
			RefreshToken: "mock_refresh_token",
			ExpiresIn:    900,
		},
		SessionID:   "mock_session_id",
		OTPVerified: otpVerified,
	}
}

// Register registers a new user
func (m *MockAuthService) Register(ctx context.Context, email, username, phone, password string) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, username, phone, password)
	}
	u := mockUser(email)
	u.Username = username
	u.Phone = phone
	return u, nil
}

// Login authenticates a user
func (m *MockAuthService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return mockResult(email, false), nil
}

// RequestOTP issues a login code
func (m *MockAuthService) RequestOTP(ctx context.Context, email string) (*domain.OTPIssue, error) {
	if m.RequestOTPFunc != nil {
		return m.RequestOTPFunc(ctx, email)
	}
	return &domain.OTPIssue{Subject: email, Purpose: domain.OTPPurposeLogin, Delivered: true, ExpiresAt: time.Now().Add(15 * time.Minute)}, nil
}

// VerifyOTP exchanges a code for elevated tokens
func (m *MockAuthService) VerifyOTP(ctx context.Context, email, code string) (*domain.AuthResult, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, email, code)
	}
	return mockResult(email, true), nil
}

// ChangePassword changes the caller's password
func (m *MockAuthService) ChangePassword(ctx context.Context, claims *domain.TokenClaims, oldPassword, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, claims, oldPassword, newPassword)
	}
	return nil
}

// RequestPasswordReset issues a reset code
func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.OTPIssue, error) {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return &domain.OTPIssue{Subject: email, Purpose: domain.OTPPurposePasswordReset, Delivered: true, ExpiresAt: time.Now().Add(15 * time.Minute)}, nil
}

// ConfirmPasswordReset sets a new password using a reset code
func (m *MockAuthService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	if m.ConfirmPasswordResetFunc != nil {
		return m.ConfirmPasswordResetFunc(ctx, email, code, newPassword)
	}
	return nil
}

// RefreshToken refreshes an access token
func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return mockResult("user@example.com", false), nil
}

// Logout logs out a user session
func (m *MockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionID)
	}
	return nil
}

// GetUser gets a user by ID
func (m *MockAuthService) GetUser(ctx context.Context, userID uint) (*domain.User, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, userID)
	}
	u := mockUser("user@example.com")
	u.ID = userID
	return u, nil
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)
