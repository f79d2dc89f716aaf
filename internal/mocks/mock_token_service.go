package mocks

import (
	"fmt"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	IssueFunc                func(user *domain.User, sessionID string, otpVerified bool) (*domain.TokenPair, error)
	IssueAccessFunc          func(user *domain.User, sessionID string, otpVerified bool) (string, error)
	ValidateAccessTokenFunc  func(token string) (*domain.TokenClaims, error)
	ValidateRefreshTokenFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// Issue returns a deterministic pair encoding its inputs
func (m *MockTokenService) Issue(user *domain.User, sessionID string, otpVerified bool) (*domain.TokenPair, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(user, sessionID, otpVerified)
	}
	access, _ := m.IssueAccess(user, sessionID, otpVerified)
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: fmt.Sprintf("refresh_token_user_%d_%s", user.ID, sessionID),
		ExpiresIn:    900,
	}, nil
}

// IssueAccess returns a deterministic access token
func (m *MockTokenService) IssueAccess(user *domain.User, sessionID string, otpVerified bool) (string, error) {
	if m.IssueAccessFunc != nil {
		return m.IssueAccessFunc(user, sessionID, otpVerified)
	}
	return fmt.Sprintf("access_token_user_%d_%s_%t", user.ID, sessionID, otpVerified), nil
}

// ValidateAccessToken validates an access token and returns claims
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}
	now := time.Now().Unix()
	return &domain.TokenClaims{
		UserID:    1,
		SessionID: "mock_session_id",
		TokenType: domain.TokenTypeAccess,
		IssuedAt:  now,
		ExpiresAt: now + 900,
	}, nil
}

// ValidateRefreshToken validates a refresh token and returns claims
func (m *MockTokenService) ValidateRefreshToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(token)
	}
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}
	now := time.Now().Unix()
	return &domain.TokenClaims{
		UserID:    1,
		SessionID: "mock_session_id",
		TokenType: domain.TokenTypeRefresh,
		IssuedAt:  now,
		ExpiresAt: now + 604800,
	}, nil
}

// AccessTTL returns the access token lifetime
func (m *MockTokenService) AccessTTL() time.Duration {
	return 15 * time.Minute
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
