package domain

import (
	"context"
	"time"
)

// UserRepository defines user data access operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	UpdatePassword(ctx context.Context, userID uint, hash string, changedAt time.Time) error
	// UpdatePasswordIfDue updates the hash only when the last change is
	// unset or not after notAfter. It reports whether a row changed.
	UpdatePasswordIfDue(ctx context.Context, userID uint, hash string, changedAt, notAfter time.Time) (bool, error)
}

// OTPRepository defines OTP data access operations
type OTPRepository interface {
	Create(ctx context.Context, otp *OTP) error
	// FindLatestUnused returns the newest unused record for subject and
	// code ordered by ID, or ErrOTPInvalid.
	FindLatestUnused(ctx context.Context, subject, code string) (*OTP, error)
	// MarkUsed flips used from false to true. It reports whether this call
	// performed the transition.
	MarkUsed(ctx context.Context, id uint, usedAt time.Time) (bool, error)
	InvalidateUnused(ctx context.Context, subject string, usedAt time.Time) (int64, error)
}

// SessionRepository defines session data access operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// ProfileRepository defines profile data access operations
type ProfileRepository interface {
	FindOrCreate(ctx context.Context, userID uint) (*Profile, error)
	Save(ctx context.Context, profile *Profile) error
}

// Transactor runs fn inside a single database transaction. Repositories
// called with the ctx passed to fn take part in it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CredentialStore owns user identity records and password material
type CredentialStore interface {
	Create(ctx context.Context, email, username, phone, password string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	VerifyPassword(user *User, plaintext string) bool
	SetPassword(ctx context.Context, user *User, newPassword string) error
	SetPasswordIfDue(ctx context.Context, user *User, newPassword string, interval time.Duration) error
}

// OTPService defines OTP lifecycle operations
type OTPService interface {
	Issue(ctx context.Context, subject string, purpose OTPPurpose) (*OTP, error)
	FindLive(ctx context.Context, subject, code string) (*OTP, error)
	Consume(ctx context.Context, otp *OTP) error
	Verify(ctx context.Context, subject, code string) (*OTP, error)
	CanResend(ctx context.Context, subject string) (bool, int64, error)
}

// AuthService defines the authentication state machine
type AuthService interface {
	Register(ctx context.Context, email, username, phone, password string) (*User, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	RequestOTP(ctx context.Context, email string) (*OTPIssue, error)
	VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error)
	ChangePassword(ctx context.Context, claims *TokenClaims, oldPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) (*OTPIssue, error)
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, sessionID string) error
	GetUser(ctx context.Context, userID uint) (*User, error)
}

// ProfileService defines fitness profile operations
type ProfileService interface {
	Get(ctx context.Context, userID uint) (*Profile, error)
	Update(ctx context.Context, userID uint, update ProfileUpdate) (*Profile, error)
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines token operations
type TokenService interface {
	Issue(user *User, sessionID string, otpVerified bool) (*TokenPair, error)
	IssueAccess(user *User, sessionID string, otpVerified bool) (string, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	ValidateRefreshToken(token string) (*TokenClaims, error)
	AccessTTL() time.Duration
}

// NotificationService defines notification operations
type NotificationService interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, message string) error
}

// PolicyService answers route access questions for an access level
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	AddGroupingPolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	SavePolicy() error
}

// Token types
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims represents JWT token claims
type TokenClaims struct {
	ID          string `json:"jti"`
	UserID      uint   `json:"user_id"`
	SessionID   string `json:"session_id,omitempty"`
	TokenType   string `json:"typ"`
	OTPVerified bool   `json:"otp_verified"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
}

// Access levels used as casbin subjects
const (
	RoleAuthenticated = "role_user"
	RoleOTPVerified   = "role_otp_verified"
)

// AccessRole maps claims to the casbin subject for route checks
func (c *TokenClaims) AccessRole() string {
	if c.OTPVerified {
		return RoleOTPVerified
	}
	return RoleAuthenticated
}
