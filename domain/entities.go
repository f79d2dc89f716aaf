package domain

import (
	"strings"
	"time"
)

// User represents a registered account
type User struct {
	ID                 uint
	Email              string
	Username           string
	Phone              string
	PasswordHash       string
	IsActive           bool
	LastPasswordChange *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PasswordChangeDue reports whether a password change is allowed at now
// given the minimum interval between changes.
func (u *User) PasswordChangeDue(now time.Time, interval time.Duration) bool {
	if u.LastPasswordChange == nil {
		return true
	}
	return now.Sub(*u.LastPasswordChange) >= interval
}

// OTPPurpose identifies the flow an OTP was issued for
type OTPPurpose string

const (
	OTPPurposeLogin         OTPPurpose = "login"
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

// OTP is a one-time passcode bound to a subject (normalized email)
type OTP struct {
	ID        uint
	Subject   string
	Code      string
	Purpose   OTPPurpose
	CreatedAt time.Time
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
}

// IsExpired is true once now has reached ExpiresAt.
func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// IsLive reports whether the code can still be verified.
func (o *OTP) IsLive(now time.Time) bool {
	return !o.Used && !o.IsExpired(now)
}

// OTPIssue describes the outcome of an OTP-issuing flow. The code itself
// is never part of it.
type OTPIssue struct {
	Subject       string
	Purpose       OTPPurpose
	ExpiresAt     time.Time
	Delivered     bool
	DeliveryError string
}

// TokenPair holds a signed access/refresh pair
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// AuthResult represents authentication outcome
type AuthResult struct {
	User        *User
	Tokens      TokenPair
	SessionID   string
	OTPVerified bool
}

// Session represents a refresh session
type Session struct {
	ID          string    `json:"id"`
	UserID      uint      `json:"user_id"`
	OTPVerified bool      `json:"otp_verified"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Gender choices for a profile
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"
)

// Goal choices for a profile
const (
	GoalLoseWeight = "lose_weight"
	GoalGainMuscle = "gain_muscle"
	GoalStayFit    = "stay_fit"
)

// Profile holds the fitness profile attached to a user
type Profile struct {
	UserID    uint
	Age       *int
	Gender    *string
	HeightCM  *float64
	WeightKG  *float64
	Goal      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileUpdate carries the fields a client may change. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Age      *int
	Gender   *string
	HeightCM *float64
	WeightKG *float64
	Goal     *string
}

// NormalizeEmail trims and lower-cases an address so lookups and
// uniqueness are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
