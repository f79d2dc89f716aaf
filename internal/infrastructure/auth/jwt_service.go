package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// Claims is the signed payload of both token kinds
type Claims struct {
	jwt.RegisteredClaims
	UserID      uint   `json:"user_id"`
	SessionID   string `json:"session_id,omitempty"`
	TokenType   string `json:"typ"`
	OTPVerified bool   `json:"otp_verified,omitempty"`
}

// JWTServiceImpl implements domain.TokenService
type JWTServiceImpl struct {
	secretKey       []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey string, issuer string, accessTTL, refreshTTL time.Duration) *JWTServiceImpl {
	return &JWTServiceImpl{
		secretKey:       []byte(secretKey),
		issuer:          issuer,
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		now:             time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (j *JWTServiceImpl) WithClock(now func() time.Time) *JWTServiceImpl {
	j.now = now
	return j
}

// AccessTTL implements domain.TokenService
func (j *JWTServiceImpl) AccessTTL() time.Duration {
	return j.accessTokenTTL
}

// Issue implements domain.TokenService. Elevation is carried by the
// access token only.
func (j *JWTServiceImpl) Issue(user *domain.User, sessionID string, otpVerified bool) (*domain.TokenPair, error) {
	access, err := j.IssueAccess(user, sessionID, otpVerified)
	if err != nil {
		return nil, err
	}

	refresh, err := j.sign(user.ID, sessionID, domain.TokenTypeRefresh, false, j.refreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(j.accessTokenTTL.Seconds()),
	}, nil
}

// IssueAccess implements domain.TokenService
func (j *JWTServiceImpl) IssueAccess(user *domain.User, sessionID string, otpVerified bool) (string, error) {
	return j.sign(user.ID, sessionID, domain.TokenTypeAccess, otpVerified, j.accessTokenTTL)
}

func (j *JWTServiceImpl) sign(userID uint, sessionID, tokenType string, otpVerified bool, ttl time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:      userID,
		SessionID:   sessionID,
		TokenType:   tokenType,
		OTPVerified: otpVerified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// ValidateAccessToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateToken(tokenString, domain.TokenTypeAccess)
}

// ValidateRefreshToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateRefreshToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateToken(tokenString, domain.TokenTypeRefresh)
}

// validateToken validates a JWT token and returns claims
func (j *JWTServiceImpl) validateToken(tokenString, wantType string) (*domain.TokenClaims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, domain.ErrTokenMalformed
		default:
			return nil, domain.ErrTokenInvalid
		}
	}

	if !token.Valid || claims.TokenType != wantType || claims.UserID == 0 {
		return nil, domain.ErrTokenInvalid
	}

	tokenClaims := &domain.TokenClaims{
		ID:          claims.ID,
		UserID:      claims.UserID,
		SessionID:   claims.SessionID,
		TokenType:   claims.TokenType,
		OTPVerified: claims.OTPVerified,
	}
	if claims.IssuedAt != nil {
		tokenClaims.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		tokenClaims.ExpiresAt = claims.ExpiresAt.Unix()
	}

	return tokenClaims, nil
}
