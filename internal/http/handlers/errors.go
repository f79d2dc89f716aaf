package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/sirupsen/logrus"
)

type errorKind struct {
	status  int
	code    string
	message string
}

// errorKinds is checked in order; the first match wins
var errorKinds = []struct {
	err  error
	kind errorKind
}{
	{domain.ErrUserAlreadyExists, errorKind{http.StatusConflict, "conflict", "User with this email already exists"}},
	{domain.ErrInvalidCredentials, errorKind{http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"}},
	{domain.ErrUserInactive, errorKind{http.StatusForbidden, "user_inactive", "Account is inactive"}},
	{domain.ErrUserNotFound, errorKind{http.StatusNotFound, "user_not_found", "User not found"}},
	{domain.ErrOTPExpired, errorKind{http.StatusBadRequest, "otp_expired", "OTP has expired"}},
	{domain.ErrOTPInvalid, errorKind{http.StatusBadRequest, "invalid_otp", "Invalid OTP code"}},
	{domain.ErrOTPAlreadyUsed, errorKind{http.StatusBadRequest, "invalid_otp", "Invalid OTP code"}},
	{domain.ErrOTPMaxAttempts, errorKind{http.StatusTooManyRequests, "otp_max_attempts", "Maximum attempts exceeded"}},
	{domain.ErrOTPResendLimit, errorKind{http.StatusTooManyRequests, "otp_resend_limit", "Please wait before requesting a new code"}},
	{domain.ErrPasswordChangeRateLimited, errorKind{http.StatusTooManyRequests, "rate_limited", "Password can only be changed once per day"}},
	{domain.ErrTokenExpired, errorKind{http.StatusUnauthorized, "token_expired", "Token expired"}},
	{domain.ErrTokenInvalid, errorKind{http.StatusUnauthorized, "invalid_token", "Invalid or expired token"}},
	{domain.ErrTokenMalformed, errorKind{http.StatusUnauthorized, "invalid_token", "Invalid or expired token"}},
	{domain.ErrSessionNotFound, errorKind{http.StatusUnauthorized, "session_expired", "Session expired"}},
	{domain.ErrSessionExpired, errorKind{http.StatusUnauthorized, "session_expired", "Session expired"}},
	{domain.ErrUnauthorized, errorKind{http.StatusUnauthorized, "unauthorized", "Authentication required"}},
	{domain.ErrAccessDenied, errorKind{http.StatusForbidden, "access_denied", "Access denied"}},
}

// WriteError renders err as the JSON error payload. Unknown errors become
// a 500 and are logged.
func WriteError(c *gin.Context, log *logrus.Logger, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeValidation(c, verr.Fields)
		return
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.kind.status, gin.H{"error": k.kind.message, "code": k.kind.code})
			return
		}
	}

	log.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}).WithError(err).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "internal_error"})
}

func writeValidation(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fields})
}
