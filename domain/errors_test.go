package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelErrors_Distinct(t *testing.T) {
	all := map[string]error{
		"ErrValidation":                ErrValidation,
		"ErrUserNotFound":              ErrUserNotFound,
		"ErrInvalidCredentials":        ErrInvalidCredentials,
		"ErrUserAlreadyExists":         ErrUserAlreadyExists,
		"ErrUserInactive":              ErrUserInactive,
		"ErrOTPExpired":                ErrOTPExpired,
		"ErrOTPInvalid":                ErrOTPInvalid,
		"ErrOTPAlreadyUsed":            ErrOTPAlreadyUsed,
		"ErrOTPMaxAttempts":            ErrOTPMaxAttempts,
		"ErrOTPResendLimit":            ErrOTPResendLimit,
		"ErrPasswordChangeRateLimited": ErrPasswordChangeRateLimited,
		"ErrTokenInvalid":              ErrTokenInvalid,
		"ErrTokenExpired":              ErrTokenExpired,
		"ErrTokenMalformed":            ErrTokenMalformed,
		"ErrSessionNotFound":           ErrSessionNotFound,
		"ErrSessionExpired":            ErrSessionExpired,
		"ErrUnauthorized":              ErrUnauthorized,
		"ErrAccessDenied":              ErrAccessDenied,
		"ErrDeliveryFailed":            ErrDeliveryFailed,
	}

	for name, err := range all {
		t.Run(name, func(t *testing.T) {
			if err.Error() == "" {
				t.Error("error should have a message")
			}

			wrapped := fmt.Errorf("context: %w", err)
			if !errors.Is(wrapped, err) {
				t.Error("wrapped error should match its sentinel")
			}

			for otherName, other := range all {
				if otherName != name && errors.Is(err, other) {
					t.Errorf("%s should not match %s", name, otherName)
				}
			}
		})
	}
}

func TestOTPErrors_MentionOTP(t *testing.T) {
	for _, err := range []error{ErrOTPExpired, ErrOTPInvalid, ErrOTPAlreadyUsed, ErrOTPMaxAttempts, ErrOTPResendLimit} {
		if !strings.Contains(err.Error(), "otp") {
			t.Errorf("OTP error should mention otp in message: %s", err)
		}
	}
}

func TestValidationError(t *testing.T) {
	verr := NewValidationError("password", "must be at least 6 characters").
		Add("email", "invalid email address")

	if !verr.HasErrors() {
		t.Fatal("expected field errors")
	}

	var err error = verr
	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationError should match ErrValidation")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Error("ValidationError should not match other sentinels")
	}

	var target *ValidationError
	if !errors.As(fmt.Errorf("register: %w", err), &target) {
		t.Fatal("errors.As should find the ValidationError")
	}
	if target.Fields["email"] != "invalid email address" {
		t.Errorf("unexpected email message %q", target.Fields["email"])
	}

	want := "validation failed: email: invalid email address; password: must be at least 6 characters"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var empty *ValidationError
	if empty.HasErrors() {
		t.Error("nil ValidationError has no errors")
	}
}
