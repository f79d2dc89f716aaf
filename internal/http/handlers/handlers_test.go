package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/http/middleware"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestRouter mounts the handlers; claims, when set, stand in for the auth middleware
func newTestRouter(authSvc domain.AuthService, profileSvc domain.ProfileService, claims *domain.TokenClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := quietLogger()
	ah := NewAuthHandlers(authSvc, log)
	ph := NewProfileHandlers(profileSvc, log)

	r := gin.New()
	r.POST("/register", ah.Register)
	r.POST("/login", ah.Login)
	r.POST("/otp/request", ah.RequestOTP)
	r.POST("/otp/verify", ah.VerifyOTP)
	r.POST("/password/reset", ah.RequestPasswordReset)
	r.POST("/password/reset/confirm", ah.ConfirmPasswordReset)
	r.POST("/token/refresh", ah.Refresh)

	protected := r.Group("")
	protected.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextClaims, claims)
		}
		c.Next()
	})
	protected.POST("/password/change", ah.ChangePassword)
	protected.POST("/logout", ah.Logout)
	protected.GET("/me", ah.Me)
	protected.GET("/profile", ph.Get)
	protected.PUT("/profile", ph.Update)
	return r
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, _ := json.Marshal(b)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	data, ok := decode(t, w)["data"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return data
}

func fieldsOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	body := decode(t, w)
	assert.Equal(t, "Validation failed", body["error"])
	fields, ok := body["fields"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return fields
}

func TestAuthHandlers_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		setup      func(*mocks.MockAuthService)
		wantStatus int
		wantFields []string
		wantCode   string
	}{
		{
			name:       "success",
			body:       gin.H{"email": "alice@example.com", "username": "alice", "password": "secret1"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing fields",
			body:       gin.H{"password": "secret1"},
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"email", "username"},
		},
		{
			name:       "bad email and phone",
			body:       gin.H{"email": "nope", "username": "alice", "phone": "12", "password": "secret1"},
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"email", "phone"},
		},
		{
			name:       "malformed json",
			body:       `{"email": `,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"body"},
		},
		{
			name: "service validation",
			body: gin.H{"email": "alice@example.com", "username": "alice", "password": "123"},
			setup: func(m *mocks.MockAuthService) {
				m.RegisterFunc = func(ctx context.Context, email, username, phone, password string) (*domain.User, error) {
					return nil, domain.NewValidationError("password", "must be at least 6 characters")
				}
			},
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"password"},
		},
		{
			name: "duplicate email",
			body: gin.H{"email": "alice@example.com", "username": "alice", "password": "secret1"},
			setup: func(m *mocks.MockAuthService) {
				m.RegisterFunc = func(ctx context.Context, email, username, phone, password string) (*domain.User, error) {
					return nil, domain.ErrUserAlreadyExists
				}
			},
			wantStatus: http.StatusConflict,
			wantCode:   "conflict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authSvc := mocks.NewMockAuthService()
			if tt.setup != nil {
				tt.setup(authSvc)
			}
			w := performRequest(newTestRouter(authSvc, nil, nil), http.MethodPost, "/register", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			switch {
			case tt.wantFields != nil:
				fields := fieldsOf(t, w)
				for _, f := range tt.wantFields {
					assert.Contains(t, fields, f)
				}
			case tt.wantCode != "":
				assert.Equal(t, tt.wantCode, decode(t, w)["code"])
			default:
				user := dataOf(t, w)["user"].(map[string]interface{})
				assert.Equal(t, "alice@example.com", user["email"])
				assert.Equal(t, "alice", user["username"])
				assert.NotContains(t, dataOf(t, w), "access")
			}
		})
	}
}

func TestAuthHandlers_Login(t *testing.T) {
	t.Run("success returns tokens", func(t *testing.T) {
		w := performRequest(newTestRouter(mocks.NewMockAuthService(), nil, nil), http.MethodPost, "/login",
			gin.H{"email": "alice@example.com", "password": "secret1"})
		require.Equal(t, http.StatusOK, w.Code)

		data := dataOf(t, w)
		assert.Equal(t, "mock_access_token", data["access"])
		assert.Equal(t, "mock_refresh_token", data["refresh"])
		assert.Equal(t, false, data["otp_verified"])
		assert.Equal(t, "Bearer", data["token_type"])
	})

	t.Run("invalid credentials", func(t *testing.T) {
		authSvc := mocks.NewMockAuthService()
		authSvc.LoginFunc = func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		}
		w := performRequest(newTestRouter(authSvc, nil, nil), http.MethodPost, "/login",
			gin.H{"email": "alice@example.com", "password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_credentials", decode(t, w)["code"])
	})

	t.Run("inactive", func(t *testing.T) {
		authSvc := mocks.NewMockAuthService()
		authSvc.LoginFunc = func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
			return nil, domain.ErrUserInactive
		}
		w := performRequest(newTestRouter(authSvc, nil, nil), http.MethodPost, "/login",
			gin.H{"email": "alice@example.com", "password": "secret1"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAuthHandlers_OTP(t *testing.T) {
	t.Run("request delivered", func(t *testing.T) {
		w := performRequest(newTestRouter(mocks.NewMockAuthService(), nil, nil), http.MethodPost, "/otp/request",
			gin.H{"email": "alice@example.com"})
		require.Equal(t, http.StatusOK, w.Code)
		data := dataOf(t, w)
		assert.Equal(t, true, data["delivered"])
		assert.NotContains(t, data, "warning")
		assert.NotContains(t, data, "code")
	})

	t.Run("request with delivery failure still succeeds", func(t *testing.T) {
		authSvc := mocks.NewMockAuthService()
		authSvc.RequestOTPFunc = func(ctx context.Context, email string) (*domain.OTPIssue, error) {
			return &domain.OTPIssue{Subject: email, Delivered: false, DeliveryError: "notification delivery failed: broker down"}, nil
		}
		w := performRequest(newTestRouter(authSvc, nil, nil), http.MethodPost, "/otp/request", gin.H{"email": "alice@example.com"})
		require.Equal(t, http.StatusOK, w.Code)
		data := dataOf(t, w)
		assert.Equal(t, false, data["delivered"])
		assert.Equal(t, "Code created but not delivered", data["message"])
		assert.Contains(t, data["warning"], "broker down")
	})

	t.Run("request for unknown user", func(t *testing.T) {
		authSvc := mocks.NewMockAuthService()
		authSvc.RequestOTPFunc = func(ctx context.Context, email string) (*domain.OTPIssue, error) {
			return nil, domain.ErrUserNotFound
		}
		w := performRequest(newTestRouter(authSvc, nil, nil), http.MethodPost, "/otp/request", gin.H{"email": "x@example.com"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("resend throttled", func(t *testing.T) {
		authSvc := mocks.NewMockAuthService()
		authSvc.RequestOTPFunc = func(ctx context.Context, email string) (*domain.OTPIssue, error) {
			return nil, domain.ErrOTPResendLimit
		}
		w := performRequest(newTestRouter(authSvc, nil, nil), http.MethodPost, "/otp/request", gin.H{"email": "x@example.com"})
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("verify returns elevated tokens", func(t *testing.T) {
		w := performRequest(newTestRouter(mocks.NewMockAuthService(), nil, nil), http.MethodPost, "/otp/verify",
			gin.H{"email": "alice@example.com", "code": "012345"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, dataOf(t, w)["otp_verified"])
	})

	t.Run("verify rejects non numeric code", func(t *testing.T) {
		w := performRequest(newTestRouter(mocks.NewMockAuthService(), nil, nil), http.MethodPost, "/otp/verify",
			gin.H{"email": "alice@example.com", "code": "abc"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, fieldsOf(t, w), "code")
	})

	for _, tc := range []struct {
		err  error
		code string
	}{
		{domain.ErrOTPExpired, "otp_expired"},
		{domain.ErrOTPInvalid, "invalid_otp"},
		{domain.ErrOTPAlreadyUsed, "invalid_otp"},
	} {
		t.Run("verify "+tc.code, func(t *testing.T) {
			authSvc := mocks.NewMockAuthService()
			authSvc.VerifyOTPFunc = func(ctx context.Context, email, code string) (*domain.AuthResult, error) {
				return nil, tc.err
			}
			w := performRequest(newTestRouter(authSvc, nil, nil), http.MethodPost, "/otp/verify",
				gin.H{"email": "alice@example.com", "code": "123456"})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.code, decode(t, w)["code"])
		})
	}
}

func TestAuthHandlers_ChangePassword(t *testing.T) {
	t.Run("forwards claims and passwords", func(t *testing.T) {
		claims := &domain.TokenClaims{UserID: 7, SessionID: "s1", OTPVerified: true}
		var gotClaims *domain.TokenClaims
		var gotOld, gotNew string
		authSvc := mocks.NewMockAuthService()
		authSvc.ChangePasswordFunc = func(ctx context.Context, c *domain.TokenClaims, oldPassword, newPassword string) error {
			gotClaims, gotOld, gotNew = c, oldPassword, newPassword
			return nil
		}

		w := performRequest(newTestRouter(authSvc, nil, claims), http.MethodPost, "/password/change",
			gin.H{"new_password": "newsecret"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Same(t, claims, gotClaims)
		assert.Empty(t, gotOld)
		assert.Equal(t, "newsecret", gotNew)
	})

	t.Run("rate limited", func(t *testing.T) {
		authSvc := mocks.NewMockAuthService()
		authSvc.ChangePasswordFunc = func(ctx context.Context, c *domain.TokenClaims, oldPassword, newPassword string) error {
			return domain.ErrPasswordChangeRateLimited
		}
		w := performRequest(newTestRouter(authSvc, nil, &domain.TokenClaims{UserID: 7}), http.MethodPost, "/password/change",
			gin.H{"old_password": "secret1", "new_password": "newsecret"})
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "rate_limited", decode(t, w)["code"])
	})

	t.Run("old password required", func(t *testing.T) {
		authSvc := mocks.NewMockAuthService()
		authSvc.ChangePasswordFunc = func(ctx context.Context, c *domain.TokenClaims, oldPassword, newPassword string) error {
			return domain.NewValidationError("old_password", "is required unless the session is OTP-verified")
		}
		w := performRequest(newTestRouter(authSvc, nil, &domain.TokenClaims{UserID: 7}), http.MethodPost, "/password/change",
			gin.H{"new_password": "newsecret"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, fieldsOf(t, w), "old_password")
	})

	t.Run("no claims", func(t *testing.T) {
		w := performRequest(newTestRouter(mocks.NewMockAuthService(), nil, nil), http.MethodPost, "/password/change",
			gin.H{"new_password": "newsecret"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandlers_PasswordReset(t *testing.T) {
	authSvc := mocks.NewMockAuthService()
	var gotCode, gotPassword string
	authSvc.ConfirmPasswordResetFunc = func(ctx context.Context, email, code, newPassword string) error {
		gotCode, gotPassword = code, newPassword
		return nil
	}
	r := newTestRouter(authSvc, nil, nil)

	w := performRequest(r, http.MethodPost, "/password/reset", gin.H{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, dataOf(t, w)["delivered"])

	w = performRequest(r, http.MethodPost, "/password/reset/confirm",
		gin.H{"email": "alice@example.com", "code": "004211", "new_password": "resetsecret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "004211", gotCode)
	assert.Equal(t, "resetsecret", gotPassword)

	w = performRequest(r, http.MethodPost, "/password/reset/confirm", gin.H{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := fieldsOf(t, w)
	assert.Contains(t, fields, "code")
	assert.Contains(t, fields, "new_password")
}

func TestAuthHandlers_RefreshMeLogout(t *testing.T) {
	claims := &domain.TokenClaims{UserID: 3, SessionID: "sess-3"}
	authSvc := mocks.NewMockAuthService()
	var loggedOut string
	authSvc.LogoutFunc = func(ctx context.Context, sessionID string) error {
		loggedOut = sessionID
		return nil
	}
	r := newTestRouter(authSvc, nil, claims)

	w := performRequest(r, http.MethodPost, "/token/refresh", gin.H{"refresh": "mock_refresh_token"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mock_access_token", dataOf(t, w)["access"])

	w = performRequest(r, http.MethodPost, "/token/refresh", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := dataOf(t, w)["user"].(map[string]interface{})
	assert.Equal(t, float64(3), user["id"])

	w = performRequest(r, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sess-3", loggedOut)
}

func TestProfileHandlers(t *testing.T) {
	claims := &domain.TokenClaims{UserID: 5, SessionID: "s"}
	profileSvc := mocks.NewMockProfileService()
	r := newTestRouter(mocks.NewMockAuthService(), profileSvc, claims)

	w := performRequest(r, http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, dataOf(t, w)["age"])

	w = performRequest(r, http.MethodPut, "/profile", gin.H{"age": 30, "goal": "gain_muscle"})
	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, float64(30), data["age"])
	assert.Equal(t, "gain_muscle", data["goal"])

	w = performRequest(r, http.MethodPut, "/profile", gin.H{"gender": "X", "weight_kg": -3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	fields := fieldsOf(t, w)
	assert.Contains(t, fields, "gender")
	assert.Contains(t, fields, "weight_kg")

	w = performRequest(r, http.MethodPut, "/profile", `{"age": "thirty"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fieldsOf(t, w), "age")
}

func TestWriteError_Unknown(t *testing.T) {
	authSvc := mocks.NewMockAuthService()
	authSvc.LoginFunc = func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
		return nil, errors.New("database is locked")
	}
	w := performRequest(newTestRouter(authSvc, nil, nil), http.MethodPost, "/login",
		gin.H{"email": "alice@example.com", "password": "secret1"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "internal_error", body["code"])
	assert.NotContains(t, body["error"], "database")
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", Health(map[string]HealthCheck{
		"db": func(ctx context.Context) error { return nil },
	}))
	r.GET("/down", Health(map[string]HealthCheck{
		"db":    func(ctx context.Context) error { return nil },
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	}))

	w := performRequest(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])

	w = performRequest(r, http.MethodGet, "/down", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	checks := decode(t, w)["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["db"])
	assert.Equal(t, "connection refused", checks["redis"])
}
