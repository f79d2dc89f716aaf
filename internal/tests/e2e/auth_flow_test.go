package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/config"
)

func TestAuthFlow_PasswordChangeOncePerDay(t *testing.T) {
	s := NewTestServer(t)
	access, _ := s.Register("alice@example.com", "secret1")

	r := s.Do(http.MethodGet, "/api/users/me", nil, access)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, false, r.Data()["otp_verified"])

	r = s.Do(http.MethodPost, "/api/users/password/change", map[string]string{"new_password": "secret2"}, access)
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = s.Do(http.MethodPost, "/api/users/password/change", map[string]string{
		"old_password": "wrong-one", "new_password": "secret2",
	}, access)
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	r = s.Do(http.MethodPost, "/api/users/password/change", map[string]string{
		"old_password": "secret1", "new_password": "secret2",
	}, access)
	require.Equal(t, http.StatusOK, r.Status, r.Body)

	r = s.Do(http.MethodPost, "/api/users/password/change", map[string]string{
		"old_password": "secret2", "new_password": "secret3",
	}, access)
	assert.Equal(t, http.StatusTooManyRequests, r.Status)
	assert.Equal(t, "rate_limited", r.Code())

	s.BackdatePasswordChange("alice@example.com", 25*time.Hour)
	r = s.Do(http.MethodPost, "/api/users/password/change", map[string]string{
		"old_password": "secret2", "new_password": "secret3",
	}, access)
	assert.Equal(t, http.StatusOK, r.Status, r.Body)

	r = s.Do(http.MethodPost, "/api/users/login", map[string]string{"email": "alice@example.com", "password": "secret3"}, "")
	assert.Equal(t, http.StatusOK, r.Status)
}

func TestAuthFlow_OTPElevatedChange(t *testing.T) {
	s := NewTestServer(t)
	s.Register("alice@example.com", "secret1")

	r := s.Do(http.MethodPost, "/api/users/otp/request", map[string]string{"email": "Alice@Example.com"}, "")
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	// no broker configured: the code exists but the caller is told it was not sent
	assert.Equal(t, false, r.Data()["delivered"])
	assert.Contains(t, r.Data()["warning"], "message broker unavailable")
	code := s.LatestCode("alice@example.com")
	assert.Regexp(t, `^\d{6}$`, code)

	r = s.Do(http.MethodPost, "/api/users/otp/verify", map[string]string{"email": "alice@example.com", "code": code}, "")
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	assert.Equal(t, true, r.Data()["otp_verified"])
	elevated := r.Data()["access"].(string)

	r = s.Do(http.MethodPost, "/api/users/otp/verify", map[string]string{"email": "alice@example.com", "code": code}, "")
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "invalid_otp", r.Code())

	r = s.Do(http.MethodPost, "/api/users/password/change", map[string]string{"new_password": "newsecret"}, elevated)
	require.Equal(t, http.StatusOK, r.Status, r.Body)

	r = s.Do(http.MethodPost, "/api/users/password/change", map[string]string{"new_password": "othersecret"}, elevated)
	assert.Equal(t, http.StatusTooManyRequests, r.Status)

	r = s.Do(http.MethodPost, "/api/users/login", map[string]string{"email": "alice@example.com", "password": "newsecret"}, "")
	assert.Equal(t, http.StatusOK, r.Status)
}

func TestAuthFlow_OTPForUnknownUser(t *testing.T) {
	s := NewTestServer(t)

	r := s.Do(http.MethodPost, "/api/users/otp/request", map[string]string{"email": "ghost@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, r.Status)

	r = s.Do(http.MethodPost, "/api/users/otp/verify", map[string]string{"email": "ghost@example.com", "code": "123456"}, "")
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "invalid_otp", r.Code())
}

func TestAuthFlow_OTPAutoCreatesUser(t *testing.T) {
	s := NewTestServer(t, func(cfg *config.Config) { cfg.AutoCreateUsers = true })

	r := s.Do(http.MethodPost, "/api/users/otp/request", map[string]string{"email": "newbie@example.com"}, "")
	require.Equal(t, http.StatusOK, r.Status, r.Body)

	r = s.Do(http.MethodPost, "/api/users/otp/verify", map[string]string{
		"email": "newbie@example.com", "code": s.LatestCode("newbie@example.com"),
	}, "")
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	user := r.Data()["user"].(map[string]interface{})
	assert.Equal(t, "newbie", user["username"])
}

func TestAuthFlow_OTPAttemptLimit(t *testing.T) {
	s := NewTestServer(t, func(cfg *config.Config) { cfg.OTPMaxAttempts = 2 })
	s.Register("alice@example.com", "secret1")

	r := s.Do(http.MethodPost, "/api/users/otp/request", map[string]string{"email": "alice@example.com"}, "")
	require.Equal(t, http.StatusOK, r.Status)
	code := s.LatestCode("alice@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 2; i++ {
		r = s.Do(http.MethodPost, "/api/users/otp/verify", map[string]string{"email": "alice@example.com", "code": wrong}, "")
		assert.Equal(t, http.StatusBadRequest, r.Status)
	}

	r = s.Do(http.MethodPost, "/api/users/otp/verify", map[string]string{"email": "alice@example.com", "code": code}, "")
	assert.Equal(t, http.StatusTooManyRequests, r.Status)
	assert.Equal(t, "otp_max_attempts", r.Code())

	// requesting a new code lifts the lock
	r = s.Do(http.MethodPost, "/api/users/otp/request", map[string]string{"email": "alice@example.com"}, "")
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	fresh := s.LatestCode("alice@example.com")

	r = s.Do(http.MethodPost, "/api/users/otp/verify", map[string]string{"email": "alice@example.com", "code": fresh}, "")
	assert.Equal(t, http.StatusOK, r.Status, r.Body)
	assert.Equal(t, true, r.Data()["otp_verified"])
}

func TestAuthFlow_PasswordReset(t *testing.T) {
	s := NewTestServer(t)
	s.Register("alice@example.com", "secret1")

	r := s.Do(http.MethodPost, "/api/users/password/reset", map[string]string{"email": "alice@example.com"}, "")
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	code := s.LatestCode("alice@example.com")

	r = s.Do(http.MethodPost, "/api/users/password/reset/confirm", map[string]string{
		"email": "alice@example.com", "code": code, "new_password": "abc",
	}, "")
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = s.Do(http.MethodPost, "/api/users/password/reset/confirm", map[string]string{
		"email": "alice@example.com", "code": code, "new_password": "resetsecret",
	}, "")
	require.Equal(t, http.StatusOK, r.Status, r.Body)

	r = s.Do(http.MethodPost, "/api/users/password/reset/confirm", map[string]string{
		"email": "alice@example.com", "code": code, "new_password": "another1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, "invalid_otp", r.Code())

	r = s.Do(http.MethodPost, "/api/users/login", map[string]string{"email": "alice@example.com", "password": "secret1"}, "")
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	r = s.Do(http.MethodPost, "/api/users/login", map[string]string{"email": "alice@example.com", "password": "resetsecret"}, "")
	assert.Equal(t, http.StatusOK, r.Status)
}

func TestAuthFlow_RefreshAndLogout(t *testing.T) {
	s := NewTestServer(t)
	access, refresh := s.Register("alice@example.com", "secret1")

	r := s.Do(http.MethodPost, "/api/users/token/refresh", map[string]string{"refresh": access}, "")
	assert.Equal(t, http.StatusUnauthorized, r.Status)

	r = s.Do(http.MethodPost, "/api/users/token/refresh", map[string]string{"refresh": refresh}, "")
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	renewed := r.Data()["access"].(string)

	r = s.Do(http.MethodGet, "/api/users/me", nil, renewed)
	assert.Equal(t, http.StatusOK, r.Status)

	r = s.Do(http.MethodPost, "/api/users/logout", nil, access)
	require.Equal(t, http.StatusOK, r.Status)

	r = s.Do(http.MethodGet, "/api/users/me", nil, renewed)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, "session_expired", r.Code())

	r = s.Do(http.MethodPost, "/api/users/token/refresh", map[string]string{"refresh": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, r.Status)
}

func TestAuthFlow_Profile(t *testing.T) {
	s := NewTestServer(t)
	access, _ := s.Register("alice@example.com", "secret1")

	r := s.Do(http.MethodGet, "/api/users/profile", nil, access)
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	assert.Nil(t, r.Data()["goal"])

	r = s.Do(http.MethodPut, "/api/users/profile", map[string]interface{}{
		"age": 31, "gender": "F", "height_cm": 168.5, "goal": "stay_fit",
	}, access)
	require.Equal(t, http.StatusOK, r.Status, r.Body)

	r = s.Do(http.MethodPut, "/api/users/profile", map[string]interface{}{"weight_kg": 61.2}, access)
	require.Equal(t, http.StatusOK, r.Status, r.Body)
	data := r.Data()
	assert.Equal(t, float64(31), data["age"])
	assert.Equal(t, "stay_fit", data["goal"])
	assert.Equal(t, 61.2, data["weight_kg"])

	r = s.Do(http.MethodPut, "/api/users/profile", map[string]interface{}{"goal": "bulk"}, access)
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = s.Do(http.MethodGet, "/api/users/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, r.Status)
}

func TestAuthFlow_DuplicateRegistration(t *testing.T) {
	s := NewTestServer(t)
	s.Register("alice@example.com", "secret1")

	r := s.Do(http.MethodPost, "/api/users/register", map[string]string{
		"email": "ALICE@example.com", "username": "alice2", "password": "secret1",
	}, "")
	assert.Equal(t, http.StatusConflict, r.Status)
}

func TestHealthAndMetrics(t *testing.T) {
	s := NewTestServer(t)

	r := s.Do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, r.Status)
	checks := r.Body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "ok", checks["redis"])

	resp, err := s.Client.Get(s.Server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
