package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/app"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/config"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/database"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/repositories"
)

// TestServer runs the fully wired service over sqlite and miniredis
type TestServer struct {
	t         *testing.T
	Server    *httptest.Server
	Container *app.Container
	DB        *gorm.DB
	Redis     *miniredis.Miniredis
	Client    *http.Client
}

func testConfig() *config.Config {
	return &config.Config{
		DBDriver:               "sqlite",
		JWTSecret:              "e2e-secret",
		JWTIssuer:              "fittrack-auth",
		AccessTTL:              15 * time.Minute,
		RefreshTTL:             24 * time.Hour,
		OTPTTL:                 15 * time.Minute,
		OTPLength:              6,
		OTPMaxAttempts:         5,
		PasswordChangeInterval: 24 * time.Hour,
		MinPasswordLength:      6,
		EmailFrom:              "no-reply@fittrack.test",
		NotificationsExchange:  "notifications",
		AuditExchange:          "auth.events",
		AccessPolicies:         config.DefaultAccessPolicies(),
	}
}

// NewTestServer starts the service; cfg may adjust the defaults
func NewTestServer(t *testing.T, adjust ...func(*config.Config)) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	for _, fn := range adjust {
		fn(cfg)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "e2e.db"), log)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c, err := app.NewContainer(cfg, log, db, rdb)
	require.NoError(t, err)

	server := httptest.NewServer(c.Router())
	t.Cleanup(func() {
		server.Close()
		_ = c.Close()
	})

	return &TestServer{
		t:         t,
		Server:    server,
		Container: c,
		DB:        db,
		Redis:     mr,
		Client:    server.Client(),
	}
}

// Response is a decoded JSON reply
type Response struct {
	Status int
	Body   map[string]interface{}
}

// Data returns the "data" object of a success reply
func (r *Response) Data() map[string]interface{} {
	data, _ := r.Body["data"].(map[string]interface{})
	return data
}

// Code returns the error code of a failure reply
func (r *Response) Code() string {
	code, _ := r.Body["code"].(string)
	return code
}

// Do sends a JSON request; token may be empty
func (s *TestServer) Do(method, path string, body interface{}, token string) *Response {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)

	out := &Response{Status: resp.StatusCode}
	if len(raw) > 0 {
		require.NoError(s.t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

// LatestCode reads the newest unused code issued to email
func (s *TestServer) LatestCode(email string) string {
	s.t.Helper()
	var row repositories.DBOTP
	require.NoError(s.t, s.DB.Where("subject = ? AND used = ?", email, false).Order("id desc").First(&row).Error)
	return row.Code
}

// BackdatePasswordChange moves the user's last password change into the past
func (s *TestServer) BackdatePasswordChange(email string, ago time.Duration) {
	s.t.Helper()
	require.NoError(s.t, s.DB.Model(&repositories.DBUser{}).
		Where("email = ?", email).
		Update("last_password_change", time.Now().Add(-ago)).Error)
}

// Register creates an account and returns its tokens after a password login
func (s *TestServer) Register(email, password string) (access, refresh string) {
	s.t.Helper()
	r := s.Do(http.MethodPost, "/api/users/register", map[string]string{
		"email": email, "username": "e2e", "password": password,
	}, "")
	require.Equal(s.t, http.StatusCreated, r.Status, r.Body)

	r = s.Do(http.MethodPost, "/api/users/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(s.t, http.StatusOK, r.Status, r.Body)
	return r.Data()["access"].(string), r.Data()["refresh"].(string)
}
