package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/auth"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/repositories"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/mocks"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testClock is a settable time source shared by every component of a fixture
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// setupTestDB creates an in-memory SQLite database with the service tables
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&repositories.DBUser{}, &repositories.DBOTP{}, &repositories.DBProfile{}))
	return db
}

// setupTestRedis starts miniredis and returns a client bound to it
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

type fixtureOptions struct {
	otp  OTPConfig
	auth AuthConfig
}

// authFixture wires the real stores and services over SQLite and miniredis
type authFixture struct {
	db       *gorm.DB
	redis    *redis.Client
	mr       *miniredis.Miniredis
	clock    *testClock
	creds    *CredentialService
	otp      *OTPServiceImpl
	tokens   *auth.JWTServiceImpl
	sessions *repositories.SessionRepositoryImpl
	notifier *mocks.MockNotificationService
	audit    *mocks.MockAuditLogger
	tx       *repositories.GormTransactor
	svc      *AuthServiceImpl
}

func newAuthFixture(t *testing.T, opts ...func(*fixtureOptions)) *authFixture {
	t.Helper()

	o := fixtureOptions{
		otp:  OTPConfig{Length: 6, TTL: 15 * time.Minute},
		auth: AuthConfig{RefreshTTL: 7 * 24 * time.Hour, PasswordChangeInterval: 24 * time.Hour, MinPasswordLength: 6},
	}
	for _, opt := range opts {
		opt(&o)
	}

	f := &authFixture{
		db:       setupTestDB(t),
		clock:    newTestClock(),
		notifier: mocks.NewMockNotificationService(),
		audit:    mocks.NewMockAuditLogger(),
	}
	f.redis, f.mr = setupTestRedis(t)
	f.tx = repositories.NewTransactor(f.db)

	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)
	f.creds = NewCredentialService(repositories.NewUserRepository(f.db), passwords, f.clock.Now)

	o.otp.Now = f.clock.Now
	f.otp = NewOTPService(repositories.NewOTPRepository(f.db), f.tx, f.redis, o.otp)

	f.tokens = auth.NewJWTService("test-secret", "fittrack-test", 15*time.Minute, o.auth.RefreshTTL).WithClock(f.clock.Now)
	f.sessions = repositories.NewSessionRepository(f.redis, o.auth.RefreshTTL).WithClock(f.clock.Now)

	o.auth.Now = f.clock.Now
	o.auth.Logger = quietLogger()
	f.svc = NewAuthService(f.creds, f.otp, f.tokens, f.sessions, f.notifier, f.tx, f.audit, o.auth)
	return f
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

// lastCode extracts the code from the most recent email
func (f *authFixture) lastCode(t *testing.T) string {
	t.Helper()
	msg, ok := f.notifier.LastEmail()
	require.True(t, ok, "no email was sent")
	code := sixDigits.FindString(msg.Body)
	require.NotEmpty(t, code, "email body has no code: %q", msg.Body)
	return code
}

// register creates an account and fails the test on error
func (f *authFixture) register(t *testing.T, email, username, password string) *domain.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), email, username, "", password)
	require.NoError(t, err)
	return user
}

// accessClaims validates the access token of result
func (f *authFixture) accessClaims(t *testing.T, result *domain.AuthResult) *domain.TokenClaims {
	t.Helper()
	claims, err := f.tokens.ValidateAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	return claims
}

// storedUser reads the user row straight from the database
func (f *authFixture) storedUser(t *testing.T, id uint) *domain.User {
	t.Helper()
	user, err := repositories.NewUserRepository(f.db).FindByID(context.Background(), id)
	require.NoError(t, err)
	return user
}
