package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/config"
	httpx "github.com/lakshman-nanchari/ai-fitness-tracker/internal/http"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/http/handlers"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/http/middleware"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/audit"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/auth"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/database"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/messaging"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/metrics"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/notifications"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/repositories"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Log    *logrus.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Publisher   messaging.Publisher
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Casbin      *auth.CasbinService

	// Repositories
	UserRepo    domain.UserRepository
	OTPRepo     domain.OTPRepository
	ProfileRepo domain.ProfileRepository
	SessionRepo domain.SessionRepository
	Transactor  domain.Transactor

	// Services
	PasswordSvc     domain.PasswordService
	TokenSvc        domain.TokenService
	NotificationSvc domain.NotificationService
	AuditLogger     domain.AuditLogger
	Credentials     *services.CredentialService
	OTPSvc          domain.OTPService
	AuthSvc         domain.AuthService
	ProfileSvc      domain.ProfileService
	PolicySvc       domain.PolicyService
}

// NewContainer creates and initializes all dependencies. db and rdb may
// be supplied by the caller; nil values are opened from cfg.
func NewContainer(cfg *config.Config, log *logrus.Logger, db *gorm.DB, rdb *redis.Client) (*Container, error) {
	c := &Container{Config: cfg, Log: log, DB: db, RedisClient: rdb}

	// Initialize infrastructure
	if err := c.initDatabase(); err != nil {
		return nil, err
	}
	if err := c.initRedis(); err != nil {
		return nil, err
	}
	if err := c.initAccessControl(); err != nil {
		return nil, err
	}
	c.initObservability()

	// Initialize repositories
	c.initRepositories()

	// Initialize services
	c.initServices()

	return c, nil
}

func (c *Container) initDatabase() error {
	if c.DB == nil {
		db, err := database.Open(c.Config.DBDriver, c.Config.DSN, c.Log)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		c.DB = db
	}

	if err := database.AutoMigrate(c.DB); err != nil {
		return err
	}
	return nil
}

func (c *Container) initRedis() error {
	if c.RedisClient == nil {
		c.RedisClient = database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB).Client
	}
	if err := c.RedisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (c *Container) initAccessControl() error {
	cs, err := auth.NewCasbinService(c.DB, c.Config.CasbinModelPath)
	if err != nil {
		return err
	}
	if err := cs.Seed(c.Config.AccessPolicies); err != nil {
		return err
	}
	c.Casbin = cs
	c.PolicySvc = services.NewPolicyService(cs.E)
	c.Log.WithField("policies", len(c.PolicySvc.GetPolicies())).Info("casbin: access policies loaded")
	return nil
}

func (c *Container) initObservability() {
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.NewMetrics(c.Registry)
	c.Publisher = messaging.Connect(c.Config.AMQPURL, c.Log)
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)
	c.OTPRepo = repositories.NewOTPRepository(c.DB)
	c.ProfileRepo = repositories.NewProfileRepository(c.DB)
	c.SessionRepo = repositories.NewSessionRepository(c.RedisClient, c.Config.RefreshTTL)
	c.Transactor = repositories.NewTransactor(c.DB)
}

func (c *Container) initServices() {
	cfg := c.Config

	// Initialize basic services
	c.PasswordSvc = auth.NewPasswordService()
	c.TokenSvc = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)

	var sms notifications.SMSSender
	if cfg.SMSEnabled {
		sms = notifications.NewTwilioSMSSender(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, c.Log)
	}
	c.NotificationSvc = notifications.NewService(
		notifications.NewQueueMailer(c.Publisher, cfg.NotificationsExchange, cfg.EmailFrom),
		sms,
	)
	c.AuditLogger = audit.NewLogger(c.Log, c.Publisher, cfg.AuditExchange, c.Metrics)

	// Initialize OTP service
	c.OTPSvc = services.NewOTPService(c.OTPRepo, c.Transactor, c.RedisClient, services.OTPConfig{
		Length:             cfg.OTPLength,
		TTL:                cfg.OTPTTL,
		MaxAttempts:        cfg.OTPMaxAttempts,
		ResendWindow:       cfg.OTPResendWindow,
		InvalidatePrevious: cfg.OTPInvalidatePrevious,
	})

	// Initialize auth service (depends on all other services)
	c.Credentials = services.NewCredentialService(c.UserRepo, c.PasswordSvc, nil)
	c.AuthSvc = services.NewAuthService(
		c.Credentials,
		c.OTPSvc,
		c.TokenSvc,
		c.SessionRepo,
		c.NotificationSvc,
		c.Transactor,
		c.AuditLogger,
		services.AuthConfig{
			RefreshTTL:             cfg.RefreshTTL,
			PasswordChangeInterval: cfg.PasswordChangeInterval,
			MinPasswordLength:      cfg.MinPasswordLength,
			AutoCreateUsers:        cfg.AutoCreateUsers,
			SMSEnabled:             cfg.SMSEnabled,
			Logger:                 c.Log,
			Metrics:                c.Metrics,
		},
	)
	c.ProfileSvc = services.NewProfileService(c.ProfileRepo)
}

// Router builds the HTTP handler tree
func (c *Container) Router() *gin.Engine {
	return httpx.BuildRouter(
		handlers.NewAuthHandlers(c.AuthSvc, c.Log),
		handlers.NewProfileHandlers(c.ProfileSvc, c.Log),
		middleware.NewAuthMW(c.TokenSvc, c.SessionRepo),
		middleware.NewAccessMW(c.PolicySvc, c.Log),
		httpx.Observability{
			Log:      c.Log,
			Metrics:  c.Metrics,
			Registry: c.Registry,
			Health: map[string]handlers.HealthCheck{
				"database": func(ctx context.Context) error {
					sqlDB, err := c.DB.DB()
					if err != nil {
						return err
					}
					return sqlDB.PingContext(ctx)
				},
				"redis": func(ctx context.Context) error {
					return c.RedisClient.Ping(ctx).Err()
				},
			},
		},
	)
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Publisher != nil {
		c.Publisher.Close()
	}

	if c.RedisClient != nil {
		c.RedisClient.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
