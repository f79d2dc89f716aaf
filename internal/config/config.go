package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath   = "config/config.yml"
	defaultPoliciesPath = "config/access_policies.yml"
)

type AppConfig struct {
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	AccessTTL  string `yaml:"access_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
}

type OTPConfig struct {
	TTL                string `yaml:"ttl"`
	Length             int    `yaml:"length"`
	MaxAttempts        int    `yaml:"max_attempts"`
	ResendWindow       string `yaml:"resend_window"`
	InvalidatePrevious bool   `yaml:"invalidate_previous"`
	AutoCreateUsers    bool   `yaml:"auto_create_users"`
}

type AuthConfig struct {
	PasswordChangeInterval string `yaml:"password_change_interval"`
	MinPasswordLength      int    `yaml:"min_password_length"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type AMQPConfig struct {
	URL                   string `yaml:"url"`
	NotificationsExchange string `yaml:"notifications_exchange"`
	AuditExchange         string `yaml:"audit_exchange"`
}

type NotificationsConfig struct {
	EmailFrom  string       `yaml:"email_from"`
	SMSEnabled bool         `yaml:"sms_enabled"`
	Twilio     TwilioConfig `yaml:"twilio"`
	AMQP       AMQPConfig   `yaml:"amqp"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CasbinConfig struct {
	ModelPath    string `yaml:"model_path"`
	PoliciesPath string `yaml:"policies_path"`
}

type ConfigFile struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	JWT           JWTConfig           `yaml:"jwt"`
	OTP           OTPConfig           `yaml:"otp"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
	Casbin        CasbinConfig        `yaml:"casbin"`
}

type Config struct {
	Port                   string
	GinMode                string
	DBDriver               string
	DSN                    string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	JWTSecret              string
	JWTIssuer              string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
	OTPTTL                 time.Duration
	OTPLength              int
	OTPMaxAttempts         int
	OTPResendWindow        time.Duration
	OTPInvalidatePrevious  bool
	AutoCreateUsers        bool
	PasswordChangeInterval time.Duration
	MinPasswordLength      int
	EmailFrom              string
	SMSEnabled             bool
	TwilioSID              string
	TwilioToken            string
	TwilioFrom             string
	AMQPURL                string
	NotificationsExchange  string
	AuditExchange          string
	LogLevel               string
	LogFormat              string
	CasbinModelPath        string
	AccessPolicies         []AccessPolicy
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Load reads the YAML file named by CONFIG_PATH (default config/config.yml)
// and applies environment overrides.
func Load() (*Config, error) {
	return LoadFrom(env("CONFIG_PATH", defaultConfigPath))
}

// LoadFrom reads configuration from path and applies environment overrides.
func LoadFrom(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	accTTL, err := parseDuration("jwt.access_ttl", env("JWT_ACCESS_TTL", configFile.JWT.AccessTTL), 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refTTL, err := parseDuration("jwt.refresh_ttl", env("JWT_REFRESH_TTL", configFile.JWT.RefreshTTL), 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	otpTTL, err := parseDuration("otp.ttl", configFile.OTP.TTL, 15*time.Minute)
	if err != nil {
		return nil, err
	}
	resWnd, err := parseDuration("otp.resend_window", configFile.OTP.ResendWindow, 0)
	if err != nil {
		return nil, err
	}
	pwInterval, err := parseDuration("auth.password_change_interval", configFile.Auth.PasswordChangeInterval, 24*time.Hour)
	if err != nil {
		return nil, err
	}

	port := configFile.App.Port
	if port == 0 {
		port = 8080
	}

	policiesPath := configFile.Casbin.PoliciesPath
	if policiesPath == "" {
		policiesPath = defaultPoliciesPath
	}
	policies, err := loadAccessPolicies(policiesPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		policies = DefaultAccessPolicies()
	}

	cfg := &Config{
		Port:                   env("APP_PORT", strconv.Itoa(port)),
		GinMode:                env("GIN_MODE", configFile.App.GinMode),
		DBDriver:               env("DATABASE_DRIVER", orDefault(configFile.Database.Driver, "postgres")),
		DSN:                    env("DATABASE_DSN", configFile.Database.DSN),
		RedisAddr:              env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword:          env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:                configFile.Redis.DB,
		JWTSecret:              env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer:              orDefault(configFile.JWT.Issuer, "fittrack-auth"),
		AccessTTL:              accTTL,
		RefreshTTL:             refTTL,
		OTPTTL:                 otpTTL,
		OTPLength:              configFile.OTP.Length,
		OTPMaxAttempts:         configFile.OTP.MaxAttempts,
		OTPResendWindow:        resWnd,
		OTPInvalidatePrevious:  configFile.OTP.InvalidatePrevious,
		AutoCreateUsers:        envBool("OTP_AUTO_CREATE_USERS", configFile.OTP.AutoCreateUsers),
		PasswordChangeInterval: pwInterval,
		MinPasswordLength:      configFile.Auth.MinPasswordLength,
		EmailFrom:              orDefault(configFile.Notifications.EmailFrom, "no-reply@fittrack.local"),
		SMSEnabled:             envBool("SMS_ENABLED", configFile.Notifications.SMSEnabled),
		TwilioSID:              env("TWILIO_ACCOUNT_SID", configFile.Notifications.Twilio.AccountSID),
		TwilioToken:            env("TWILIO_AUTH_TOKEN", configFile.Notifications.Twilio.AuthToken),
		TwilioFrom:             env("TWILIO_FROM_NUMBER", configFile.Notifications.Twilio.FromNumber),
		AMQPURL:                env("AMQP_URL", configFile.Notifications.AMQP.URL),
		NotificationsExchange:  orDefault(configFile.Notifications.AMQP.NotificationsExchange, "notifications"),
		AuditExchange:          orDefault(configFile.Notifications.AMQP.AuditExchange, "auth.events"),
		LogLevel:               env("LOG_LEVEL", orDefault(configFile.Logging.Level, "info")),
		LogFormat:              env("LOG_FORMAT", orDefault(configFile.Logging.Format, "json")),
		CasbinModelPath:        configFile.Casbin.ModelPath,
		AccessPolicies:         policies,
	}
	if cfg.OTPLength == 0 {
		cfg.OTPLength = 6
	}
	if cfg.MinPasswordLength == 0 {
		cfg.MinPasswordLength = 6
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("jwt ttls must be positive")
	}
	if c.RefreshTTL < c.AccessTTL {
		return errors.New("jwt refresh ttl must not be shorter than access ttl")
	}
	if c.OTPTTL <= 0 {
		return errors.New("otp ttl must be positive")
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return fmt.Errorf("otp length %d out of range", c.OTPLength)
	}
	if c.OTPMaxAttempts < 0 {
		return errors.New("otp max attempts must not be negative")
	}
	if c.PasswordChangeInterval < 0 {
		return errors.New("password change interval must not be negative")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	return nil
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
