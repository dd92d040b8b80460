package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/neighbora/neighbora-api/internal/platform/cache"
)

// Admin authorization sources accepted by AUTH_ADMIN_SOURCE.
const (
	AdminSourceRecord = "record"
	AdminSourceClaims = "claims"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	MongoURI      string `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"neighbora"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	FirebaseProjectID          string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseServiceAccountKey  string `envconfig:"FIREBASE_SERVICE_ACCOUNT_KEY"`
	FirebaseServiceAccountPath string `envconfig:"FIREBASE_SERVICE_ACCOUNT_PATH"`

	AuthAdminSource       string `envconfig:"AUTH_ADMIN_SOURCE" default:"record"`
	AuthInsecureDevTokens bool   `envconfig:"AUTH_INSECURE_DEV_TOKENS" default:"false"`

	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	RateLimitRequests  int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100"`
	RateLimitWindow    time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`

	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	MailFrom       string `envconfig:"MAIL_FROM" default:"no-reply@neighbora.local"`
	MailFromName   string `envconfig:"MAIL_FROM_NAME" default:"Neighbora"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
	OverdueSweepCron  string `envconfig:"OVERDUE_SWEEP_CRON" default:"0 3 * * *"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	c.AppEnv = strings.ToLower(strings.TrimSpace(c.AppEnv))
	c.AuthAdminSource = strings.ToLower(strings.TrimSpace(c.AuthAdminSource))
	if c.AuthAdminSource == "" {
		c.AuthAdminSource = AdminSourceRecord
	}
	switch c.AuthAdminSource {
	case AdminSourceRecord, AdminSourceClaims:
	default:
		return fmt.Errorf("config: AUTH_ADMIN_SOURCE must be %q or %q, got %q", AdminSourceRecord, AdminSourceClaims, c.AuthAdminSource)
	}
	if c.AuthInsecureDevTokens && c.IsProduction() {
		return errors.New("config: AUTH_INSECURE_DEV_TOKENS cannot be enabled in production")
	}
	if strings.TrimSpace(c.MongoDatabase) == "" {
		return errors.New("config: MONGODB_DATABASE must be provided")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return nil
}

// Redis returns the connection settings shared by the cache and the job queue.
func (c *Config) Redis() cache.Config {
	return cache.Config{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// FirebaseConfigured reports whether any Firebase credential source is set.
func (c *Config) FirebaseConfigured() bool {
	if c == nil {
		return false
	}
	return c.FirebaseServiceAccountKey != "" || c.FirebaseServiceAccountPath != ""
}
