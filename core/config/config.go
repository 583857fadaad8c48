package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	Paths     PathsConfig
	Database  DatabaseConfig
	Valkey    ValkeyConfig
	Gateway   GatewayConfig
	Webhook   WebhookConfig
	Queue     QueueConfig
	Campaign  CampaignConfig
	Inbox     InboxConfig
	RateLimit RateLimitConfig
	Sentry    SentryConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasePath           string
	TrustedProxies     []string
	CorsAllowedOrigins []string
	JWTSecret          string
	EncryptionKey      string
}

type PathsConfig struct {
	BaseDir  string
	Storages string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string // File path for SQLite, DB Name for Postgres
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

type GatewayConfig struct {
	Timeout       time.Duration
	RetryAttempts int
}

type WebhookConfig struct {
	VerifySecret string
	Async        bool
}

type QueueConfig struct {
	TriggerSecret      string
	BatchSize          int
	DefaultMaxAttempts int
	BackoffBase        time.Duration
	BackoffMax         time.Duration
	ScheduleSpec       string
	LockTTL            time.Duration
	// StaleAfter is how long a processing job may go without a heartbeat
	// before the next batch treats its poller as dead.
	StaleAfter time.Duration
	Heartbeat  time.Duration
}

type CampaignConfig struct {
	SendDelay           time.Duration
	ErrorRatioThreshold float64
}

type InboxConfig struct {
	DefaultPriority int
}

type RateLimitConfig struct {
	Max        int
	Expiration time.Duration
}

type SentryConfig struct {
	DSN         string
	Environment string
}

// Global provides access to the loaded configuration globally
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	debug := getEnvBool("APP_DEBUG", false) || getEnvBool("DEBUG", false)

	corsOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		corsOrigins = strings.Split(v, ",")
	}

	appCfg := AppConfig{
		Version:            "v1.0.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              debug,
		Environment:        getEnv("APP_ENV", "development"),
		BasePath:           getEnv("APP_BASE_PATH", ""),
		CorsAllowedOrigins: corsOrigins,
		JWTSecret:          getEnv("APP_JWT_SECRET", ""),
		EncryptionKey:      getEnv("APP_ENCRYPTION_KEY", ""),
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}

	pathsCfg := PathsConfig{
		BaseDir:  baseDir,
		Storages: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "sqlite"),
		Name:     getEnv("DB_NAME", filepath.Join(pathsCfg.Storages, "inbox.db")),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
	}

	vkCfg := ValkeyConfig{
		Enabled:   getEnvBool("VALKEY_ENABLED", false),
		Address:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		Password:  getEnv("VALKEY_PASSWORD", ""),
		DB:        getEnvInt("VALKEY_DB", 0),
		KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azinbox:"),
	}

	cfg := &Config{
		App:      appCfg,
		Paths:    pathsCfg,
		Database: dbCfg,
		Valkey:   vkCfg,
		Gateway: GatewayConfig{
			Timeout:       getEnvDuration("GATEWAY_TIMEOUT", 15*time.Second),
			RetryAttempts: getEnvInt("GATEWAY_RETRY_ATTEMPTS", 3),
		},
		Webhook: WebhookConfig{
			VerifySecret: getEnv("WEBHOOK_VERIFY_SECRET", ""),
			Async:        getEnvBool("WEBHOOK_ASYNC", false),
		},
		Queue: QueueConfig{
			TriggerSecret:      getEnv("QUEUE_TRIGGER_SECRET", ""),
			BatchSize:          getEnvInt("QUEUE_BATCH_SIZE", 10),
			DefaultMaxAttempts: getEnvInt("QUEUE_MAX_ATTEMPTS", 3),
			BackoffBase:        getEnvDuration("QUEUE_BACKOFF_BASE", 30*time.Second),
			BackoffMax:         getEnvDuration("QUEUE_BACKOFF_MAX", 30*time.Minute),
			ScheduleSpec:       getEnv("QUEUE_SCHEDULE", "@every 1m"),
			LockTTL:            getEnvDuration("QUEUE_LOCK_TTL", 55*time.Second),
			StaleAfter:         getEnvDuration("QUEUE_STALE_AFTER", 15*time.Minute),
			Heartbeat:          getEnvDuration("QUEUE_HEARTBEAT", 0),
		},
		Campaign: CampaignConfig{
			SendDelay:           getEnvDuration("CAMPAIGN_SEND_DELAY", 2*time.Second),
			ErrorRatioThreshold: getEnvFloat("CAMPAIGN_ERROR_RATIO_THRESHOLD", 0.5),
		},
		Inbox: InboxConfig{
			DefaultPriority: getEnvInt("INBOX_DEFAULT_PRIORITY", 0),
		},
		RateLimit: RateLimitConfig{
			Max:        getEnvInt("RATE_LIMIT_MAX", 1000),
			Expiration: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			Environment: getEnv("SENTRY_ENVIRONMENT", appCfg.Environment),
		},
	}

	Global = cfg
	return cfg, nil
}
