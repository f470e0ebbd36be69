package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	SLA          SLAConfig
	Classifier   ClassifierConfig
	Admin        AdminConfig
	Analytics    AnalyticsConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSOrigins           string
}

// PostgresConfig holds DB connection values. An empty DSN switches the
// service to in-memory repositories.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SLAConfig defines the duration-per-priority table and the warning window.
// The thresholds are deployment policy, not engine constants.
type SLAConfig struct {
	HighHours       int
	MediumHours     int
	LowHours        int
	AtRiskWindowMin int
}

// ClassifierConfig configures the external AI classifier adapter.
type ClassifierConfig struct {
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	Model          string
	TimeoutSeconds int
}

// AdminConfig defines how the out-of-band admin credential is verified.
// Exactly one of Key/KeyHash is normally set; JWTSecret additionally accepts
// signed admin tokens issued by an external identity provider.
type AdminConfig struct {
	Key       string
	KeyHash   string
	JWTSecret string
}

// AnalyticsConfig controls the dashboard snapshot cache.
type AnalyticsConfig struct {
	CacheTTLSeconds int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "request-triage"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3001"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSOrigins:           getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		SLA: SLAConfig{
			HighHours:       getEnvAsInt("SLA_HIGH_HOURS", 4),
			MediumHours:     getEnvAsInt("SLA_MEDIUM_HOURS", 24),
			LowHours:        getEnvAsInt("SLA_LOW_HOURS", 72),
			AtRiskWindowMin: getEnvAsInt("SLA_AT_RISK_WINDOW_MINUTES", 60),
		},
		Classifier: ClassifierConfig{
			OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
			Model:          getEnv("CLASSIFIER_MODEL", "gpt-4o-mini"),
			TimeoutSeconds: getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 8),
		},
		Admin: AdminConfig{
			Key:       os.Getenv("ADMIN_KEY"),
			KeyHash:   os.Getenv("ADMIN_KEY_HASH"),
			JWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		},
		Analytics: AnalyticsConfig{
			CacheTTLSeconds: getEnvAsInt("ANALYTICS_CACHE_TTL_SECONDS", 5),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", ""),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the classifier call deadline.
func (c ClassifierConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the analytics snapshot TTL; zero disables caching.
func (a AnalyticsConfig) CacheTTL() time.Duration {
	if a.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(a.CacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
