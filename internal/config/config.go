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
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Complaints ComplaintConfig
	Escalation EscalationConfig
	Minio      MinioConfig
	RabbitMQ   RabbitMQConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	RunMigrations     bool
	ConnMaxIdleSec    int32
	ConnMaxLifeSec    int32
	ConnectTimeoutSec int32
	// ApplicationName tags server sessions in pg_stat_activity.
	ApplicationName string
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// ComplaintConfig toggles lifecycle policies.
type ComplaintConfig struct {
	// StrictTransitions enforces the status transition table. When false any
	// enumerated status may overwrite any other.
	StrictTransitions bool
	// EnforceCapacity rejects assignments to employees at their max load.
	EnforceCapacity bool
}

// EscalationConfig drives the stale-assignment sweep.
type EscalationConfig struct {
	Enabled         bool
	IntervalMinutes int
	AfterHours      int
	LockTTLSeconds  int
}

// MinioConfig holds object storage settings for complaint attachments.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RabbitMQConfig holds the optional event forwarding target.
type RabbitMQConfig struct {
	URL   string
	Queue string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))
	appName := getEnv("APP_NAME", "grievance-service")

	cfg := &Config{
		App: AppConfig{
			Name:                  appName,
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:               os.Getenv("POSTGRES_DSN"),
			MaxConns:          maxConns,
			MinConns:          minConns,
			RunMigrations:     runMigrations,
			ConnMaxIdleSec:    connMaxIdle,
			ConnMaxLifeSec:    connMaxLife,
			ConnectTimeoutSec: int32(getEnvAsInt("POSTGRES_CONNECT_TIMEOUT_SECONDS", 5)),
			ApplicationName:   appName,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Complaints: ComplaintConfig{
			StrictTransitions: getEnvAsBool("COMPLAINT_STRICT_TRANSITIONS", true),
			EnforceCapacity:   getEnvAsBool("ASSIGNMENT_ENFORCE_CAPACITY", false),
		},
		Escalation: EscalationConfig{
			Enabled:         getEnvAsBool("ESCALATION_ENABLED", true),
			IntervalMinutes: getEnvAsInt("ESCALATION_INTERVAL_MINUTES", 60),
			AfterHours:      getEnvAsInt("ESCALATION_AFTER_HOURS", 7*24),
			LockTTLSeconds:  getEnvAsInt("ESCALATION_LOCK_TTL_SECONDS", 300),
		},
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "complaint-attachments"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   os.Getenv("RABBITMQ_URL"),
			Queue: getEnv("RABBITMQ_QUEUE", "grievance.events"),
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

// IdleTimeout returns how long an unused pool connection is kept.
func (p PostgresConfig) IdleTimeout() time.Duration {
	return time.Duration(p.ConnMaxIdleSec) * time.Second
}

// MaxLifetime returns the age after which pool connections are recycled.
func (p PostgresConfig) MaxLifetime() time.Duration {
	return time.Duration(p.ConnMaxLifeSec) * time.Second
}

// ConnectTimeout bounds the initial connect and ping.
func (p PostgresConfig) ConnectTimeout() time.Duration {
	if p.ConnectTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.ConnectTimeoutSec) * time.Second
}

// Interval returns the sweep period, never below one minute.
func (e EscalationConfig) Interval() time.Duration {
	if e.IntervalMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(e.IntervalMinutes) * time.Minute
}

// After returns how long a complaint may stay assigned before escalation.
func (e EscalationConfig) After() time.Duration {
	if e.AfterHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(e.AfterHours) * time.Hour
}

// LockTTL returns the lifetime of the sweep lock.
func (e EscalationConfig) LockTTL() time.Duration {
	if e.LockTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(e.LockTTLSeconds) * time.Second
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
