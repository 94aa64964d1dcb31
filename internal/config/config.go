package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	App       AppConfig
	Cache     CacheConfig
	Recompute RecomputeConfig
	Payroll   PayrollConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// RedisConfig is optional; an empty Addr selects the in-process cache and
// locker.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string
	SSETokenTTL time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type CacheConfig struct {
	TTL time.Duration
}

type RecomputeConfig struct {
	Workers       int
	QueueSize     int
	StaleAfter    time.Duration
	MaxAttempts   int
	SweepBatch    int
	SweepInterval time.Duration
}

type PayrollConfig struct {
	DefaultTDSRate            decimal.Decimal
	DefaultWorkingDaysInMonth int
	// WorkingDaysSource is "employee" or "period".
	WorkingDaysSource string
	LockTTL           time.Duration
}

// Load reads the environment, after merging a .env file when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	} else if err != nil {
		slog.Debug("No .env file found, using process environment")
	}

	config := &Config{}
	var errs []error

	// Database configuration
	config.Database = DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432, &errs),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", "cmlabs_hris_payroll"),
		SSLMode:         getEnv("DB_SSL_MODE", "disable"),
		MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 25, &errs)),
		MinConns:        int32(getEnvInt("DB_MIN_CONNS", 5, &errs)),
		MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour, &errs),
	}

	// Redis configuration
	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0, &errs),
	}

	// Application configuration
	config.App = AppConfig{
		Port:           getEnvInt("APP_PORT", 8080, &errs),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:      getEnv("JWT_SECRET_KEY", ""),
		SSETokenTTL: getEnvDuration("JWT_SSE_TOKEN_TTL", 5*time.Minute, &errs),
	}

	config.Cache = CacheConfig{
		TTL: getEnvDuration("CACHE_TTL", 5*time.Minute, &errs),
	}

	config.Recompute = RecomputeConfig{
		Workers:       getEnvInt("RECOMPUTE_WORKERS", 4, &errs),
		QueueSize:     getEnvInt("RECOMPUTE_QUEUE_SIZE", 1024, &errs),
		StaleAfter:    getEnvDuration("RECOMPUTE_STALE_AFTER", 2*time.Minute, &errs),
		MaxAttempts:   getEnvInt("RECOMPUTE_MAX_ATTEMPTS", 10, &errs),
		SweepBatch:    getEnvInt("RECOMPUTE_SWEEP_BATCH", 500, &errs),
		SweepInterval: getEnvDuration("RECOMPUTE_SWEEP_INTERVAL", time.Minute, &errs),
	}

	tdsRate, err := decimal.NewFromString(getEnv("PAYROLL_DEFAULT_TDS_RATE", "0"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid PAYROLL_DEFAULT_TDS_RATE: %w", err))
	}
	config.Payroll = PayrollConfig{
		DefaultTDSRate:            tdsRate,
		DefaultWorkingDaysInMonth: getEnvInt("PAYROLL_DEFAULT_WORKING_DAYS", 0, &errs),
		WorkingDaysSource:         strings.ToLower(getEnv("PAYROLL_WORKING_DAYS_SOURCE", "employee")),
		LockTTL:                   getEnvDuration("PAYROLL_LOCK_TTL", 5*time.Minute, &errs),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Payroll.WorkingDaysSource != "employee" && c.Payroll.WorkingDaysSource != "period" {
		return fmt.Errorf("PAYROLL_WORKING_DAYS_SOURCE must be employee or period, got %q", c.Payroll.WorkingDaysSource)
	}
	if c.Payroll.DefaultTDSRate.IsNegative() || c.Payroll.DefaultTDSRate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("PAYROLL_DEFAULT_TDS_RATE must be between 0 and 100")
	}
	if c.Payroll.DefaultWorkingDaysInMonth < 0 || c.Payroll.DefaultWorkingDaysInMonth > 31 {
		return fmt.Errorf("PAYROLL_DEFAULT_WORKING_DAYS must be between 0 and 31")
	}
	if c.Recompute.Workers < 1 {
		return fmt.Errorf("RECOMPUTE_WORKERS must be at least 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
