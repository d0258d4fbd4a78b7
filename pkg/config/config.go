package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`
	LogFile   string `mapstructure:"LOG_FILE"`

	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required,url|uri"`

	RedisURL        string        `mapstructure:"REDIS_URL" validate:"required_if=CacheDriver redis,omitempty,url"`
	CacheDriver     string        `mapstructure:"CACHE_DRIVER" validate:"required,oneof=redis memory"`
	CacheTTL        time.Duration `mapstructure:"CACHE_TTL" validate:"gt=0,lte=5m"`
	CacheOpTimeout  time.Duration `mapstructure:"CACHE_OP_TIMEOUT" validate:"gt=0"`
	CacheMemorySize int           `mapstructure:"CACHE_MEMORY_SIZE" validate:"gte=1"`

	RandomUserAPIURL string        `mapstructure:"RANDOMUSER_API_URL" validate:"required,url"`
	FetchBatchSize   int           `mapstructure:"FETCH_BATCH_SIZE" validate:"gte=1,lte=5000"`
	FetchMaxCount    int           `mapstructure:"FETCH_MAX_COUNT" validate:"gte=1,lte=10000"`
	FetchTimeout     time.Duration `mapstructure:"FETCH_TIMEOUT" validate:"gt=0"`
	FetchMaxAttempts int           `mapstructure:"FETCH_MAX_ATTEMPTS" validate:"gte=1,lte=10"`

	// SeedCount users are ingested in the background at API startup; 0 disables seeding.
	SeedCount int `mapstructure:"SEED_COUNT" validate:"gte=0"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only when a reverse proxy overwrites those headers.
	TrustProxy bool `mapstructure:"TRUST_PROXY"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"LOG_FILE",
	"DATABASE_URL",
	"REDIS_URL",
	"CACHE_DRIVER",
	"CACHE_TTL",
	"CACHE_OP_TIMEOUT",
	"CACHE_MEMORY_SIZE",
	"RANDOMUSER_API_URL",
	"FETCH_BATCH_SIZE",
	"FETCH_MAX_COUNT",
	"FETCH_TIMEOUT",
	"FETCH_MAX_ATTEMPTS",
	"SEED_COUNT",
	"ASYNQ_CONCURRENCY",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"TRUST_PROXY",
	"GOMAXPROCS",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	// Defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8000")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CACHE_DRIVER", "redis")
	v.SetDefault("CACHE_TTL", "300s")
	v.SetDefault("CACHE_OP_TIMEOUT", "2s")
	v.SetDefault("CACHE_MEMORY_SIZE", 10000)
	v.SetDefault("RANDOMUSER_API_URL", "https://randomuser.me/api/")
	v.SetDefault("FETCH_BATCH_SIZE", 100)
	v.SetDefault("FETCH_MAX_COUNT", 5000)
	v.SetDefault("FETCH_TIMEOUT", "30s")
	v.SetDefault("FETCH_MAX_ATTEMPTS", 3)
	v.SetDefault("SEED_COUNT", 0)
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("GOMAXPROCS", 0)

	// Optional config file
	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	return &c, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// CORSOrigins returns the browser origins allowed for the configured environment.
func (c *Config) CORSOrigins() []string {
	switch c.AppEnv {
	case "production":
		return []string{"http://localhost", "http://localhost:3001"}
	case "development", "test":
		return []string{"http://localhost:3000", "http://frontend:3000", "http://localhost:3001", "http://frontend:3001"}
	default:
		return []string{"http://localhost:3001"}
	}
}
