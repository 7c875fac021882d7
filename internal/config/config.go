// Package config loads and validates the process configuration from the
// environment. A .env file is honored when present. The process must refuse
// to start when a required option is missing or syntactically invalid.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// Mongo holds the document-store connection options.
type Mongo struct {
	URI        string        `env:"MONGODB_URI,required"`
	Database   string        `env:"MONGODB_DB_NAME,required"`
	MaxRetries int           `env:"MONGODB_MAX_RETRIES,default=5"`
	RetryDelay time.Duration `env:"MONGODB_RETRY_DELAY,default=2s"`
}

// Redis holds the cache-store connection options.
type Redis struct {
	URI        string        `env:"REDIS_URI,required"`
	MaxRetries int           `env:"REDIS_MAX_RETRIES,default=5"`
	RetryDelay time.Duration `env:"REDIS_RETRY_DELAY,default=2s"`
}

// HTTP holds the options of the outer request-handling surface.
type HTTP struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=*"`
	RateLimitRPS   int      `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST,default=200"`
}

// Config is the full configuration surface of the API process.
type Config struct {
	Port  int `env:"PORT,default=3000"`
	HTTP  HTTP
	Mongo Mongo
	Redis Redis
}

// Load reads .env (best effort), decodes the environment and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks connection strings and option ranges.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if err := validateMongoURI(c.Mongo.URI); err != nil {
		return err
	}
	if err := validateDatabaseName(c.Mongo.Database); err != nil {
		return err
	}
	if _, err := redis.ParseURL(c.Redis.URI); err != nil {
		return fmt.Errorf("REDIS_URI is not valid: %w", err)
	}
	if c.Mongo.MaxRetries < 1 || c.Redis.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.Mongo.RetryDelay < 0 || c.Redis.RetryDelay < 0 {
		return fmt.Errorf("retry delay must not be negative")
	}
	if c.HTTP.RateLimitRPS < 1 || c.HTTP.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must be at least 1")
	}
	return nil
}

func validateMongoURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("MONGODB_URI is not valid: %w", err)
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return fmt.Errorf("MONGODB_URI must use the mongodb:// or mongodb+srv:// scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("MONGODB_URI is missing a host")
	}
	return nil
}

// validateDatabaseName enforces MongoDB database-name rules: 1-64 characters,
// none of \ " / $ or NUL, and no leading "<digit>." sequence.
func validateDatabaseName(name string) error {
	if name == "" {
		return fmt.Errorf("MONGODB_DB_NAME must not be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("MONGODB_DB_NAME exceeds 64 characters")
	}
	if strings.ContainsAny(name, "\\\"/$\x00") {
		return fmt.Errorf("MONGODB_DB_NAME contains forbidden characters")
	}
	if len(name) >= 2 && name[0] >= '0' && name[0] <= '9' && name[1] == '.' {
		return fmt.Errorf("MONGODB_DB_NAME must not start with a digit followed by a dot")
	}
	return nil
}
