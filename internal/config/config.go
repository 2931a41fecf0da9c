// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBHost      string `env:"DB_HOST" default:"localhost"`
	DBPort      string `env:"DB_PORT" default:"5432"`
	DBName      string `env:"DB_NAME"`

	AMQPURL  string `env:"AMQP_URL"`
	RedisURL string `env:"REDIS_URL"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"json"`

	EmailAPIURL string `env:"EMAIL_API_URL"`
	EmailAPIKey string `env:"EMAIL_API_KEY"`
	EmailFrom   string `env:"EMAIL_FROM" default:"no-reply@example.com"`

	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION" default:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`

	SchedulerInterval time.Duration `env:"SCHEDULER_INTERVAL" default:"30s"`
	RelayMaxViewers   int           `env:"RELAY_MAX_VIEWERS" default:"500"`
	FormRateLimit     float64       `env:"FORM_RATE_LIMIT" default:"2"`
	FormRateBurst     int           `env:"FORM_RATE_BURST" default:"5"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on OS environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DSN returns DATABASE_URL, or builds one from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" && (c.DBUser == "" || c.DBName == "") {
		return errors.New("DATABASE_URL or DB_USER and DB_NAME are required")
	}
	if c.IsProduction() && c.EmailAPIURL == "" {
		return errors.New("EMAIL_API_URL is required in production")
	}
	if c.EmailAPIURL != "" && c.EmailAPIKey == "" {
		return errors.New("EMAIL_API_KEY is required when EMAIL_API_URL is set")
	}
	if c.SchedulerInterval < time.Second {
		return fmt.Errorf("SCHEDULER_INTERVAL must be at least 1s, got %s", c.SchedulerInterval)
	}
	if c.RelayMaxViewers < 1 {
		return errors.New("RELAY_MAX_VIEWERS must be positive")
	}
	if c.FormRateLimit <= 0 || c.FormRateBurst < 1 {
		return errors.New("FORM_RATE_LIMIT and FORM_RATE_BURST must be positive")
	}
	return nil
}
