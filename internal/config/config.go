package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppPort           = "8080"
	defaultStoreTimeout      = 5 * time.Second
	defaultNotifyDelay       = 2 * time.Second
	defaultNotifyMaxAttempts = 3
	defaultCORSOrigin        = "http://localhost:3000"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	AppPort  string
	AppEnv   string
	LogLevel string

	JWTSecret         string
	CORSOrigin        string
	InternalSecretKey string

	// StoreTimeout bounds every single inventory or order store call.
	StoreTimeout time.Duration

	EmailAPIURL string
	EmailAPIKey string
	EmailFrom   string
	AdminEmail  string

	NotifyQueue       string
	NotifyDelay       time.Duration
	NotifyMaxAttempts int
	RedisURL          string
}

var ErrMissingDBHost = errors.New("DB_HOST is not set")

// Load reads configuration from the environment (and .env when present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:            os.Getenv("DB_HOST"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            os.Getenv("DB_NAME"),
		DBPort:            os.Getenv("DB_PORT"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		AppPort:           getEnv("APP_PORT", defaultAppPort),
		AppEnv:            os.Getenv("APP_ENV"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		CORSOrigin:        getEnv("CORS_ORIGIN", defaultCORSOrigin),
		InternalSecretKey: os.Getenv("INTERNAL_SECRET_KEY"),
		EmailAPIURL:       os.Getenv("EMAIL_API_URL"),
		EmailAPIKey:       os.Getenv("EMAIL_API_KEY"),
		EmailFrom:         getEnv("EMAIL_FROM", "orders@storefront.local"),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		NotifyQueue:       getEnv("NOTIFY_QUEUE", "memory"),
		RedisURL:          os.Getenv("REDIS_URL"),
	}

	if cfg.DBHost == "" {
		return nil, ErrMissingDBHost
	}

	var err error
	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", defaultStoreTimeout); err != nil {
		return nil, err
	}
	if cfg.NotifyDelay, err = getDuration("NOTIFY_DELAY", defaultNotifyDelay); err != nil {
		return nil, err
	}
	if cfg.NotifyMaxAttempts, err = getInt("NOTIFY_MAX_ATTEMPTS", defaultNotifyMaxAttempts); err != nil {
		return nil, err
	}

	switch cfg.NotifyQueue {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when NOTIFY_QUEUE=redis")
		}
	default:
		return nil, fmt.Errorf("unknown NOTIFY_QUEUE %q (use memory or redis)", cfg.NotifyQueue)
	}

	return cfg, nil
}

// LoadConfig is Load for process bootstrap: it exits on invalid configuration.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Environment variables not loaded properly: %v", err)
	}
	return cfg
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return n, nil
}
