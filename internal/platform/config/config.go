package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	Database      DatabaseConfig
	Redis         RedisConfig
	Logging       LoggingConfig
	Notification  NotificationConfig
}

// DatabaseConfig selects Postgres stores when URL is set; in-memory otherwise.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	// Migrate applies the embedded schema on startup.
	Migrate bool
}

// RedisConfig configures the unread-count cache. Empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	UnreadTTL    time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type NotificationConfig struct {
	FanoutConcurrency int
	TemplatesPath     string
}

const defaultFanoutConcurrency = 8

// FromEnv loads an optional .env file and builds the config from the environment.
func FromEnv() (Server, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	concurrency, err := intEnv("FANOUT_CONCURRENCY", defaultFanoutConcurrency)
	if err != nil {
		return Server{}, err
	}
	if concurrency < 1 {
		return Server{}, fmt.Errorf("FANOUT_CONCURRENCY must be positive, got %d", concurrency)
	}
	maxOpen, err := intEnv("DATABASE_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Server{}, err
	}
	migrate, err := boolEnv("DATABASE_MIGRATE", false)
	if err != nil {
		return Server{}, err
	}

	return Server{
		Addr:          getEnv("SIWARGA_ADDR", ":8080"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getEnv("JWT_ISSUER", "siwarga"),
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: maxOpen,
			Migrate:      migrate,
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			UnreadTTL:    10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Notification: NotificationConfig{
			FanoutConcurrency: concurrency,
			TemplatesPath:     os.Getenv("NOTIFICATION_TEMPLATES"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
