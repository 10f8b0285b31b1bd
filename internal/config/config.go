package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds the three process-wide secrets, loaded once at startup.
// Each falls back to a development default when unset; the fallbacks are
// ordinary secret values with no special handling downstream. ENCRYPTION_KEY
// and API_KEY_SECRET inherit JWT_SECRET before resorting to their own
// defaults, so a single-secret deployment still works.
type AuthConfig struct {
	JWTSecret     string
	EncryptionKey string
	APIKeySecret  string
	TokenTTL      time.Duration
}

type WorkerConfig struct {
	Concurrency   int
	SweepInterval time.Duration
}

const (
	defaultJWTSecret     = "default-secret-key-change-in-production"
	defaultEncryptionKey = "default-encryption-key-change-in-production-please-use-strong-key"
)

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	concurrency, err := getEnvInt("WORKER_CONCURRENCY", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	tokenTTL, err := getEnvDuration("TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	sweepInterval, err := getEnvDuration("APIKEY_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid APIKEY_SWEEP_INTERVAL: %w", err)
	}

	jwtSecret := getEnv("JWT_SECRET", defaultJWTSecret)

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:     jwtSecret,
			EncryptionKey: getEnv("ENCRYPTION_KEY", fallbackSecret(jwtSecret, defaultEncryptionKey)),
			APIKeySecret:  getEnv("API_KEY_SECRET", jwtSecret),
			TokenTTL:      tokenTTL,
		},
		Worker: WorkerConfig{
			Concurrency:   concurrency,
			SweepInterval: sweepInterval,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// fallbackSecret prefers an explicitly configured JWT secret over the
// encryption-specific default, mirroring the secret inheritance chain.
func fallbackSecret(jwtSecret, def string) string {
	if jwtSecret != defaultJWTSecret {
		return jwtSecret
	}
	return def
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
