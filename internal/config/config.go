// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds all runtime settings.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string        `env:"SERVER_HOST,default=0.0.0.0"`
	Port         int           `env:"SERVER_PORT,default=8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT,default=15s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT,default=60s"`
}

// Addr returns the host:port the server listens on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig configures PostgreSQL. An empty URL switches the service
// to in-memory storage.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL,default="`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=5m"`
}

// RedisConfig configures the cache. An empty URL disables caching.
type RedisConfig struct {
	URL string        `env:"REDIS_URL,default="`
	TTL time.Duration `env:"CACHE_TTL,default=5m"`
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}

type RateLimitConfig struct {
	PerSecond int `env:"RATE_LIMIT_PER_SECOND,default=10"`
	Burst     int `env:"RATE_LIMIT_BURST,default=20"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return &cfg, nil
}
