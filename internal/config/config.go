package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
	Mail      MailConfig      `mapstructure:"mail"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// RateLimitConfig controls the request throttling applied by the HTTP layer.
// The general limiter is keyed by authenticated user ID; the login limiter is
// keyed by source address and is deliberately stricter.
type RateLimitConfig struct {
	GeneralMax      int           `mapstructure:"general_max"      validate:"required,gt=0"`
	GeneralWindow   time.Duration `mapstructure:"general_window"   validate:"required"`
	LoginMax        int           `mapstructure:"login_max"        validate:"required,gt=0"`
	LoginWindow     time.Duration `mapstructure:"login_window"     validate:"required"`
	PublicPerSecond float64       `mapstructure:"public_per_second" validate:"required,gt=0"`
	PublicBurst     int           `mapstructure:"public_burst"      validate:"required,gt=0"`
}

// MailConfig contains settings for the outbound email transport.
// When Host is empty the application falls back to a log-only mailer,
// which keeps local development and tests free of SMTP dependencies.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// RedisConfig contains settings for the optional Redis-backed token
// revocation store. When URL is empty the in-memory store is used instead.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}
