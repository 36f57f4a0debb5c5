package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables (prefixed with TASKNEST_) take precedence over
// values from the config file, which in turn override the built-in defaults.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep local development runnable with only the required
	// secrets provided via environment.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("rate_limit.general_max", 120)
	v.SetDefault("rate_limit.general_window", time.Minute)
	v.SetDefault("rate_limit.login_max", 10)
	v.SetDefault("rate_limit.login_window", time.Minute)
	v.SetDefault("rate_limit.public_per_second", 5.0)
	v.SetDefault("rate_limit.public_burst", 20)
	v.SetDefault("mail.port", 587)

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine; environment variables may be enough.
	}

	// Environment variables: TASKNEST_SERVER_PORT, TASKNEST_DATABASE_URL, ...
	v.SetEnvPrefix("TASKNEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not surface env-only keys to Unmarshal unless they
	// are bound explicitly.
	for _, key := range []string{
		"server.port", "server.log_level",
		"database.url",
		"auth.jwt_secret", "auth.token_lifetime_minutes",
		"rate_limit.general_max", "rate_limit.general_window",
		"rate_limit.login_max", "rate_limit.login_window",
		"rate_limit.public_per_second", "rate_limit.public_burst",
		"mail.host", "mail.port", "mail.username", "mail.password", "mail.from",
		"redis.url",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
