// Package config loads service configuration from defaults, an optional
// TOML file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Auth       AuthConfig       `toml:"auth"`
	AMQP       AMQPConfig       `toml:"amqp"`
	Log        LogConfig        `toml:"log"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Settlement SettlementConfig `toml:"settlement"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	// TokenTTL is a Go duration string, e.g. "24h".
	TokenTTL string `toml:"token_ttl"`
}

// AMQPConfig enables queued recalculation when URL is set. With an empty URL
// the server recalculates inline.
type AMQPConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
	Queue    string `toml:"queue"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

type SettlementConfig struct {
	// UserQueryConcurrency bounds parallel group recalculations when
	// listing a user's settlements.
	UserQueryConcurrency int `toml:"user_query_concurrency"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server:     ServerConfig{Host: "", Port: 8080},
		Database:   DatabaseConfig{Path: "./data/splitledger.db"},
		Auth:       AuthConfig{TokenTTL: "24h"},
		AMQP:       AMQPConfig{Exchange: "splitledger", Queue: "recalculate_settlements"},
		Log:        LogConfig{Level: "info", Format: "text"},
		Metrics:    MetricsConfig{Enabled: true},
		Settlement: SettlementConfig{UserQueryConcurrency: 4},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment variables apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = getEnv("TOKEN_TTL", c.Auth.TokenTTL)
	c.AMQP.URL = getEnv("AMQP_URL", c.AMQP.URL)
	c.AMQP.Exchange = getEnv("AMQP_EXCHANGE", c.AMQP.Exchange)
	c.AMQP.Queue = getEnv("AMQP_QUEUE", c.AMQP.Queue)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Metrics.Enabled = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Settlement.UserQueryConcurrency = getEnvInt("USER_QUERY_CONCURRENCY", c.Settlement.UserQueryConcurrency)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// TokenTTL returns the parsed token lifetime. Call Validate first.
func (c *Config) TokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.Auth.TokenTTL)
	return d
}

// Validate validates the configuration and returns an error if invalid.
// The JWT secret is checked by RequireJWTSecret.
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}

	if c.Database.Path == "" {
		errors = append(errors, "database path cannot be empty")
	}

	if d, err := time.ParseDuration(c.Auth.TokenTTL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid token TTL '%s': %v", c.Auth.TokenTTL, err))
	} else if d <= 0 {
		errors = append(errors, fmt.Sprintf("invalid token TTL '%s': must be positive", c.Auth.TokenTTL))
	}

	if c.AMQP.URL != "" {
		if parsedURL, err := url.Parse(c.AMQP.URL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQP.URL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQP.Exchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQP.Queue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.Log.Format))
	}

	if c.Settlement.UserQueryConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid user query concurrency %d: must be at least 1", c.Settlement.UserQueryConcurrency))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// RequireJWTSecret fails when no token signing secret is configured.
func (c *Config) RequireJWTSecret() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required (set JWT_SECRET or auth.jwt_secret)")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
