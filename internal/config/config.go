// Package config loads the receiptbook configuration from an optional YAML
// file and the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/receiptbook/internal/storage/dialect"
)

// Defaults.
const (
	DefaultListen   = ":8080"
	DefaultDriver   = dialect.SQLite
	DefaultDBPath   = "./data/receipts.db"
	DefaultTokenTTL = 24 * time.Hour
)

// Config is the full process configuration.
type Config struct {
	Listen    string   `yaml:"listen"`
	Database  Database `yaml:"database"`
	Auth      Auth     `yaml:"auth"`
	LogLevel  string   `yaml:"log_level"`
	LogFormat string   `yaml:"log_format"`
}

// Database selects the storage backend.
type Database struct {
	// Driver is sqlite, postgres or mysql.
	Driver string `yaml:"driver"`

	// DSN is the file path for sqlite and the connection string otherwise.
	DSN string `yaml:"dsn"`
}

// Auth configures token issuing.
type Auth struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Listen:   DefaultListen,
		Database: Database{Driver: DefaultDriver, DSN: DefaultDBPath},
		Auth:     Auth{TokenTTL: DefaultTokenTTL},
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Load reads path (skipped when empty) over the defaults, then applies
// environment overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.Listen = getEnv("LISTEN_ADDR", cfg.Listen)
	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	// DB_PATH is the sqlite spelling of DB_DSN.
	cfg.Database.DSN = getEnv("DB_DSN", getEnv("DB_PATH", cfg.Database.DSN))
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TOKEN_TTL %q: %w", raw, err)
		}
		cfg.Auth.TokenTTL = ttl
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the storage settings. The JWT secret is checked by the
// commands that issue tokens.
func (c Config) Validate() error {
	var errs []error
	if !dialect.Valid(c.Database.Driver) {
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn: required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl: must be positive"))
	}
	return errors.Join(errs...)
}
