// Package config loads RowFlow settings from an optional config.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Storage backends.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables;
// nested keys map to upper-case variables, e.g. storage.data_dir to
// STORAGE_DATA_DIR.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Log     LogConfig     `mapstructure:"log"`
	AMQP    AMQPConfig    `mapstructure:"amqp"`
	S3      S3Config      `mapstructure:"s3"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type StorageConfig struct {
	// Backend is one of csv, sqlite or postgres.
	Backend     string `mapstructure:"backend"`
	DataDir     string `mapstructure:"data_dir"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AMQPConfig configures entry events. Events are disabled when URL is empty.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// S3Config configures log archival. Archival is disabled when Bucket is empty.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

// Enabled reports whether archival is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

var defaults = map[string]any{
	"server.address":       ":8080",
	"storage.backend":      BackendCSV,
	"storage.data_dir":     "./data",
	"storage.sqlite_path":  "./data/rowflow.db",
	"storage.postgres_dsn": "",
	"auth.jwt_secret":      "",
	"auth.token_ttl":       "24h",
	"auth.bcrypt_cost":     bcrypt.DefaultCost,
	"log.level":            "info",
	"amqp.url":             "",
	"amqp.exchange":        "rowflow",
	"s3.endpoint":          "",
	"s3.region":            "us-east-1",
	"s3.access_key_id":     "",
	"s3.secret_access_key": "",
	"s3.bucket":            "",
	"s3.prefix":            "rowflow",
}

// Load reads config.yaml from any of paths (if present), then applies
// environment overrides and defaults. It does not validate.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Every key needs a default so Unmarshal sees its environment override.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// ROWING_TRACKER_DATA_DIR is the legacy name of the data directory variable.
	if err := v.BindEnv("storage.data_dir", "STORAGE_DATA_DIR", "ROWING_TRACKER_DATA_DIR"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if len(paths) > 0 {
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration and returns every problem found in a
// single error.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Address == "" {
		problems = append(problems, "server address cannot be empty")
	}

	switch c.Storage.Backend {
	case BackendCSV:
		if c.Storage.DataDir == "" {
			problems = append(problems, "data directory cannot be empty when using csv backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			problems = append(problems, "PostgreSQL DSN is required when using postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid storage backend '%s': must be one of %v",
			c.Storage.Backend, []string{BackendCSV, BackendSQLite, BackendPostgres}))
	}

	if c.Auth.TokenTTL <= 0 {
		problems = append(problems, fmt.Sprintf("invalid token TTL %v: must be positive", c.Auth.TokenTTL))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		problems = append(problems, fmt.Sprintf("invalid bcrypt cost %d: must be between %d and %d",
			c.Auth.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level '%s'", c.Log.Level))
	}

	if c.AMQP.URL != "" {
		if u, err := url.Parse(c.AMQP.URL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQP.Exchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.S3.Enabled() && c.S3.Region == "" {
		problems = append(problems, "S3 region is required when an S3 bucket is configured")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// ValidateServer additionally requires the settings only the server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("configuration validation failed:\n- auth.jwt_secret (AUTH_JWT_SECRET) is required")
	}
	return nil
}
