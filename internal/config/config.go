// Package config defines the positionbook configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"

	"github.com/alanyoungcy/positionbook/internal/notify"
	"github.com/alanyoungcy/positionbook/internal/pipeline"
)

// Config is the root configuration. Fields are populated from a TOML or YAML
// file and then optionally overridden by POSITIONBOOK_* environment variables.
type Config struct {
	Mode     string `toml:"mode" yaml:"mode"`
	LogLevel string `toml:"log_level" yaml:"log_level"`

	Storage  StorageConfig  `toml:"storage" yaml:"storage"`
	Postgres PostgresConfig `toml:"postgres" yaml:"postgres"`
	Redis    RedisConfig    `toml:"redis" yaml:"redis"`
	S3       S3Config       `toml:"s3" yaml:"s3"`
	Alpaca   AlpacaConfig   `toml:"alpaca" yaml:"alpaca"`
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Notify   NotifyConfig   `toml:"notify" yaml:"notify"`
	Archive  ArchiveConfig  `toml:"archive" yaml:"archive"`
	Display  DisplayConfig  `toml:"display" yaml:"display"`
}

// StorageConfig selects the primary store.
type StorageConfig struct {
	Driver     string `toml:"driver" yaml:"driver"` // "postgres" or "sqlite"
	SQLitePath string `toml:"sqlite_path" yaml:"sqlite_path"`
}

// PostgresConfig holds PostgreSQL connection parameters. DSN wins over the
// individual fields when set.
type PostgresConfig struct {
	DSN           string `toml:"dsn" yaml:"dsn"`
	Host          string `toml:"host" yaml:"host"`
	Port          int    `toml:"port" yaml:"port"`
	Database      string `toml:"database" yaml:"database"`
	User          string `toml:"user" yaml:"user"`
	Password      string `toml:"password" yaml:"password"`
	SSLMode       string `toml:"ssl_mode" yaml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns" yaml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns" yaml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations" yaml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Without Redis, prices live
// in process memory and locking, rate limiting and the event bus are off.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled" yaml:"enabled"`
	Addr       string   `toml:"addr" yaml:"addr"`
	Password   string   `toml:"password" yaml:"password"`
	DB         int      `toml:"db" yaml:"db"`
	PoolSize   int      `toml:"pool_size" yaml:"pool_size"`
	MaxRetries int      `toml:"max_retries" yaml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled" yaml:"tls_enabled"`
	PriceTTL   Duration `toml:"price_ttl" yaml:"price_ttl"`
}

// S3Config holds S3-compatible object storage parameters for the archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	Endpoint       string `toml:"endpoint" yaml:"endpoint"`
	Region         string `toml:"region" yaml:"region"`
	Bucket         string `toml:"bucket" yaml:"bucket"`
	AccessKey      string `toml:"access_key" yaml:"access_key"`
	SecretKey      string `toml:"secret_key" yaml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl" yaml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style" yaml:"force_path_style"`
}

// AlpacaConfig holds market data credentials for latest stock prices.
type AlpacaConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	APIKey    string `toml:"api_key" yaml:"api_key"`
	APISecret string `toml:"api_secret" yaml:"api_secret"`
	BaseURL   string `toml:"base_url" yaml:"base_url"`
	Feed      string `toml:"feed" yaml:"feed"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled" yaml:"enabled"`
	Host        string   `toml:"host" yaml:"host"`
	Port        int      `toml:"port" yaml:"port"`
	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
	APIKey      string   `toml:"api_key" yaml:"api_key"`
	RateLimit   int      `toml:"rate_limit" yaml:"rate_limit"`
	RateWindow  Duration `toml:"rate_window" yaml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token" yaml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id" yaml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url" yaml:"discord_webhook_url"`
	Events            []string `toml:"events" yaml:"events"`
}

// ArchiveConfig controls the periodic cold-storage archive of closed
// positions. Positions created more than RetentionDays ago are archived every
// Interval, or on the Cron schedule when one is set.
type ArchiveConfig struct {
	Interval      Duration `toml:"interval" yaml:"interval"`
	Cron          string   `toml:"cron" yaml:"cron"`
	RetentionDays int      `toml:"retention_days" yaml:"retention_days"`
}

// DisplayConfig controls CLI output.
type DisplayConfig struct {
	Currency string `toml:"currency" yaml:"currency"`
}

// Duration is a time.Duration decoded from strings like "5m" or "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Mode:     "server",
		LogLevel: "info",
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "positionbook.db",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "positionbook",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			PriceTTL:   Duration{15 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "positionbook-archive",
			ForcePathStyle: true,
		},
		Alpaca: AlpacaConfig{
			Feed: "iex",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  Duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{notify.EventPlanRollbackFailed, notify.EventPositionClosed},
		},
		Archive: ArchiveConfig{
			Interval:      Duration{24 * time.Hour},
			RetentionDays: 90,
		},
		Display: DisplayConfig{
			Currency: "USD",
		},
	}
}

var validModes = map[string]bool{
	"server":  true,
	"archive": true,
	"full":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// NeedsServer reports whether the mode runs the HTTP API.
func (c *Config) NeedsServer() bool {
	m := strings.ToLower(c.Mode)
	return c.Server.Enabled && (m == "server" || m == "full")
}

// NeedsArchiver reports whether the mode runs the periodic archiver.
func (c *Config) NeedsArchiver() bool {
	m := strings.ToLower(c.Mode)
	return m == "archive" || m == "full"
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, archive, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite":
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			errs = append(errs, "storage: sqlite_path must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown driver %q (valid: postgres, sqlite)", c.Storage.Driver))
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.PriceTTL.Duration < 0 {
			errs = append(errs, "redis: price_ttl must not be negative")
		}
	}

	if c.S3.Enabled || c.NeedsArchiver() {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}
	if c.NeedsArchiver() {
		if !c.S3.Enabled {
			errs = append(errs, "s3: must be enabled for mode "+c.Mode)
		}
		if c.Archive.Cron != "" {
			if err := pipeline.ValidateCron(c.Archive.Cron); err != nil {
				errs = append(errs, fmt.Sprintf("archive: cron: %v", err))
			}
		} else if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
		if c.Archive.RetentionDays < 0 {
			errs = append(errs, "archive: retention_days must be >= 0")
		}
	}

	if c.Alpaca.Enabled {
		if f := strings.ToLower(c.Alpaca.Feed); f != "" && f != "iex" && f != "sip" {
			errs = append(errs, fmt.Sprintf("alpaca: unknown feed %q (valid: iex, sip)", c.Alpaca.Feed))
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	known := make(map[string]bool, len(notify.KnownEvents))
	for _, e := range notify.KnownEvents {
		known[e] = true
	}
	for _, e := range c.Notify.Events {
		if !known[e] {
			errs = append(errs, fmt.Sprintf("notify: unknown event %q", e))
		}
	}

	if money.GetCurrency(strings.ToUpper(c.Display.Currency)) == nil {
		errs = append(errs, fmt.Sprintf("display: unknown currency %q", c.Display.Currency))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
