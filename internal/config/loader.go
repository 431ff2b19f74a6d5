package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration file at path (TOML, or YAML for .yaml/.yml),
// merges it on top of the defaults, loads .env if present, and applies
// POSITIONBOOK_* environment overrides. An empty path skips the file. The
// result is not validated; callers invoke Config.Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(data, cfg)
	default:
		_, err := toml.DecodeFile(path, cfg)
		return err
	}
}

// applyEnvOverrides overwrites fields whose POSITIONBOOK_* variable is set
// and non-empty, so secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "POSITIONBOOK_MODE")
	setStr(&cfg.LogLevel, "POSITIONBOOK_LOG_LEVEL")

	// ── Storage ──
	setStr(&cfg.Storage.Driver, "POSITIONBOOK_STORAGE_DRIVER")
	setStr(&cfg.Storage.SQLitePath, "POSITIONBOOK_STORAGE_SQLITE_PATH")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "POSITIONBOOK_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL")
	setStr(&cfg.Postgres.Host, "POSITIONBOOK_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POSITIONBOOK_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POSITIONBOOK_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POSITIONBOOK_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POSITIONBOOK_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POSITIONBOOK_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POSITIONBOOK_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POSITIONBOOK_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POSITIONBOOK_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POSITIONBOOK_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POSITIONBOOK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POSITIONBOOK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POSITIONBOOK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POSITIONBOOK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POSITIONBOOK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POSITIONBOOK_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.PriceTTL, "POSITIONBOOK_REDIS_PRICE_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POSITIONBOOK_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POSITIONBOOK_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POSITIONBOOK_S3_REGION")
	setStr(&cfg.S3.Bucket, "POSITIONBOOK_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POSITIONBOOK_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POSITIONBOOK_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POSITIONBOOK_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POSITIONBOOK_S3_FORCE_PATH_STYLE")

	// ── Alpaca ──
	setBool(&cfg.Alpaca.Enabled, "POSITIONBOOK_ALPACA_ENABLED")
	setStr(&cfg.Alpaca.APIKey, "POSITIONBOOK_ALPACA_API_KEY")
	setStr(&cfg.Alpaca.APISecret, "POSITIONBOOK_ALPACA_API_SECRET")
	setStr(&cfg.Alpaca.BaseURL, "POSITIONBOOK_ALPACA_BASE_URL")
	setStr(&cfg.Alpaca.Feed, "POSITIONBOOK_ALPACA_FEED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "POSITIONBOOK_SERVER_ENABLED")
	setStr(&cfg.Server.Host, "POSITIONBOOK_SERVER_HOST")
	setInt(&cfg.Server.Port, "POSITIONBOOK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POSITIONBOOK_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "POSITIONBOOK_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "POSITIONBOOK_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "POSITIONBOOK_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POSITIONBOOK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POSITIONBOOK_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POSITIONBOOK_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POSITIONBOOK_NOTIFY_EVENTS")

	// ── Archive ──
	setDuration(&cfg.Archive.Interval, "POSITIONBOOK_ARCHIVE_INTERVAL")
	setStr(&cfg.Archive.Cron, "POSITIONBOOK_ARCHIVE_CRON")
	setInt(&cfg.Archive.RetentionDays, "POSITIONBOOK_ARCHIVE_RETENTION_DAYS")

	// ── Display ──
	setStr(&cfg.Display.Currency, "POSITIONBOOK_DISPLAY_CURRENCY")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
