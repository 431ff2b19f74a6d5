package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.NeedsServer())
	assert.False(t, cfg.NeedsArchiver())
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "positionbook.toml", `
mode = "full"

[storage]
driver = "postgres"

[postgres]
dsn = "postgres://u:p@db:5432/book"

[s3]
enabled = true
bucket = "archive"

[archive]
interval = "6h"
retention_days = 30

[server]
rate_window = "30s"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 6*time.Hour, cfg.Archive.Interval.Duration)
	assert.Equal(t, 30*time.Second, cfg.Server.RateWindow.Duration)
	assert.Equal(t, 8000, cfg.Server.Port, "defaults survive a partial file")
	assert.True(t, cfg.NeedsArchiver())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "positionbook.yaml", `
log_level: debug
storage:
  driver: sqlite
  sqlite_path: /tmp/book.db
redis:
  enabled: true
  price_ttl: 2m
display:
  currency: EUR
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/book.db", cfg.Storage.SQLitePath)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.PriceTTL.Duration)
	assert.Equal(t, "EUR", cfg.Display.Currency)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "mode = "))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POSITIONBOOK_MODE", "archive")
	t.Setenv("POSITIONBOOK_S3_ENABLED", "true")
	t.Setenv("POSITIONBOOK_SERVER_PORT", "9090")
	t.Setenv("POSITIONBOOK_SERVER_CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("POSITIONBOOK_ARCHIVE_INTERVAL", "1h")
	t.Setenv("POSITIONBOOK_SERVER_RATE_LIMIT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "archive", cfg.Mode)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, time.Hour, cfg.Archive.Interval.Duration)
	assert.Equal(t, 120, cfg.Server.RateLimit)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.LogLevel = "loud"
	cfg.Storage.Driver = "mysql"
	cfg.Server.Port = 0
	cfg.Notify.TelegramToken = "tok"
	cfg.Notify.Events = []string{"order_filled"}
	cfg.Display.Currency = "XXXX"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "trade"`,
		`unknown log_level "loud"`,
		`unknown driver "mysql"`,
		"server: port",
		"telegram_chat_id",
		`unknown event "order_filled"`,
		`unknown currency "XXXX"`,
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_ArchiveNeedsS3(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: must be enabled")
}

func TestValidate_ArchiveCron(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	cfg.S3.Enabled = true
	cfg.Archive.Cron = "0 3 * * *"
	require.NoError(t, cfg.Validate())

	cfg.Archive.Cron = "0 25 * * *"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive: cron")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "pw"
	cfg.Alpaca.APISecret = "shh"
	cfg.Server.APIKey = "key"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Alpaca.APISecret)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Empty(t, out.Redis.Password)

	out.Server.CORSOrigins[0] = "mutated"
	assert.Equal(t, "http://localhost:3000", cfg.Server.CORSOrigins[0])
	assert.Equal(t, "pw", cfg.Postgres.Password)
}
