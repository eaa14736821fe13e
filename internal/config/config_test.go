package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "data/test.db"},
		Telegram: TelegramConfig{Token: "123:abc", Mode: ModePolling},
		Review:   ReviewConfig{AdminID: 1},
		Ledger:   LedgerConfig{Backend: BackendXLSX, XLSXDir: "ledgers", Timezone: "Asia/Tashkent"},
		Session:  SessionConfig{Store: StoreMemory, TTL: time.Hour},
	}
}

func TestLoad_DefaultsAndEnvironment(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "1001")
	t.Setenv("HELPER_ID", "1002")

	path := writeConfig(t, `
server:
  port: 9090
ledger:
  backend: xlsx
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, ModePolling, cfg.Telegram.Mode)
	assert.Equal(t, int64(1001), cfg.Review.AdminID)
	assert.Equal(t, int64(1002), cfg.Review.HelperID)
	assert.Equal(t, BackendXLSX, cfg.Ledger.Backend)
	assert.Equal(t, "data/ledgers", cfg.Ledger.XLSXDir)
	assert.Equal(t, StoreMemory, cfg.Session.Store)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "Asia/Tashkent", cfg.Location().String())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	path := writeConfig(t, "review:\n  admin_id: 1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.token")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown mode", func(c *Config) { c.Telegram.Mode = "push" }, "telegram.mode"},
		{"webhook without url", func(c *Config) { c.Telegram.Mode = ModeWebhook }, "webhook_url"},
		{"no reviewers", func(c *Config) { c.Review = ReviewConfig{} }, "review.admin_id"},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "csv" }, "ledger.backend"},
		{"sheets without credentials", func(c *Config) { c.Ledger.Backend = BackendSheets }, "credentials_file"},
		{"bad timezone", func(c *Config) { c.Ledger.Timezone = "Mars/Olympus" }, "ledger.timezone"},
		{"redis without address", func(c *Config) { c.Session.Store = StoreRedis }, "redis_addr"},
		{"zero ttl", func(c *Config) { c.Session.TTL = 0 }, "session.ttl"},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
