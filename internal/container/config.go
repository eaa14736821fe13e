// Package container provides dependency injection and lifecycle management
// for the sales report bot.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Telegram TelegramConfig
	Review   ReviewConfig
	Ledger   LedgerConfig
	Session  SessionConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token string

	// Webhook selects webhook delivery instead of long polling
	Webhook       bool
	WebhookURL    string
	WebhookSecret string

	// UpdateTimeout bounds the handling of a single update
	UpdateTimeout time.Duration
	Debug         bool
}

// ReviewConfig names the privileged reviewers.
type ReviewConfig struct {
	AdminID  int64
	HelperID int64
}

// LedgerConfig selects the spreadsheet backend.
type LedgerConfig struct {
	// Backend is "sheets" or "xlsx"
	Backend         string
	CredentialsFile string
	XLSXDir         string

	// Location decides which calendar day a report belongs to
	Location *time.Location
}

// SessionConfig holds dialogue session storage settings.
type SessionConfig struct {
	// Store is "memory" or "redis"
	Store         string
	TTL           time.Duration
	SweepInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AdminToken   string
	WebhookPath  string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/sales_reports.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Telegram: TelegramConfig{
			UpdateTimeout: 30 * time.Second,
		},
		Ledger: LedgerConfig{
			Backend:         "sheets",
			CredentialsFile: "credentials.json",
			XLSXDir:         "data/ledgers",
			Location:        time.Local,
		},
		Session: SessionConfig{
			Store:         "memory",
			TTL:           24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			WebhookPath:  "/telegram/webhook",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Telegram.Webhook && c.Telegram.WebhookURL == "" {
		return fmt.Errorf("telegram.webhook_url is required in webhook mode")
	}
	if c.Review.AdminID == 0 && c.Review.HelperID == 0 {
		return fmt.Errorf("at least one reviewer id is required")
	}

	switch c.Ledger.Backend {
	case "sheets", "xlsx":
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
