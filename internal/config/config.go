package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Review   ReviewConfig   `mapstructure:"review"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Session  SessionConfig  `mapstructure:"session"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Update delivery modes
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// TelegramConfig holds bot configuration
type TelegramConfig struct {
	Token         string        `mapstructure:"token"`
	Mode          string        `mapstructure:"mode"`
	WebhookURL    string        `mapstructure:"webhook_url"`
	WebhookPath   string        `mapstructure:"webhook_path"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	UpdateTimeout time.Duration `mapstructure:"update_timeout"`
	Debug         bool          `mapstructure:"debug"`
}

// ReviewConfig names the two privileged reviewers
type ReviewConfig struct {
	AdminID  int64 `mapstructure:"admin_id"`
	HelperID int64 `mapstructure:"helper_id"`
}

// Ledger backends
const (
	BackendSheets = "sheets"
	BackendXLSX   = "xlsx"
)

// LedgerConfig selects and configures the spreadsheet backend
type LedgerConfig struct {
	Backend         string `mapstructure:"backend"`
	CredentialsFile string `mapstructure:"credentials_file"`
	XLSXDir         string `mapstructure:"xlsx_dir"`
	Timezone        string `mapstructure:"timezone"`
}

// Session stores
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// SessionConfig holds dialogue session storage configuration
type SessionConfig struct {
	Store         string        `mapstructure:"store"`
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

// AdminConfig holds admin API configuration
type AdminConfig struct {
	APIToken string `mapstructure:"api_token"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configuration from a YAML file and the environment. Variables in
// a .env file next to the working directory are loaded first; variables that
// are already set win.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.path", "data/sales_reports.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	v.SetDefault("telegram.mode", ModePolling)
	v.SetDefault("telegram.webhook_path", "/telegram/webhook")
	v.SetDefault("telegram.update_timeout", 30*time.Second)

	v.SetDefault("ledger.backend", BackendSheets)
	v.SetDefault("ledger.credentials_file", "credentials.json")
	v.SetDefault("ledger.xlsx_dir", "data/ledgers")
	v.SetDefault("ledger.timezone", "Asia/Tashkent")

	v.SetDefault("session.store", StoreMemory)
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.sweep_interval", 10*time.Minute)
	v.SetDefault("session.redis_addr", "localhost:6379")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars maps secrets and deployment knobs to their conventional names
func bindEnvVars(v *viper.Viper) error {
	for key, env := range map[string]string{
		"telegram.token":          "BOT_TOKEN",
		"telegram.mode":           "BOT_MODE",
		"telegram.webhook_url":    "WEBHOOK_URL",
		"telegram.webhook_secret": "WEBHOOK_SECRET",
		"review.admin_id":         "ADMIN_ID",
		"review.helper_id":        "HELPER_ID",
		"ledger.credentials_file": "GOOGLE_CREDENTIALS_FILE",
		"session.redis_addr":      "REDIS_ADDRESS",
		"session.redis_password":  "REDIS_PASSWORD",
		"admin.api_token":         "ADMIN_API_TOKEN",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	switch c.Telegram.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Telegram.WebhookURL == "" {
			return fmt.Errorf("telegram.webhook_url is required in webhook mode")
		}
	default:
		return fmt.Errorf("telegram.mode must be %q or %q, got %q", ModePolling, ModeWebhook, c.Telegram.Mode)
	}

	if c.Review.AdminID == 0 && c.Review.HelperID == 0 {
		return fmt.Errorf("review.admin_id or review.helper_id is required")
	}

	switch c.Ledger.Backend {
	case BackendSheets:
		if c.Ledger.CredentialsFile == "" {
			return fmt.Errorf("ledger.credentials_file is required for the sheets backend")
		}
	case BackendXLSX:
		if c.Ledger.XLSXDir == "" {
			return fmt.Errorf("ledger.xlsx_dir is required for the xlsx backend")
		}
	default:
		return fmt.Errorf("ledger.backend must be %q or %q, got %q", BackendSheets, BackendXLSX, c.Ledger.Backend)
	}
	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		return fmt.Errorf("ledger.timezone: %w", err)
	}

	switch c.Session.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("session.store must be %q or %q, got %q", StoreMemory, StoreRedis, c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	return nil
}

// Location returns the time zone that decides a report's calendar day
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
