package config

import (
	"github.com/garyjia/sales-report-bot/internal/container"
)

// ToContainerConfig converts the file-based Config into the container's
// configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Telegram: container.TelegramConfig{
			Token:         c.Telegram.Token,
			Webhook:       c.Telegram.Mode == ModeWebhook,
			WebhookURL:    c.Telegram.WebhookURL,
			WebhookSecret: c.Telegram.WebhookSecret,
			UpdateTimeout: c.Telegram.UpdateTimeout,
			Debug:         c.Telegram.Debug,
		},
		Review: container.ReviewConfig{
			AdminID:  c.Review.AdminID,
			HelperID: c.Review.HelperID,
		},
		Ledger: container.LedgerConfig{
			Backend:         c.Ledger.Backend,
			CredentialsFile: c.Ledger.CredentialsFile,
			XLSXDir:         c.Ledger.XLSXDir,
			Location:        c.Location(),
		},
		Session: container.SessionConfig{
			Store:         c.Session.Store,
			TTL:           c.Session.TTL,
			SweepInterval: c.Session.SweepInterval,
			RedisAddr:     c.Session.RedisAddr,
			RedisPassword: c.Session.RedisPassword,
			RedisDB:       c.Session.RedisDB,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			AdminToken:   c.Admin.APIToken,
			WebhookPath:  c.Telegram.WebhookPath,
		},
	}
}
