package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/config"
	"github.com/garyjia/sales-report-bot/internal/container"
	httpapi "github.com/garyjia/sales-report-bot/internal/interfaces/http"
	"github.com/garyjia/sales-report-bot/pkg/utils"
)

func main() {
	configPath := "configs/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting sales report bot",
		zap.String("mode", cfg.Telegram.Mode),
		zap.String("ledger_backend", cfg.Ledger.Backend),
		zap.String("timezone", cfg.Ledger.Timezone))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Error("Failed to start container", zap.Error(err))
		_ = c.Close()
		os.Exit(1)
	}

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// polling mode only serves health and the admin API
	var webhook httpapi.Webhook
	if c.Config().Telegram.Webhook {
		webhook = c.UpdateHandler()
	}

	sc := c.Config().Server
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:          sc.Host,
		Port:          sc.Port,
		ReadTimeout:   sc.ReadTimeout,
		WriteTimeout:  sc.WriteTimeout,
		AdminToken:    sc.AdminToken,
		WebhookPath:   sc.WebhookPath,
		WebhookSecret: c.Config().Telegram.WebhookSecret,
	}, c.Services().Admin, webhook, utils.NewKVLogger(logger.Named("http")))

	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server stopped with error", zap.Error(err))
	}

	logger.Info("Shutting down...")
	if err := c.Close(); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
	}
	logger.Info("Sales report bot exited")
}
