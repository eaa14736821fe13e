// Package http exposes health, the Telegram webhook and the admin API over gin.
package http

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Webhook consumes raw Telegram update bodies
type Webhook interface {
	HandleWebhook(ctx context.Context, body []byte) error
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AdminToken guards /api/v1; the API is not mounted when empty
	AdminToken string
	// WebhookPath mounts the Telegram webhook when a Webhook is given
	WebhookPath   string
	WebhookSecret string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		WebhookPath:  "/telegram/webhook",
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	admin      AdminAPI
	webhook    Webhook
	logger     Logger
}

// NewServer creates the server; webhook may be nil in polling mode
func NewServer(config ServerConfig, admin AdminAPI, webhook Webhook, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:  config,
		router:  gin.New(),
		admin:   admin,
		webhook: webhook,
		logger:  logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// bearerAuth rejects requests without the admin token
func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.admin, s.webhook, s.config.WebhookSecret, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	if s.webhook != nil && s.config.WebhookPath != "" {
		s.router.POST(s.config.WebhookPath, handlers.Webhook)
	}

	if s.admin == nil || s.config.AdminToken == "" {
		return
	}
	api := s.router.Group("/api/v1", bearerAuth(s.config.AdminToken))
	{
		api.GET("/users", handlers.ListUsers)
		api.POST("/users", handlers.CreateUser)
		api.PUT("/users/:telegram_id/block", handlers.SetUserBlocked)
		api.PUT("/users/:telegram_id/group", handlers.AssignGroup)

		api.GET("/groups", handlers.ListGroups)
		api.POST("/groups", handlers.RegisterGroup)
		api.PUT("/groups/:chat_id/ledger", handlers.BindLedger)

		api.GET("/ledgers", handlers.ListLedgers)
		api.POST("/ledgers", handlers.RegisterLedger)
		api.DELETE("/ledgers/:id", handlers.DeactivateLedger)

		api.GET("/reports", handlers.ListReports)
		api.GET("/reports/stats", handlers.ReportStats)
		api.GET("/reports/:id", handlers.GetReport)
	}
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
