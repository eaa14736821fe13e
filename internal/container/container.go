package container

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/dispatch"
	"github.com/garyjia/sales-report-bot/internal/application/dispatcher"
	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/application/service"
	"github.com/garyjia/sales-report-bot/internal/application/submission"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/worker"
	updates "github.com/garyjia/sales-report-bot/internal/interfaces/telegram"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	telegram    *TelegramBundle
	ledgerStore port.LedgerStore
	sessions    *SessionBundle

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle
	handler    *updates.Handler

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Users    port.UserRepository
	Groups   port.GroupRepository
	Ledgers  port.LedgerRepository
	Reports  port.ReportRepository
	Settings port.SettingsRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Coordinator *dispatch.Coordinator
	Submission  *submission.Flow
	Review      *service.ReviewService
	Settings    *service.SettingsService
	Admin       *service.AdminService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing:
// 1. Database and repositories
// 2. Telegram, ledger backend and session store
// 3. Event dispatcher
// 4. Application services and the update handler
// 5. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initExternal(); err != nil {
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized",
		zap.String("ledger_backend", c.config.Ledger.Backend),
		zap.String("session_store", c.config.Session.Store))

	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = disp

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started", zap.Int("count", c.workers.GetWorkerCount()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.sessions != nil && c.sessions.Redis != nil {
		if err := c.sessions.Redis.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, err error) {
		if err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	if c.sqlDB != nil {
		if err := c.sqlDB.PingContext(ctx); err != nil {
			set("database", fmt.Errorf("ping failed: %w", err))
		} else {
			set("database", nil)
		}
	} else {
		set("database", fmt.Errorf("not initialized"))
	}

	if c.sessions != nil && c.sessions.Redis != nil {
		if err := c.sessions.Redis.Ping(ctx).Err(); err != nil {
			set("sessions", fmt.Errorf("redis ping failed: %w", err))
		} else {
			set("sessions", nil)
		}
	} else if c.sessions != nil {
		set("sessions", nil)
	} else {
		set("sessions", fmt.Errorf("not initialized"))
	}

	if c.workers != nil {
		status.Components["workers"] = ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("workers: %s", strings.Join(c.workers.Names(), ", ")),
		}
		if !c.workers.IsRunning() {
			status.Overall = false
		}
	} else {
		set("workers", fmt.Errorf("not initialized"))
	}

	if c.dispatcher != nil {
		set("dispatcher", nil)
	} else {
		set("dispatcher", fmt.Errorf("not initialized"))
	}

	return status
}

func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.sqlDB = dbBundle.DB.DB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.sqlDB, c.logger)
	if err != nil {
		c.sqlDB.Close()
		return err
	}

	c.repositories = repos
	return nil
}

func (c *Container) initExternal() error {
	tg, err := ProvideTelegram(&c.config.Telegram, c.logger)
	if err != nil {
		return err
	}
	c.telegram = tg

	store, err := ProvideLedgerStore(c.ctx, &c.config.Ledger, c.logger)
	if err != nil {
		return err
	}
	c.ledgerStore = store

	sessions, err := ProvideSessionStore(c.ctx, &c.config.Session, c.logger)
	if err != nil {
		return err
	}
	c.sessions = sessions

	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:       c.repositories,
		TxManager:   c.db,
		Messenger:   c.telegram.Messenger,
		LedgerStore: c.ledgerStore,
		Sessions:    c.sessions.Store,
		Dispatcher:  c.dispatcher,
		Review:      &c.config.Review,
		Ledger:      &c.config.Ledger,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	c.handler = ProvideUpdateHandler(services, c.telegram.Messenger, c.logger)
	return nil
}

func (c *Container) initWorkers() error {
	deps := &WorkerDeps{
		Sessions:      c.sessions,
		Session:       &c.config.Session,
		UpdateTimeout: c.config.Telegram.UpdateTimeout,
		Logger:        c.logger,
	}
	if !c.config.Telegram.Webhook {
		deps.Bot = c.telegram.Bot
		deps.Handler = c.handler
	}

	workers, err := ProvideWorkers(deps)
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Bot returns the Telegram Bot API client.
func (c *Container) Bot() *tgbotapi.BotAPI {
	return c.telegram.Bot
}

// LedgerStore returns the spreadsheet backend.
func (c *Container) LedgerStore() port.LedgerStore {
	return c.ledgerStore
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// UpdateHandler returns the Telegram update router.
func (c *Container) UpdateHandler() *updates.Handler {
	return c.handler
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
