package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/dispatch"
	"github.com/garyjia/sales-report-bot/internal/application/dispatcher"
	"github.com/garyjia/sales-report-bot/internal/application/ledger"
	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/application/service"
	"github.com/garyjia/sales-report-bot/internal/application/submission"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/external/sheets"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/external/telegram"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/persistence/repository"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/session"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/storage"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/worker"
	updates "github.com/garyjia/sales-report-bot/internal/interfaces/telegram"
	"github.com/garyjia/sales-report-bot/migrations"
	"github.com/garyjia/sales-report-bot/pkg/database"
	"github.com/garyjia/sales-report-bot/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// TelegramBundle holds the Bot API client and the messenger built on it.
type TelegramBundle struct {
	Bot       *tgbotapi.BotAPI
	Messenger port.Messenger
}

// SessionBundle holds the session store. Sweeper is set for stores that
// need periodic eviction; Redis is set for the redis store.
type SessionBundle struct {
	Store   port.SessionStore
	Sweeper worker.Sweeper
	Redis   *redis.Client
}

// ProvideDatabase opens the SQLite database and applies the embedded
// migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Users:    repository.NewUserRepository(sqlDB, logger),
		Groups:   repository.NewGroupRepository(sqlDB, logger),
		Ledgers:  repository.NewLedgerRepository(sqlDB, logger),
		Reports:  repository.NewReportRepository(sqlDB, logger),
		Settings: repository.NewSettingsRepository(sqlDB, logger),
	}, nil
}

// ProvideTelegram connects to the Bot API and prepares update delivery: the
// webhook is registered in webhook mode and removed for long polling.
func ProvideTelegram(cfg *TelegramConfig, logger *zap.Logger) (*TelegramBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}

	bot, err := telegram.NewBotAPI(cfg.Token, cfg.Debug)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to Telegram", zap.String("bot", bot.Self.UserName))

	if cfg.Webhook {
		if err := telegram.SetWebhook(bot, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			return nil, err
		}
		logger.Info("Webhook registered", zap.String("url", cfg.WebhookURL))
	} else if err := telegram.DeleteWebhook(bot); err != nil {
		return nil, err
	}

	return &TelegramBundle{
		Bot:       bot,
		Messenger: telegram.NewMessenger(bot, logger.Named("telegram")),
	}, nil
}

// ProvideLedgerStore creates the spreadsheet backend named by cfg.Backend.
func ProvideLedgerStore(ctx context.Context, cfg *LedgerConfig, logger *zap.Logger) (port.LedgerStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ledger config is required")
	}

	switch cfg.Backend {
	case "sheets":
		store, err := sheets.NewStore(ctx, cfg.CredentialsFile, logger.Named("sheets"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case "xlsx":
		return storage.NewXLSXLedgerStore(cfg.XLSXDir, logger.Named("xlsx")), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// ProvideSessionStore creates the dialogue session store.
func ProvideSessionStore(ctx context.Context, cfg *SessionConfig, logger *zap.Logger) (*SessionBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("session config is required")
	}

	switch cfg.Store {
	case "memory":
		store := session.NewMemoryStore(cfg.TTL)
		return &SessionBundle{Store: store, Sweeper: store}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := session.NewRedisStore(client, cfg.TTL)
		if err := store.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("Redis session store connected", zap.String("addr", cfg.RedisAddr))
		return &SessionBundle{Store: store, Redis: client}, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

// ProvideDispatcher creates the event dispatcher with the audit subscriber.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	kv := utils.NewKVLogger(logger.Named("events"))
	d := dispatcher.NewDispatcher(kv)
	dispatcher.SubscribeAudit(d, kv)
	return d, nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos       *RepositoryBundle
	TxManager   port.TransactionManager
	Messenger   port.Messenger
	LedgerStore port.LedgerStore
	Sessions    port.SessionStore
	Dispatcher  dispatcher.Dispatcher
	Review      *ReviewConfig
	Ledger      *LedgerConfig
	Logger      *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Messenger == nil || deps.LedgerStore == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("messenger, ledger store and session store are required")
	}

	logger := deps.Logger
	repos := deps.Repos
	location := deps.Ledger.Location
	privileged := service.NewPrivileged(deps.Review.AdminID, deps.Review.HelperID)

	coordinator := dispatch.NewCoordinator(dispatch.Deps{
		Users:     repos.Users,
		Groups:    repos.Groups,
		Ledgers:   repos.Ledgers,
		Reports:   repos.Reports,
		Settings:  repos.Settings,
		Sessions:  deps.Sessions,
		Messenger: deps.Messenger,
		Router:    ledger.NewRouter(deps.LedgerStore, logger.Named("ledger")),
		Events:    deps.Dispatcher,
		Logger:    utils.NewKVLogger(logger.Named("dispatch")),
		Location:  location,
	})

	return &ServiceBundle{
		Coordinator: coordinator,
		Submission: submission.NewFlow(
			repos.Users,
			repos.Reports,
			deps.Sessions,
			deps.Messenger,
			coordinator,
			location,
			utils.NewKVLogger(logger.Named("submission")),
		),
		Review: service.NewReviewService(
			repos.Reports,
			deps.Messenger,
			deps.Dispatcher,
			privileged,
			utils.NewKVLogger(logger.Named("review")),
		),
		Settings: service.NewSettingsService(
			repos.Settings,
			deps.LedgerStore,
			privileged,
			location,
			utils.NewKVLogger(logger.Named("settings")),
		),
		Admin: service.NewAdminService(
			repos.Users,
			repos.Groups,
			repos.Ledgers,
			repos.Reports,
			deps.TxManager,
			utils.NewKVLogger(logger.Named("admin")),
		),
	}, nil
}

// ProvideUpdateHandler creates the Telegram update router.
func ProvideUpdateHandler(services *ServiceBundle, messenger port.Messenger, logger *zap.Logger) *updates.Handler {
	return updates.NewHandler(
		services.Submission,
		services.Review,
		services.Settings,
		messenger,
		utils.NewKVLogger(logger.Named("updates")),
	)
}

// WorkerDeps holds dependencies for creating workers.
type WorkerDeps struct {
	Sessions *SessionBundle
	Session  *SessionConfig
	// Bot and Handler are set in long polling mode
	Bot           *tgbotapi.BotAPI
	Handler       *updates.Handler
	UpdateTimeout time.Duration
	Logger        *zap.Logger
}

// ProvideWorkers creates the background workers; the caller starts them.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil || deps.Logger == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}

	manager := worker.NewWorkerManager(deps.Logger.Named("workers"))

	if deps.Sessions != nil && deps.Sessions.Sweeper != nil {
		manager.Register(worker.NewSessionSweeper(deps.Sessions.Sweeper, deps.Session.SweepInterval, deps.Logger.Named("sweeper")))
	}
	if deps.Bot != nil && deps.Handler != nil {
		manager.Register(updates.NewPoller(deps.Bot, deps.Handler, deps.UpdateTimeout, utils.NewKVLogger(deps.Logger.Named("poller"))))
	}

	return manager, nil
}
