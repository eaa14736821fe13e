package port

import (
	"context"
	"time"

	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

// UserRepository defines persistence operations for User.
// Lookups return (nil, nil) when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error)
	SetBlocked(ctx context.Context, telegramID int64, blocked bool) error
	AssignGroup(ctx context.Context, telegramID, groupChatID int64) error
	List(ctx context.Context, limit, offset int) ([]*entity.User, error)
}

// GroupRepository defines persistence operations for Group
type GroupRepository interface {
	Create(ctx context.Context, group *entity.Group) error
	GetByChatID(ctx context.Context, chatID int64) (*entity.Group, error)
	SetLedger(ctx context.Context, chatID, ledgerID int64) error
	List(ctx context.Context) ([]*entity.Group, error)
}

// LedgerRepository defines persistence operations for LedgerRegistration
type LedgerRepository interface {
	Create(ctx context.Context, ledger *entity.LedgerRegistration) error
	GetByID(ctx context.Context, id int64) (*entity.LedgerRegistration, error)
	List(ctx context.Context, activeOnly bool) ([]*entity.LedgerRegistration, error)
	Deactivate(ctx context.Context, id int64) error
}

// ReportFilter narrows report listings; zero values match everything
type ReportFilter struct {
	Status         string
	UserTelegramID int64
	// From and To compare submission days: From is inclusive, To exclusive.
	// A single day D is From=D, To=D+1.
	From time.Time
	To   time.Time
	Limit          int
	Offset         int
}

// ReportRepository defines persistence operations for Report
type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	GetByID(ctx context.Context, id int64) (*entity.Report, error)
	GetByReviewMessage(ctx context.Context, chatID int64, messageID int) (*entity.Report, error)
	// Resolve moves a pending report to a terminal status in a single statement.
	// It returns false when the report was no longer pending.
	Resolve(ctx context.Context, id int64, status string, reviewerID int64, at time.Time) (bool, error)
	List(ctx context.Context, filter ReportFilter) ([]*entity.Report, error)
	Count(ctx context.Context, filter ReportFilter) (int, error)
}

// SettingsRepository stores bot-wide key/value settings
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
