package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/persistence/sqlite"
)

// ErrNotFound is returned by updates that matched no row
var ErrNotFound = errors.New("record not found")

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, telegram_id, full_name, registered_at, is_blocked, group_chat_id`

// Create registers a new user
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = time.Now()
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO users (telegram_id, full_name, registered_at, is_blocked, group_chat_id)
		VALUES (?, ?, ?, ?, ?)
	`,
		user.TelegramID,
		user.FullName,
		user.RegisteredAt,
		user.IsBlocked,
		nullInt64(user.GroupChatID),
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.Int64("telegram_id", user.TelegramID), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	return nil
}

// GetByTelegramID retrieves a user by Telegram id
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetBlocked blocks or unblocks a user
func (r *UserRepository) SetBlocked(ctx context.Context, telegramID int64, blocked bool) error {
	return r.update(ctx, "block user", `UPDATE users SET is_blocked = ? WHERE telegram_id = ?`, blocked, telegramID)
}

// AssignGroup binds a user to the review group their reports go to
func (r *UserRepository) AssignGroup(ctx context.Context, telegramID, groupChatID int64) error {
	return r.update(ctx, "assign group", `UPDATE users SET group_chat_id = ? WHERE telegram_id = ?`, groupChatID, telegramID)
}

func (r *UserRepository) update(ctx context.Context, op, query string, args ...interface{}) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+op, zap.Error(err))
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to %s: %w", op, ErrNotFound)
	}
	return nil
}

// List returns users ordered by registration, newest first
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY registered_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	var user entity.User
	var groupChatID sql.NullInt64

	if err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.FullName,
		&user.RegisteredAt,
		&user.IsBlocked,
		&groupChatID,
	); err != nil {
		return nil, err
	}

	user.GroupChatID = int64Ptr(groupChatID)
	return &user, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	out := v.Int64
	return &out
}

var _ port.UserRepository = (*UserRepository)(nil)
