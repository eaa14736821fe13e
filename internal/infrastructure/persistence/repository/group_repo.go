package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/persistence/sqlite"
)

// GroupRepository implements port.GroupRepository
type GroupRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewGroupRepository creates a new review group repository
func NewGroupRepository(db *sql.DB, logger *zap.Logger) port.GroupRepository {
	return &GroupRepository{
		db:     db,
		logger: logger,
	}
}

const groupColumns = `id, chat_id, name, thread_id, ledger_id, added_at`

// Create registers a review group
func (r *GroupRepository) Create(ctx context.Context, group *entity.Group) error {
	if group.AddedAt.IsZero() {
		group.AddedAt = time.Now()
	}

	var threadID sql.NullInt64
	if group.ThreadID != nil {
		threadID = sql.NullInt64{Int64: int64(*group.ThreadID), Valid: true}
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO review_groups (chat_id, name, thread_id, ledger_id, added_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		group.ChatID,
		group.Name,
		threadID,
		nullInt64(group.LedgerID),
		group.AddedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create group", zap.Int64("chat_id", group.ChatID), zap.Error(err))
		return fmt.Errorf("failed to create group: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	group.ID = id
	return nil
}

// GetByChatID retrieves a group by its chat id
func (r *GroupRepository) GetByChatID(ctx context.Context, chatID int64) (*entity.Group, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM review_groups WHERE chat_id = ?`, chatID)

	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get group", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// SetLedger binds a group to a ledger registration
func (r *GroupRepository) SetLedger(ctx context.Context, chatID, ledgerID int64) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`UPDATE review_groups SET ledger_id = ? WHERE chat_id = ?`, ledgerID, chatID)
	if err != nil {
		r.logger.Error("Failed to set group ledger", zap.Int64("chat_id", chatID), zap.Error(err))
		return fmt.Errorf("failed to set group ledger: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to set group ledger: %w", ErrNotFound)
	}
	return nil
}

// List returns all groups ordered by name
func (r *GroupRepository) List(ctx context.Context) ([]*entity.Group, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		`SELECT `+groupColumns+` FROM review_groups ORDER BY name`)
	if err != nil {
		r.logger.Error("Failed to list groups", zap.Error(err))
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*entity.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

func scanGroup(row rowScanner) (*entity.Group, error) {
	var group entity.Group
	var threadID, ledgerID sql.NullInt64

	if err := row.Scan(
		&group.ID,
		&group.ChatID,
		&group.Name,
		&threadID,
		&ledgerID,
		&group.AddedAt,
	); err != nil {
		return nil, err
	}

	if threadID.Valid {
		thread := int(threadID.Int64)
		group.ThreadID = &thread
	}
	group.LedgerID = int64Ptr(ledgerID)
	return &group, nil
}

var _ port.GroupRepository = (*GroupRepository)(nil)
