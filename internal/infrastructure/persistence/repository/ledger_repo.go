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

// LedgerRepository implements port.LedgerRepository
type LedgerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger registration repository
func NewLedgerRepository(db *sql.DB, logger *zap.Logger) port.LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

const ledgerColumns = `id, name, spreadsheet_id, worksheet_name, is_active, added_at`

// Create registers a spreadsheet ledger; new registrations are always active
func (r *LedgerRepository) Create(ctx context.Context, ledger *entity.LedgerRegistration) error {
	ledger.IsActive = true
	if ledger.AddedAt.IsZero() {
		ledger.AddedAt = time.Now()
	}
	if ledger.WorksheetName == "" {
		ledger.WorksheetName = "Sheet1"
	}

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO ledger_registrations (name, spreadsheet_id, worksheet_name, is_active, added_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		ledger.Name,
		ledger.SpreadsheetID,
		ledger.WorksheetName,
		ledger.IsActive,
		ledger.AddedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger registration", zap.String("spreadsheet_id", ledger.SpreadsheetID), zap.Error(err))
		return fmt.Errorf("failed to create ledger registration: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	ledger.ID = id
	return nil
}

// GetByID retrieves a ledger registration, active or not
func (r *LedgerRepository) GetByID(ctx context.Context, id int64) (*entity.LedgerRegistration, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_registrations WHERE id = ?`, id)

	ledger, err := scanLedger(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get ledger registration", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get ledger registration: %w", err)
	}
	return ledger, nil
}

// List returns ledger registrations ordered by name
func (r *LedgerRepository) List(ctx context.Context, activeOnly bool) ([]*entity.LedgerRegistration, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_registrations`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list ledger registrations", zap.Error(err))
		return nil, fmt.Errorf("failed to list ledger registrations: %w", err)
	}
	defer rows.Close()

	var ledgers []*entity.LedgerRegistration
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger registration: %w", err)
		}
		ledgers = append(ledgers, ledger)
	}
	return ledgers, rows.Err()
}

// Deactivate soft-deletes a ledger registration
func (r *LedgerRepository) Deactivate(ctx context.Context, id int64) error {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		`UPDATE ledger_registrations SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to deactivate ledger registration", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to deactivate ledger registration: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to deactivate ledger registration: %w", ErrNotFound)
	}
	return nil
}

func scanLedger(row rowScanner) (*entity.LedgerRegistration, error) {
	var ledger entity.LedgerRegistration
	if err := row.Scan(
		&ledger.ID,
		&ledger.Name,
		&ledger.SpreadsheetID,
		&ledger.WorksheetName,
		&ledger.IsActive,
		&ledger.AddedAt,
	); err != nil {
		return nil, err
	}
	return &ledger, nil
}

var _ port.LedgerRepository = (*LedgerRepository)(nil)
