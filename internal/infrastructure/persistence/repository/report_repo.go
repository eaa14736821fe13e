package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/persistence/sqlite"
)

const dateLayout = "2006-01-02"

// ReportRepository implements port.ReportRepository
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new sales report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) port.ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

const reportColumns = `
	id, user_telegram_id, client_name, phone_number, secondary_phone, product,
	location, contract_id, contract_amount, delivery, note, seller_name,
	region, is_capital, image_file_id, submission_date, submitted_at, status,
	reviewer_id, reviewed_at, review_chat_id, review_message_id, ledger_id`

// Create stores a dispatched report
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	if report.Status == "" {
		report.Status = entity.StatusPending
	}
	f := report.Fields

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		INSERT INTO sales_reports (
			user_telegram_id, client_name, phone_number, secondary_phone, product,
			location, contract_id, contract_amount, delivery, note, seller_name,
			region, is_capital, image_file_id, submission_date, submitted_at, status,
			review_chat_id, review_message_id, ledger_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.UserTelegramID,
		f.ClientName,
		f.Phone,
		f.SecondaryPhone,
		f.Product,
		f.Location,
		f.ContractID,
		f.Amount,
		f.Delivery,
		f.Note,
		f.SellerName,
		report.Region,
		report.IsCapital,
		report.ImageFileID,
		report.SubmissionDate.Format(dateLayout),
		report.SubmittedAt,
		report.Status,
		report.ReviewChatID,
		report.ReviewMessageID,
		nullInt64(report.LedgerID),
	)
	if err != nil {
		r.logger.Error("Failed to create report",
			zap.Int64("user_telegram_id", report.UserTelegramID),
			zap.String("contract_id", f.ContractID),
			zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	report.ID = id
	return nil
}

// GetByID retrieves a report by id
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*entity.Report, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetByReviewMessage retrieves the report relayed as the given review message
func (r *ReportRepository) GetByReviewMessage(ctx context.Context, chatID int64, messageID int) (*entity.Report, error) {
	return r.getOne(ctx, `WHERE review_chat_id = ? AND review_message_id = ? ORDER BY id DESC LIMIT 1`, chatID, messageID)
}

func (r *ReportRepository) getOne(ctx context.Context, where string, args ...interface{}) (*entity.Report, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM sales_reports `+where, args...)

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get report", zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// Resolve moves a pending report to a terminal status. The status guard in the
// WHERE clause keeps concurrent reviewers from overwriting each other.
func (r *ReportRepository) Resolve(ctx context.Context, id int64, status string, reviewerID int64, at time.Time) (bool, error) {
	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, `
		UPDATE sales_reports
		SET status = ?, reviewer_id = ?, reviewed_at = ?
		WHERE id = ? AND status = ?
	`, status, reviewerID, at, id, entity.StatusPending)
	if err != nil {
		r.logger.Error("Failed to resolve report", zap.Int64("id", id), zap.String("status", status), zap.Error(err))
		return false, fmt.Errorf("failed to resolve report: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func buildFilter(filter port.ReportFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.UserTelegramID != 0 {
		conds = append(conds, "user_telegram_id = ?")
		args = append(args, filter.UserTelegramID)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "submission_date >= ?")
		args = append(args, filter.From.Format(dateLayout))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "submission_date < ?")
		args = append(args, filter.To.Format(dateLayout))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns reports matching filter, newest first
func (r *ReportRepository) List(ctx context.Context, filter port.ReportFilter) ([]*entity.Report, error) {
	where, args := buildFilter(filter)
	query := `SELECT ` + reportColumns + ` FROM sales_reports` + where + ` ORDER BY submitted_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list reports", zap.Error(err))
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*entity.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// Count returns the number of reports matching filter; paging is ignored
func (r *ReportRepository) Count(ctx context.Context, filter port.ReportFilter) (int, error) {
	where, args := buildFilter(filter)

	var count int
	if err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sales_reports`+where, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count reports", zap.Error(err))
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

func scanReport(row rowScanner) (*entity.Report, error) {
	var report entity.Report
	var submissionDate string
	var reviewerID, ledgerID sql.NullInt64
	var reviewedAt sql.NullTime
	f := &report.Fields

	if err := row.Scan(
		&report.ID,
		&report.UserTelegramID,
		&f.ClientName,
		&f.Phone,
		&f.SecondaryPhone,
		&f.Product,
		&f.Location,
		&f.ContractID,
		&f.Amount,
		&f.Delivery,
		&f.Note,
		&f.SellerName,
		&report.Region,
		&report.IsCapital,
		&report.ImageFileID,
		&submissionDate,
		&report.SubmittedAt,
		&report.Status,
		&reviewerID,
		&reviewedAt,
		&report.ReviewChatID,
		&report.ReviewMessageID,
		&ledgerID,
	); err != nil {
		return nil, err
	}

	day, err := time.Parse(dateLayout, submissionDate)
	if err != nil {
		return nil, fmt.Errorf("invalid submission date %q: %w", submissionDate, err)
	}
	report.SubmissionDate = day
	report.ReviewerID = int64Ptr(reviewerID)
	report.LedgerID = int64Ptr(ledgerID)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		report.ReviewedAt = &t
	}

	return &report, nil
}

var _ port.ReportRepository = (*ReportRepository)(nil)
