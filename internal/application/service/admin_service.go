package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/sales-report-bot/internal/application/ledger"
	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
	"github.com/garyjia/sales-report-bot/pkg/utils"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// LedgerInput registers a spreadsheet ledger
type LedgerInput struct {
	Name          string `json:"name"`
	Spreadsheet   string `json:"spreadsheet"`
	WorksheetName string `json:"worksheet_name"`
}

// GroupInput registers a review group, optionally with a new ledger
type GroupInput struct {
	ChatID   int64        `json:"chat_id"`
	Name     string       `json:"name"`
	ThreadID *int         `json:"thread_id"`
	LedgerID *int64       `json:"ledger_id"`
	Ledger   *LedgerInput `json:"ledger"`
}

// UserInput registers a sales agent
type UserInput struct {
	TelegramID  int64  `json:"telegram_id"`
	FullName    string `json:"full_name"`
	GroupChatID *int64 `json:"group_chat_id"`
}

// ReportStats counts reports by review status
type ReportStats struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Rejected  int `json:"rejected"`
	Total     int `json:"total"`
}

// AdminService provisions users, groups and ledgers and exposes report queries
type AdminService struct {
	users     port.UserRepository
	groups    port.GroupRepository
	ledgers   port.LedgerRepository
	reports   port.ReportRepository
	txManager port.TransactionManager
	logger    Logger
}

// NewAdminService creates an AdminService
func NewAdminService(
	users port.UserRepository,
	groups port.GroupRepository,
	ledgers port.LedgerRepository,
	reports port.ReportRepository,
	txManager port.TransactionManager,
	logger Logger,
) *AdminService {
	return &AdminService{
		users:     users,
		groups:    groups,
		ledgers:   ledgers,
		reports:   reports,
		txManager: txManager,
		logger:    logger,
	}
}

// CreateUser registers a sales agent. A referenced group must exist.
func (s *AdminService) CreateUser(ctx context.Context, in UserInput) (*entity.User, error) {
	in.FullName = utils.SanitizeString(in.FullName)
	if in.TelegramID == 0 || !utils.ValidateTextField(in.FullName, 2) {
		return nil, fmt.Errorf("%w: telegram_id and full_name are required", ErrInvalidInput)
	}

	if in.GroupChatID != nil {
		if err := s.requireGroup(ctx, *in.GroupChatID); err != nil {
			return nil, err
		}
	}

	user := &entity.User{TelegramID: in.TelegramID, FullName: in.FullName, GroupChatID: in.GroupChatID}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("User registered", "telegram_id", user.TelegramID)
	return user, nil
}

// ListUsers returns a page of users
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]*entity.User, error) {
	return s.users.List(ctx, limit, offset)
}

// SetUserBlocked blocks or unblocks a user
func (s *AdminService) SetUserBlocked(ctx context.Context, telegramID int64, blocked bool) error {
	if err := s.requireUser(ctx, telegramID); err != nil {
		return err
	}
	if err := s.users.SetBlocked(ctx, telegramID, blocked); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	s.logger.Info("User block changed", "telegram_id", telegramID, "blocked", blocked)
	return nil
}

// AssignGroup attaches a user to a review group
func (s *AdminService) AssignGroup(ctx context.Context, telegramID, groupChatID int64) error {
	if err := s.requireUser(ctx, telegramID); err != nil {
		return err
	}
	if err := s.requireGroup(ctx, groupChatID); err != nil {
		return err
	}
	if err := s.users.AssignGroup(ctx, telegramID, groupChatID); err != nil {
		return fmt.Errorf("failed to assign group: %w", err)
	}
	return nil
}

// RegisterGroup creates a review group. When in.Ledger is set the ledger
// registration is created in the same transaction and bound to the group.
func (s *AdminService) RegisterGroup(ctx context.Context, in GroupInput) (*entity.Group, error) {
	in.Name = utils.SanitizeString(in.Name)
	if in.ChatID == 0 || !utils.ValidateTextField(in.Name, 1) {
		return nil, fmt.Errorf("%w: chat_id and name are required", ErrInvalidInput)
	}
	if in.Ledger != nil && in.LedgerID != nil {
		return nil, fmt.Errorf("%w: ledger and ledger_id are exclusive", ErrInvalidInput)
	}

	var reg *entity.LedgerRegistration
	if in.Ledger != nil {
		var err error
		if reg, err = newLedgerRegistration(*in.Ledger); err != nil {
			return nil, err
		}
	}

	group := &entity.Group{ChatID: in.ChatID, Name: in.Name, ThreadID: in.ThreadID, LedgerID: in.LedgerID}
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if in.LedgerID != nil {
			if err := s.requireLedger(ctx, *in.LedgerID); err != nil {
				return err
			}
		}
		if reg != nil {
			if err := s.ledgers.Create(ctx, reg); err != nil {
				return fmt.Errorf("failed to create ledger: %w", err)
			}
			group.LedgerID = &reg.ID
		}
		if err := s.groups.Create(ctx, group); err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Group registered", "chat_id", group.ChatID, "ledger_id", group.LedgerID)
	return group, nil
}

// ListGroups returns every review group
func (s *AdminService) ListGroups(ctx context.Context) ([]*entity.Group, error) {
	return s.groups.List(ctx)
}

// BindLedger points a group at an existing ledger registration
func (s *AdminService) BindLedger(ctx context.Context, chatID, ledgerID int64) error {
	if err := s.requireGroup(ctx, chatID); err != nil {
		return err
	}
	if err := s.requireLedger(ctx, ledgerID); err != nil {
		return err
	}
	if err := s.groups.SetLedger(ctx, chatID, ledgerID); err != nil {
		return fmt.Errorf("failed to bind ledger: %w", err)
	}
	return nil
}

// RegisterLedger records a spreadsheet ledger
func (s *AdminService) RegisterLedger(ctx context.Context, in LedgerInput) (*entity.LedgerRegistration, error) {
	reg, err := newLedgerRegistration(in)
	if err != nil {
		return nil, err
	}
	if err := s.ledgers.Create(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}
	s.logger.Info("Ledger registered", "ledger_id", reg.ID, "spreadsheet_id", reg.SpreadsheetID)
	return reg, nil
}

// ListLedgers returns ledger registrations
func (s *AdminService) ListLedgers(ctx context.Context, activeOnly bool) ([]*entity.LedgerRegistration, error) {
	return s.ledgers.List(ctx, activeOnly)
}

// DeactivateLedger stops mirroring into a ledger
func (s *AdminService) DeactivateLedger(ctx context.Context, id int64) error {
	if err := s.requireLedger(ctx, id); err != nil {
		return err
	}
	return s.ledgers.Deactivate(ctx, id)
}

// GetReport returns a report by id
func (s *AdminService) GetReport(ctx context.Context, id int64) (*entity.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if report == nil {
		return nil, fmt.Errorf("%w: report %d", ErrNotFound, id)
	}
	return report, nil
}

// ListReports returns reports matching the filter
func (s *AdminService) ListReports(ctx context.Context, filter port.ReportFilter) ([]*entity.Report, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	return s.reports.List(ctx, filter)
}

// Stats counts reports by status within the filter's user and date range
func (s *AdminService) Stats(ctx context.Context, filter port.ReportFilter) (*ReportStats, error) {
	var stats ReportStats
	for status, dst := range map[string]*int{
		entity.StatusPending:   &stats.Pending,
		entity.StatusConfirmed: &stats.Confirmed,
		entity.StatusRejected:  &stats.Rejected,
	} {
		f := filter
		f.Status = status
		n, err := s.reports.Count(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("failed to count reports: %w", err)
		}
		*dst = n
	}
	stats.Total = stats.Pending + stats.Confirmed + stats.Rejected
	return &stats, nil
}

func newLedgerRegistration(in LedgerInput) (*entity.LedgerRegistration, error) {
	id, err := ledger.ExtractSpreadsheetID(in.Spreadsheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	name := utils.SanitizeString(in.Name)
	if !utils.ValidateTextField(name, 1) {
		return nil, fmt.Errorf("%w: ledger name is required", ErrInvalidInput)
	}
	return &entity.LedgerRegistration{Name: name, SpreadsheetID: id, WorksheetName: in.WorksheetName, IsActive: true}, nil
}

func (s *AdminService) requireUser(ctx context.Context, telegramID int64) error {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: user %d", ErrNotFound, telegramID)
	}
	return nil
}

func (s *AdminService) requireGroup(ctx context.Context, chatID int64) error {
	group, err := s.groups.GetByChatID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}
	if group == nil {
		return fmt.Errorf("%w: group %d", ErrNotFound, chatID)
	}
	return nil
}

func (s *AdminService) requireLedger(ctx context.Context, id int64) error {
	reg, err := s.ledgers.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	if reg == nil {
		return fmt.Errorf("%w: ledger %d", ErrNotFound, id)
	}
	return nil
}
