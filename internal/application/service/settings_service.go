package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/sales-report-bot/internal/application/ledger"
	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

// ErrLedgerUnreachable is returned when a ledger cannot be opened with the bot's credentials
var ErrLedgerUnreachable = errors.New("ledger is not reachable")

// AllDataStatus describes the configured global ledger
type AllDataStatus struct {
	SpreadsheetID string
	Sheet         string
	Total         int
	Capital       int
	Province      int
}

// SettingsService manages bot-wide settings reserved to privileged users
type SettingsService struct {
	settings   port.SettingsRepository
	store      port.LedgerStore
	privileged Privileged
	location   *time.Location
	logger     Logger
	now        func() time.Time
}

// NewSettingsService creates a SettingsService
func NewSettingsService(settings port.SettingsRepository, store port.LedgerStore, privileged Privileged, location *time.Location, logger Logger) *SettingsService {
	if location == nil {
		location = time.Local
	}
	return &SettingsService{
		settings:   settings,
		store:      store,
		privileged: privileged,
		location:   location,
		logger:     logger,
		now:        time.Now,
	}
}

// SetAllData points the all-data mirror at a spreadsheet given by URL or id.
// The ledger must open before the setting is stored.
func (s *SettingsService) SetAllData(ctx context.Context, actorID int64, input string) (string, error) {
	if !s.privileged.Has(actorID) {
		return "", ErrNotPrivileged
	}

	id, err := ledger.ExtractSpreadsheetID(input)
	if err != nil {
		return "", err
	}
	if _, err := s.store.Open(ctx, id); err != nil {
		return "", fmt.Errorf("%w: %v", ErrLedgerUnreachable, err)
	}

	if err := s.settings.Set(ctx, entity.SettingAllDataSpreadsheet, id); err != nil {
		return "", fmt.Errorf("failed to save all-data ledger: %w", err)
	}
	s.logger.Info("All-data ledger configured", "spreadsheet_id", id, "actor_id", actorID)
	return id, nil
}

// ResetAllData clears the all-data ledger and reports whether one was set
func (s *SettingsService) ResetAllData(ctx context.Context, actorID int64) (bool, error) {
	if !s.privileged.Has(actorID) {
		return false, ErrNotPrivileged
	}

	_, ok, err := s.settings.Get(ctx, entity.SettingAllDataSpreadsheet)
	if err != nil {
		return false, fmt.Errorf("failed to read all-data ledger: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := s.settings.Delete(ctx, entity.SettingAllDataSpreadsheet); err != nil {
		return false, fmt.Errorf("failed to clear all-data ledger: %w", err)
	}

	s.logger.Info("All-data ledger cleared", "actor_id", actorID)
	return true, nil
}

// AllDataStatus counts today's rows of the all-data ledger by category.
// It returns nil when no all-data ledger is configured.
func (s *SettingsService) AllDataStatus(ctx context.Context, actorID int64) (*AllDataStatus, error) {
	if !s.privileged.Has(actorID) {
		return nil, ErrNotPrivileged
	}

	id, ok, err := s.settings.Get(ctx, entity.SettingAllDataSpreadsheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read all-data ledger: %w", err)
	}
	if !ok || id == "" {
		return nil, nil
	}

	status := &AllDataStatus{
		SpreadsheetID: id,
		Sheet:         ledger.DailyName(ledger.KindAllData, s.now().In(s.location)),
	}

	book, err := s.store.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnreachable, err)
	}
	ws, err := book.Worksheet(ctx, status.Sheet)
	if errors.Is(err, port.ErrWorksheetNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open worksheet %s: %w", status.Sheet, err)
	}

	rows, err := ws.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", status.Sheet, err)
	}
	source := len(ledger.AllDataHeader) - 1
	for i, row := range rows {
		if i == 0 {
			continue
		}
		status.Total++
		if len(row) <= source {
			continue
		}
		switch {
		case strings.HasPrefix(row[source], "SH "):
			status.Capital++
		case strings.HasPrefix(row[source], "VL "):
			status.Province++
		}
	}
	return status, nil
}
