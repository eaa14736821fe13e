package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/sales-report-bot/migrations"
	"github.com/garyjia/sales-report-bot/pkg/database"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "bot.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(migrations.FS))
	return db.DB
}

func ptr[T any](v T) *T { return &v }

func TestUserRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	groups := NewGroupRepository(db, zap.NewNop())
	users := NewUserRepository(db, zap.NewNop())

	require.NoError(t, groups.Create(ctx, &entity.Group{ChatID: -1001, Name: "Andijon filiali"}))

	user := &entity.User{TelegramID: 555, FullName: "Dilshod Karimov"}
	require.NoError(t, users.Create(ctx, user))
	assert.NotZero(t, user.ID)

	t.Run("get", func(t *testing.T) {
		got, err := users.GetByTelegramID(ctx, 555)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Dilshod Karimov", got.FullName)
		assert.False(t, got.IsBlocked)
		assert.Nil(t, got.GroupChatID)
	})

	t.Run("missing user is nil", func(t *testing.T) {
		got, err := users.GetByTelegramID(ctx, 999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("assign group and block", func(t *testing.T) {
		require.NoError(t, users.AssignGroup(ctx, 555, -1001))
		require.NoError(t, users.SetBlocked(ctx, 555, true))

		got, err := users.GetByTelegramID(ctx, 555)
		require.NoError(t, err)
		require.NotNil(t, got.GroupChatID)
		assert.Equal(t, int64(-1001), *got.GroupChatID)
		assert.True(t, got.IsBlocked)
	})

	t.Run("updates on unknown user", func(t *testing.T) {
		assert.ErrorIs(t, users.SetBlocked(ctx, 999, true), ErrNotFound)
	})

	t.Run("duplicate telegram id", func(t *testing.T) {
		assert.Error(t, users.Create(ctx, &entity.User{TelegramID: 555, FullName: "Other"}))
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, users.Create(ctx, &entity.User{TelegramID: 556, FullName: "Aziza"}))
		list, err := users.List(ctx, 10, 0)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		page, err := users.List(ctx, 1, 1)
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})
}

func TestGroupAndLedgerRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	groups := NewGroupRepository(db, zap.NewNop())
	ledgers := NewLedgerRepository(db, zap.NewNop())

	ledger := &entity.LedgerRegistration{Name: "Andijon", SpreadsheetID: "sheet-abc"}
	require.NoError(t, ledgers.Create(ctx, ledger))
	assert.True(t, ledger.IsActive)
	assert.Equal(t, "Sheet1", ledger.WorksheetName)

	group := &entity.Group{ChatID: -1002, Name: "Sotuv", ThreadID: ptr(17)}
	require.NoError(t, groups.Create(ctx, group))
	require.NoError(t, groups.SetLedger(ctx, -1002, ledger.ID))

	got, err := groups.GetByChatID(ctx, -1002)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.ThreadID)
	assert.Equal(t, 17, *got.ThreadID)
	require.NotNil(t, got.LedgerID)
	assert.Equal(t, ledger.ID, *got.LedgerID)

	missing, err := groups.GetByChatID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.ErrorIs(t, groups.SetLedger(ctx, 42, ledger.ID), ErrNotFound)

	require.NoError(t, ledgers.Deactivate(ctx, ledger.ID))
	active, err := ledgers.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := ledgers.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)

	byID, err := ledgers.GetByID(ctx, ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, "sheet-abc", byID.SpreadsheetID)
}

func newReport(userID int64, messageID int, submitted time.Time) *entity.Report {
	return &entity.Report{
		UserTelegramID: userID,
		Fields: entity.ReportFields{
			ClientName:     "Alisher",
			Phone:          "+998901234567",
			SecondaryPhone: entity.DefaultSecondaryPhone,
			Product:        "Konditsioner",
			Location:       "Navoiy ko'chasi 5, Andijon",
			Amount:         "5.000.000",
			ContractID:     "SH-1024",
			Delivery:       entity.DefaultDelivery,
			Note:           entity.DefaultNote,
			SellerName:     "Dilshod",
		},
		Region:          "Andijon",
		ImageFileID:     "photo-file-id",
		SubmissionDate:  time.Date(submitted.Year(), submitted.Month(), submitted.Day(), 0, 0, 0, 0, time.UTC),
		SubmittedAt:     submitted,
		ReviewChatID:    -1001,
		ReviewMessageID: messageID,
	}
}

func TestReportRepository_CreateAndGet(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	reports := NewReportRepository(db, zap.NewNop())

	submitted := time.Date(2025, 12, 6, 14, 30, 0, 0, time.UTC)
	report := newReport(555, 3001, submitted)
	require.NoError(t, reports.Create(ctx, report))
	assert.NotZero(t, report.ID)
	assert.Equal(t, entity.StatusPending, report.Status)

	got, err := reports.GetByReviewMessage(ctx, -1001, 3001)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, report.Fields, got.Fields)
	assert.Equal(t, "Andijon", got.Region)
	assert.False(t, got.IsCapital)
	assert.Equal(t, "2025-12-06", got.SubmissionDate.Format("2006-01-02"))
	assert.True(t, submitted.Equal(got.SubmittedAt))
	assert.Equal(t, entity.StatusPending, got.Status)
	assert.Nil(t, got.ReviewerID)
	assert.Nil(t, got.ReviewedAt)
	assert.Nil(t, got.LedgerID)

	other, err := reports.GetByReviewMessage(ctx, -2002, 3001)
	require.NoError(t, err)
	assert.Nil(t, other, "message ids are scoped by chat")
}

func TestReportRepository_Resolve(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	reports := NewReportRepository(db, zap.NewNop())

	report := newReport(555, 3001, time.Now())
	require.NoError(t, reports.Create(ctx, report))

	reviewedAt := time.Date(2025, 12, 6, 15, 0, 0, 0, time.UTC)
	ok, err := reports.Resolve(ctx, report.ID, entity.StatusConfirmed, 7001, reviewedAt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reports.Resolve(ctx, report.ID, entity.StatusRejected, 7002, reviewedAt)
	require.NoError(t, err)
	assert.False(t, ok, "resolved reports never transition again")

	got, err := reports.GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, got.Status)
	require.NotNil(t, got.ReviewerID)
	assert.Equal(t, int64(7001), *got.ReviewerID)
	require.NotNil(t, got.ReviewedAt)
	assert.True(t, reviewedAt.Equal(*got.ReviewedAt))
}

func TestReportRepository_ListAndCount(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	reports := NewReportRepository(db, zap.NewNop())

	day1 := time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 12, 6, 10, 0, 0, 0, time.UTC)
	for i, r := range []*entity.Report{
		newReport(555, 1, day1),
		newReport(555, 2, day2),
		newReport(556, 3, day2),
	} {
		require.NoError(t, reports.Create(ctx, r), "report %d", i)
	}
	first, err := reports.GetByReviewMessage(ctx, -1001, 1)
	require.NoError(t, err)
	_, err = reports.Resolve(ctx, first.ID, entity.StatusConfirmed, 7001, day2)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter port.ReportFilter
		want   int
	}{
		{"all", port.ReportFilter{}, 3},
		{"by user", port.ReportFilter{UserTelegramID: 555}, 2},
		{"pending", port.ReportFilter{Status: entity.StatusPending}, 2},
		{"confirmed", port.ReportFilter{Status: entity.StatusConfirmed}, 1},
		{"single day", port.ReportFilter{From: day2, To: day2.AddDate(0, 0, 1)}, 2},
		{"to is exclusive", port.ReportFilter{From: day1, To: day2}, 1},
		{"empty range", port.ReportFilter{From: day2, To: day2}, 0},
		{"user and day", port.ReportFilter{UserTelegramID: 555, From: day2}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := reports.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)

			list, err := reports.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, list, tt.want)
		})
	}

	page, err := reports.List(ctx, port.ReportFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 3, page[0].ReviewMessageID, "newest first")
}

func TestSettingsRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	settings := NewSettingsRepository(db, zap.NewNop())

	_, ok, err := settings.Get(ctx, entity.SettingAllDataSpreadsheet)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, settings.Set(ctx, entity.SettingAllDataSpreadsheet, "first"))
	require.NoError(t, settings.Set(ctx, entity.SettingAllDataSpreadsheet, "second"))

	value, ok, err := settings.Get(ctx, entity.SettingAllDataSpreadsheet)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)

	require.NoError(t, settings.Delete(ctx, entity.SettingAllDataSpreadsheet))
	require.NoError(t, settings.Delete(ctx, entity.SettingAllDataSpreadsheet))
	_, ok, err = settings.Get(ctx, entity.SettingAllDataSpreadsheet)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransactionManager(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	txManager := sqlite.NewDB(db, zap.NewNop())
	ledgers := NewLedgerRepository(db, zap.NewNop())
	groups := NewGroupRepository(db, zap.NewNop())

	t.Run("rollback on error", func(t *testing.T) {
		err := txManager.WithTransaction(ctx, func(ctx context.Context) error {
			ledger := &entity.LedgerRegistration{Name: "Tmp", SpreadsheetID: "tmp"}
			if err := ledgers.Create(ctx, ledger); err != nil {
				return err
			}
			return errors.New("abort")
		})
		require.EqualError(t, err, "abort")

		list, err := ledgers.List(ctx, false)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("commit", func(t *testing.T) {
		err := txManager.WithTransaction(ctx, func(ctx context.Context) error {
			ledger := &entity.LedgerRegistration{Name: "Main", SpreadsheetID: "main"}
			if err := ledgers.Create(ctx, ledger); err != nil {
				return err
			}
			return groups.Create(ctx, &entity.Group{ChatID: -1003, Name: "Main", LedgerID: &ledger.ID})
		})
		require.NoError(t, err)

		got, err := groups.GetByChatID(ctx, -1003)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NotNil(t, got.LedgerID)
	})
}
