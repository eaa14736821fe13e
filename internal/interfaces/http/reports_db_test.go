package http

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/apptest"
	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/application/service"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/persistence/repository"
	"github.com/garyjia/sales-report-bot/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/sales-report-bot/migrations"
	"github.com/garyjia/sales-report-bot/pkg/database"
)

// newSQLiteServer serves the admin API over the SQLite repositories
func newSQLiteServer(t *testing.T) (*Server, port.ReportRepository) {
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

	reports := repository.NewReportRepository(db.DB, logger)
	admin := service.NewAdminService(
		repository.NewUserRepository(db.DB, logger),
		repository.NewGroupRepository(db.DB, logger),
		repository.NewLedgerRepository(db.DB, logger),
		reports,
		sqlite.NewDB(db.DB, logger),
		apptest.Logger{},
	)

	cfg := DefaultServerConfig()
	cfg.AdminToken = testToken
	return NewServer(cfg, admin, nil, apptest.Logger{}), reports
}

func TestServer_ReportDayRangeOnSQLite(t *testing.T) {
	s, reports := newSQLiteServer(t)
	ctx := context.Background()

	day1 := time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	for i, r := range []struct {
		day    time.Time
		status string
	}{
		{day1, entity.StatusPending},
		{day1, entity.StatusConfirmed},
		{day2, entity.StatusPending},
	} {
		require.NoError(t, reports.Create(ctx, &entity.Report{
			UserTelegramID:  7,
			Status:          r.status,
			SubmissionDate:  r.day,
			SubmittedAt:     r.day.Add(10 * time.Hour),
			ReviewChatID:    -1001,
			ReviewMessageID: i + 1,
		}))
	}

	tests := []struct {
		name  string
		query string
		want  service.ReportStats
	}{
		{"single day", "from=2025-12-05&to=2025-12-05", service.ReportStats{Pending: 1, Confirmed: 1, Total: 2}},
		{"next day only", "from=2025-12-06&to=2025-12-06", service.ReportStats{Pending: 1, Total: 1}},
		{"both days", "from=2025-12-05&to=2025-12-06", service.ReportStats{Pending: 2, Confirmed: 1, Total: 3}},
		{"open ended", "from=2025-12-06", service.ReportStats{Pending: 1, Total: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := do(t, s, http.MethodGet, "/api/v1/reports/stats?"+tt.query, nil, testToken)
			require.Equal(t, http.StatusOK, code)

			var stats service.ReportStats
			require.NoError(t, json.Unmarshal(resp.Data, &stats))
			assert.Equal(t, tt.want, stats)
		})
	}

	code, resp := do(t, s, http.MethodGet, "/api/v1/reports?from=2025-12-05&to=2025-12-05", nil, testToken)
	require.Equal(t, http.StatusOK, code)
	var listed []entity.Report
	require.NoError(t, json.Unmarshal(resp.Data, &listed))
	assert.Len(t, listed, 2)
}
