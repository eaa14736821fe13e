package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/apptest"
	"github.com/garyjia/sales-report-bot/internal/application/dispatcher"
	"github.com/garyjia/sales-report-bot/internal/application/keyboard"
	"github.com/garyjia/sales-report-bot/internal/application/ledger"
	"github.com/garyjia/sales-report-bot/internal/application/ledger/ledgertest"
	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
	"github.com/garyjia/sales-report-bot/internal/domain/event"
	"github.com/garyjia/sales-report-bot/internal/domain/template"
	"github.com/garyjia/sales-report-bot/internal/domain/workflow"
)

const (
	userID      int64 = 5001
	groupChatID int64 = -100200
	threadID          = 7
)

var now = time.Date(2025, 12, 6, 14, 30, 0, 0, time.UTC)

type fixture struct {
	repos     *apptest.Repos
	sessions  *apptest.Sessions
	messenger *apptest.Messenger
	store     *ledgertest.Store
	coord     *Coordinator
}

func newFixture(t *testing.T, withLedgers bool, events dispatcher.Dispatcher) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		repos:     apptest.NewRepos(),
		sessions:  apptest.NewSessions(),
		messenger: apptest.NewMessenger(),
		store:     ledgertest.NewStore(),
	}

	thread := threadID
	group := &entity.Group{ChatID: groupChatID, Name: "Andijon filiali", ThreadID: &thread}
	if withLedgers {
		reg := &entity.LedgerRegistration{Name: "Filial", SpreadsheetID: "sheet-main"}
		require.NoError(t, f.repos.Ledgers.Create(ctx, reg))
		group.LedgerID = &reg.ID
		require.NoError(t, f.repos.Settings.Set(ctx, entity.SettingAllDataSpreadsheet, "sheet-all"))
	}
	require.NoError(t, f.repos.Groups.Create(ctx, group))

	gid := groupChatID
	require.NoError(t, f.repos.Users.Create(ctx, &entity.User{TelegramID: userID, FullName: "Dilshod", GroupChatID: &gid}))

	f.coord = NewCoordinator(Deps{
		Users:     f.repos.Users,
		Groups:    f.repos.Groups,
		Ledgers:   f.repos.Ledgers,
		Reports:   f.repos.Reports,
		Settings:  f.repos.Settings,
		Sessions:  f.sessions,
		Messenger: f.messenger,
		Router:    ledger.NewRouter(f.store, zap.NewNop()),
		Events:    events,
		Logger:    apptest.Logger{},
		Location:  time.UTC,
	})
	f.coord.SetClock(func() time.Time { return now })
	return f
}

func confirmSession() *entity.Session {
	return &entity.Session{
		UserID:    userID,
		ChatID:    userID,
		Step:      workflow.StateConfirm,
		Region:    "Andijon",
		IsCapital: false,
		Fields: entity.ReportFields{
			ClientName:     "Alisher Karimov",
			Phone:          "+998901234567",
			SecondaryPhone: entity.DefaultSecondaryPhone,
			Product:        "Konditsioner",
			Location:       "Navoiy ko'chasi 5, Andijon",
			Amount:         "5.000.000",
			ContractID:     "A-1024",
			Delivery:       entity.DefaultDelivery,
			Note:           entity.DefaultNote,
			SellerName:     "Dilshod",
		},
		ImageFileID:      "photo-1",
		PreviewMessageID: 55,
	}
}

func TestDispatch_FullySucceeded(t *testing.T) {
	f := newFixture(t, true, nil)
	s := confirmSession()
	f.sessions.Put(*s)

	out := f.coord.Dispatch(context.Background(), s, "cb-1")

	require.Equal(t, OutcomeFullySucceeded, out.Status)
	assert.NoError(t, out.Err)

	review := f.messenger.Sent[0]
	assert.Equal(t, groupChatID, review.Ref.ChatID)
	assert.Equal(t, threadID, review.ThreadID)
	assert.Equal(t, "photo-1", review.PhotoID)
	assert.Equal(t, keyboard.Review(), review.Markup)
	assert.Contains(t, review.Text, template.MarkConfirmed)
	assert.Contains(t, review.Text, "📌 Holat: "+template.MarkPending)
	assert.Contains(t, review.Text, "VL 06.12.2025")

	reports := f.repos.Reports.All()
	require.Len(t, reports, 1)
	assert.Equal(t, entity.StatusPending, reports[0].Status)
	assert.Equal(t, groupChatID, reports[0].ReviewChatID)
	assert.Equal(t, review.Ref.MessageID, reports[0].ReviewMessageID)
	require.NotNil(t, reports[0].LedgerID)

	require.NotNil(t, out.Category)
	assert.Equal(t, ledger.Placement{Sheet: "VL 06.12.2025", RowNumber: 1}, *out.Category)
	require.NotNil(t, out.AllData)
	assert.Equal(t, ledger.Placement{Sheet: "ALL DATA 06.12.2025", RowNumber: 1}, *out.AllData)

	allRows := f.store.Ledger("sheet-all").Sheet("ALL DATA 06.12.2025").Data()
	require.Len(t, allRows, 2)
	assert.Equal(t, "VL 06.12.2025", allRows[1][len(allRows[1])-1])

	edit := f.messenger.LastEdit()
	assert.Equal(t, port.MessageRef{ChatID: userID, MessageID: 55}, edit.Ref)
	assert.Contains(t, edit.Text, "muvaffaqiyatli yuborildi")
	assert.Nil(t, edit.Markup)

	sess, _ := f.sessions.Get(context.Background(), userID)
	assert.Nil(t, sess)
	assert.Equal(t, apptest.Answer{CallbackID: "cb-1", Text: "✅ Hisobot yuborildi!"}, f.messenger.Answers[0])
}

func TestDispatch_WithoutLedgers(t *testing.T) {
	f := newFixture(t, false, nil)

	out := f.coord.Dispatch(context.Background(), confirmSession(), "cb-1")

	assert.Equal(t, OutcomeFullySucceeded, out.Status)
	assert.Nil(t, out.Category)
	assert.Nil(t, out.AllData)
	assert.Nil(t, f.store.Ledger("sheet-main"))
}

func TestDispatch_AbortsWithoutGroup(t *testing.T) {
	f := newFixture(t, true, nil)
	require.NoError(t, f.repos.Users.Create(context.Background(), &entity.User{TelegramID: 42, FullName: "Yangi"}))

	s := confirmSession()
	s.UserID = 42
	f.sessions.Put(*s)

	out := f.coord.Dispatch(context.Background(), s, "cb-1")

	assert.Equal(t, OutcomeAborted, out.Status)
	assert.ErrorIs(t, out.Err, ErrGroupNotFound)
	assert.False(t, out.Delivered())
	assert.Empty(t, f.messenger.Sent)
	assert.Empty(t, f.repos.Reports.All())
	assert.True(t, f.messenger.LastAnswer().Alert)

	sess, _ := f.sessions.Get(context.Background(), 42)
	assert.NotNil(t, sess, "aborted dispatch keeps the session for a retry")
}

func TestDispatch_AbortsWhenUserLookupFails(t *testing.T) {
	f := newFixture(t, true, nil)
	f.repos.Users.FailGet = errors.New("database is locked")

	out := f.coord.Dispatch(context.Background(), confirmSession(), "cb-1")

	assert.Equal(t, OutcomeAborted, out.Status)
	assert.ErrorContains(t, out.Err, "database is locked")
	assert.Empty(t, f.messenger.Sent)
}

func TestDispatch_AbortsWhenDeliveryFails(t *testing.T) {
	f := newFixture(t, true, nil)
	f.messenger.FailSend = errors.New("chat not found")

	out := f.coord.Dispatch(context.Background(), confirmSession(), "cb-1")

	assert.Equal(t, OutcomeAborted, out.Status)
	assert.ErrorContains(t, out.Err, "chat not found")
	assert.Empty(t, f.repos.Reports.All())
	assert.Nil(t, f.store.Ledger("sheet-main"))
	assert.Contains(t, f.messenger.LastAnswer().Text, "chat not found")
}

func TestDispatch_DeliveredNotPersisted(t *testing.T) {
	f := newFixture(t, true, nil)
	f.repos.Reports.FailCreate = errors.New("disk full")

	out := f.coord.Dispatch(context.Background(), confirmSession(), "cb-1")

	assert.Equal(t, OutcomeDeliveredNotPersisted, out.Status)
	assert.ErrorContains(t, out.PersistErr, "disk full")
	assert.True(t, out.Delivered())
	assert.NotNil(t, out.Category, "ledger writes do not depend on persistence")
	assert.NotNil(t, out.AllData)
}

func TestDispatch_PersistedNotLedgered(t *testing.T) {
	t.Run("category ledger fails", func(t *testing.T) {
		f := newFixture(t, true, nil)
		f.store.FailOpen["sheet-main"] = errors.New("permission denied")

		out := f.coord.Dispatch(context.Background(), confirmSession(), "cb-1")

		assert.Equal(t, OutcomePersistedNotLedgered, out.Status)
		assert.ErrorContains(t, out.CategoryErr, "permission denied")
		assert.NoError(t, out.AllDataErr)
		assert.NotNil(t, out.AllData)
		assert.Len(t, f.repos.Reports.All(), 1)
	})

	t.Run("all-data ledger fails", func(t *testing.T) {
		f := newFixture(t, true, nil)
		f.store.FailAppend["ALL DATA 06.12.2025"] = errors.New("quota exceeded")

		out := f.coord.Dispatch(context.Background(), confirmSession(), "cb-1")

		assert.Equal(t, OutcomePersistedNotLedgered, out.Status)
		assert.NoError(t, out.CategoryErr)
		assert.NotNil(t, out.Category)
		assert.ErrorContains(t, out.AllDataErr, "quota exceeded")
	})

	t.Run("inactive registration is skipped", func(t *testing.T) {
		f := newFixture(t, true, nil)
		require.NoError(t, f.repos.Ledgers.Deactivate(context.Background(), 1))

		out := f.coord.Dispatch(context.Background(), confirmSession(), "cb-1")

		assert.Equal(t, OutcomeFullySucceeded, out.Status)
		assert.Nil(t, out.Category)
		assert.NotNil(t, out.AllData)
	})
}

// cancelOnSend cancels the dispatch context as soon as the review photo is out
type cancelOnSend struct {
	*apptest.Messenger
	cancel context.CancelFunc
}

func (m *cancelOnSend) SendPhoto(ctx context.Context, chatID int64, threadID int, photoID, caption string, markup *port.Markup) (port.MessageRef, error) {
	ref, err := m.Messenger.SendPhoto(ctx, chatID, threadID, photoID, caption, markup)
	m.cancel()
	return ref, err
}

func TestDispatch_LedgersAfterCallerDeadline(t *testing.T) {
	f := newFixture(t, true, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.coord.deps.Messenger = &cancelOnSend{Messenger: f.messenger, cancel: cancel}

	out := f.coord.Dispatch(ctx, confirmSession(), "cb-1")

	require.Error(t, ctx.Err())
	assert.Equal(t, OutcomeFullySucceeded, out.Status)
	assert.NoError(t, out.CategoryErr)
	assert.NoError(t, out.AllDataErr)
	assert.Len(t, f.store.Ledger("sheet-main").Sheet("VL 06.12.2025").Data(), 2)
	assert.Len(t, f.store.Ledger("sheet-all").Sheet("ALL DATA 06.12.2025").Data(), 2)
}

func TestDispatch_PublishesEvent(t *testing.T) {
	events := dispatcher.NewDispatcher(apptest.Logger{})

	var mu sync.Mutex
	var got []*event.Event
	events.Subscribe(event.TypeReportDispatched, "capture", func(_ context.Context, evt *event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt)
		return nil
	})

	f := newFixture(t, false, events)
	out := f.coord.Dispatch(context.Background(), confirmSession(), "cb-1")
	require.NoError(t, events.Close())

	require.Len(t, got, 1)
	assert.Equal(t, out.Report.ID, got[0].ReportID)
	assert.Equal(t, string(OutcomeFullySucceeded), got[0].GetPayloadString("outcome"))
}
