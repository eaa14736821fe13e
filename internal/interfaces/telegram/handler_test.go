package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/sales-report-bot/internal/application/apptest"
	"github.com/garyjia/sales-report-bot/internal/application/dispatch"
	"github.com/garyjia/sales-report-bot/internal/application/keyboard"
	"github.com/garyjia/sales-report-bot/internal/application/ledger"
	"github.com/garyjia/sales-report-bot/internal/application/service"
	"github.com/garyjia/sales-report-bot/internal/application/submission"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

// call is one recorded invocation of a fake
type call struct {
	name string
	arg  string
	msg  submission.Message
	cb   submission.Callback
}

type fakeFlow struct {
	calls []call
	err   error
}

func (f *fakeFlow) record(c call) error {
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeFlow) Welcome(_ context.Context, msg submission.Message) error {
	return f.record(call{name: "Welcome", msg: msg})
}

func (f *fakeFlow) Start(_ context.Context, msg submission.Message) error {
	return f.record(call{name: "Start", msg: msg})
}

func (f *fakeFlow) HandleMessage(_ context.Context, msg submission.Message) error {
	return f.record(call{name: "HandleMessage", msg: msg})
}

func (f *fakeFlow) MySales(_ context.Context, msg submission.Message) error {
	return f.record(call{name: "MySales", msg: msg})
}

func (f *fakeFlow) SelectRegion(_ context.Context, cb submission.Callback, regionName string) error {
	return f.record(call{name: "SelectRegion", cb: cb, arg: regionName})
}

func (f *fakeFlow) Confirm(_ context.Context, cb submission.Callback) (dispatch.Outcome, error) {
	err := f.record(call{name: "Confirm", cb: cb})
	return dispatch.Outcome{Status: dispatch.OutcomeFullySucceeded, Report: &entity.Report{ID: 9}}, err
}

func (f *fakeFlow) Edit(_ context.Context, cb submission.Callback) error {
	return f.record(call{name: "Edit", cb: cb})
}

func (f *fakeFlow) EditField(_ context.Context, cb submission.Callback, field string) error {
	return f.record(call{name: "EditField", cb: cb, arg: field})
}

func (f *fakeFlow) BackToConfirm(_ context.Context, cb submission.Callback) error {
	return f.record(call{name: "BackToConfirm", cb: cb})
}

func (f *fakeFlow) CancelReport(_ context.Context, cb submission.Callback) error {
	return f.record(call{name: "CancelReport", cb: cb})
}

func (f *fakeFlow) Abort(_ context.Context, cb submission.Callback) error {
	return f.record(call{name: "Abort", cb: cb})
}

type fakeReviews struct {
	calls []string
}

func (r *fakeReviews) Review(_ context.Context, action service.ReviewAction, decision service.Decision) (*entity.Report, error) {
	r.calls = append(r.calls, "Review:"+string(decision))
	return &entity.Report{}, nil
}

func (r *fakeReviews) ContactReviewer(_ context.Context, _ service.ReviewAction, reviewerID int64) error {
	r.calls = append(r.calls, "ContactReviewer")
	if reviewerID != 42 {
		return errors.New("unexpected reviewer")
	}
	return nil
}

func (r *fakeReviews) AcknowledgeConfirmed(_ context.Context, _ service.ReviewAction) {
	r.calls = append(r.calls, "AcknowledgeConfirmed")
}

type fakeSettings struct {
	SetFunc    func(actorID int64, input string) (string, error)
	ResetFunc  func(actorID int64) (bool, error)
	StatusFunc func(actorID int64) (*service.AllDataStatus, error)
}

func (s *fakeSettings) SetAllData(_ context.Context, actorID int64, input string) (string, error) {
	return s.SetFunc(actorID, input)
}

func (s *fakeSettings) ResetAllData(_ context.Context, actorID int64) (bool, error) {
	return s.ResetFunc(actorID)
}

func (s *fakeSettings) AllDataStatus(_ context.Context, actorID int64) (*service.AllDataStatus, error) {
	return s.StatusFunc(actorID)
}

type fixture struct {
	handler   *Handler
	flow      *fakeFlow
	reviews   *fakeReviews
	settings  *fakeSettings
	messenger *apptest.Messenger
}

func newFixture() *fixture {
	f := &fixture{
		flow:      &fakeFlow{},
		reviews:   &fakeReviews{},
		settings:  &fakeSettings{},
		messenger: apptest.NewMessenger(),
	}
	f.handler = NewHandler(f.flow, f.reviews, f.settings, f.messenger, apptest.Logger{})
	return f
}

func textUpdate(text, chatType string) tgbotapi.Update {
	chatID := int64(7)
	if chatType != "private" {
		chatID = -100500
	}
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 5,
			From:      &tgbotapi.User{ID: 7},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: chatType},
			Text:      text,
		},
	}
}

func commandUpdate(text, chatType string) tgbotapi.Update {
	update := textUpdate(text, chatType)
	name := strings.SplitN(text, " ", 2)[0]
	update.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	return update
}

func callbackUpdate(data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: 7},
			Message: &tgbotapi.Message{
				MessageID: 300,
				Chat:      &tgbotapi.Chat{ID: 7, Type: "private"},
			},
			Data: data,
		},
	}
}

func TestHandler_Commands(t *testing.T) {
	t.Run("start in private chat", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.handler.HandleUpdate(context.Background(), commandUpdate("/start", "private")))
		require.Len(t, f.flow.calls, 1)
		assert.Equal(t, "Welcome", f.flow.calls[0].name)
		assert.Equal(t, int64(7), f.flow.calls[0].msg.UserID)
	})

	t.Run("start in group is ignored", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.handler.HandleUpdate(context.Background(), commandUpdate("/start", "supergroup")))
		assert.Empty(t, f.flow.calls)
	})

	t.Run("cancel aborts without callback", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.handler.HandleUpdate(context.Background(), commandUpdate("/cancel", "private")))
		require.Len(t, f.flow.calls, 1)
		assert.Equal(t, "Abort", f.flow.calls[0].name)
		assert.Empty(t, f.flow.calls[0].cb.ID)
		assert.Equal(t, int64(7), f.flow.calls[0].cb.ChatID)
	})
}

func TestHandler_PrivateMessages(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{keyboard.MenuSubmit, "Start"},
		{keyboard.MenuMySales, "MySales"},
		{"👤 Mijoz: Alisher", "HandleMessage"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			f := newFixture()
			require.NoError(t, f.handler.HandleUpdate(context.Background(), textUpdate(tt.text, "private")))
			require.Len(t, f.flow.calls, 1)
			assert.Equal(t, tt.want, f.flow.calls[0].name)
		})
	}
}

func TestHandler_PhotoUsesLargestSize(t *testing.T) {
	f := newFixture()
	update := textUpdate("", "private")
	update.Message.Photo = []tgbotapi.PhotoSize{
		{FileID: "small", Width: 90},
		{FileID: "medium", Width: 320},
		{FileID: "large", Width: 1280},
	}

	require.NoError(t, f.handler.HandleUpdate(context.Background(), update))
	require.Len(t, f.flow.calls, 1)
	assert.Equal(t, "HandleMessage", f.flow.calls[0].name)
	assert.Equal(t, "large", f.flow.calls[0].msg.PhotoFileID)
}

func TestHandler_GroupChatterIgnored(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.handler.HandleUpdate(context.Background(), textUpdate("salom", "group")))
	assert.Empty(t, f.flow.calls)
}

func TestHandler_SubmissionCallbacks(t *testing.T) {
	tests := []struct {
		data string
		want string
		arg  string
	}{
		{keyboard.RegionPrefix + "Toshkent shahri", "SelectRegion", "Toshkent shahri"},
		{keyboard.CancelSubmission, "Abort", ""},
		{keyboard.ConfirmReport, "Confirm", ""},
		{keyboard.EditReport, "Edit", ""},
		{keyboard.EditPrefix + "phone", "EditField", "phone"},
		{keyboard.BackToConfirm, "BackToConfirm", ""},
		{keyboard.CancelReport, "CancelReport", ""},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			f := newFixture()
			require.NoError(t, f.handler.HandleUpdate(context.Background(), callbackUpdate(tt.data)))
			require.Len(t, f.flow.calls, 1)

			got := f.flow.calls[0]
			assert.Equal(t, tt.want, got.name)
			assert.Equal(t, tt.arg, got.arg)
			assert.Equal(t, submission.Callback{ID: "cb-1", UserID: 7, ChatID: 7, MessageID: 300, Data: tt.data}, got.cb)
		})
	}
}

func TestHandler_ReviewCallbacks(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{keyboard.ApproveReview, "Review:approve"},
		{keyboard.RejectReview, "Review:reject"},
		{keyboard.ConfirmedNoop, "AcknowledgeConfirmed"},
		{keyboard.ContactPrefix + "42", "ContactReviewer"},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			f := newFixture()
			require.NoError(t, f.handler.HandleUpdate(context.Background(), callbackUpdate(tt.data)))
			assert.Equal(t, []string{tt.want}, f.reviews.calls)
			assert.Empty(t, f.flow.calls)
		})
	}
}

func TestHandler_UnroutableCallbacksAreAnswered(t *testing.T) {
	t.Run("unknown data", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.handler.HandleUpdate(context.Background(), callbackUpdate("something_else")))
		assert.Equal(t, "cb-1", f.messenger.LastAnswer().CallbackID)
	})

	t.Run("unknown edit field", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, f.handler.HandleUpdate(context.Background(), callbackUpdate(keyboard.EditPrefix+"colour")))
		assert.Empty(t, f.flow.calls)
		assert.Equal(t, "cb-1", f.messenger.LastAnswer().CallbackID)
	})

	t.Run("malformed contact", func(t *testing.T) {
		f := newFixture()
		err := f.handler.HandleUpdate(context.Background(), callbackUpdate(keyboard.ContactPrefix+"abc"))
		assert.Error(t, err)
		assert.Empty(t, f.reviews.calls)
		assert.Equal(t, "cb-1", f.messenger.LastAnswer().CallbackID)
	})

	t.Run("no message", func(t *testing.T) {
		f := newFixture()
		update := callbackUpdate(keyboard.ConfirmReport)
		update.CallbackQuery.Message = nil
		require.NoError(t, f.handler.HandleUpdate(context.Background(), update))
		assert.Empty(t, f.flow.calls)
		assert.Equal(t, "cb-1", f.messenger.LastAnswer().CallbackID)
	})
}

func TestHandler_ErrorClassification(t *testing.T) {
	t.Run("refusals are swallowed", func(t *testing.T) {
		f := newFixture()
		f.flow.err = submission.ErrUserBlocked
		assert.NoError(t, f.handler.HandleUpdate(context.Background(), textUpdate(keyboard.MenuSubmit, "private")))
	})

	t.Run("failures are returned", func(t *testing.T) {
		f := newFixture()
		f.flow.err = errors.New("session store down")
		assert.Error(t, f.handler.HandleUpdate(context.Background(), textUpdate(keyboard.MenuSubmit, "private")))
	})
}

func TestHandler_AllDataCommands(t *testing.T) {
	t.Run("set from url", func(t *testing.T) {
		f := newFixture()
		f.settings.SetFunc = func(actorID int64, input string) (string, error) {
			assert.Equal(t, int64(7), actorID)
			assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc123/edit", input)
			return "abc123", nil
		}

		update := commandUpdate("/alldata https://docs.google.com/spreadsheets/d/abc123/edit", "private")
		require.NoError(t, f.handler.HandleUpdate(context.Background(), update))
		assert.Contains(t, f.messenger.LastSent().Text, "abc123")
	})

	t.Run("set with bad input", func(t *testing.T) {
		f := newFixture()
		f.settings.SetFunc = func(int64, string) (string, error) { return "", ledger.ErrInvalidLedgerID }

		require.NoError(t, f.handler.HandleUpdate(context.Background(), commandUpdate("/alldata ???", "private")))
		assert.Contains(t, f.messenger.LastSent().Text, "Noto'g'ri")
	})

	t.Run("bare command shows status", func(t *testing.T) {
		f := newFixture()
		f.settings.StatusFunc = func(int64) (*service.AllDataStatus, error) { return nil, nil }

		require.NoError(t, f.handler.HandleUpdate(context.Background(), commandUpdate("/alldata", "private")))
		assert.Contains(t, f.messenger.LastSent().Text, "sozlanmagan")
	})

	t.Run("status counts", func(t *testing.T) {
		f := newFixture()
		f.settings.StatusFunc = func(int64) (*service.AllDataStatus, error) {
			return &service.AllDataStatus{SpreadsheetID: "abc123", Sheet: "ALL DATA 06.12.2025", Total: 5, Capital: 3, Province: 2}, nil
		}

		require.NoError(t, f.handler.HandleUpdate(context.Background(), commandUpdate("/alldata_status", "private")))
		text := f.messenger.LastSent().Text
		assert.Contains(t, text, "ALL DATA 06.12.2025")
		assert.Contains(t, text, "Jami: 5")
		assert.Contains(t, text, "Toshkent: 3")
		assert.Contains(t, text, "Viloyatlar: 2")
	})

	t.Run("reset refused for regular users", func(t *testing.T) {
		f := newFixture()
		f.settings.ResetFunc = func(int64) (bool, error) { return false, service.ErrNotPrivileged }

		require.NoError(t, f.handler.HandleUpdate(context.Background(), commandUpdate("/alldata_reset", "private")))
		assert.Contains(t, f.messenger.LastSent().Text, "ruxsat yo'q")
	})

	t.Run("reset clears", func(t *testing.T) {
		f := newFixture()
		f.settings.ResetFunc = func(int64) (bool, error) { return true, nil }

		require.NoError(t, f.handler.HandleUpdate(context.Background(), commandUpdate("/alldata_reset", "supergroup")))
		assert.Contains(t, f.messenger.LastSent().Text, "o'chirildi")
	})
}

func TestHandler_HandleWebhook(t *testing.T) {
	f := newFixture()

	assert.Error(t, f.handler.HandleWebhook(context.Background(), []byte("{not json")))

	body := []byte(`{"update_id":3,"callback_query":{"id":"cb-9","from":{"id":7},"message":{"message_id":300,"chat":{"id":7,"type":"private"}},"data":"confirm_report"}}`)
	require.NoError(t, f.handler.HandleWebhook(context.Background(), body))
	require.Len(t, f.flow.calls, 1)
	assert.Equal(t, "Confirm", f.flow.calls[0].name)
	assert.Equal(t, "cb-9", f.flow.calls[0].cb.ID)
}
