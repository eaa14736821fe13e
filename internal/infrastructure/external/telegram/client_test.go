package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/port"
)

type request struct {
	endpoint string
	params   tgbotapi.Params
}

type fakeBot struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	raw       []request
	nextID    int
	err       error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requested = append(f.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.raw = append(f.raw, request{endpoint: endpoint, params: params})
	f.nextID++
	result, _ := json.Marshal(tgbotapi.Message{MessageID: f.nextID})
	return &tgbotapi.APIResponse{Ok: true, Result: result}, nil
}

var reviewMarkup = &port.Markup{Inline: [][]port.Button{{
	{Text: "✅", Data: "confirm_report_action"},
	{Text: "💬", URL: "tg://user?id=7"},
}}}

func TestMessenger_SendPhotoToChat(t *testing.T) {
	bot := &fakeBot{}
	m := NewMessenger(bot, zap.NewNop())

	ref, err := m.SendPhoto(context.Background(), -100, 0, "file-1", "caption", reviewMarkup)
	require.NoError(t, err)
	assert.Equal(t, port.MessageRef{ChatID: -100, MessageID: 1}, ref)

	require.Len(t, bot.sent, 1)
	photo, ok := bot.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, "caption", photo.Caption)
	assert.Equal(t, tgbotapi.FileID("file-1"), photo.File)

	kb, ok := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard[0], 2)
	require.NotNil(t, kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "confirm_report_action", *kb.InlineKeyboard[0][0].CallbackData)
	require.NotNil(t, kb.InlineKeyboard[0][1].URL)
	assert.Equal(t, "tg://user?id=7", *kb.InlineKeyboard[0][1].URL)
}

func TestMessenger_SendPhotoToThread(t *testing.T) {
	bot := &fakeBot{}
	m := NewMessenger(bot, zap.NewNop())

	ref, err := m.SendPhoto(context.Background(), -100, 7, "file-1", "caption", reviewMarkup)
	require.NoError(t, err)
	assert.Equal(t, 1, ref.MessageID)

	require.Len(t, bot.raw, 1)
	req := bot.raw[0]
	assert.Equal(t, "sendPhoto", req.endpoint)
	assert.Equal(t, "-100", req.params["chat_id"])
	assert.Equal(t, "7", req.params["message_thread_id"])
	assert.Equal(t, "file-1", req.params["photo"])
	assert.Contains(t, req.params["reply_markup"], "confirm_report_action")
}

func TestMessenger_SendTextWithReplyKeyboard(t *testing.T) {
	bot := &fakeBot{}
	m := NewMessenger(bot, zap.NewNop())

	_, err := m.SendText(context.Background(), 5, 0, "menu", &port.Markup{Reply: [][]string{{"📝 Hisobot topshirish"}}})
	require.NoError(t, err)

	msg := bot.sent[0].(tgbotapi.MessageConfig)
	kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, kb.ResizeKeyboard)
	assert.Equal(t, "📝 Hisobot topshirish", kb.Keyboard[0][0].Text)
}

func TestMessenger_SendTextWithoutMarkup(t *testing.T) {
	bot := &fakeBot{}
	m := NewMessenger(bot, zap.NewNop())

	_, err := m.SendText(context.Background(), 5, 0, "hi", nil)
	require.NoError(t, err)
	assert.Nil(t, bot.sent[0].(tgbotapi.MessageConfig).ReplyMarkup)
}

func TestMessenger_EditCaptionRemovesKeyboard(t *testing.T) {
	bot := &fakeBot{}
	m := NewMessenger(bot, zap.NewNop())

	require.NoError(t, m.EditCaption(context.Background(), port.MessageRef{ChatID: 5, MessageID: 9}, "done", nil))

	edit := bot.requested[0].(tgbotapi.EditMessageCaptionConfig)
	assert.Equal(t, 9, edit.MessageID)
	assert.Equal(t, "done", edit.Caption)
	assert.Nil(t, edit.ReplyMarkup)
}

func TestMessenger_AnswerCallback(t *testing.T) {
	bot := &fakeBot{}
	m := NewMessenger(bot, zap.NewNop())

	require.NoError(t, m.AnswerCallback(context.Background(), "cb", "no", true))
	cfg := bot.requested[0].(tgbotapi.CallbackConfig)
	assert.True(t, cfg.ShowAlert)
	assert.Equal(t, "no", cfg.Text)
}

func TestMessenger_Errors(t *testing.T) {
	bot := &fakeBot{err: errors.New("Bad Request: chat not found")}
	m := NewMessenger(bot, zap.NewNop())
	ctx := context.Background()

	_, err := m.SendText(ctx, 5, 0, "x", nil)
	assert.ErrorContains(t, err, "chat not found")
	_, err = m.SendPhoto(ctx, 5, 3, "f", "x", nil)
	assert.ErrorContains(t, err, "chat not found")
	assert.Error(t, m.DeleteMessage(ctx, port.MessageRef{ChatID: 5, MessageID: 1}))
}
