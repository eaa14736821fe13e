// Package telegram implements the chat transport on the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/port"
)

// BotAPI is the subset of *tgbotapi.BotAPI the messenger uses
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// NewBotAPI connects to the Bot API with the given token
func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

// Messenger is a port.Messenger backed by the Bot API
type Messenger struct {
	bot    BotAPI
	logger *zap.Logger
}

// NewMessenger creates a Messenger
func NewMessenger(bot BotAPI, logger *zap.Logger) *Messenger {
	return &Messenger{bot: bot, logger: logger}
}

func (m *Messenger) SendText(_ context.Context, chatID int64, threadID int, text string, markup *port.Markup) (port.MessageRef, error) {
	if threadID != 0 {
		params := tgbotapi.Params{"text": text}
		return m.sendToThread("sendMessage", chatID, threadID, params, markup)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if rm := replyMarkup(markup); rm != nil {
		msg.ReplyMarkup = rm
	}
	sent, err := m.bot.Send(msg)
	if err != nil {
		m.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return port.MessageRef{}, fmt.Errorf("failed to send message: %w", err)
	}
	return port.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (m *Messenger) SendPhoto(_ context.Context, chatID int64, threadID int, photoID, caption string, markup *port.Markup) (port.MessageRef, error) {
	if threadID != 0 {
		params := tgbotapi.Params{"photo": photoID, "caption": caption}
		return m.sendToThread("sendPhoto", chatID, threadID, params, markup)
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(photoID))
	photo.Caption = caption
	if rm := replyMarkup(markup); rm != nil {
		photo.ReplyMarkup = rm
	}
	sent, err := m.bot.Send(photo)
	if err != nil {
		m.logger.Error("Failed to send photo", zap.Int64("chat_id", chatID), zap.Error(err))
		return port.MessageRef{}, fmt.Errorf("failed to send photo: %w", err)
	}
	return port.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// sendToThread posts into a forum topic. The library's configs have no
// message_thread_id, so the request is built by hand.
func (m *Messenger) sendToThread(endpoint string, chatID int64, threadID int, params tgbotapi.Params, markup *port.Markup) (port.MessageRef, error) {
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero("message_thread_id", threadID)
	if rm := replyMarkup(markup); rm != nil {
		if err := params.AddInterface("reply_markup", rm); err != nil {
			return port.MessageRef{}, fmt.Errorf("failed to encode markup: %w", err)
		}
	}

	resp, err := m.bot.MakeRequest(endpoint, params)
	if err != nil {
		m.logger.Error("Failed to send to thread",
			zap.String("endpoint", endpoint),
			zap.Int64("chat_id", chatID),
			zap.Int("thread_id", threadID),
			zap.Error(err))
		return port.MessageRef{}, fmt.Errorf("failed to %s: %w", endpoint, err)
	}

	var sent tgbotapi.Message
	if err := json.Unmarshal(resp.Result, &sent); err != nil {
		return port.MessageRef{}, fmt.Errorf("failed to decode %s result: %w", endpoint, err)
	}
	return port.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (m *Messenger) EditText(_ context.Context, ref port.MessageRef, text string, markup *port.Markup) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.ReplyMarkup = inlineMarkup(markup)
	if _, err := m.bot.Request(edit); err != nil {
		return fmt.Errorf("failed to edit message %d: %w", ref.MessageID, err)
	}
	return nil
}

func (m *Messenger) EditCaption(_ context.Context, ref port.MessageRef, caption string, markup *port.Markup) error {
	edit := tgbotapi.NewEditMessageCaption(ref.ChatID, ref.MessageID, caption)
	edit.ReplyMarkup = inlineMarkup(markup)
	if _, err := m.bot.Request(edit); err != nil {
		return fmt.Errorf("failed to edit caption %d: %w", ref.MessageID, err)
	}
	return nil
}

func (m *Messenger) DeleteMessage(_ context.Context, ref port.MessageRef) error {
	if _, err := m.bot.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("failed to delete message %d: %w", ref.MessageID, err)
	}
	return nil
}

func (m *Messenger) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := m.bot.Request(cfg); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// inlineMarkup converts inline rows; nil removes the keyboard on edits
func inlineMarkup(markup *port.Markup) *tgbotapi.InlineKeyboardMarkup {
	if markup == nil || len(markup.Inline) == 0 {
		return nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(markup.Inline))
	for _, row := range markup.Inline {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func replyMarkup(markup *port.Markup) interface{} {
	if markup == nil {
		return nil
	}
	if kb := inlineMarkup(markup); kb != nil {
		return *kb
	}
	if len(markup.Reply) == 0 {
		return nil
	}

	rows := make([][]tgbotapi.KeyboardButton, 0, len(markup.Reply))
	for _, row := range markup.Reply {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, buttons)
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}
