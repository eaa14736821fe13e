// Package telegram translates Telegram updates into application calls.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyjia/sales-report-bot/internal/application/dispatch"
	"github.com/garyjia/sales-report-bot/internal/application/keyboard"
	"github.com/garyjia/sales-report-bot/internal/application/ledger"
	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/application/service"
	"github.com/garyjia/sales-report-bot/internal/application/submission"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
	"github.com/garyjia/sales-report-bot/internal/domain/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SubmissionFlow is the seller dialogue
type SubmissionFlow interface {
	Welcome(ctx context.Context, msg submission.Message) error
	Start(ctx context.Context, msg submission.Message) error
	HandleMessage(ctx context.Context, msg submission.Message) error
	MySales(ctx context.Context, msg submission.Message) error
	SelectRegion(ctx context.Context, cb submission.Callback, regionName string) error
	Confirm(ctx context.Context, cb submission.Callback) (dispatch.Outcome, error)
	Edit(ctx context.Context, cb submission.Callback) error
	EditField(ctx context.Context, cb submission.Callback, field string) error
	BackToConfirm(ctx context.Context, cb submission.Callback) error
	CancelReport(ctx context.Context, cb submission.Callback) error
	Abort(ctx context.Context, cb submission.Callback) error
}

// Reviews resolves reports from the review group
type Reviews interface {
	Review(ctx context.Context, action service.ReviewAction, decision service.Decision) (*entity.Report, error)
	ContactReviewer(ctx context.Context, action service.ReviewAction, reviewerID int64) error
	AcknowledgeConfirmed(ctx context.Context, action service.ReviewAction)
}

// Settings manages the all-data ledger
type Settings interface {
	SetAllData(ctx context.Context, actorID int64, input string) (string, error)
	ResetAllData(ctx context.Context, actorID int64) (bool, error)
	AllDataStatus(ctx context.Context, actorID int64) (*service.AllDataStatus, error)
}

// Handler routes updates to the submission flow, the review service and the
// settings commands.
type Handler struct {
	flow      SubmissionFlow
	reviews   Reviews
	settings  Settings
	messenger port.Messenger
	logger    Logger
}

// NewHandler creates an update handler
func NewHandler(flow SubmissionFlow, reviews Reviews, settings Settings, messenger port.Messenger, logger Logger) *Handler {
	return &Handler{
		flow:      flow,
		reviews:   reviews,
		settings:  settings,
		messenger: messenger,
		logger:    logger,
	}
}

// HandleWebhook decodes a webhook body and handles the update
func (h *Handler) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("failed to decode update: %w", err)
	}
	return h.HandleUpdate(ctx, update)
}

// HandleUpdate handles a single update. Errors the user has already been told
// about are logged and swallowed.
func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	var err error
	switch {
	case update.CallbackQuery != nil:
		err = h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		err = h.handleMessage(ctx, update.Message)
	default:
		return nil
	}

	if err == nil {
		return nil
	}
	if expected(err) {
		h.logger.Info("Update refused", "update_id", update.UpdateID, "reason", err.Error())
		return nil
	}
	h.logger.Error("Update handling failed", "update_id", update.UpdateID, "error", err)
	return err
}

func expected(err error) bool {
	for _, target := range []error{
		submission.ErrUserNotRegistered,
		submission.ErrUserBlocked,
		submission.ErrNoAssignedGroup,
		submission.ErrNoSession,
		workflow.ErrInvalidTransition,
		service.ErrNotPrivileged,
		service.ErrReportNotFound,
		service.ErrAlreadyResolved,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (h *Handler) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	msg := submission.Message{
		UserID:    m.From.ID,
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
	}
	if n := len(m.Photo); n > 0 {
		msg.PhotoFileID = m.Photo[n-1].FileID
	}

	if m.IsCommand() {
		return h.handleCommand(ctx, m, msg)
	}
	// group chats only carry review traffic
	if !m.Chat.IsPrivate() {
		return nil
	}

	switch strings.TrimSpace(m.Text) {
	case keyboard.MenuSubmit:
		return h.flow.Start(ctx, msg)
	case keyboard.MenuMySales:
		return h.flow.MySales(ctx, msg)
	default:
		return h.flow.HandleMessage(ctx, msg)
	}
}

func (h *Handler) handleCommand(ctx context.Context, m *tgbotapi.Message, msg submission.Message) error {
	switch m.Command() {
	case "start":
		if !m.Chat.IsPrivate() {
			return nil
		}
		return h.flow.Welcome(ctx, msg)
	case "cancel":
		if !m.Chat.IsPrivate() {
			return nil
		}
		return h.flow.Abort(ctx, submission.Callback{UserID: msg.UserID, ChatID: msg.ChatID})
	case "mysales":
		return h.flow.MySales(ctx, msg)
	case "alldata":
		if args := strings.TrimSpace(m.CommandArguments()); args != "" {
			return h.setAllData(ctx, msg, args)
		}
		return h.allDataStatus(ctx, msg)
	case "alldata_status":
		return h.allDataStatus(ctx, msg)
	case "alldata_reset":
		return h.resetAllData(ctx, msg)
	default:
		return nil
	}
}

func (h *Handler) setAllData(ctx context.Context, msg submission.Message, input string) error {
	id, err := h.settings.SetAllData(ctx, msg.UserID, input)
	switch {
	case err == nil:
		return h.reply(ctx, msg, fmt.Sprintf("✅ ALL DATA jadvali o'rnatildi.\n\nID: %s", id))
	case errors.Is(err, service.ErrNotPrivileged):
		return h.refuse(ctx, msg, err)
	case errors.Is(err, ledger.ErrInvalidLedgerID):
		return h.reply(ctx, msg, "❌ Noto'g'ri havola yoki ID.\n\nFoydalanish: /alldata <Google Sheets havolasi yoki ID>")
	case errors.Is(err, service.ErrLedgerUnreachable):
		h.logger.Info("All-data ledger rejected", "user_id", msg.UserID, "reason", err.Error())
		return h.reply(ctx, msg, "❌ Jadvalga ulanib bo'lmadi. Bot hisobiga tahrirlash ruxsati berilganini tekshiring.")
	default:
		h.replyQuietly(ctx, msg, "❌ Sozlamani saqlashda xato.")
		return err
	}
}

func (h *Handler) resetAllData(ctx context.Context, msg submission.Message) error {
	cleared, err := h.settings.ResetAllData(ctx, msg.UserID)
	switch {
	case errors.Is(err, service.ErrNotPrivileged):
		return h.refuse(ctx, msg, err)
	case err != nil:
		h.replyQuietly(ctx, msg, "❌ Sozlamani o'chirishda xato.")
		return err
	case !cleared:
		return h.reply(ctx, msg, "ℹ️ ALL DATA jadvali sozlanmagan.")
	default:
		return h.reply(ctx, msg, "✅ ALL DATA jadvali o'chirildi.")
	}
}

func (h *Handler) allDataStatus(ctx context.Context, msg submission.Message) error {
	status, err := h.settings.AllDataStatus(ctx, msg.UserID)
	switch {
	case errors.Is(err, service.ErrNotPrivileged):
		return h.refuse(ctx, msg, err)
	case err != nil:
		h.replyQuietly(ctx, msg, "❌ ALL DATA jadvalini o'qishda xato.")
		return err
	case status == nil:
		return h.reply(ctx, msg, "ℹ️ ALL DATA jadvali sozlanmagan.\n\nO'rnatish: /alldata <Google Sheets havolasi yoki ID>")
	}

	return h.reply(ctx, msg, fmt.Sprintf(
		"📊 ALL DATA\n\nID: %s\nVaraq: %s\nJami: %d\n🏙️ Toshkent: %d\n📍 Viloyatlar: %d",
		status.SpreadsheetID, status.Sheet, status.Total, status.Capital, status.Province))
}

func (h *Handler) refuse(ctx context.Context, msg submission.Message, err error) error {
	h.replyQuietly(ctx, msg, "🚫 Sizda bu buyruq uchun ruxsat yo'q.")
	return err
}

func (h *Handler) reply(ctx context.Context, msg submission.Message, text string) error {
	_, err := h.messenger.SendText(ctx, msg.ChatID, 0, text, nil)
	return err
}

func (h *Handler) replyQuietly(ctx context.Context, msg submission.Message, text string) {
	if err := h.reply(ctx, msg, text); err != nil {
		h.logger.Error("Failed to send reply", "chat_id", msg.ChatID, "error", err)
	}
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q.Message == nil || q.Message.Chat == nil {
		return h.messenger.AnswerCallback(ctx, q.ID, "", false)
	}

	cb := submission.Callback{
		ID:        q.ID,
		UserID:    q.From.ID,
		ChatID:    q.Message.Chat.ID,
		MessageID: q.Message.MessageID,
		Data:      q.Data,
	}
	action := service.ReviewAction{
		CallbackID: q.ID,
		ReviewerID: q.From.ID,
		ChatID:     cb.ChatID,
		MessageID:  cb.MessageID,
	}

	switch data := q.Data; {
	case strings.HasPrefix(data, keyboard.RegionPrefix):
		return h.flow.SelectRegion(ctx, cb, strings.TrimPrefix(data, keyboard.RegionPrefix))
	case data == keyboard.CancelSubmission:
		return h.flow.Abort(ctx, cb)
	case data == keyboard.ConfirmReport:
		return h.confirm(ctx, cb)
	case data == keyboard.EditReport:
		return h.flow.Edit(ctx, cb)
	case data == keyboard.CancelReport:
		return h.flow.CancelReport(ctx, cb)
	case data == keyboard.BackToConfirm:
		return h.flow.BackToConfirm(ctx, cb)
	case data == keyboard.ApproveReview:
		_, err := h.reviews.Review(ctx, action, service.DecisionApprove)
		return err
	case data == keyboard.RejectReview:
		_, err := h.reviews.Review(ctx, action, service.DecisionReject)
		return err
	case data == keyboard.ConfirmedNoop:
		h.reviews.AcknowledgeConfirmed(ctx, action)
		return nil
	case strings.HasPrefix(data, keyboard.ContactPrefix):
		reviewerID, err := strconv.ParseInt(strings.TrimPrefix(data, keyboard.ContactPrefix), 10, 64)
		if err != nil {
			h.answerQuietly(ctx, q.ID)
			return fmt.Errorf("malformed contact callback %q: %w", data, err)
		}
		return h.reviews.ContactReviewer(ctx, action, reviewerID)
	}

	if field, ok := keyboard.IsEditField(q.Data); ok {
		return h.flow.EditField(ctx, cb, field)
	}

	h.logger.Info("Unknown callback", "data", q.Data, "user_id", q.From.ID)
	h.answerQuietly(ctx, q.ID)
	return nil
}

func (h *Handler) confirm(ctx context.Context, cb submission.Callback) error {
	out, err := h.flow.Confirm(ctx, cb)
	if out.Report != nil {
		h.logger.Info("Report dispatched",
			"user_id", cb.UserID,
			"report_id", out.Report.ID,
			"outcome", string(out.Status))
	}
	return err
}

func (h *Handler) answerQuietly(ctx context.Context, callbackID string) {
	if err := h.messenger.AnswerCallback(ctx, callbackID, "", false); err != nil {
		h.logger.Error("Failed to answer callback", "callback_id", callbackID, "error", err)
	}
}
