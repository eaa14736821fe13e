package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/sales-report-bot/internal/application/dispatcher"
	"github.com/garyjia/sales-report-bot/internal/application/keyboard"
	"github.com/garyjia/sales-report-bot/internal/application/ledger"
	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
	"github.com/garyjia/sales-report-bot/internal/domain/event"
	"github.com/garyjia/sales-report-bot/internal/domain/template"
	"github.com/garyjia/sales-report-bot/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	ErrNotPrivileged     = errors.New("actor is not a privileged reviewer")
	ErrReportNotFound    = errors.New("report not found for review message")
	ErrAlreadyResolved   = errors.New("report already resolved")
	ErrReviewMessageEdit = errors.New("failed to update review message")
)

// Decision is a reviewer verdict
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ReviewAction is a reviewer's button press on a review message
type ReviewAction struct {
	CallbackID string
	ReviewerID int64
	ChatID     int64
	MessageID  int
}

// Privileged is the set of reviewer ids allowed to resolve reports
type Privileged map[int64]bool

// NewPrivileged builds the reviewer set, skipping zero ids
func NewPrivileged(ids ...int64) Privileged {
	p := make(Privileged, len(ids))
	for _, id := range ids {
		if id != 0 {
			p[id] = true
		}
	}
	return p
}

// Has reports whether id may act as a reviewer
func (p Privileged) Has(id int64) bool {
	return p[id]
}

// ReviewService moves reports through the review lifecycle
type ReviewService struct {
	reports    port.ReportRepository
	messenger  port.Messenger
	events     dispatcher.Dispatcher
	privileged Privileged
	logger     Logger
	now        func() time.Time
}

// NewReviewService creates a ReviewService; events may be nil
func NewReviewService(
	reports port.ReportRepository,
	messenger port.Messenger,
	events dispatcher.Dispatcher,
	privileged Privileged,
	logger Logger,
) *ReviewService {
	return &ReviewService{
		reports:    reports,
		messenger:  messenger,
		events:     events,
		privileged: privileged,
		logger:     logger,
		now:        time.Now,
	}
}

// Review applies a reviewer decision to the report behind a review message.
// The stored status is the source of truth: the caption is rebuilt from it
// and the controls swapped for the resolved state.
func (s *ReviewService) Review(ctx context.Context, action ReviewAction, decision Decision) (*entity.Report, error) {
	if !s.privileged.Has(action.ReviewerID) {
		s.answer(ctx, action.CallbackID, "🚫 Sizda bu amalni bajarish uchun ruxsat yo'q.", true)
		return nil, ErrNotPrivileged
	}

	report, err := s.reports.GetByReviewMessage(ctx, action.ChatID, action.MessageID)
	if err != nil {
		s.answer(ctx, action.CallbackID, "❌ Hisobotni o'qishda xato", true)
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if report == nil {
		s.answer(ctx, action.CallbackID, "❌ Hisobot topilmadi", true)
		return nil, ErrReportNotFound
	}
	if !report.IsPending() {
		s.answer(ctx, action.CallbackID, "ℹ️ Bu hisobot allaqachon ko'rib chiqilgan", false)
		return report, ErrAlreadyResolved
	}

	trigger, evtType := workflow.TriggerApprove, event.TypeReportConfirmed
	if decision == DecisionReject {
		trigger, evtType = workflow.TriggerReject, event.TypeReportRejected
	}
	machine := workflow.NewReviewMachine(workflow.StatePending)
	if err := machine.Fire(ctx, trigger); err != nil {
		return report, err
	}
	status := statusOf(machine.State())

	at := s.now()
	resolved, err := s.reports.Resolve(ctx, report.ID, status, action.ReviewerID, at)
	if err != nil {
		s.answer(ctx, action.CallbackID, "❌ Holatni saqlashda xato", true)
		return report, fmt.Errorf("failed to resolve report %d: %w", report.ID, err)
	}
	if !resolved {
		s.answer(ctx, action.CallbackID, "ℹ️ Bu hisobot allaqachon ko'rib chiqilgan", false)
		return report, ErrAlreadyResolved
	}

	report.Status = status
	report.ReviewerID = &action.ReviewerID
	report.ReviewedAt = &at

	s.logger.Info("Report reviewed",
		"report_id", report.ID,
		"status", status,
		"reviewer_id", action.ReviewerID,
	)
	s.publish(ctx, evtType, report)

	if err := s.renderReview(ctx, report); err != nil {
		s.logger.Error("Review message not updated", "report_id", report.ID, "error", err)
		s.answer(ctx, action.CallbackID, "⚠️ Xabarni yangilashda xato", true)
		return report, fmt.Errorf("%w: %v", ErrReviewMessageEdit, err)
	}

	if status == entity.StatusConfirmed {
		s.answer(ctx, action.CallbackID, "✅ Hisobot tasdiqlandi!", false)
	} else {
		s.answer(ctx, action.CallbackID, "❌ Hisobot rad etildi!", false)
	}
	return report, nil
}

// renderReview rebuilds the review caption and controls from the stored report
func (s *ReviewService) renderReview(ctx context.Context, report *entity.Report) error {
	sheet := ledger.DailyName(ledger.KindOf(report.IsCapital), report.SubmissionDate)
	caption := template.ReviewCaption(report.Fields, template.RegionLine(report.IsCapital, sheet), report.Status)

	markup := keyboard.Confirmed()
	if report.Status == entity.StatusRejected && report.ReviewerID != nil {
		markup = keyboard.Rejected(*report.ReviewerID)
	}

	ref := port.MessageRef{ChatID: report.ReviewChatID, MessageID: report.ReviewMessageID}
	return s.messenger.EditCaption(ctx, ref, caption, markup)
}

// ContactReviewer answers the "ask why" control of a rejected report with a
// direct link to the reviewer who rejected it.
func (s *ReviewService) ContactReviewer(ctx context.Context, action ReviewAction, reviewerID int64) error {
	_, err := s.messenger.SendText(ctx, action.ChatID, 0,
		"📞 Hisobotingiz rad etildi. Sababini bilish uchun quyidagi tugmani bosing:",
		keyboard.ContactLink(reviewerID))
	s.answer(ctx, action.CallbackID, "", false)
	if err != nil {
		return fmt.Errorf("failed to send reviewer contact: %w", err)
	}
	return nil
}

// AcknowledgeConfirmed answers a press on the resolved-report control
func (s *ReviewService) AcknowledgeConfirmed(ctx context.Context, action ReviewAction) {
	s.answer(ctx, action.CallbackID, "✅ Bu hisobot allaqachon yuborilgan", false)
}

func (s *ReviewService) answer(ctx context.Context, callbackID, text string, alert bool) {
	if callbackID == "" {
		return
	}
	if err := s.messenger.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		s.logger.Error("Failed to answer callback", "callback_id", callbackID, "error", err)
	}
}

func (s *ReviewService) publish(ctx context.Context, t event.Type, report *entity.Report) {
	if s.events == nil {
		return
	}
	evt := event.NewEvent(t, report.ID, map[string]interface{}{
		"reviewer_id":    *report.ReviewerID,
		"user_id":        report.UserTelegramID,
		"review_chat_id": report.ReviewChatID,
	})
	s.events.DispatchAsync(ctx, evt)
}

func statusOf(state workflow.State) string {
	switch state {
	case workflow.StateConfirmed:
		return entity.StatusConfirmed
	case workflow.StateRejected:
		return entity.StatusRejected
	default:
		return entity.StatusPending
	}
}
