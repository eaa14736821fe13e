// Package dispatch relays a confirmed submission to its review group and
// mirrors it into the relational store and the spreadsheet ledgers.
package dispatch

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
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrGroupNotFound = errors.New("review group not found")
)

// Status classifies how far a dispatch got
type Status string

const (
	OutcomeFullySucceeded        Status = "fully_succeeded"
	OutcomeDeliveredNotPersisted Status = "delivered_not_persisted"
	OutcomePersistedNotLedgered  Status = "persisted_not_ledgered"
	OutcomeAborted               Status = "aborted"
)

// Outcome is the result of a dispatch. Err is set only for aborted dispatches;
// the other error fields record failures of the best-effort mirrors.
type Outcome struct {
	Status Status
	Report *entity.Report
	Err    error

	PersistErr  error
	CategoryErr error
	AllDataErr  error

	Category *ledger.Placement
	AllData  *ledger.Placement
}

// Delivered reports whether the review message reached the group
func (o Outcome) Delivered() bool {
	return o.Status != OutcomeAborted
}

func (o *Outcome) settle() {
	switch {
	case o.PersistErr != nil:
		o.Status = OutcomeDeliveredNotPersisted
	case o.CategoryErr != nil || o.AllDataErr != nil:
		o.Status = OutcomePersistedNotLedgered
	default:
		o.Status = OutcomeFullySucceeded
	}
}

// Deps are the collaborators of a Coordinator. Events may be nil.
type Deps struct {
	Users     port.UserRepository
	Groups    port.GroupRepository
	Ledgers   port.LedgerRepository
	Reports   port.ReportRepository
	Settings  port.SettingsRepository
	Sessions  port.SessionStore
	Messenger port.Messenger
	Router    *ledger.Router
	Events    dispatcher.Dispatcher
	Logger    Logger
	// Location is the time zone submission days are counted in
	Location *time.Location
}

// Coordinator runs the dispatch of a confirmed session
type Coordinator struct {
	deps Deps
	now  func() time.Time
}

// NewCoordinator creates a coordinator
func NewCoordinator(deps Deps) *Coordinator {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return &Coordinator{deps: deps, now: time.Now}
}

// SetClock replaces the time source
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// Dispatch relays the session's report to the user's review group, then
// persists and ledgers it. Only group resolution and delivery can abort;
// later steps are recorded in the outcome and never undo the delivery.
func (c *Coordinator) Dispatch(ctx context.Context, session *entity.Session, callbackID string) Outcome {
	d := c.deps

	group, err := c.resolveGroup(ctx, session.UserID)
	if err != nil {
		d.Logger.Error("Dispatch aborted", "user_id", session.UserID, "error", err)
		c.answer(ctx, callbackID, "❌ Guruh topilmadi. Administratorga murojaat qiling.", true)
		return Outcome{Status: OutcomeAborted, Err: err}
	}

	now := c.now().In(d.Location)
	report := &entity.Report{
		UserTelegramID: session.UserID,
		Fields:         session.Fields,
		Region:         session.Region,
		IsCapital:      session.IsCapital,
		ImageFileID:    session.ImageFileID,
		SubmissionDate: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.Location),
		SubmittedAt:    now,
		Status:         entity.StatusPending,
		ReviewChatID:   group.ChatID,
		LedgerID:       group.LedgerID,
	}
	categorySheet := ledger.DailyName(ledger.KindOf(report.IsCapital), report.SubmissionDate)
	regionLine := template.RegionLine(report.IsCapital, categorySheet)

	threadID := 0
	if group.ThreadID != nil {
		threadID = *group.ThreadID
	}
	caption := template.ReviewCaption(report.Fields, regionLine, report.Status)
	ref, err := d.Messenger.SendPhoto(ctx, group.ChatID, threadID, report.ImageFileID, caption, keyboard.Review())
	if err != nil {
		err = fmt.Errorf("failed to send review message: %w", err)
		d.Logger.Error("Dispatch aborted", "user_id", session.UserID, "group_chat_id", group.ChatID, "error", err)
		c.answer(ctx, callbackID, "❌ Hisobotni guruhga yuborib bo'lmadi: "+err.Error(), true)
		return Outcome{Status: OutcomeAborted, Err: err}
	}
	report.ReviewMessageID = ref.MessageID

	// The report is delivered; the remaining steps outlive the caller's deadline.
	ctx = context.WithoutCancel(ctx)

	out := Outcome{Report: report}

	if err := d.Reports.Create(ctx, report); err != nil {
		out.PersistErr = fmt.Errorf("failed to persist report: %w", err)
		d.Logger.Error("Report not persisted", "user_id", session.UserID, "review_message_id", ref.MessageID, "error", err)
	}

	c.writeLedgers(ctx, group, report, categorySheet, &out)
	out.settle()

	d.Logger.Info("Report dispatched",
		"report_id", report.ID,
		"user_id", session.UserID,
		"group_chat_id", group.ChatID,
		"outcome", out.Status,
	)

	c.finish(ctx, session, callbackID, report, regionLine)
	c.publish(ctx, report, out.Status)

	return out
}

func (c *Coordinator) resolveGroup(ctx context.Context, userID int64) (*entity.Group, error) {
	user, err := c.deps.Users.GetByTelegramID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.GroupChatID == nil {
		return nil, ErrGroupNotFound
	}

	group, err := c.deps.Groups.GetByChatID(ctx, *user.GroupChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group: %w", err)
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// writeLedgers appends the report to the group's category ledger and to the
// global all-data ledger. Each write is attempted on its own.
func (c *Coordinator) writeLedgers(ctx context.Context, group *entity.Group, report *entity.Report, categorySheet string, out *Outcome) {
	d := c.deps

	if group.LedgerID != nil {
		reg, err := d.Ledgers.GetByID(ctx, *group.LedgerID)
		switch {
		case err != nil:
			out.CategoryErr = fmt.Errorf("failed to load ledger registration: %w", err)
		case reg == nil || !reg.IsActive:
			d.Logger.Info("Category ledger inactive, skipping", "ledger_id", *group.LedgerID)
		default:
			placement, err := d.Router.AppendCategory(ctx, reg.SpreadsheetID, report)
			if err != nil {
				out.CategoryErr = err
			} else {
				out.Category = &placement
			}
		}
		if out.CategoryErr != nil {
			d.Logger.Error("Category ledger write failed", "report_id", report.ID, "sheet", categorySheet, "error", out.CategoryErr)
		}
	}

	allDataID, ok, err := d.Settings.Get(ctx, entity.SettingAllDataSpreadsheet)
	switch {
	case err != nil:
		out.AllDataErr = fmt.Errorf("failed to read all-data setting: %w", err)
	case ok && allDataID != "":
		placement, err := d.Router.AppendAllData(ctx, allDataID, report, categorySheet)
		if err != nil {
			out.AllDataErr = err
		} else {
			out.AllData = &placement
		}
	}
	if out.AllDataErr != nil {
		d.Logger.Error("All-data ledger write failed", "report_id", report.ID, "error", out.AllDataErr)
	}
}

func (c *Coordinator) finish(ctx context.Context, session *entity.Session, callbackID string, report *entity.Report, regionLine string) {
	d := c.deps

	if session.PreviewMessageID != 0 {
		preview := port.MessageRef{ChatID: session.ChatID, MessageID: session.PreviewMessageID}
		if err := d.Messenger.EditCaption(ctx, preview, template.SuccessSummary(report.Fields, regionLine), nil); err != nil {
			d.Logger.Error("Failed to update preview", "user_id", session.UserID, "error", err)
		}
	}
	if err := d.Sessions.Delete(ctx, session.UserID); err != nil {
		d.Logger.Error("Failed to clear session", "user_id", session.UserID, "error", err)
	}
	c.answer(ctx, callbackID, "✅ Hisobot yuborildi!", false)

	if _, err := d.Messenger.SendText(ctx, session.ChatID, 0, "🏠 Asosiy menyu", keyboard.MainMenu()); err != nil {
		d.Logger.Error("Failed to send main menu", "user_id", session.UserID, "error", err)
	}
}

func (c *Coordinator) answer(ctx context.Context, callbackID, text string, alert bool) {
	if callbackID == "" {
		return
	}
	if err := c.deps.Messenger.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		c.deps.Logger.Error("Failed to answer callback", "callback_id", callbackID, "error", err)
	}
}

func (c *Coordinator) publish(ctx context.Context, report *entity.Report, status Status) {
	if c.deps.Events == nil {
		return
	}
	evt := event.NewEvent(event.TypeReportDispatched, report.ID, map[string]interface{}{
		"user_id":           report.UserTelegramID,
		"review_chat_id":    report.ReviewChatID,
		"review_message_id": report.ReviewMessageID,
		"outcome":           string(status),
	})
	c.deps.Events.DispatchAsync(ctx, evt)
}
