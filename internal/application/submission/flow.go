// Package submission drives the per-user report submission dialogue.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/sales-report-bot/internal/application/dispatch"
	"github.com/garyjia/sales-report-bot/internal/application/keyboard"
	"github.com/garyjia/sales-report-bot/internal/application/ledger"
	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
	"github.com/garyjia/sales-report-bot/internal/domain/region"
	"github.com/garyjia/sales-report-bot/internal/domain/template"
	"github.com/garyjia/sales-report-bot/internal/domain/workflow"
)

// Logger is the logging dependency of the flow
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Entry guard errors
var (
	ErrUserNotRegistered = errors.New("user is not registered")
	ErrUserBlocked       = errors.New("user is blocked")
	ErrNoAssignedGroup   = errors.New("user has no review group")
)

// ErrNoSession is returned when a callback arrives without a matching dialogue
var ErrNoSession = errors.New("no active submission")

// Message is an inbound chat message from a user
type Message struct {
	UserID      int64
	ChatID      int64
	MessageID   int
	Text        string
	PhotoFileID string
}

// Callback is an inline button press
type Callback struct {
	ID        string
	UserID    int64
	ChatID    int64
	MessageID int
	Data      string
}

// Dispatcher relays a confirmed session
type Dispatcher interface {
	Dispatch(ctx context.Context, session *entity.Session, callbackID string) dispatch.Outcome
}

// Flow is the submission dialogue. Each operation loads the user's session,
// fires the matching transition and saves the session back.
type Flow struct {
	users      port.UserRepository
	reports    port.ReportRepository
	sessions   port.SessionStore
	messenger  port.Messenger
	dispatcher Dispatcher
	logger     Logger
	location   *time.Location
	now        func() time.Time
}

// NewFlow creates a submission flow
func NewFlow(
	users port.UserRepository,
	reports port.ReportRepository,
	sessions port.SessionStore,
	messenger port.Messenger,
	dispatcher Dispatcher,
	location *time.Location,
	logger Logger,
) *Flow {
	if location == nil {
		location = time.Local
	}
	return &Flow{
		users:      users,
		reports:    reports,
		sessions:   sessions,
		messenger:  messenger,
		dispatcher: dispatcher,
		logger:     logger,
		location:   location,
		now:        time.Now,
	}
}

// SetClock replaces the time source
func (f *Flow) SetClock(now func() time.Time) {
	f.now = now
}

func (f *Flow) today() time.Time {
	return f.now().In(f.location)
}

func (f *Flow) regionLine(isCapital bool) string {
	return template.RegionLine(isCapital, ledger.DailyName(ledger.KindOf(isCapital), f.today()))
}

// Welcome greets the user and names today's worksheets
func (f *Flow) Welcome(ctx context.Context, msg Message) error {
	user, err := f.users.GetByTelegramID(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		_, err := f.messenger.SendText(ctx, msg.ChatID, 0,
			fmt.Sprintf("❌ Siz ro'yxatdan o'tmagansiz.\n\nID: %d\nAdministratorga murojaat qiling.", msg.UserID), nil)
		return err
	}

	day := f.today()
	text := fmt.Sprintf("👋 Assalomu alaykum, %s!\n\nBugungi hisobotlar:\n🏙️ %s\n📍 %s\n\nHisobot topshirish uchun \"%s\" tugmasini bosing.",
		user.FullName,
		ledger.DailyName(ledger.KindCapital, day),
		ledger.DailyName(ledger.KindProvince, day),
		keyboard.MenuSubmit,
	)
	_, err = f.messenger.SendText(ctx, msg.ChatID, 0, text, keyboard.MainMenu())
	return err
}

// Start opens a new submission after the entry guards pass. Any previous
// session of the user is discarded.
func (f *Flow) Start(ctx context.Context, msg Message) error {
	if err := f.guard(ctx, msg); err != nil {
		return err
	}

	if old, err := f.sessions.Get(ctx, msg.UserID); err == nil && old != nil {
		f.cleanup(ctx, old.ChatID, old.PromptMessageID, old.PreviewMessageID)
	}

	s := entity.NewSession(msg.UserID, msg.ChatID, f.now())
	ref, err := f.messenger.SendText(ctx, msg.ChatID, 0, "🌍 Hududni tanlang:", keyboard.Regions())
	if err != nil {
		return fmt.Errorf("failed to send region menu: %w", err)
	}
	s.PromptMessageID = ref.MessageID

	f.logger.Info("Submission started", "user_id", msg.UserID)
	return f.save(ctx, s)
}

func (f *Flow) guard(ctx context.Context, msg Message) error {
	user, err := f.users.GetByTelegramID(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	var guardErr error
	var notice string
	switch {
	case user == nil:
		guardErr, notice = ErrUserNotRegistered, "❌ Siz ro'yxatdan o'tmagansiz. Administratorga murojaat qiling."
	case user.IsBlocked:
		guardErr, notice = ErrUserBlocked, "🚫 Siz bloklangansiz. Administratorga murojaat qiling."
	case user.GroupChatID == nil:
		guardErr, notice = ErrNoAssignedGroup, "❌ Sizga guruh biriktirilmagan. Administratorga murojaat qiling."
	default:
		return nil
	}

	if _, err := f.messenger.SendText(ctx, msg.ChatID, 0, notice, nil); err != nil {
		f.logger.Error("Failed to send guard notice", "user_id", msg.UserID, "error", err)
	}
	f.logger.Info("Submission refused", "user_id", msg.UserID, "reason", guardErr)
	return guardErr
}

// SelectRegion stores the chosen region and presents the template skeleton.
// Presses outside region selection or for unknown regions are ignored.
func (f *Flow) SelectRegion(ctx context.Context, cb Callback, regionName string) error {
	s, err := f.sessions.Get(ctx, cb.UserID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil || s.Step != workflow.StateRegionSelect || !region.IsKnown(regionName) {
		f.answer(ctx, cb.ID, "", false)
		return nil
	}

	if err := fire(ctx, s, workflow.TriggerSelectRegion); err != nil {
		return err
	}
	s.Region = regionName
	s.IsCapital = region.IsCapital(regionName)
	f.answer(ctx, cb.ID, "", false)

	f.cleanup(ctx, s.ChatID, s.PromptMessageID)
	text := fmt.Sprintf("📍 Hudud: %s\n\nQuyidagi shablonni nusxalab, to'ldirib yuboring:\n\n%s", regionName, template.Skeleton(regionName))
	ref, err := f.messenger.SendText(ctx, s.ChatID, 0, text, keyboard.Cancel())
	if err != nil {
		return fmt.Errorf("failed to send template: %w", err)
	}
	s.PromptMessageID = ref.MessageID

	return f.save(ctx, s)
}

// HandleMessage feeds free input to the dialogue. Messages outside template
// or image entry are ignored.
func (f *Flow) HandleMessage(ctx context.Context, msg Message) error {
	s, err := f.sessions.Get(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil {
		return nil
	}

	switch s.Step {
	case workflow.StateTemplateEntry:
		return f.acceptTemplate(ctx, s, msg)
	case workflow.StateImageEntry:
		return f.acceptImage(ctx, s, msg)
	default:
		return nil
	}
}

func (f *Flow) acceptTemplate(ctx context.Context, s *entity.Session, msg Message) error {
	if strings.TrimSpace(msg.Text) == "" {
		return f.reprompt(ctx, s, msg, "❌ Iltimos, to'ldirilgan shablonni matn ko'rinishida yuboring.\n\n"+template.Skeleton(s.Region))
	}

	fields, err := template.Parse(msg.Text)
	if err != nil {
		var incomplete *template.IncompleteError
		if !errors.As(err, &incomplete) {
			return err
		}
		text := fmt.Sprintf("❌ Quyidagi maydonlar to'ldirilmagan: %s\n\nShablonni qayta yuboring:\n\n%s",
			strings.Join(incomplete.Missing, ", "), template.Skeleton(s.Region))
		return f.reprompt(ctx, s, msg, text)
	}

	if err := fire(ctx, s, workflow.TriggerTemplateAccepted); err != nil {
		return err
	}
	s.Fields = template.Finalize(fields, s.Region)
	if !template.ValidatePhone(s.Fields.Phone) {
		f.logger.Info("Phone number looks short", "user_id", s.UserID, "phone", s.Fields.Phone)
	}

	f.cleanup(ctx, s.ChatID, s.PromptMessageID, s.ReplyMessageID, msg.MessageID)
	s.ReplyMessageID = 0
	ref, err := f.messenger.SendText(ctx, s.ChatID, 0, "📸 Endi shartnoma rasmini yuboring:", keyboard.Cancel())
	if err != nil {
		return fmt.Errorf("failed to send image prompt: %w", err)
	}
	s.PromptMessageID = ref.MessageID

	return f.save(ctx, s)
}

func (f *Flow) acceptImage(ctx context.Context, s *entity.Session, msg Message) error {
	if msg.PhotoFileID == "" {
		return f.reprompt(ctx, s, msg, "❌ Iltimos, rasm yuboring.")
	}

	if err := fire(ctx, s, workflow.TriggerImageAttached); err != nil {
		return err
	}
	s.ImageFileID = msg.PhotoFileID

	f.cleanup(ctx, s.ChatID, s.PromptMessageID, s.ReplyMessageID, msg.MessageID)
	s.PromptMessageID, s.ReplyMessageID = 0, 0

	caption := template.PreviewCaption(s.Fields, f.regionLine(s.IsCapital))
	ref, err := f.messenger.SendPhoto(ctx, s.ChatID, 0, s.ImageFileID, caption, keyboard.Confirmation())
	if err != nil {
		return fmt.Errorf("failed to send preview: %w", err)
	}
	s.PreviewMessageID = ref.MessageID

	return f.save(ctx, s)
}

// reprompt keeps the state, replaces the previous prompt and remembers the
// rejected reply so the next turn can remove it.
func (f *Flow) reprompt(ctx context.Context, s *entity.Session, msg Message, text string) error {
	f.cleanup(ctx, s.ChatID, s.PromptMessageID, s.ReplyMessageID)
	s.ReplyMessageID = msg.MessageID

	ref, err := f.messenger.SendText(ctx, s.ChatID, 0, text, keyboard.Cancel())
	if err != nil {
		return fmt.Errorf("failed to send prompt: %w", err)
	}
	s.PromptMessageID = ref.MessageID

	return f.save(ctx, s)
}

// Confirm hands a previewed report to the dispatcher
func (f *Flow) Confirm(ctx context.Context, cb Callback) (dispatch.Outcome, error) {
	s, err := f.stepSession(ctx, cb, workflow.TriggerDispatch)
	if err != nil {
		return dispatch.Outcome{Status: dispatch.OutcomeAborted, Err: err}, err
	}

	out := f.dispatcher.Dispatch(ctx, s, cb.ID)
	if !out.Delivered() {
		return out, out.Err
	}
	return out, nil
}

// Edit opens the field picker on the preview
func (f *Flow) Edit(ctx context.Context, cb Callback) error {
	s, err := f.stepSession(ctx, cb, workflow.TriggerEdit)
	if err != nil {
		return err
	}
	if err := fire(ctx, s, workflow.TriggerEdit); err != nil {
		return err
	}

	f.answer(ctx, cb.ID, "", false)
	if err := f.renderPreview(ctx, s, "✏️ Qaysi maydonni tahrirlaysiz?\n\n", keyboard.EditPicker()); err != nil {
		return err
	}
	return f.save(ctx, s)
}

// EditField acknowledges a field choice and returns to the unchanged preview.
// Per-field editing is not offered yet.
func (f *Flow) EditField(ctx context.Context, cb Callback, field string) error {
	s, err := f.stepSession(ctx, cb, workflow.TriggerBackToConfirm)
	if err != nil {
		return err
	}
	if err := fire(ctx, s, workflow.TriggerBackToConfirm); err != nil {
		return err
	}

	f.logger.Info("Field edit requested", "user_id", cb.UserID, "field", field)
	f.answer(ctx, cb.ID, "✏️ Maydonni tahrirlash hozircha mavjud emas. Hisobotni bekor qilib, qaytadan topshiring.", true)
	if err := f.renderPreview(ctx, s, "", keyboard.Confirmation()); err != nil {
		return err
	}
	return f.save(ctx, s)
}

// BackToConfirm leaves the field picker and re-renders the preview
func (f *Flow) BackToConfirm(ctx context.Context, cb Callback) error {
	s, err := f.stepSession(ctx, cb, workflow.TriggerBackToConfirm)
	if err != nil {
		return err
	}
	if err := fire(ctx, s, workflow.TriggerBackToConfirm); err != nil {
		return err
	}

	f.answer(ctx, cb.ID, "", false)
	if err := f.renderPreview(ctx, s, "", keyboard.Confirmation()); err != nil {
		return err
	}
	return f.save(ctx, s)
}

// CancelReport drops a previewed report and returns to the main menu
func (f *Flow) CancelReport(ctx context.Context, cb Callback) error {
	s, err := f.stepSession(ctx, cb, workflow.TriggerCancel)
	if err != nil {
		return err
	}
	if err := fire(ctx, s, workflow.TriggerCancel); err != nil {
		return err
	}

	f.answer(ctx, cb.ID, "", false)
	return f.close(ctx, s, "❌ Hisobot bekor qilindi.")
}

// Abort leaves the dialogue from any active step. An empty callback id means
// the abort came from a command rather than a button.
func (f *Flow) Abort(ctx context.Context, cb Callback) error {
	s, err := f.sessions.Get(ctx, cb.UserID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil {
		f.answer(ctx, cb.ID, "", false)
		_, err := f.messenger.SendText(ctx, cb.ChatID, 0, "Faol hisobot yo'q.", keyboard.MainMenu())
		return err
	}
	if err := fire(ctx, s, workflow.TriggerAbort); err != nil {
		return err
	}

	f.answer(ctx, cb.ID, "", false)
	return f.close(ctx, s, "🚫 Hisobot topshirish bekor qilindi.")
}

// MySales summarises the user's reports by review status
func (f *Flow) MySales(ctx context.Context, msg Message) error {
	counts := make(map[string]int, 3)
	for _, status := range []string{entity.StatusPending, entity.StatusConfirmed, entity.StatusRejected} {
		n, err := f.reports.Count(ctx, port.ReportFilter{UserTelegramID: msg.UserID, Status: status})
		if err != nil {
			return fmt.Errorf("failed to count reports: %w", err)
		}
		counts[status] = n
	}

	day := f.today()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, f.location)
	today, err := f.reports.Count(ctx, port.ReportFilter{UserTelegramID: msg.UserID, From: start, To: start.AddDate(0, 0, 1)})
	if err != nil {
		return fmt.Errorf("failed to count reports: %w", err)
	}

	text := fmt.Sprintf("📊 Sotuvlarim\n\nBugun: %d\n%s: %d\n%s: %d\n%s: %d\nJami: %d",
		today,
		template.MarkPending, counts[entity.StatusPending],
		template.MarkConfirmed, counts[entity.StatusConfirmed],
		template.MarkRejected, counts[entity.StatusRejected],
		counts[entity.StatusPending]+counts[entity.StatusConfirmed]+counts[entity.StatusRejected],
	)
	_, err = f.messenger.SendText(ctx, msg.ChatID, 0, text, keyboard.MainMenu())
	return err
}

// stepSession loads the user's session and checks that trigger is permitted
// from its step. The callback is answered when it is not.
func (f *Flow) stepSession(ctx context.Context, cb Callback, trigger workflow.Trigger) (*entity.Session, error) {
	s, err := f.sessions.Get(ctx, cb.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil {
		f.answer(ctx, cb.ID, "⌛ Sessiya tugagan. Qaytadan boshlang.", true)
		return nil, ErrNoSession
	}
	if !workflow.NewSubmissionMachine(s.Step).CanFire(trigger) {
		f.answer(ctx, cb.ID, "", false)
		return nil, fmt.Errorf("%w: %s from %s", workflow.ErrInvalidTransition, trigger, s.Step)
	}
	return s, nil
}

func (f *Flow) renderPreview(ctx context.Context, s *entity.Session, prefix string, markup *port.Markup) error {
	ref := port.MessageRef{ChatID: s.ChatID, MessageID: s.PreviewMessageID}
	caption := prefix + template.PreviewCaption(s.Fields, f.regionLine(s.IsCapital))
	if err := f.messenger.EditCaption(ctx, ref, caption, markup); err != nil {
		return fmt.Errorf("failed to update preview: %w", err)
	}
	return nil
}

// close ends the dialogue and shows the main menu
func (f *Flow) close(ctx context.Context, s *entity.Session, text string) error {
	f.cleanup(ctx, s.ChatID, s.PromptMessageID, s.ReplyMessageID, s.PreviewMessageID)
	if err := f.sessions.Delete(ctx, s.UserID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	f.logger.Info("Submission closed", "user_id", s.UserID, "state", s.Step)

	_, err := f.messenger.SendText(ctx, s.ChatID, 0, text, keyboard.MainMenu())
	return err
}

// cleanup deletes earlier dialogue messages; zero ids are skipped and
// failures only logged
func (f *Flow) cleanup(ctx context.Context, chatID int64, messageIDs ...int) {
	for _, id := range messageIDs {
		if id == 0 {
			continue
		}
		if err := f.messenger.DeleteMessage(ctx, port.MessageRef{ChatID: chatID, MessageID: id}); err != nil {
			f.logger.Debug("Message cleanup failed", "chat_id", chatID, "message_id", id, "error", err)
		}
	}
}

func (f *Flow) answer(ctx context.Context, callbackID, text string, alert bool) {
	if callbackID == "" {
		return
	}
	if err := f.messenger.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		f.logger.Debug("Callback answer failed", "callback_id", callbackID, "error", err)
	}
}

func (f *Flow) save(ctx context.Context, s *entity.Session) error {
	s.UpdatedAt = f.now()
	if err := f.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func fire(ctx context.Context, s *entity.Session, trigger workflow.Trigger) error {
	machine := workflow.NewSubmissionMachine(s.Step)
	if err := machine.Fire(ctx, trigger); err != nil {
		return err
	}
	s.Step = machine.State()
	return nil
}
