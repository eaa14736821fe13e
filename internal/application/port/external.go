package port

import (
	"context"
	"errors"

	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

// MessageRef addresses a message previously sent to a chat
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Button is an inline control; exactly one of Data and URL is set
type Button struct {
	Text string
	Data string
	URL  string
}

// Markup describes the controls attached to a message. Inline rows are attached
// to the message itself; Reply rows replace the user's keyboard.
type Markup struct {
	Inline [][]Button
	Reply  [][]string
}

// Messenger is the chat transport used by the workflow
type Messenger interface {
	// SendText posts a text message; threadID 0 means the chat's main thread
	SendText(ctx context.Context, chatID int64, threadID int, text string, markup *Markup) (MessageRef, error)
	SendPhoto(ctx context.Context, chatID int64, threadID int, photoID, caption string, markup *Markup) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, markup *Markup) error
	EditCaption(ctx context.Context, ref MessageRef, caption string, markup *Markup) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// ErrWorksheetNotFound is returned by Ledger.Worksheet for unknown titles
var ErrWorksheetNotFound = errors.New("worksheet not found")

// LedgerStore opens spreadsheet ledgers by their external identifier
type LedgerStore interface {
	Open(ctx context.Context, ledgerID string) (Ledger, error)
}

// Ledger is a spreadsheet holding named worksheets
type Ledger interface {
	ID() string
	Worksheet(ctx context.Context, title string) (Worksheet, error)
	// AddWorksheet creates a worksheet at the given position, 0 being left-most
	AddWorksheet(ctx context.Context, title string, rows, cols, index int) (Worksheet, error)
}

// Worksheet is a single append-only sheet of a ledger
type Worksheet interface {
	Title() string
	Rows(ctx context.Context) ([][]string, error)
	Append(ctx context.Context, row []string) error
	Clear(ctx context.Context) error
	// WriteHeader writes the first row with the fixed header styling
	WriteHeader(ctx context.Context, header []string) error
}

// SessionStore keeps submission dialogues keyed by user id.
// Get returns (nil, nil) when the user has no live session.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*entity.Session, error)
	Save(ctx context.Context, session *entity.Session) error
	Delete(ctx context.Context, userID int64) error
}
