// Package ledgertest provides an in-memory ledger store for tests.
package ledgertest

import (
	"context"
	"errors"
	"sync"

	"github.com/garyjia/sales-report-bot/internal/application/port"
)

// Store is an in-memory port.LedgerStore. Ledgers are created on first open.
type Store struct {
	mu      sync.Mutex
	ledgers map[string]*Ledger

	// FailOpen makes Open fail for the listed ledger ids
	FailOpen map[string]error
	// FailAppend makes Append fail for the listed worksheet titles
	FailAppend map[string]error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		ledgers:    make(map[string]*Ledger),
		FailOpen:   make(map[string]error),
		FailAppend: make(map[string]error),
	}
}

func (s *Store) Open(ctx context.Context, ledgerID string) (port.Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.FailOpen[ledgerID]; err != nil {
		return nil, err
	}
	l, ok := s.ledgers[ledgerID]
	if !ok {
		l = &Ledger{store: s, id: ledgerID}
		s.ledgers[ledgerID] = l
	}
	return l, nil
}

// Ledger returns a ledger by id, or nil if it was never opened
func (s *Store) Ledger(ledgerID string) *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledgers[ledgerID]
}

// Ledger is an ordered set of in-memory worksheets
type Ledger struct {
	store  *Store
	id     string
	sheets []*Worksheet
}

func (l *Ledger) ID() string { return l.id }

func (l *Ledger) Worksheet(_ context.Context, title string) (port.Worksheet, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	for _, ws := range l.sheets {
		if ws.title == title {
			return ws, nil
		}
	}
	return nil, port.ErrWorksheetNotFound
}

func (l *Ledger) AddWorksheet(_ context.Context, title string, rows, cols, index int) (port.Worksheet, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	for _, ws := range l.sheets {
		if ws.title == title {
			return nil, errors.New("worksheet already exists")
		}
	}
	ws := &Worksheet{store: l.store, title: title, RowLimit: rows, ColLimit: cols}
	if index < 0 || index > len(l.sheets) {
		index = len(l.sheets)
	}
	l.sheets = append(l.sheets[:index], append([]*Worksheet{ws}, l.sheets[index:]...)...)
	return ws, nil
}

// Titles lists worksheet titles in display order
func (l *Ledger) Titles() []string {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	titles := make([]string, 0, len(l.sheets))
	for _, ws := range l.sheets {
		titles = append(titles, ws.title)
	}
	return titles
}

// Sheet returns a worksheet by title, or nil
func (l *Ledger) Sheet(title string) *Worksheet {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	for _, ws := range l.sheets {
		if ws.title == title {
			return ws
		}
	}
	return nil
}

// Seed adds a worksheet with existing rows at the end of the ledger
func (l *Ledger) Seed(title string, rows [][]string) *Worksheet {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	ws := &Worksheet{store: l.store, title: title, data: rows}
	l.sheets = append(l.sheets, ws)
	return ws
}

// Worksheet is an in-memory port.Worksheet
type Worksheet struct {
	store    *Store
	title    string
	data     [][]string
	Headers  int
	RowLimit int
	ColLimit int
}

func (w *Worksheet) Title() string { return w.title }

func (w *Worksheet) Rows(_ context.Context) ([][]string, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	out := make([][]string, len(w.data))
	for i, row := range w.data {
		out[i] = append([]string{}, row...)
	}
	return out, nil
}

func (w *Worksheet) Append(ctx context.Context, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	if err := w.store.FailAppend[w.title]; err != nil {
		return err
	}
	w.data = append(w.data, append([]string{}, row...))
	return nil
}

func (w *Worksheet) Clear(_ context.Context) error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	w.data = nil
	return nil
}

func (w *Worksheet) WriteHeader(_ context.Context, header []string) error {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	w.Headers++
	if len(w.data) == 0 {
		w.data = [][]string{append([]string{}, header...)}
		return nil
	}
	w.data[0] = append([]string{}, header...)
	return nil
}

// Data returns a snapshot of the worksheet rows
func (w *Worksheet) Data() [][]string {
	rows, _ := w.Rows(context.Background())
	return rows
}
