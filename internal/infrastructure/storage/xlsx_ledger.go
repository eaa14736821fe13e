package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/port"
)

var ledgerFileID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// placeholderSheet is the sheet excelize.NewFile starts with
const placeholderSheet = "Sheet1"

// ErrInvalidLedgerFile is returned for ledger ids that cannot name a file
var ErrInvalidLedgerFile = errors.New("invalid ledger file id")

// XLSXLedgerStore keeps each ledger as <baseDir>/<id>.xlsx. Every operation
// opens, updates and saves the workbook under a store-wide lock.
type XLSXLedgerStore struct {
	baseDir string
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewXLSXLedgerStore creates a store rooted at baseDir
func NewXLSXLedgerStore(baseDir string, logger *zap.Logger) *XLSXLedgerStore {
	return &XLSXLedgerStore{baseDir: baseDir, logger: logger}
}

// Open returns the ledger, creating an empty workbook on first use
func (s *XLSXLedgerStore) Open(_ context.Context, ledgerID string) (port.Ledger, error) {
	if !ledgerFileID.MatchString(ledgerID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLedgerFile, ledgerID)
	}
	path := filepath.Join(s.baseDir, ledgerID+".xlsx")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(s.baseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
		f := excelize.NewFile()
		defer f.Close()
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("failed to create workbook: %w", err)
		}
		s.logger.Info("Workbook created", zap.String("path", path))
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat workbook: %w", err)
	}

	return &xlsxLedger{store: s, id: ledgerID, path: path}, nil
}

type xlsxLedger struct {
	store *XLSXLedgerStore
	id    string
	path  string
}

func (l *xlsxLedger) ID() string { return l.id }

// update runs fn on the open workbook and saves it when fn reports a change
func (l *xlsxLedger) update(fn func(f *excelize.File) (bool, error)) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	changed, err := fn(f)
	if err != nil {
		return err
	}
	if changed {
		if err := f.Save(); err != nil {
			return fmt.Errorf("failed to save workbook: %w", err)
		}
	}
	return nil
}

func (l *xlsxLedger) Worksheet(_ context.Context, title string) (port.Worksheet, error) {
	err := l.update(func(f *excelize.File) (bool, error) {
		idx, err := f.GetSheetIndex(title)
		if err != nil {
			return false, err
		}
		if idx == -1 {
			return false, port.ErrWorksheetNotFound
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return &xlsxWorksheet{ledger: l, title: title}, nil
}

// AddWorksheet creates the sheet and moves it to the given position. Row and
// column limits do not apply to local workbooks.
func (l *xlsxLedger) AddWorksheet(_ context.Context, title string, _, _, index int) (port.Worksheet, error) {
	err := l.update(func(f *excelize.File) (bool, error) {
		if idx, _ := f.GetSheetIndex(title); idx != -1 {
			return false, fmt.Errorf("worksheet %s already exists", title)
		}
		if _, err := f.NewSheet(title); err != nil {
			return false, fmt.Errorf("failed to add worksheet %s: %w", title, err)
		}
		if err := dropPlaceholder(f, title); err != nil {
			return false, err
		}

		sheets := f.GetSheetList()
		if index >= 0 && index < len(sheets) && sheets[index] != title {
			if err := f.MoveSheet(title, sheets[index]); err != nil {
				return false, fmt.Errorf("failed to move worksheet %s: %w", title, err)
			}
		}
		if idx, _ := f.GetSheetIndex(title); idx != -1 {
			f.SetActiveSheet(idx)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	l.store.logger.Info("Worksheet created", zap.String("ledger", l.id), zap.String("title", title))
	return &xlsxWorksheet{ledger: l, title: title}, nil
}

// dropPlaceholder deletes the empty starter sheet once a real one exists
func dropPlaceholder(f *excelize.File, added string) error {
	if strings.EqualFold(added, placeholderSheet) {
		return nil
	}
	if idx, _ := f.GetSheetIndex(placeholderSheet); idx == -1 {
		return nil
	}
	rows, err := f.GetRows(placeholderSheet)
	if err != nil || len(rows) > 0 {
		return err
	}
	if err := f.DeleteSheet(placeholderSheet); err != nil {
		return fmt.Errorf("failed to remove %s: %w", placeholderSheet, err)
	}
	return nil
}

type xlsxWorksheet struct {
	ledger *xlsxLedger
	title  string
}

func (w *xlsxWorksheet) Title() string { return w.title }

func (w *xlsxWorksheet) Rows(_ context.Context) ([][]string, error) {
	var rows [][]string
	err := w.ledger.update(func(f *excelize.File) (bool, error) {
		var err error
		rows, err = f.GetRows(w.title)
		return false, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", w.title, err)
	}
	return rows, nil
}

func (w *xlsxWorksheet) Append(_ context.Context, row []string) error {
	return w.ledger.update(func(f *excelize.File) (bool, error) {
		rows, err := f.GetRows(w.title)
		if err != nil {
			return false, fmt.Errorf("failed to read %s: %w", w.title, err)
		}
		cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
		if err != nil {
			return false, err
		}
		if err := f.SetSheetRow(w.title, cell, &row); err != nil {
			return false, fmt.Errorf("failed to append to %s: %w", w.title, err)
		}
		return true, nil
	})
}

func (w *xlsxWorksheet) Clear(_ context.Context) error {
	return w.ledger.update(func(f *excelize.File) (bool, error) {
		rows, err := f.GetRows(w.title)
		if err != nil {
			return false, fmt.Errorf("failed to read %s: %w", w.title, err)
		}
		for i := len(rows); i >= 1; i-- {
			if err := f.RemoveRow(w.title, i); err != nil {
				return false, fmt.Errorf("failed to clear %s: %w", w.title, err)
			}
		}
		return len(rows) > 0, nil
	})
}

func (w *xlsxWorksheet) WriteHeader(_ context.Context, header []string) error {
	return w.ledger.update(func(f *excelize.File) (bool, error) {
		if err := f.SetSheetRow(w.title, "A1", &header); err != nil {
			return false, fmt.Errorf("failed to write header of %s: %w", w.title, err)
		}

		style, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9D9D9"}},
		})
		if err != nil {
			return false, fmt.Errorf("failed to create header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return false, err
		}
		if err := f.SetCellStyle(w.title, "A1", last, style); err != nil {
			return false, fmt.Errorf("failed to style header of %s: %w", w.title, err)
		}
		return true, nil
	})
}
