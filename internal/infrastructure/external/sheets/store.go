// Package sheets implements ledger storage on Google Sheets.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/garyjia/sales-report-bot/internal/application/port"
)

// Store opens spreadsheets with a service account
type Store struct {
	svc    *sheets.Service
	logger *zap.Logger
}

// NewStore creates a store from a service account credentials file
func NewStore(ctx context.Context, credentialsFile string, logger *zap.Logger) (*Store, error) {
	return NewStoreWithOptions(ctx, logger,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

// NewStoreWithOptions creates a store with explicit client options
func NewStoreWithOptions(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (*Store, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Store{svc: svc, logger: logger}, nil
}

// Open checks that the spreadsheet is reachable and returns a handle to it
func (s *Store) Open(ctx context.Context, ledgerID string) (port.Ledger, error) {
	doc, err := s.svc.Spreadsheets.Get(ledgerID).Fields("spreadsheetId", "properties.title").Context(ctx).Do()
	if err != nil {
		s.logger.Error("Failed to open spreadsheet", zap.String("spreadsheet_id", ledgerID), zap.Error(err))
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	return &Ledger{svc: s.svc, id: doc.SpreadsheetId, logger: s.logger}, nil
}

// Ledger is one spreadsheet
type Ledger struct {
	svc    *sheets.Service
	id     string
	logger *zap.Logger
}

func (l *Ledger) ID() string { return l.id }

func (l *Ledger) Worksheet(ctx context.Context, title string) (port.Worksheet, error) {
	doc, err := l.svc.Spreadsheets.Get(l.id).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list worksheets: %w", err)
	}
	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return &Worksheet{ledger: l, title: title, sheetID: sh.Properties.SheetId}, nil
		}
	}
	return nil, port.ErrWorksheetNotFound
}

func (l *Ledger) AddWorksheet(ctx context.Context, title string, rows, cols, index int) (port.Worksheet, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: title,
					Index: int64(index),
					GridProperties: &sheets.GridProperties{
						RowCount:    int64(rows),
						ColumnCount: int64(cols),
					},
					// index 0 is the zero value and would be dropped otherwise
					ForceSendFields: []string{"Index"},
				},
			},
		}},
	}

	resp, err := l.svc.Spreadsheets.BatchUpdate(l.id, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet %s: %w", title, err)
	}

	ws := &Worksheet{ledger: l, title: title}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		ws.sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}
	l.logger.Info("Worksheet created", zap.String("spreadsheet_id", l.id), zap.String("title", title))
	return ws, nil
}

// Worksheet is one tab of a spreadsheet
type Worksheet struct {
	ledger  *Ledger
	title   string
	sheetID int64
}

func (w *Worksheet) Title() string { return w.title }

// a1 quotes the title for A1 notation
func (w *Worksheet) a1(cells string) string {
	quoted := "'" + strings.ReplaceAll(w.title, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

func (w *Worksheet) Rows(ctx context.Context) ([][]string, error) {
	resp, err := w.ledger.svc.Spreadsheets.Values.Get(w.ledger.id, w.a1("")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", w.title, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, r := range resp.Values {
		row := make([]string, len(r))
		for i, cell := range r {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (w *Worksheet) Append(ctx context.Context, row []string) error {
	values := &sheets.ValueRange{Values: [][]interface{}{toCells(row)}}
	_, err := w.ledger.svc.Spreadsheets.Values.Append(w.ledger.id, w.a1("A1"), values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", w.title, err)
	}
	return nil
}

func (w *Worksheet) Clear(ctx context.Context) error {
	_, err := w.ledger.svc.Spreadsheets.Values.Clear(w.ledger.id, w.a1(""), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", w.title, err)
	}
	return nil
}

// WriteHeader writes the header row and formats it bold on a grey background
func (w *Worksheet) WriteHeader(ctx context.Context, header []string) error {
	values := &sheets.ValueRange{Values: [][]interface{}{toCells(header)}}
	_, err := w.ledger.svc.Spreadsheets.Values.Update(w.ledger.id, w.a1("A1"), values).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write header of %s: %w", w.title, err)
	}

	format := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          w.sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(header)),
					ForceSendFields:  []string{"SheetId", "StartRowIndex", "StartColumnIndex"},
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor: &sheets.Color{Red: 0.85, Green: 0.85, Blue: 0.85},
						TextFormat:      &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat(backgroundColor,textFormat)",
			},
		}},
	}
	if _, err := w.ledger.svc.Spreadsheets.BatchUpdate(w.ledger.id, format).Context(ctx).Do(); err != nil {
		// the header text is already in place
		w.ledger.logger.Warn("Failed to format header", zap.String("title", w.title), zap.Error(err))
	}
	return nil
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
