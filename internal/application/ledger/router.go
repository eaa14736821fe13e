// Package ledger routes reports into daily spreadsheet worksheets.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

const (
	categoryRows = 1000
	allDataRows  = 5000
)

// Router resolves daily worksheets and appends report rows to them.
//
// Appends are not serialized: two dispatches racing on the same worksheet may
// both read the same last row number.
type Router struct {
	store  port.LedgerStore
	logger *zap.Logger
}

// NewRouter creates a router over a ledger store
func NewRouter(store port.LedgerStore, logger *zap.Logger) *Router {
	return &Router{store: store, logger: logger}
}

// Placement tells where a row was written
type Placement struct {
	Sheet     string
	RowNumber int
}

// ResolveOrCreate finds the named worksheet, creating it as the left-most sheet
// when absent. An existing worksheet whose header row is shorter than header is
// wiped and its header rewritten.
func (r *Router) ResolveOrCreate(ctx context.Context, ledgerID, name string, header []string) (port.Worksheet, error) {
	book, err := r.store.Open(ctx, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", ledgerID, err)
	}

	ws, err := book.Worksheet(ctx, name)
	if errors.Is(err, port.ErrWorksheetNotFound) {
		rows := categoryRows
		if len(header) > len(CategoryHeader) {
			rows = allDataRows
		}
		ws, err = book.AddWorksheet(ctx, name, rows, len(header), 0)
		if err != nil {
			return nil, fmt.Errorf("failed to create worksheet %s: %w", name, err)
		}
		if err := ws.WriteHeader(ctx, header); err != nil {
			return nil, fmt.Errorf("failed to write header of %s: %w", name, err)
		}
		r.logger.Info("Daily worksheet created",
			zap.String("ledger_id", ledgerID),
			zap.String("worksheet", name))
		return ws, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find worksheet %s: %w", name, err)
	}

	rows, err := ws.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %s: %w", name, err)
	}
	if len(rows) == 0 || len(rows[0]) < len(header) {
		r.logger.Warn("Worksheet header is incomplete, rewriting",
			zap.String("ledger_id", ledgerID),
			zap.String("worksheet", name))
		if err := ws.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear worksheet %s: %w", name, err)
		}
		if err := ws.WriteHeader(ctx, header); err != nil {
			return nil, fmt.Errorf("failed to write header of %s: %w", name, err)
		}
	}

	return ws, nil
}

// NextRowNumber derives the № of the next row from the existing rows, header
// included. A malformed last row falls back to the row count.
func NextRowNumber(rows [][]string) int {
	if len(rows) <= 1 {
		return 1
	}
	last := rows[len(rows)-1]
	if len(last) > 0 && isDigits(last[0]) {
		if n, err := strconv.Atoi(last[0]); err == nil {
			return n + 1
		}
	}
	return len(rows)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// reportRow lays out the category columns of a report
func reportRow(number int, report *entity.Report) []string {
	f := report.Fields
	return []string{
		strconv.Itoa(number),
		f.ClientName,
		f.Phone,
		f.SecondaryPhone,
		f.Product,
		"",
		f.Delivery,
		f.Note,
		f.Location,
		report.SubmissionDate.Format(dateLayout),
		"",
		f.ContractID,
		f.Amount,
		f.SellerName,
	}
}

func (r *Router) append(ctx context.Context, ledgerID, name string, header []string, build func(n int) []string) (Placement, error) {
	ws, err := r.ResolveOrCreate(ctx, ledgerID, name, header)
	if err != nil {
		return Placement{}, err
	}

	rows, err := ws.Rows(ctx)
	if err != nil {
		return Placement{}, fmt.Errorf("failed to read worksheet %s: %w", name, err)
	}
	number := NextRowNumber(rows)

	if err := ws.Append(ctx, build(number)); err != nil {
		return Placement{}, fmt.Errorf("failed to append to worksheet %s: %w", name, err)
	}

	return Placement{Sheet: name, RowNumber: number}, nil
}

// AppendCategory writes the report into its SH or VL worksheet of the submission day.
func (r *Router) AppendCategory(ctx context.Context, ledgerID string, report *entity.Report) (Placement, error) {
	name := DailyName(KindOf(report.IsCapital), report.SubmissionDate)
	return r.append(ctx, ledgerID, name, CategoryHeader, func(n int) []string {
		return reportRow(n, report)
	})
}

// AppendAllData writes the report into the ALL DATA worksheet of the submission
// day, tagged with the category worksheet it belongs to.
func (r *Router) AppendAllData(ctx context.Context, ledgerID string, report *entity.Report, sourceSheet string) (Placement, error) {
	name := DailyName(KindAllData, report.SubmissionDate)
	return r.append(ctx, ledgerID, name, AllDataHeader, func(n int) []string {
		return append(reportRow(n, report), sourceSheet)
	})
}
