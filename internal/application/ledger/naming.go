package ledger

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/garyjia/sales-report-bot/internal/domain/region"
)

// Kind selects one of the daily ledgers a report is routed to
type Kind string

const (
	KindCapital  Kind = "capital"
	KindProvince Kind = "province"
	KindAllData  Kind = "all_data"
)

const dateLayout = "02.01.2006"

// DailyName derives the worksheet title of a ledger kind for a calendar day.
func DailyName(kind Kind, day time.Time) string {
	date := day.Format(dateLayout)
	switch kind {
	case KindCapital:
		return "SH " + date
	case KindAllData:
		return "ALL DATA " + date
	default:
		return "VL " + date
	}
}

// KindFor maps a region category to its category ledger
func KindFor(category region.Category) Kind {
	if category == region.CategoryCapital {
		return KindCapital
	}
	return KindProvince
}

// KindOf is KindFor for a stored capital flag
func KindOf(isCapital bool) Kind {
	if isCapital {
		return KindCapital
	}
	return KindProvince
}

// CategoryHeader is the header row of the SH/VL daily worksheets.
var CategoryHeader = []string{
	"№",
	"Mijoz ismi",
	"Telefon raqami",
	"Qo'shimcha telefon",
	"Mahsulot nomi",
	"Jo'natma turi",
	"Dastavka",
	"Izoh",
	"Mijoz manzili",
	"Shartnoma imzolangan sana",
	"Yuborilgan sana",
	"Shartnoma raqami",
	"Shartnoma summasi",
	"Sotuvchi ismi",
}

// AllDataHeader extends CategoryHeader with the source worksheet column.
var AllDataHeader = append(append([]string{}, CategoryHeader...), "Manba sheet")

// HeaderFor returns the canonical header of a ledger kind
func HeaderFor(kind Kind) []string {
	if kind == KindAllData {
		return AllDataHeader
	}
	return CategoryHeader
}

// ErrInvalidLedgerID is returned when input is neither a sheet URL nor an id
var ErrInvalidLedgerID = errors.New("invalid spreadsheet identifier")

var (
	spreadsheetURL = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)
	spreadsheetID  = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ExtractSpreadsheetID accepts a Google Sheets URL or a bare spreadsheet id.
func ExtractSpreadsheetID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if m := spreadsheetURL.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	if spreadsheetID.MatchString(input) {
		return input, nil
	}
	return "", ErrInvalidLedgerID
}
