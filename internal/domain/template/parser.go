// Package template parses and renders the fixed-label sales report text block.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

// ErrIncomplete is matched by every parse rejection
var ErrIncomplete = errors.New("report template is incomplete")

// IncompleteError lists the required fields missing from a template
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrIncomplete.Error(), strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

type field int

const (
	fieldClientName field = iota
	fieldPhone
	fieldSecondaryPhone
	fieldProduct
	fieldLocation
	fieldAmount
	fieldContractID
	fieldDelivery
	fieldNote
	fieldSeller
)

type label struct {
	prefix   string
	field    field
	name     string
	required bool
}

// labels is the only place where display labels meet field names.
var labels = []label{
	{"👤 Mijoz:", fieldClientName, "client_name", true},
	{"📞 Asosiy raqam:", fieldPhone, "phone", true},
	{"📞 Qo'shimcha raqam:", fieldSecondaryPhone, "secondary_phone", false},
	{"📦 Mahsulot:", fieldProduct, "product", true},
	{"📍 Manzil:", fieldLocation, "location", true},
	{"💵 Narx:", fieldAmount, "amount", true},
	{"🆔 Shartnoma raqami:", fieldContractID, "contract_id", true},
	{"🚛 Dastavka:", fieldDelivery, "delivery", false},
	{"📝 Izoh:", fieldNote, "note", false},
	{"👫 Sotuvchi:", fieldSeller, "seller_name", true},
}

func (f field) target(fields *entity.ReportFields) *string {
	switch f {
	case fieldClientName:
		return &fields.ClientName
	case fieldPhone:
		return &fields.Phone
	case fieldSecondaryPhone:
		return &fields.SecondaryPhone
	case fieldProduct:
		return &fields.Product
	case fieldLocation:
		return &fields.Location
	case fieldAmount:
		return &fields.Amount
	case fieldContractID:
		return &fields.ContractID
	case fieldDelivery:
		return &fields.Delivery
	case fieldNote:
		return &fields.Note
	default:
		return &fields.SellerName
	}
}

// Parse reads a filled-in template. Unknown lines are ignored; if any required
// field is absent or blank the whole template is rejected with *IncompleteError.
func Parse(raw string) (entity.ReportFields, error) {
	var fields entity.ReportFields

	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		line = strings.TrimSpace(line)
		for _, l := range labels {
			if !strings.HasPrefix(line, l.prefix) {
				continue
			}
			_, value, _ := strings.Cut(line, ":")
			if value = strings.TrimSpace(value); value != "" {
				*l.field.target(&fields) = value
			}
			break
		}
	}

	var missing []string
	for _, l := range labels {
		if l.required && *l.field.target(&fields) == "" {
			missing = append(missing, l.name)
		}
	}
	if len(missing) > 0 {
		return entity.ReportFields{}, &IncompleteError{Missing: missing}
	}

	if fields.Delivery == "" {
		fields.Delivery = entity.DefaultDelivery
	}
	if fields.Note == "" {
		fields.Note = entity.DefaultNote
	}
	if fields.SecondaryPhone == "" {
		fields.SecondaryPhone = entity.DefaultSecondaryPhone
	}

	return fields, nil
}

// Finalize appends the selected region to the location when it is not already
// mentioned and groups the amount digits.
func Finalize(fields entity.ReportFields, region string) entity.ReportFields {
	if region != "" && !strings.Contains(fields.Location, region) {
		fields.Location = fields.Location + ", " + region
	}
	fields.Amount = FormatAmount(fields.Amount)
	return fields
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// FormatAmount strips every non-digit and groups the rest by thousands with dots.
// Input without any digit is returned unchanged.
func FormatAmount(amount string) string {
	digits := nonDigits.ReplaceAllString(amount, "")
	if digits == "" {
		return amount
	}

	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return b.String()
}

// ValidatePhone reports whether a phone carries at least nine digits.
// It is advisory only and never blocks a submission.
func ValidatePhone(phone string) bool {
	return len(nonDigits.ReplaceAllString(phone, "")) >= 9
}
