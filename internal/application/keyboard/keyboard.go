// Package keyboard holds callback identifiers and the inline and reply
// keyboards shown by the bot.
package keyboard

import (
	"fmt"
	"strings"

	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/region"
)

// Callback data sent by inline buttons
const (
	RegionPrefix     = "select_region_"
	CancelSubmission = "cancel_report_submission"

	ConfirmReport = "confirm_report"
	EditReport    = "edit_report"
	CancelReport  = "cancel_report"

	EditPrefix    = "edit_"
	BackToConfirm = "back_to_confirmation"

	ApproveReview = "confirm_report_action"
	RejectReview  = "reject_report_action"
	ConfirmedNoop = "status_confirmed_noop"
	ContactPrefix = "contact_helper_"
)

// Reply keyboard labels of the main menu
const (
	MenuSubmit  = "📝 Hisobot topshirish"
	MenuMySales = "📊 Sotuvlarim"
)

// EditFields lists the editable fields in picker order
var EditFields = []struct {
	Key   string
	Label string
}{
	{"client", "👤 Mijoz"},
	{"phone", "📱 Telefon"},
	{"secondary_phone", "📱 Qo'shimcha telefon"},
	{"product", "🛍️ Mahsulot"},
	{"location", "📍 Manzil"},
	{"contract_id", "🆔 Shartnoma raqami"},
	{"amount", "💰 Summa"},
	{"image", "🖼 Rasm"},
}

// MainMenu is the persistent reply keyboard
func MainMenu() *port.Markup {
	return &port.Markup{Reply: [][]string{{MenuSubmit}, {MenuMySales}}}
}

// Regions lays the region options out two per row, followed by a cancel row.
func Regions() *port.Markup {
	var rows [][]port.Button
	for i := 0; i < len(region.Regions); i += 2 {
		row := []port.Button{{Text: region.Regions[i], Data: RegionPrefix + region.Regions[i]}}
		if i+1 < len(region.Regions) {
			row = append(row, port.Button{Text: region.Regions[i+1], Data: RegionPrefix + region.Regions[i+1]})
		}
		rows = append(rows, row)
	}
	rows = append(rows, []port.Button{{Text: "❌ Bekor qilish", Data: CancelSubmission}})
	return &port.Markup{Inline: rows}
}

// Cancel is the single-button keyboard attached to dialogue prompts
func Cancel() *port.Markup {
	return &port.Markup{Inline: [][]port.Button{{{Text: "❌ Bekor qilish", Data: CancelSubmission}}}}
}

// Confirmation is attached to the submitter's preview
func Confirmation() *port.Markup {
	return &port.Markup{Inline: [][]port.Button{
		{{Text: "✅ Tasdiqlash", Data: ConfirmReport}},
		{{Text: "✏️ Tahrirlash", Data: EditReport}},
		{{Text: "❌ Bekor qilish", Data: CancelReport}},
	}}
}

// EditPicker lists the editable fields two per row and a back button
func EditPicker() *port.Markup {
	var rows [][]port.Button
	for i := 0; i < len(EditFields); i += 2 {
		row := []port.Button{{Text: EditFields[i].Label, Data: EditPrefix + EditFields[i].Key}}
		if i+1 < len(EditFields) {
			row = append(row, port.Button{Text: EditFields[i+1].Label, Data: EditPrefix + EditFields[i+1].Key})
		}
		rows = append(rows, row)
	}
	rows = append(rows, []port.Button{{Text: "⬅️ Orqaga", Data: BackToConfirm}})
	return &port.Markup{Inline: rows}
}

// Review is attached to a pending review message
func Review() *port.Markup {
	return &port.Markup{Inline: [][]port.Button{{
		{Text: "✅ Tasdiqlash", Data: ApproveReview},
		{Text: "❌ Rad etish", Data: RejectReview},
	}}}
}

// Confirmed replaces the review controls once a report is confirmed
func Confirmed() *port.Markup {
	return &port.Markup{Inline: [][]port.Button{{{Text: "✅ Tasdiqlangan", Data: ConfirmedNoop}}}}
}

// Rejected replaces the review controls once a report is rejected
func Rejected(reviewerID int64) *port.Markup {
	return &port.Markup{Inline: [][]port.Button{{
		{Text: "❓ Nima uchun?", Data: fmt.Sprintf("%s%d", ContactPrefix, reviewerID)},
	}}}
}

// ContactLink opens a private chat with the reviewer
func ContactLink(reviewerID int64) *port.Markup {
	return &port.Markup{Inline: [][]port.Button{{
		{Text: "💬 Yozish", URL: fmt.Sprintf("tg://user?id=%d", reviewerID)},
	}}}
}

// IsEditField reports whether data selects a field in the edit picker
func IsEditField(data string) (string, bool) {
	key, ok := strings.CutPrefix(data, EditPrefix)
	if !ok {
		return "", false
	}
	for _, f := range EditFields {
		if f.Key == key {
			return key, true
		}
	}
	return "", false
}
