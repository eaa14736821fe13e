package template

import (
	"fmt"
	"strings"

	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

// Status lines shown under a relayed report
const (
	MarkConfirmed = "✅ Tasdiqlandi"
	MarkPending   = "⏳ Kutilmoqda..."
	MarkRejected  = "❌ Rad etildi"
)

// Skeleton returns the copyable template with the location pre-filled.
func Skeleton(region string) string {
	lines := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.field == fieldLocation {
			lines = append(lines, l.prefix+" "+region)
			continue
		}
		lines = append(lines, l.prefix+" ")
	}
	return strings.Join(lines, "\n")
}

// RegionLine describes where a report is routed, e.g. "📍 Viloyat (VL 06.12.2025)".
func RegionLine(isCapital bool, sheetName string) string {
	if isCapital {
		return fmt.Sprintf("🏙️ Toshkent shahar (%s)", sheetName)
	}
	return fmt.Sprintf("📍 Viloyat (%s)", sheetName)
}

// StatusMark maps a stored report status to its display line.
func StatusMark(status string) string {
	switch status {
	case entity.StatusConfirmed:
		return MarkConfirmed
	case entity.StatusRejected:
		return MarkRejected
	default:
		return MarkPending
	}
}

func body(f entity.ReportFields) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 Mijoz: %s\n\n", f.ClientName)
	fmt.Fprintf(&b, "📱 Telefon: %s\n", f.Phone)
	if f.HasSecondaryPhone() {
		fmt.Fprintf(&b, "📱 Qo'shimcha: %s\n", f.SecondaryPhone)
	}
	fmt.Fprintf(&b, "\n🛍️ Mahsulot: %s\n\n", f.Product)
	fmt.Fprintf(&b, "📍 Manzil: %s\n\n", f.Location)
	fmt.Fprintf(&b, "🆔 Shartnoma raqami: %s\n\n", f.ContractID)
	fmt.Fprintf(&b, "💰 Shartnoma summasi: %s\n\n", f.Amount)
	fmt.Fprintf(&b, "🚛 Dastavka: %s\n\n", f.Delivery)
	fmt.Fprintf(&b, "📝 Izoh: %s\n\n", f.Note)
	fmt.Fprintf(&b, "👫 Sotuvchi: %s", f.SellerName)
	return b.String()
}

// PreviewCaption renders the submitter's confirmation preview.
func PreviewCaption(f entity.ReportFields, regionLine string) string {
	return "📝 HISOBOT TASDIQLASH\n\n" + body(f) + "\n\n" + regionLine + "\n\nMa'lumotlar to'g'rimi?"
}

// ReviewCaption renders the relayed review message. The submitter's confirmation
// mark is fixed; the status line reflects the stored review state.
func ReviewCaption(f entity.ReportFields, regionLine, status string) string {
	return "📝 Yangi Hisobot:\n\n" + body(f) + "\n\n" + regionLine + "\n\n" +
		MarkConfirmed + "\n📌 Holat: " + StatusMark(status)
}

// SuccessSummary replaces the preview once a report has been relayed.
func SuccessSummary(f entity.ReportFields, regionLine string) string {
	return "✅ Hisobot muvaffaqiyatli yuborildi!\n\n" + body(f) + "\n\n" + regionLine
}
