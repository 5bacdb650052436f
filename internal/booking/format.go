package booking

import (
	"fmt"
	"math"
	"strings"

	"github.com/AWS-JaeminJung/sauna-app/internal/models"
	"github.com/AWS-JaeminJung/sauna-app/internal/pricing"
	"github.com/AWS-JaeminJung/sauna-app/internal/slots"
)

// FormatConfirmation renders the draft for the confirm step.
func FormatConfirmation(v View) string {
	d := v.Draft
	name := ""
	if d.Sauna != nil {
		name = d.Sauna.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Booking details*\n\n")
	fmt.Fprintf(&b, "🧖 *Sauna:* %s\n", escapeMarkdown(name))
	fmt.Fprintf(&b, "📅 *Date:* %s\n", d.DateKey())
	fmt.Fprintf(&b, "⏰ *Time:* %s – %s (%s)\n", d.Range.Start, d.Range.End, slots.FormatDuration(int(math.Round(v.Hours*60))))
	fmt.Fprintf(&b, "👥 *Guests:* %d\n", d.GuestCount)
	fmt.Fprintf(&b, "👤 *Name:* %s\n", escapeMarkdown(d.Customer.Name))
	fmt.Fprintf(&b, "📞 *Phone:* %s\n", escapeMarkdown(d.Customer.Phone))
	fmt.Fprintf(&b, "✉️ *Email:* %s\n", escapeMarkdown(d.Customer.Email))
	if d.Notes != "" {
		fmt.Fprintf(&b, "📝 *Notes:* %s\n", escapeMarkdown(d.Notes))
	}
	fmt.Fprintf(&b, "\n💰 *Total:* %s", pricing.FormatKRW(v.Total))
	if v.LastError != "" {
		fmt.Fprintf(&b, "\n\n⚠️ %s", escapeMarkdown(v.LastError))
	}
	return b.String()
}

// FormatBookingComplete renders a created booking.
func FormatBookingComplete(b *models.Booking) string {
	sauna := b.SaunaName
	if sauna == "" {
		sauna = b.SaunaID
	}
	return fmt.Sprintf(`✅ *Booking %s confirmed!*

🧖 %s
📅 %s, %s – %s
👥 %d guests
💰 %s
Status: %s`,
		escapeMarkdown(b.ID),
		escapeMarkdown(sauna),
		b.BookingDate,
		b.StartTime,
		b.EndTime,
		b.GuestCount,
		pricing.FormatKRW(b.TotalPrice),
		b.Status,
	)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown escapes user text for Telegram legacy Markdown.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
