package bot

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/AWS-JaeminJung/sauna-app/internal/booking"
	"github.com/AWS-JaeminJung/sauna-app/internal/models"
	"github.com/AWS-JaeminJung/sauna-app/internal/pricing"
)

const (
	cbNoop    = "noop"
	cbNext    = "next"
	cbBack    = "back"
	cbChange  = "change"
	cbConfirm = "confirm"
	cbCancel  = "cancel"
)

var weekdayHeader = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

func noopButton(text string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, cbNoop)
}

// saunaKeyboard lists one page of saunas with page navigation.
func saunaKeyboard(saunas []models.Sauna, page, pageSize int) tgbotapi.InlineKeyboardMarkup {
	start := min(page*pageSize, len(saunas))
	end := min(start+pageSize, len(saunas))

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, end-start+2)
	for _, s := range saunas[start:end] {
		label := fmt.Sprintf("%s · %s/h · 👥 %d", s.Name, pricing.FormatKRW(s.HourlyRate), s.Capacity)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "sauna:"+s.ID),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Prev", "saunas:"+strconv.Itoa(page-1)))
	}
	if end < len(saunas) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", "saunas:"+strconv.Itoa(page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// dateTimeKeyboard renders the month grid, the slots of the selected day,
// the guest counter and navigation.
func dateTimeKeyboard(v booking.View) tgbotapi.InlineKeyboardMarkup {
	rows := calendarRows(v)
	rows = append(rows, slotRows(v)...)

	if v.Draft.Sauna != nil {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➖", "guests:-"),
			noopButton(fmt.Sprintf("👥 %d / %d", v.Draft.GuestCount, v.Draft.Sauna.Capacity)),
			tgbotapi.NewInlineKeyboardButtonData("➕", "guests:+"),
		))
	}

	nav := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBack),
	}
	if v.Draft.Range.Complete() {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", cbNext))
	}
	rows = append(rows, nav, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func calendarRows(v booking.View) [][]tgbotapi.InlineKeyboardButton {
	prev := noopButton(" ")
	if v.CanPrevMonth {
		prev = tgbotapi.NewInlineKeyboardButtonData("◀️", "cal:prev")
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		{
			prev,
			noopButton(fmt.Sprintf("%s %d", v.Month, v.Year)),
			tgbotapi.NewInlineKeyboardButtonData("▶️", "cal:next"),
		},
	}

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range weekdayHeader {
		header = append(header, noopButton(d))
	}
	rows = append(rows, header)

	for _, week := range v.Grid {
		row := make([]tgbotapi.InlineKeyboardButton, 0, 7)
		for _, c := range week {
			switch {
			case c.Empty:
				row = append(row, noopButton(" "))
			case c.Disabled:
				row = append(row, noopButton("·"))
			default:
				label := strconv.Itoa(c.Day)
				if c.Selected {
					label = "[" + label + "]"
				} else if c.Today {
					label = "•" + label
				}
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "date:"+c.Key()))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// slotRows lays out the slots of the selected day three per row. Slots in
// the selected range are ticked, unavailable ones cannot be pressed.
func slotRows(v booking.View) [][]tgbotapi.InlineKeyboardButton {
	if v.Draft.Date.IsZero() {
		return nil
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var current []tgbotapi.InlineKeyboardButton
	r := v.Draft.Range
	for _, slot := range v.Slots {
		var btn tgbotapi.InlineKeyboardButton
		switch {
		case !slot.Available:
			btn = noopButton("⛔ " + slot.Time)
		case r.Contains(slot.Time) || (r.Extending() && slot.Time == r.Start):
			btn = tgbotapi.NewInlineKeyboardButtonData("✅ "+slot.Time, "slot:"+slot.Time)
		default:
			btn = tgbotapi.NewInlineKeyboardButtonData(slot.Time, "slot:"+slot.Time)
		}
		current = append(current, btn)
		if len(current) == 3 {
			rows = append(rows, current)
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, current)
	}
	return rows
}

func confirmKeyboard(step booking.Step) tgbotapi.InlineKeyboardMarkup {
	label := "✅ Confirm"
	if step == booking.StepFailed {
		label = "🔁 Retry"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbConfirm),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBack),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Change sauna", cbChange),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
		),
	)
}

func infoKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbBack),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
		),
	)
}

func saunaDetailKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧖 Book this sauna", "sauna:"+id),
		),
	)
}
