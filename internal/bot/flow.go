package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/AWS-JaeminJung/sauna-app/internal/booking"
	"github.com/AWS-JaeminJung/sauna-app/internal/calendar"
	"github.com/AWS-JaeminJung/sauna-app/internal/db"
	"github.com/AWS-JaeminJung/sauna-app/internal/models"
	"github.com/AWS-JaeminJung/sauna-app/internal/pricing"
	"github.com/AWS-JaeminJung/sauna-app/internal/saunaapi"
	"github.com/AWS-JaeminJung/sauna-app/internal/slots"
)

// render shows the screen of the current wizard step.
func (b *Bot) render(ctx context.Context, s *chatSession) {
	v := s.wizard.Snapshot()

	switch v.Step {
	case booking.StepSelectSauna:
		b.renderSaunas(ctx, s, 0)
	case booking.StepSelectDateTime:
		kb := dateTimeKeyboard(v)
		b.show(s.chatID, s.screenID, dateTimeText(v), &kb)
	case booking.StepEnterInfo:
		b.promptInput(s)
	case booking.StepConfirm, booking.StepFailed:
		text := booking.FormatConfirmation(v)
		if v.Step == booking.StepFailed {
			text = booking.StepPrompts[booking.StepFailed] + "\n\n" + text
		}
		kb := confirmKeyboard(v.Step)
		b.show(s.chatID, s.screenID, text, &kb)
	case booking.StepSubmitted:
		if v.Booking != nil {
			b.show(s.chatID, s.screenID, booking.FormatBookingComplete(v.Booking), nil)
		} else {
			b.show(s.chatID, s.screenID, booking.StepPrompts[booking.StepSubmitted], nil)
		}
	}
}

func (b *Bot) renderSaunas(ctx context.Context, s *chatSession, page int) {
	saunas, err := s.api.ListSaunas(ctx, saunaapi.SaunaFilter{})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list saunas")
		b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
		return
	}
	if len(saunas) == 0 {
		b.show(s.chatID, s.screenID, "No saunas are open for booking right now.", nil)
		return
	}

	pages := (len(saunas) + b.opts.SaunaPageSize - 1) / b.opts.SaunaPageSize
	page = max(0, min(page, pages-1))
	text := booking.StepPrompts[booking.StepSelectSauna]
	if pages > 1 {
		text += fmt.Sprintf("\nPage %d of %d", page+1, pages)
	}
	kb := saunaKeyboard(saunas, page, b.opts.SaunaPageSize)
	b.show(s.chatID, s.screenID, text, &kb)
}

func dateTimeText(v booking.View) string {
	var sb strings.Builder
	if v.Draft.Sauna != nil {
		fmt.Fprintf(&sb, "🧖 *%s* · %s/h\n", escape(v.Draft.Sauna.Name), pricing.FormatKRW(v.Draft.Sauna.HourlyRate))
	}
	sb.WriteString(booking.StepPrompts[booking.StepSelectDateTime])
	sb.WriteString("\n\n")

	if v.Draft.Date.IsZero() {
		sb.WriteString("📅 Select a date")
		return sb.String()
	}
	fmt.Fprintf(&sb, "📅 %s\n", v.Draft.Date.Format("Mon, 2 Jan 2006"))

	switch {
	case v.SlotsError != "":
		fmt.Fprintf(&sb, "⚠️ %s\n", escape(v.SlotsError))
	case len(v.Slots) == 0 || !slots.HasAvailable(v.Slots):
		sb.WriteString("No free time on this day.\n")
	}

	r := v.Draft.Range
	switch {
	case r.Complete():
		fmt.Fprintf(&sb, "⏰ %s – %s (%s)\n💰 %s", r.Start, r.End, slots.FormatDuration(int(math.Round(v.Hours*60))), pricing.FormatKRW(v.Total))
	case r.Start != "":
		fmt.Fprintf(&sb, "⏰ from %s, tap the last hour", r.Start)
	default:
		sb.WriteString("⏰ Tap the first hour")
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	data := cq.Data
	if data == cbNoop {
		_ = b.answerCallback(cq.ID, "")
		return
	}

	chatID := cq.Message.Chat.ID
	s := b.sessions.get(chatID, b.opts.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenID = cq.Message.MessageID

	notice := b.dispatchCallback(ctx, s, cq.From.ID, data)
	_ = b.answerCallback(cq.ID, notice)
}

// dispatchCallback applies one button press and returns a short notice for
// the callback answer.
func (b *Bot) dispatchCallback(ctx context.Context, s *chatSession, userID int64, data string) string {
	l := zerolog.Ctx(ctx)
	w := s.wizard

	switch {
	case strings.HasPrefix(data, "saunas:"):
		page, _ := strconv.Atoi(strings.TrimPrefix(data, "saunas:"))
		b.renderSaunas(ctx, s, page)
		return ""

	case strings.HasPrefix(data, "sauna:"):
		id := strings.TrimPrefix(data, "sauna:")
		detail, err := s.api.GetSauna(ctx, id)
		if err != nil {
			l.Warn().Err(err).Str("sauna_id", id).Msg("failed to load sauna")
			return saunaapi.Message(err)
		}
		if w.Step() == booking.StepSubmitted {
			b.restart(s, nil)
			s.screenID = 0
			w = s.wizard
		}
		if err := w.ChooseSauna(&detail.Sauna); err != nil {
			return wizardNotice(err)
		}
		s.input = inputNone

	case strings.HasPrefix(data, "info:"):
		b.sendSaunaDetail(ctx, s, strings.TrimPrefix(data, "info:"))
		return ""

	case data == "cal:prev":
		w.PrevMonth()
	case data == "cal:next":
		w.NextMonth()

	case strings.HasPrefix(data, "date:"):
		date, err := calendar.ParseDate(strings.TrimPrefix(data, "date:"))
		if err != nil {
			return "Invalid date"
		}
		if err := w.SelectDate(ctx, date); err != nil {
			if isValidationError(err) {
				return wizardNotice(err)
			}
			l.Warn().Err(err).Str("date", date.Format(calendar.DateLayout)).Msg("slots not loaded")
		}

	case strings.HasPrefix(data, "slot:"):
		if _, err := w.ClickSlot(strings.TrimPrefix(data, "slot:")); err != nil {
			if errors.Is(err, booking.ErrSlotsOutdated) {
				_ = w.RefreshSlots(ctx)
				b.render(ctx, s)
			}
			return wizardNotice(err)
		}

	case data == "guests:+":
		if _, err := w.IncGuests(); err != nil {
			return wizardNotice(err)
		}
	case data == "guests:-":
		if _, err := w.DecGuests(); err != nil {
			return wizardNotice(err)
		}

	case data == cbNext:
		if err := w.Next(); err != nil {
			return wizardNotice(err)
		}
		if w.Step() == booking.StepEnterInfo {
			b.beginInfo(s, userID)
			return ""
		}

	case data == cbBack:
		if s.input != inputNone && s.input != inputName {
			s.input = previousInput(s.input)
			b.promptInput(s)
			return ""
		}
		if err := w.Back(); err != nil {
			return wizardNotice(err)
		}
		s.input = inputNone
		if w.Step() == booking.StepEnterInfo {
			s.input = inputNotes
			b.promptInput(s)
			return ""
		}

	case data == cbChange:
		if err := w.Change(); err != nil {
			return wizardNotice(err)
		}
		s.input = inputNone

	case data == cbConfirm:
		return b.submit(ctx, s)

	case data == cbCancel:
		if err := w.Reset(); err != nil {
			return wizardNotice(err)
		}
		s.input = inputNone
		s.customer = booking.Customer{}
		b.show(s.chatID, s.screenID, "Booking cancelled. Send /book to start again.", nil)
		return ""

	default:
		return ""
	}

	b.render(ctx, s)
	return ""
}

func (b *Bot) submit(ctx context.Context, s *chatSession) string {
	l := zerolog.Ctx(ctx)

	bk, err := s.wizard.Submit(ctx)
	if err != nil {
		if errors.Is(err, booking.ErrSubmitInProgress) || errors.Is(err, booking.ErrWrongStep) {
			return wizardNotice(err)
		}
		b.render(ctx, s)
		return "Booking failed"
	}

	if bk != nil {
		if full, gerr := s.api.GetBooking(ctx, bk.ID); gerr == nil {
			bk = full
		} else {
			l.Warn().Err(gerr).Str("booking_id", bk.ID).Msg("failed to reload booking")
		}
		b.recordBooking(ctx, s.chatID, bk)
		b.show(s.chatID, s.screenID, booking.FormatBookingComplete(bk), nil)
	} else {
		b.render(ctx, s)
	}
	s.customer = booking.Customer{}
	return "Booked!"
}

// recordBooking stores bk in the chat ledger and queues it for the sheet.
func (b *Bot) recordBooking(ctx context.Context, chatID int64, bk *models.Booking) {
	if b.db == nil || bk == nil {
		return
	}
	l := zerolog.Ctx(ctx)

	if err := b.db.RecordBooking(ctx, chatID, bk); err != nil {
		l.Error().Err(err).Str("booking_id", bk.ID).Msg("failed to record booking")
	}
	payload, err := jsonString(bk)
	if err != nil {
		return
	}
	if _, err := b.db.EnqueueSync(ctx, db.TaskUpsertBooking, bk.ID, payload); err != nil {
		l.Error().Err(err).Str("booking_id", bk.ID).Msg("failed to enqueue sheet sync")
	}
}

// beginInfo starts collecting contact details, prefilled from the signed-in account.
func (b *Bot) beginInfo(s *chatSession, userID int64) {
	d := s.wizard.Draft()
	s.customer = d.Customer
	if u := s.auth.User(); u != nil {
		if s.customer.Name == "" {
			s.customer.Name = u.FullName
		}
		if s.customer.Email == "" {
			s.customer.Email = u.Email
		}
		if s.customer.Phone == "" {
			s.customer.Phone = u.Phone
		}
	}
	s.input = inputName
	b.promptInput(s)
}

var inputPrompts = map[inputStep]string{
	inputName:  "👤 Enter your name:",
	inputPhone: "📞 Enter your phone number:",
	inputEmail: "✉️ Enter your email:",
	inputNotes: "📝 Any requests? Send - to skip.",
}

func (b *Bot) promptInput(s *chatSession) {
	if s.input == inputNone {
		s.input = inputName
	}
	text := inputPrompts[s.input]
	current := ""
	switch s.input {
	case inputName:
		current = s.customer.Name
	case inputPhone:
		current = s.customer.Phone
	case inputEmail:
		current = s.customer.Email
	}
	if current != "" {
		text += fmt.Sprintf("\nCurrent: %s (send . to keep)", current)
	}

	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ReplyMarkup = infoKeyboard()
	_, _ = b.tg.Send(msg)
	s.screenID = 0
}

func previousInput(in inputStep) inputStep {
	switch in {
	case inputPhone:
		return inputName
	case inputEmail:
		return inputPhone
	case inputNotes:
		return inputEmail
	}
	return inputName
}

// handleInput consumes a text reply of the info step.
func (b *Bot) handleInput(ctx context.Context, s *chatSession, text string) {
	keep := text == "."

	switch s.input {
	case inputName:
		if !keep || s.customer.Name == "" {
			if text == "" || keep {
				b.reply(s.chatID, "Name cannot be empty.")
				return
			}
			s.customer.Name = text
		}
		s.input = inputPhone
	case inputPhone:
		if !keep || s.customer.Phone == "" {
			phone, ok := normalizeAndValidatePhone(text)
			if !ok {
				b.reply(s.chatID, "Invalid phone number. Example: 010-1234-5678")
				return
			}
			s.customer.Phone = phone
		}
		s.input = inputEmail
	case inputEmail:
		if !keep || s.customer.Email == "" {
			addr, err := mail.ParseAddress(text)
			if err != nil {
				b.reply(s.chatID, "Invalid email address.")
				return
			}
			s.customer.Email = addr.Address
		}
		s.input = inputNotes
	case inputNotes:
		notes := text
		if notes == "-" {
			notes = ""
		}
		if err := s.wizard.SetCustomer(s.customer.Name, s.customer.Phone, s.customer.Email); err != nil {
			b.reply(s.chatID, wizardNotice(err))
			return
		}
		if err := s.wizard.SetNotes(notes); err != nil {
			b.reply(s.chatID, wizardNotice(err))
			return
		}
		if err := s.wizard.Next(); err != nil {
			b.reply(s.chatID, wizardNotice(err))
			s.input = inputName
			b.promptInput(s)
			return
		}
		s.input = inputNone
		b.render(ctx, s)
		return
	}

	b.promptInput(s)
}

var validationErrors = []error{
	booking.ErrSubmitInProgress,
	booking.ErrWrongStep,
	booking.ErrNoSauna,
	booking.ErrNoDate,
	calendar.ErrPastDate,
}

// isValidationError reports whether err was raised before any network call.
func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// wizardNotice turns wizard errors into short user messages.
func wizardNotice(err error) string {
	switch {
	case errors.Is(err, booking.ErrSubmitInProgress):
		return "Your booking is being submitted, please wait"
	case errors.Is(err, calendar.ErrPastDate):
		return "This date is in the past"
	case errors.Is(err, booking.ErrSlotUnavailable):
		return "This time is already booked"
	case errors.Is(err, booking.ErrRangeGap):
		return "The range crosses a booked hour"
	case errors.Is(err, booking.ErrIncompleteRange):
		return "Select a time range first"
	case errors.Is(err, booking.ErrNoDate):
		return "Select a date first"
	case errors.Is(err, booking.ErrNoSauna):
		return "Select a sauna first"
	case errors.Is(err, booking.ErrSlotsOutdated):
		return "Times were refreshed, try again"
	case errors.Is(err, booking.ErrMissingCustomer):
		return "Please fill in your contact details"
	case errors.Is(err, booking.ErrUnknownSlot), errors.Is(err, booking.ErrWrongStep):
		return "This button is no longer active"
	default:
		return saunaapi.Message(err)
	}
}

func normalizeAndValidatePhone(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	repl := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "\t", "", ".", "")
	s = repl.Replace(s)
	if strings.HasPrefix(s, "+") {
		s = "+" + filterDigits(s[1:])
	} else {
		s = filterDigits(s)
	}
	digits := strings.TrimPrefix(s, "+")
	if len(digits) < 9 || len(digits) > 15 {
		return "", false
	}
	return s, true
}

func filterDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
