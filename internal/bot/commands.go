package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/AWS-JaeminJung/sauna-app/internal/booking"
	"github.com/AWS-JaeminJung/sauna-app/internal/db"
	"github.com/AWS-JaeminJung/sauna-app/internal/events"
	"github.com/AWS-JaeminJung/sauna-app/internal/models"
	"github.com/AWS-JaeminJung/sauna-app/internal/pricing"
	"github.com/AWS-JaeminJung/sauna-app/internal/report"
	"github.com/AWS-JaeminJung/sauna-app/internal/saunaapi"
	"github.com/AWS-JaeminJung/sauna-app/internal/session"
)

const helpText = `🧖 Sauna booking bot

/book - book a sauna
/saunas - browse saunas and reviews
/my_bookings [status] - your bookings
/cancel_booking <id> - cancel a booking
/review <booking_id> <1-5> [comment] - rate a visit
/login <email> <password> - sign in
/logout - sign out
/cancel - abandon the current booking`

const adminHelpText = `

Admin:
/stats - dashboard totals
/report - spreadsheet report`

// CancelledEvent is published after a user cancels a booking.
type CancelledEvent struct {
	BookingID string `json:"booking_id"`
	ChatID    int64  `json:"chat_id"`
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID
	s := b.sessions.get(chatID, b.opts.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	// Commands interrupt any active input.
	if msg.IsCommand() {
		args := strings.TrimSpace(msg.CommandArguments())
		switch msg.Command() {
		case "start":
			b.handleStart(ctx, s, args)
		case "book":
			b.restart(s, nil)
			b.render(ctx, s)
		case "saunas":
			b.handleSaunas(ctx, s)
		case "my_bookings":
			b.handleMyBookings(ctx, s, args)
		case "cancel_booking":
			b.handleCancelBooking(ctx, s, args)
		case "review":
			b.handleReview(ctx, s, args)
		case "login":
			b.handleLogin(ctx, s, msg, args)
		case "logout":
			s.auth.Logout()
			b.reply(chatID, "👋 Signed out.")
		case "help":
			b.handleHelp(s, msg.From.ID)
		case "cancel":
			if err := s.wizard.Reset(); err != nil {
				b.reply(chatID, wizardNotice(err))
				return
			}
			s.input = inputNone
			s.customer = booking.Customer{}
			b.reply(chatID, "Operation cancelled.")
		case "stats":
			if !b.requireAdmin(s, msg.From.ID) {
				return
			}
			b.handleStats(ctx, s)
		case "report":
			if !b.requireAdmin(s, msg.From.ID) {
				return
			}
			b.handleReport(ctx, s)
		default:
			b.reply(chatID, "Unknown command. Send /help for the list.")
		}
		return
	}

	if s.input != inputNone && s.wizard.Step() == booking.StepEnterInfo {
		b.handleInput(ctx, s, text)
		return
	}
	b.reply(chatID, "Send /book to start a booking or /help for commands.")
}

func (b *Bot) handleHelp(s *chatSession, userID int64) {
	text := helpText
	if b.isAdmin(userID, s) {
		text += adminHelpText
	}
	b.reply(s.chatID, text)
}

func (b *Bot) requireAdmin(s *chatSession, userID int64) bool {
	if b.isAdmin(userID, s) {
		return true
	}
	b.reply(s.chatID, "⛔ This command is for administrators only.")
	return false
}

// handleStart supports the deep link /start sauna_<id> to preselect a sauna.
func (b *Bot) handleStart(ctx context.Context, s *chatSession, payload string) {
	if id, ok := strings.CutPrefix(payload, "sauna_"); ok && id != "" {
		detail, err := s.api.GetSauna(ctx, id)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("sauna_id", id).Msg("deep link sauna not loaded")
			b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
			b.restart(s, nil)
			b.render(ctx, s)
			return
		}
		b.restart(s, &detail.Sauna)
		b.render(ctx, s)
		return
	}

	b.restart(s, nil)
	b.reply(s.chatID, "Welcome! "+helpText)
}

func (b *Bot) handleSaunas(ctx context.Context, s *chatSession) {
	saunas, err := s.api.ListSaunas(ctx, saunaapi.SaunaFilter{})
	if err != nil {
		b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
		return
	}
	if len(saunas) == 0 {
		b.reply(s.chatID, "No saunas are open for booking right now.")
		return
	}

	var sb strings.Builder
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(saunas))
	for i, sa := range saunas {
		fmt.Fprintf(&sb, "%d. *%s* · %s/h · 👥 %d", i+1, escape(sa.Name), pricing.FormatKRW(sa.HourlyRate), sa.Capacity)
		if sa.AverageRating != nil {
			fmt.Fprintf(&sb, " · ⭐ %.1f (%d)", *sa.AverageRating, sa.ReviewCount)
		}
		sb.WriteString("\n")
		if len(sa.Amenities) > 0 {
			fmt.Fprintf(&sb, "   %s\n", escape(strings.Join(sa.Amenities, ", ")))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d. %s", i+1, sa.Name), "info:"+sa.ID),
		))
	}
	b.replyMarkdown(s.chatID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) sendSaunaDetail(ctx context.Context, s *chatSession, id string) {
	detail, err := s.api.GetSauna(ctx, id)
	if err != nil {
		b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🧖 *%s*\n", escape(detail.Name))
	if detail.Description != "" {
		fmt.Fprintf(&sb, "%s\n", escape(detail.Description))
	}
	fmt.Fprintf(&sb, "\n💰 %s per hour\n👥 up to %d guests\n", pricing.FormatKRW(detail.HourlyRate), detail.Capacity)
	if detail.OpenTime != "" {
		fmt.Fprintf(&sb, "🕙 %s – %s\n", detail.OpenTime, detail.CloseTime)
	}
	if detail.Address != "" {
		fmt.Fprintf(&sb, "📍 %s\n", escape(detail.Address))
	}
	if len(detail.Amenities) > 0 {
		fmt.Fprintf(&sb, "✨ %s\n", escape(strings.Join(detail.Amenities, ", ")))
	}

	if summary, err := s.api.ReviewSummary(ctx, id); err == nil && summary.ReviewCount > 0 {
		fmt.Fprintf(&sb, "\n⭐ %.1f from %d reviews\n", summary.AverageRating, summary.ReviewCount)
	}
	if reviews, err := s.api.ListReviews(ctx, id); err == nil {
		for i, r := range reviews {
			if i == 3 {
				break
			}
			fmt.Fprintf(&sb, "%s %s", strings.Repeat("★", r.Rating), escape(r.UserName))
			if r.Comment != "" {
				fmt.Fprintf(&sb, ": %s", escape(r.Comment))
			}
			sb.WriteString("\n")
		}
	}

	text := sb.String()
	kb := saunaDetailKeyboard(detail.ID)
	if img := detail.PrimaryImage(); img != "" {
		photo := tgbotapi.NewPhoto(s.chatID, tgbotapi.FileURL(img))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeMarkdown
		photo.ReplyMarkup = kb
		if _, err := b.tg.Send(photo); err == nil {
			return
		}
	}
	b.replyMarkdown(s.chatID, text, kb)
}

// handleMyBookings lists account bookings when signed in, otherwise the
// bookings made from this chat.
func (b *Bot) handleMyBookings(ctx context.Context, s *chatSession, status string) {
	var list []models.Booking

	if s.auth.State().LoggedIn() {
		bookings, err := s.api.MyBookings(ctx, status)
		if err != nil {
			b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
			return
		}
		list = bookings
	} else if b.db != nil {
		entries, err := b.db.ListBookings(ctx, s.chatID, 20)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list ledger bookings")
			b.reply(s.chatID, "Failed to load your bookings.")
			return
		}
		for _, e := range entries {
			bk := ledgerBooking(e)
			if fresh, err := s.api.GetBooking(ctx, e.BookingID); err == nil {
				bk = *fresh
				if bk.Status != e.Status {
					_ = b.db.UpdateBookingStatus(ctx, e.BookingID, bk.Status)
				}
			}
			if status == "" || bk.Status == status {
				list = append(list, bk)
			}
		}
	}

	if len(list) == 0 {
		b.reply(s.chatID, "You have no bookings yet. Send /book to make one.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 *Your bookings*\n\n")
	for _, bk := range list {
		sb.WriteString(formatBookingLine(bk))
	}
	b.replyMarkdown(s.chatID, sb.String(), nil)
}

func ledgerBooking(e db.LedgerEntry) models.Booking {
	return models.Booking{
		ID:          e.BookingID,
		SaunaID:     e.SaunaID,
		SaunaName:   e.SaunaName,
		BookingDate: e.BookingDate,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		GuestCount:  e.GuestCount,
		TotalPrice:  e.TotalPrice,
		Status:      e.Status,
	}
}

var statusIcons = map[string]string{
	models.StatusConfirmed: "🟢",
	models.StatusCompleted: "✔️",
	models.StatusCancelled: "⚪",
}

func formatBookingLine(bk models.Booking) string {
	name := bk.SaunaName
	if name == "" {
		name = bk.SaunaID
	}
	icon := statusIcons[bk.Status]
	if icon == "" {
		icon = "•"
	}
	return fmt.Sprintf("%s *%s* %s %s–%s, %s\n   `%s` · %s\n",
		icon, escape(name), bk.BookingDate, shortClock(bk.StartTime), shortClock(bk.EndTime),
		pricing.FormatKRW(bk.TotalPrice), bk.ID, bk.Status)
}

// shortClock trims seconds from "HH:MM:SS".
func shortClock(t string) string {
	if len(t) == 8 && t[5] == ':' {
		return t[:5]
	}
	return t
}

func (b *Bot) handleCancelBooking(ctx context.Context, s *chatSession, id string) {
	if id == "" {
		b.reply(s.chatID, "Usage: /cancel_booking <booking id>")
		return
	}

	if !s.auth.State().LoggedIn() && b.db != nil {
		own, err := b.db.OwnsBooking(ctx, s.chatID, id)
		if err != nil || !own {
			b.reply(s.chatID, "Booking not found.")
			return
		}
	}

	bk, err := s.api.CancelBooking(ctx, id)
	if err != nil {
		b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
		return
	}

	if b.db != nil {
		if err := b.db.UpdateBookingStatus(ctx, id, models.StatusCancelled); err != nil && !errors.Is(err, db.ErrNotFound) {
			zerolog.Ctx(ctx).Error().Err(err).Str("booking_id", id).Msg("failed to update ledger")
		}
	}
	if bk != nil {
		bk.Status = models.StatusCancelled
		b.recordCancellation(ctx, bk)
	}
	if err := b.bus.PublishJSON(events.BookingCancelled, CancelledEvent{BookingID: id, ChatID: s.chatID}); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("cancel event handler failed")
	}
	b.reply(s.chatID, fmt.Sprintf("Booking %s cancelled.", id))
}

func (b *Bot) recordCancellation(ctx context.Context, bk *models.Booking) {
	if b.db == nil {
		return
	}
	payload, err := jsonString(bk)
	if err != nil {
		return
	}
	if _, err := b.db.EnqueueSync(ctx, db.TaskUpsertBooking, bk.ID, payload); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("booking_id", bk.ID).Msg("failed to enqueue sheet sync")
	}
}

func (b *Bot) handleReview(ctx context.Context, s *chatSession, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		b.reply(s.chatID, "Usage: /review <booking id> <rating 1-5> [comment]")
		return
	}
	rating, err := strconv.Atoi(fields[1])
	if err != nil || rating < 1 || rating > 5 {
		b.reply(s.chatID, "Rating must be a number from 1 to 5.")
		return
	}
	comment := ""
	if len(fields) > 2 {
		comment = strings.Join(fields[2:], " ")
	}

	bk, err := s.api.GetBooking(ctx, fields[0])
	if err != nil {
		b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
		return
	}
	if !bk.Reviewable() {
		b.reply(s.chatID, "This booking cannot be reviewed.")
		return
	}

	_, err = s.api.CreateReview(ctx, models.ReviewCreate{
		SaunaID:   bk.SaunaID,
		BookingID: bk.ID,
		Rating:    rating,
		Comment:   comment,
	})
	if err != nil {
		b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
		return
	}
	b.reply(s.chatID, "⭐ Thank you for your review!")
}

func (b *Bot) handleLogin(ctx context.Context, s *chatSession, msg *tgbotapi.Message, args string) {
	// The message carries a password.
	_, _ = b.tg.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID))

	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.reply(s.chatID, "Usage: /login <email> <password>")
		return
	}

	user, err := session.Login(ctx, s.api, s.auth, fields[0], fields[1])
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Msg("login failed")
		b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
		return
	}

	name := user.FullName
	if name == "" {
		name = user.Email
	}
	b.reply(s.chatID, fmt.Sprintf("✅ Signed in as %s.", name))
}

func (b *Bot) handleStats(ctx context.Context, s *chatSession) {
	stats, err := s.api.DashboardStats(ctx)
	if err != nil {
		b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
		return
	}

	text := fmt.Sprintf(`📊 *Dashboard*

Bookings: %d (confirmed %d, cancelled %d)
Revenue: %s
Today: %d bookings, %s
Customers: %d
Saunas: %d
Average rating: %.1f`,
		stats.TotalBookings, stats.ConfirmedBookings, stats.CancelledBookings,
		pricing.FormatKRW(stats.TotalRevenue),
		stats.TodayBookings, pricing.FormatKRW(stats.TodayRevenue),
		stats.TotalCustomers, stats.TotalSaunas, stats.AverageRating)

	if b.db != nil {
		queue, err := b.db.SyncQueueStats(ctx)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to read sync queue")
		} else {
			text += fmt.Sprintf("\nSheets queue: %d pending, %d failed", queue["pending"], queue["failed"])
		}
	}
	b.replyMarkdown(s.chatID, text, nil)
}

func (b *Bot) handleReport(ctx context.Context, s *chatSession) {
	l := zerolog.Ctx(ctx)
	now := b.opts.Now()

	data, err := report.Collect(ctx, s.api, b.opts.RevenuePeriodDays, b.opts.RecentLimit, now)
	if err != nil {
		b.reply(s.chatID, "⚠️ "+saunaapi.Message(err))
		return
	}

	var tables report.TableExporter
	if b.db != nil {
		tables = b.db
	}
	content, err := report.Render(ctx, data, tables)
	if err != nil {
		l.Error().Err(err).Msg("failed to render report")
		b.reply(s.chatID, "Failed to build the report.")
		return
	}

	name := report.Filename(now)
	if b.opts.ReportDir != "" {
		if err := os.MkdirAll(b.opts.ReportDir, 0o755); err == nil {
			if err := os.WriteFile(filepath.Join(b.opts.ReportDir, name), content, 0o644); err != nil {
				l.Warn().Err(err).Msg("failed to save report copy")
			}
		}
	}

	doc := tgbotapi.NewDocument(s.chatID, tgbotapi.FileBytes{Name: name, Bytes: content})
	doc.Caption = fmt.Sprintf("Report for the last %d days", data.PeriodDays)
	if _, err := b.tg.Send(doc); err != nil {
		l.Error().Err(err).Msg("failed to send report")
	}

	if b.opts.Sheets != nil {
		if err := b.opts.Sheets.ExportReport(ctx, data); err != nil {
			l.Error().Err(err).Msg("failed to export report to sheets")
			if b.queueReport(ctx, data) {
				b.reply(s.chatID, "⚠️ Google Sheets export failed, it will be retried.")
			} else {
				b.reply(s.chatID, "⚠️ Google Sheets export failed.")
			}
			return
		}
		b.reply(s.chatID, "📤 Report exported to Google Sheets.")
	}
}

// queueReport schedules a retry of the sheet export.
func (b *Bot) queueReport(ctx context.Context, data *report.Data) bool {
	if b.db == nil {
		return false
	}
	payload, err := jsonString(data)
	if err != nil {
		return false
	}
	if _, err := b.db.EnqueueSync(ctx, db.TaskExportReport, "", payload); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to enqueue report export")
		return false
	}
	return true
}
