package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AWS-JaeminJung/sauna-app/internal/db"
	"github.com/AWS-JaeminJung/sauna-app/internal/models"
	"github.com/AWS-JaeminJung/sauna-app/internal/report"
	"github.com/AWS-JaeminJung/sauna-app/internal/saunaapi"
)

const (
	chatID  = int64(42)
	userID  = int64(42)
	adminID = int64(7)
)

var fixedNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeTelegram) SelfUser() tgbotapi.User {
	return tgbotapi.User{UserName: "sauna_test_bot"}
}

func (f *fakeTelegram) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTelegram) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		switch c := f.sent[i].(type) {
		case tgbotapi.MessageConfig:
			return c.Text
		case tgbotapi.EditMessageTextConfig:
			return c.Text
		}
	}
	return ""
}

func (f *fakeTelegram) lastMarkup() *tgbotapi.InlineKeyboardMarkup {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		switch c := f.sent[i].(type) {
		case tgbotapi.MessageConfig:
			if kb, ok := c.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
				return &kb
			}
			return nil
		case tgbotapi.EditMessageTextConfig:
			return c.ReplyMarkup
		}
	}
	return nil
}

func (f *fakeTelegram) lastCallbackText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if c, ok := f.requests[i].(tgbotapi.CallbackConfig); ok {
			return c.Text
		}
	}
	return ""
}

func findButton(kb *tgbotapi.InlineKeyboardMarkup, data string) (tgbotapi.InlineKeyboardButton, bool) {
	if kb == nil {
		return tgbotapi.InlineKeyboardButton{}, false
	}
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil && *btn.CallbackData == data {
				return btn, true
			}
		}
	}
	return tgbotapi.InlineKeyboardButton{}, false
}

func hasButtonText(kb *tgbotapi.InlineKeyboardMarkup, text string) bool {
	if kb == nil {
		return false
	}
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.Text == text {
				return true
			}
		}
	}
	return false
}

type backend struct {
	mu         sync.Mutex
	created    []models.BookingCreate
	idemKeys   []string
	bookings   map[string]*models.Booking
	createFail bool
	cancelled  []string
	srv        *httptest.Server
}

var cedar = models.Sauna{ID: "s1", Name: "Cedar Room", Capacity: 4, HourlyRate: 20000, IsActive: true}

func newBackend(t *testing.T) *backend {
	t.Helper()
	be := &backend{bookings: map[string]*models.Booking{}}

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /saunas", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Sauna{cedar})
	})
	mux.HandleFunc("GET /saunas/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != cedar.ID {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Sauna not found"})
			return
		}
		writeJSON(w, http.StatusOK, models.SaunaDetail{Sauna: cedar})
	})
	mux.HandleFunc("GET /bookings/availability", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.TimeSlot{
			{Time: "09:00", Available: true},
			{Time: "10:00", Available: true},
			{Time: "11:00", Available: true},
			{Time: "12:00", Available: true},
			{Time: "13:00", Available: false},
			{Time: "14:00", Available: true},
		})
	})
	mux.HandleFunc("POST /bookings", func(w http.ResponseWriter, r *http.Request) {
		be.mu.Lock()
		defer be.mu.Unlock()
		if be.createFail {
			writeJSON(w, http.StatusConflict, map[string]string{"detail": "Time slot conflicts with existing booking"})
			return
		}
		var req models.BookingCreate
		_ = json.NewDecoder(r.Body).Decode(&req)
		be.created = append(be.created, req)
		be.idemKeys = append(be.idemKeys, r.Header.Get("Idempotency-Key"))
		bk := &models.Booking{
			ID: "bk-1", SaunaID: req.SaunaID, BookingDate: req.BookingDate,
			StartTime: req.StartTime + ":00", EndTime: req.EndTime + ":00",
			GuestCount: req.GuestCount, TotalPrice: 40000, CustomerName: req.CustomerName,
			Status: models.StatusConfirmed,
		}
		be.bookings[bk.ID] = bk
		writeJSON(w, http.StatusCreated, bk)
	})
	mux.HandleFunc("GET /bookings/{id}", func(w http.ResponseWriter, r *http.Request) {
		be.mu.Lock()
		defer be.mu.Unlock()
		bk, ok := be.bookings[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Booking not found"})
			return
		}
		withName := *bk
		withName.SaunaName = cedar.Name
		writeJSON(w, http.StatusOK, withName)
	})
	mux.HandleFunc("PATCH /bookings/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		be.mu.Lock()
		defer be.mu.Unlock()
		bk, ok := be.bookings[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Booking not found"})
			return
		}
		bk.Status = models.StatusCancelled
		be.cancelled = append(be.cancelled, bk.ID)
		writeJSON(w, http.StatusOK, bk)
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: "tok-1", TokenType: "bearer"})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		writeJSON(w, http.StatusOK, models.User{ID: "u1", Email: "kim@example.com", FullName: "Kim Minji"})
	})
	mux.HandleFunc("GET /admin/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.DashboardStats{TotalBookings: 12, TotalRevenue: 480000})
	})
	mux.HandleFunc("GET /admin/revenue", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.RevenueByDate{{Date: "2025-03-15", Revenue: 40000, BookingCount: 1}})
	})
	mux.HandleFunc("GET /admin/bookings-by-sauna", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.BookingsBySauna{{SaunaID: "s1", SaunaName: "Cedar Room", BookingCount: 1, Revenue: 40000}})
	})
	mux.HandleFunc("GET /admin/recent-bookings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.RecentBooking{{ID: "bk-1", CustomerName: "Kim"}})
	})

	be.srv = httptest.NewServer(mux)
	t.Cleanup(be.srv.Close)
	return be
}

func (be *backend) failCreate(fail bool) {
	be.mu.Lock()
	be.createFail = fail
	be.mu.Unlock()
}

type fakeSheets struct {
	exported *report.Data
	err      error
}

func (f *fakeSheets) ExportReport(ctx context.Context, d *report.Data) error {
	if f.err != nil {
		return f.err
	}
	f.exported = d
	return nil
}

type harness struct {
	bot *Bot
	tg  *fakeTelegram
	be  *backend
	db  *db.DB
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	be := newBackend(t)

	database, err := db.NewDB(filepath.Join(t.TempDir(), "bot.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	tg := &fakeTelegram{}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	b, err := NewWithTelegramClient(tg, saunaapi.NewClient(be.srv.URL, 5*time.Second), database, opts, nil)
	require.NoError(t, err)
	return &harness{bot: b, tg: tg, be: be, db: database}
}

func messageUpdate(chat, user int64, text string) *tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 100,
		From:      &tgbotapi.User{ID: user},
		Chat:      &tgbotapi.Chat{ID: chat},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		n := strings.IndexByte(text, ' ')
		if n < 0 {
			n = len(text)
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return &tgbotapi.Update{Message: msg}
}

func callbackUpdate(chat, user int64, data string) *tgbotapi.Update {
	return &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: user},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: chat}},
		Data:    data,
	}}
}

func (h *harness) send(text string) {
	h.bot.handleUpdate(context.Background(), messageUpdate(chatID, userID, text))
}

func (h *harness) press(data string) {
	h.bot.handleUpdate(context.Background(), callbackUpdate(chatID, userID, data))
}

// bookUntilConfirm walks the wizard up to the confirmation screen.
func (h *harness) bookUntilConfirm(t *testing.T) {
	t.Helper()
	h.send("/book")
	_, ok := findButton(h.tg.lastMarkup(), "sauna:s1")
	require.True(t, ok, "sauna list should offer s1")

	h.press("sauna:s1")
	assert.Contains(t, h.tg.lastText(), "Cedar Room")
	_, ok = findButton(h.tg.lastMarkup(), "date:2025-03-20")
	require.True(t, ok, "calendar should offer a future date")
	_, ok = findButton(h.tg.lastMarkup(), "date:2025-03-14")
	assert.False(t, ok, "past dates are not selectable")

	h.press("date:2025-03-20")
	kb := h.tg.lastMarkup()
	_, ok = findButton(kb, "slot:10:00")
	require.True(t, ok)
	assert.True(t, hasButtonText(kb, "⛔ 13:00"))
	_, ok = findButton(kb, "slot:13:00")
	assert.False(t, ok, "unavailable slots are not clickable")

	h.press("slot:10:00")
	_, ok = findButton(h.tg.lastMarkup(), cbNext)
	assert.True(t, ok, "one hour is already a bookable range")

	h.press("slot:12:00")
	kb = h.tg.lastMarkup()
	assert.True(t, hasButtonText(kb, "✅ 10:00"))
	assert.True(t, hasButtonText(kb, "✅ 11:00"))
	assert.True(t, hasButtonText(kb, "12:00"))
	assert.Contains(t, h.tg.lastText(), "10:00 – 12:00 (2 h)")
	assert.Contains(t, h.tg.lastText(), "₩40,000")

	h.press(cbNext)
	assert.Contains(t, h.tg.lastText(), "name")

	h.send("Kim Minji")
	assert.Contains(t, h.tg.lastText(), "phone")
	h.send("010-1234-5678")
	assert.Contains(t, h.tg.lastText(), "email")
	h.send("kim@example.com")
	assert.Contains(t, h.tg.lastText(), "requests")
	h.send("-")

	text := h.tg.lastText()
	assert.Contains(t, text, "Booking details")
	assert.Contains(t, text, "Kim Minji")
	assert.Contains(t, text, "01012345678")
	assert.Contains(t, text, "₩40,000")
}

func TestBookingFlow(t *testing.T) {
	h := newHarness(t, Options{})
	h.bookUntilConfirm(t)

	h.press(cbConfirm)

	require.Len(t, h.be.created, 1)
	req := h.be.created[0]
	assert.Equal(t, "s1", req.SaunaID)
	assert.Equal(t, "2025-03-20", req.BookingDate)
	assert.Equal(t, "10:00", req.StartTime)
	assert.Equal(t, "12:00", req.EndTime)
	assert.Equal(t, 1, req.GuestCount)
	assert.Equal(t, "kim@example.com", req.CustomerEmail)
	assert.NotEmpty(t, h.be.idemKeys[0])

	assert.Contains(t, h.tg.lastText(), "bk-1")
	assert.Contains(t, h.tg.lastText(), "confirmed")

	ctx := context.Background()
	entries, err := h.db.ListBookings(ctx, chatID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Cedar Room", entries[0].SaunaName)

	tasks, err := h.db.DueSyncTasks(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "bk-1", tasks[0].BookingID)

	h.send("/my_bookings")
	assert.Contains(t, h.tg.lastText(), "bk-1")
	assert.Contains(t, h.tg.lastText(), "10:00–12:00")
}

func TestBookingFailureKeepsDraft(t *testing.T) {
	h := newHarness(t, Options{})
	h.bookUntilConfirm(t)

	h.be.failCreate(true)
	h.press(cbConfirm)

	assert.Contains(t, h.tg.lastText(), "Time slot conflicts with existing booking")
	assert.True(t, hasButtonText(h.tg.lastMarkup(), "🔁 Retry"))
	assert.Equal(t, "Booking failed", h.tg.lastCallbackText())

	entries, err := h.db.ListBookings(context.Background(), chatID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	h.be.failCreate(false)
	h.press(cbConfirm)
	require.Len(t, h.be.created, 1)
	assert.Equal(t, "10:00", h.be.created[0].StartTime)
	assert.Contains(t, h.tg.lastText(), "bk-1")
}

func TestPastDateRejected(t *testing.T) {
	h := newHarness(t, Options{})
	h.send("/book")
	h.press("sauna:s1")
	h.press("date:2025-03-01")
	assert.Equal(t, "This date is in the past", h.tg.lastCallbackText())
}

func TestGuestCounterClamped(t *testing.T) {
	h := newHarness(t, Options{})
	h.send("/book")
	h.press("sauna:s1")

	h.press("guests:-")
	assert.True(t, hasButtonText(h.tg.lastMarkup(), "👥 1 / 4"))
	for i := 0; i < 6; i++ {
		h.press("guests:+")
	}
	assert.True(t, hasButtonText(h.tg.lastMarkup(), "👥 4 / 4"))
}

func TestStartDeepLinkPreselectsSauna(t *testing.T) {
	h := newHarness(t, Options{})
	h.send("/start sauna_s1")

	assert.Contains(t, h.tg.lastText(), "Cedar Room")
	_, ok := findButton(h.tg.lastMarkup(), "date:2025-03-20")
	assert.True(t, ok)

	h.send("/start sauna_missing")
	assert.Contains(t, h.tg.lastText(), "Choose a sauna")
}

func TestCancelBookingOwnership(t *testing.T) {
	h := newHarness(t, Options{})
	h.bookUntilConfirm(t)
	h.press(cbConfirm)

	h.bot.handleUpdate(context.Background(), messageUpdate(99, 99, "/cancel_booking bk-1"))
	assert.Equal(t, "Booking not found.", h.tg.lastText())
	assert.Empty(t, h.be.cancelled)

	h.send("/cancel_booking bk-1")
	assert.Equal(t, "Booking bk-1 cancelled.", h.tg.lastText())
	assert.Equal(t, []string{"bk-1"}, h.be.cancelled)

	entries, err := h.db.ListBookings(context.Background(), chatID, 10)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, entries[0].Status)
}

func TestLoginPersistsSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.send("/login kim@example.com secret")

	assert.Equal(t, "✅ Signed in as Kim Minji.", h.tg.lastText())
	var deleted bool
	for _, r := range h.tg.requests {
		if _, ok := r.(tgbotapi.DeleteMessageConfig); ok {
			deleted = true
		}
	}
	assert.True(t, deleted, "password message should be deleted")

	token, user, err := h.db.LoadSession(context.Background(), chatID)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, "u1", user.ID)

	h.send("/logout")
	_, _, err = h.db.LoadSession(context.Background(), chatID)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestAdminCommands(t *testing.T) {
	sheets := &fakeSheets{}
	h := newHarness(t, Options{Admins: []int64{adminID}, Sheets: sheets})

	h.send("/stats")
	assert.Contains(t, h.tg.lastText(), "administrators only")

	h.bot.handleUpdate(context.Background(), messageUpdate(adminID, adminID, "/stats"))
	assert.Contains(t, h.tg.lastText(), "Dashboard")
	assert.Contains(t, h.tg.lastText(), "₩480,000")
	assert.Contains(t, h.tg.lastText(), "Sheets queue: 0 pending, 0 failed")

	h.bot.handleUpdate(context.Background(), messageUpdate(adminID, adminID, "/report"))
	var doc *tgbotapi.DocumentConfig
	for _, c := range h.tg.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			doc = &d
		}
	}
	require.NotNil(t, doc)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "sauna_report_2025-03-15.xlsx", file.Name)
	assert.NotEmpty(t, file.Bytes)
	require.NotNil(t, sheets.exported)
	assert.Equal(t, 7, sheets.exported.PeriodDays)
	assert.Contains(t, h.tg.lastText(), "Google Sheets")

	h.bot.SetAdmins(nil)
	h.bot.handleUpdate(context.Background(), messageUpdate(adminID, adminID, "/stats"))
	assert.Contains(t, h.tg.lastText(), "administrators only")
}

func TestReportExportFailureIsQueued(t *testing.T) {
	sheets := &fakeSheets{err: errors.New("quota exceeded")}
	h := newHarness(t, Options{Admins: []int64{adminID}, Sheets: sheets})

	h.bot.handleUpdate(context.Background(), messageUpdate(adminID, adminID, "/report"))
	assert.Contains(t, h.tg.lastText(), "will be retried")

	tasks, err := h.db.DueSyncTasks(context.Background(), time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, db.TaskExportReport, tasks[0].TaskType)

	var queued report.Data
	require.NoError(t, json.Unmarshal([]byte(tasks[0].Payload), &queued))
	assert.Equal(t, 7, queued.PeriodDays)

	h.bot.handleUpdate(context.Background(), messageUpdate(adminID, adminID, "/stats"))
	assert.Contains(t, h.tg.lastText(), "Sheets queue: 1 pending, 0 failed")
}

func TestThrottle(t *testing.T) {
	h := newHarness(t, Options{UserRate: 1, UserBurst: 2})
	h.send("/help")
	h.send("/help")
	h.send("/help")
	assert.Equal(t, 2, h.tg.count())
}

func TestSessionStoreExpiry(t *testing.T) {
	created := 0
	ss := newSessionStore(time.Minute, func(id int64) *chatSession {
		created++
		return &chatSession{chatID: id}
	})

	a := ss.get(1, fixedNow)
	assert.Same(t, a, ss.get(1, fixedNow.Add(30*time.Second)))
	assert.Equal(t, 1, created)

	b := ss.get(1, fixedNow.Add(5*time.Minute))
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, created)

	ss.get(2, fixedNow.Add(5*time.Minute))
	assert.Equal(t, 2, ss.len())
	assert.Equal(t, 2, ss.cleanup(fixedNow.Add(10*time.Minute)))
	assert.Zero(t, ss.len())
}

func TestNormalizeAndValidatePhone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		ok       bool
	}{
		{"010-1234-5678", "01012345678", true},
		{"+82 10 1234 5678", "+821012345678", true},
		{"02-123-4567", "021234567", true},
		{"123", "", false},
		{"", "", false},
		{"+1234567890123456", "", false},
	}

	for _, tt := range tests {
		res, ok := normalizeAndValidatePhone(tt.input)
		assert.Equal(t, tt.ok, ok, "input: %s", tt.input)
		assert.Equal(t, tt.expected, res, "input: %s", tt.input)
	}
}

func TestShortClockAndRedact(t *testing.T) {
	assert.Equal(t, "10:00", shortClock("10:00:00"))
	assert.Equal(t, "10:00", shortClock("10:00"))
	assert.Equal(t, "/login ***", redact("/login a@b.c secret"))
	assert.Equal(t, "/help", redact("/help"))
}
