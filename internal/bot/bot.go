package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AWS-JaeminJung/sauna-app/internal/db"
	"github.com/AWS-JaeminJung/sauna-app/internal/events"
	"github.com/AWS-JaeminJung/sauna-app/internal/metrics"
	"github.com/AWS-JaeminJung/sauna-app/internal/report"
	"github.com/AWS-JaeminJung/sauna-app/internal/saunaapi"
)

type telegramClient interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	SelfUser() tgbotapi.User
}

type realTelegramClient struct {
	api *tgbotapi.BotAPI
}

func (c *realTelegramClient) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	return c.api.Send(msg)
}

func (c *realTelegramClient) Request(msg tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return c.api.Request(msg)
}

func (c *realTelegramClient) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return c.api.GetUpdatesChan(cfg)
}

func (c *realTelegramClient) SelfUser() tgbotapi.User {
	return c.api.Self
}

// ReportExporter pushes the admin report to an external sheet.
type ReportExporter interface {
	ExportReport(ctx context.Context, d *report.Data) error
}

// Options tune the bot behaviour.
type Options struct {
	Admins            []int64
	SessionTimeout    time.Duration
	UserRate          float64
	UserBurst         int
	SaunaPageSize     int
	RevenuePeriodDays int
	RecentLimit       int
	ReportDir         string
	Sheets            ReportExporter
	Now               func() time.Time
	Debug             bool
}

// Bot is the Telegram front-end of the sauna booking service.
type Bot struct {
	api      *saunaapi.Client
	db       *db.DB
	tg       telegramClient
	sessions *sessionStore
	limiter  *userLimiter
	bus      *events.EventBus
	opts     Options
	logger   *zerolog.Logger

	adminsMu sync.RWMutex
	admins   map[int64]struct{}
}

// New connects to Telegram with token.
func New(token string, apiClient *saunaapi.Client, database *db.DB, opts Options, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = opts.Debug
	return newBot(&realTelegramClient{api: api}, apiClient, database, opts, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, apiClient *saunaapi.Client, database *db.DB, opts Options, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, apiClient, database, opts, logger)
}

func newBot(tg telegramClient, apiClient *saunaapi.Client, database *db.DB, opts Options, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if apiClient == nil {
		return nil, fmt.Errorf("api client is nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 30 * time.Minute
	}
	if opts.SaunaPageSize <= 0 {
		opts.SaunaPageSize = 8
	}
	if opts.RevenuePeriodDays <= 0 {
		opts.RevenuePeriodDays = 7
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 10
	}

	b := &Bot{
		api:     apiClient,
		db:      database,
		tg:      tg,
		limiter: newUserLimiter(opts.UserRate, opts.UserBurst),
		bus:     events.NewEventBus(),
		opts:    opts,
		logger:  logger,
	}
	b.sessions = newSessionStore(opts.SessionTimeout, b.newChatSession)
	b.SetAdmins(opts.Admins)
	b.subscribe()
	return b, nil
}

// SetAdmins replaces the configured admin ids.
func (b *Bot) SetAdmins(ids []int64) {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	b.adminsMu.Lock()
	b.admins = m
	b.adminsMu.Unlock()
}

// Events exposes the bus the bot publishes booking events on.
func (b *Bot) Events() *events.EventBus {
	return b.bus
}

// Start begins polling updates and handles commands until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("Sauna bot authorized")

	cleanup := time.NewTicker(time.Minute)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			b.cleanup()
		case update, ok := <-updates:
			if !ok {
				return
			}
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) cleanup() {
	now := b.opts.Now()
	if n := b.sessions.cleanup(now); n > 0 {
		b.logger.Debug().Int("removed", n).Msg("expired sessions removed")
	}
	b.limiter.prune(now, b.opts.SessionTimeout)
	metrics.SetActiveSessions(b.sessions.len())
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	started := time.Now()

	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if !b.limiter.allow(cq.From.ID, b.opts.Now()) {
			metrics.IncThrottled()
			_, _ = b.tg.Request(tgbotapi.NewCallback(cq.ID, "Too many requests, slow down"))
			return
		}
		l.Debug().
			Int64("user_id", cq.From.ID).
			Str("data", cq.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, cq)
		metrics.ObserveUpdate("callback", time.Since(started).Seconds())
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return
		}
		if !b.limiter.allow(msg.From.ID, b.opts.Now()) {
			metrics.IncThrottled()
			return
		}
		l.Debug().
			Int64("user_id", msg.From.ID).
			Str("text", redact(msg.Text)).
			Msg("Handling message")
		b.handleMessage(ctx, msg)
		metrics.ObserveUpdate("message", time.Since(started).Seconds())
	}
}

// redact hides the password of a /login command in logs.
func redact(text string) string {
	if strings.HasPrefix(text, "/login") {
		return "/login ***"
	}
	return text
}

func (b *Bot) isAdmin(userID int64, sess *chatSession) bool {
	b.adminsMu.RLock()
	_, ok := b.admins[userID]
	b.adminsMu.RUnlock()
	if ok {
		return true
	}
	return sess != nil && sess.auth.IsAdmin()
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) replyMarkdown(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, _ = b.tg.Send(msg)
}

// show edits messageID in place, or sends a new message when it is 0.
func (b *Bot) show(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if messageID != 0 {
		var edit tgbotapi.EditMessageTextConfig
		if markup != nil {
			edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
		} else {
			edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
		}
		edit.ParseMode = tgbotapi.ModeMarkdown
		_, err := b.tg.Send(edit)
		if err == nil || strings.Contains(err.Error(), "message is not modified") {
			return
		}
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, _ = b.tg.Send(msg)
}

func (b *Bot) answerCallback(id, text string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, text))
	return err
}
