package bot

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AWS-JaeminJung/sauna-app/internal/booking"
	"github.com/AWS-JaeminJung/sauna-app/internal/models"
	"github.com/AWS-JaeminJung/sauna-app/internal/saunaapi"
	"github.com/AWS-JaeminJung/sauna-app/internal/session"
)

// inputStep is the text field the info step is waiting for.
type inputStep string

const (
	inputNone  inputStep = ""
	inputName  inputStep = "name"
	inputPhone inputStep = "phone"
	inputEmail inputStep = "email"
	inputNotes inputStep = "notes"
)

// chatSession is the state of one chat.
type chatSession struct {
	mu           sync.Mutex
	chatID       int64
	auth         *session.Store
	api          *saunaapi.Client
	wizard       *booking.Wizard
	input        inputStep
	customer     booking.Customer
	screenID     int
	lastActivity time.Time
	unsubscribe  func()
}

func (s *chatSession) touch(now time.Time) {
	s.lastActivity = now
}

// IsExpired checks if the session has been idle longer than timeout.
func (s *chatSession) IsExpired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.lastActivity) > timeout
}

// newChatSession restores the persisted login of chatID and wires the
// session to the shared client and event bus.
func (b *Bot) newChatSession(chatID int64) *chatSession {
	auth := session.NewStore()
	if b.db != nil {
		token, user, err := b.db.LoadSession(context.Background(), chatID)
		if err == nil && token != "" {
			auth = session.Restore(token, user)
		}
	}

	s := &chatSession{
		chatID: chatID,
		auth:   auth,
		api:    b.api.WithTokens(auth),
	}
	s.wizard = b.newWizard(s)
	s.unsubscribe = auth.Subscribe(func(st session.State) {
		b.persistSession(chatID, st)
	})
	return s
}

func (b *Bot) newWizard(s *chatSession, opts ...booking.Option) *booking.Wizard {
	base := []booking.Option{
		booking.WithPublisher(b.bus),
		booking.WithLogger(b.logger.With().Int64("chat_id", s.chatID).Logger()),
		booking.WithClock(b.opts.Now),
	}
	return booking.New(s.api, append(base, opts...)...)
}

// restart replaces the wizard of s, optionally at a preselected sauna.
func (b *Bot) restart(s *chatSession, sauna *models.Sauna) {
	if sauna != nil {
		s.wizard = b.newWizard(s, booking.WithPreselectedSauna(sauna))
	} else {
		s.wizard = b.newWizard(s)
	}
	s.input = inputNone
	s.customer = booking.Customer{}
	s.screenID = 0
}

func (b *Bot) persistSession(chatID int64, st session.State) {
	if b.db == nil {
		return
	}
	ctx := context.Background()
	var err error
	if st.LoggedIn() {
		err = b.db.SaveSession(ctx, chatID, st.Token, st.User)
	} else {
		err = b.db.DeleteSession(ctx, chatID)
	}
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to persist session")
	}
}

// sessionStore manages chat sessions with an idle timeout.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*chatSession
	timeout  time.Duration
	create   func(chatID int64) *chatSession
}

func newSessionStore(timeout time.Duration, create func(int64) *chatSession) *sessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &sessionStore{
		sessions: make(map[int64]*chatSession),
		timeout:  timeout,
		create:   create,
	}
}

// get returns the live session of chatID, replacing an expired one.
func (ss *sessionStore) get(chatID int64, now time.Time) *chatSession {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s, ok := ss.sessions[chatID]
	if ok && !s.IsExpired(now, ss.timeout) {
		s.touch(now)
		return s
	}
	if ok && s.unsubscribe != nil {
		s.unsubscribe()
	}

	s = ss.create(chatID)
	s.touch(now)
	ss.sessions[chatID] = s
	return s
}

// cleanup removes expired sessions.
func (ss *sessionStore) cleanup(now time.Time) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for id, s := range ss.sessions {
		if s.IsExpired(now, ss.timeout) {
			if s.unsubscribe != nil {
				s.unsubscribe()
			}
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed
}

func (ss *sessionStore) len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userLimiter holds one token bucket per Telegram user.
type userLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[int64]*limiterEntry
}

func newUserLimiter(rps float64, burst int) *userLimiter {
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &userLimiter{limit: limit, burst: burst, limiters: make(map[int64]*limiterEntry)}
}

func (l *userLimiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[userID]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *userLimiter) prune(now time.Time, idle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, e := range l.limiters {
		if now.Sub(e.lastSeen) > idle {
			delete(l.limiters, id)
		}
	}
}
