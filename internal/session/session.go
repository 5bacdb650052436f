// Package session holds the authentication context of one chat.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/AWS-JaeminJung/sauna-app/internal/events"
	"github.com/AWS-JaeminJung/sauna-app/internal/models"
)

// State is what listeners observe after every change.
type State struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// LoggedIn reports whether a token is present.
func (s State) LoggedIn() bool {
	return s.Token != ""
}

// Listener is notified after each change.
type Listener func(State)

// Store keeps the token and user of one session.
type Store struct {
	mu    sync.RWMutex
	token string
	user  *models.User
	bus   *events.EventBus
}

// NewStore creates an empty session with its own event bus.
func NewStore() *Store {
	return &Store{bus: events.NewEventBus()}
}

// Restore creates a session from persisted values without notifying.
func Restore(token string, user *models.User) *Store {
	s := NewStore()
	s.token = token
	s.user = user
	return s
}

// Token implements saunaapi.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed in user or nil.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAdmin reports whether the signed in user is an admin.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Token: s.token, User: s.user}
}

// SetAuth stores a token and its user.
func (s *Store) SetAuth(token string, user *models.User) {
	s.mu.Lock()
	s.token = token
	s.user = user
	st := State{Token: s.token, User: s.user}
	s.mu.Unlock()
	s.notify(st)
}

// SetUser replaces the user and keeps the token.
func (s *Store) SetUser(user *models.User) {
	s.mu.Lock()
	s.user = user
	st := State{Token: s.token, User: s.user}
	s.mu.Unlock()
	s.notify(st)
}

// Logout clears the session.
func (s *Store) Logout() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	s.notify(State{})
}

// Subscribe registers a listener and returns its unsubscribe func. The
// listener receives the state as it was when the change was made.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	return s.bus.Subscribe(events.SessionChanged, func(e events.Event) error {
		var st State
		if err := e.Decode(&st); err != nil {
			return err
		}
		l(st)
		return nil
	})
}

func (s *Store) notify(st State) {
	_ = s.bus.PublishJSON(events.SessionChanged, st)
}

// AuthAPI is the part of the service used to sign in.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.TokenResponse, error)
	Me(ctx context.Context, token string) (*models.User, error)
}

// Login signs in, loads the profile and stores both. When the profile
// cannot be loaded the session is logged out.
func Login(ctx context.Context, api AuthAPI, s *Store, email, password string) (*models.User, error) {
	tok, err := api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	user, err := api.Me(ctx, tok.AccessToken)
	if err != nil {
		s.Logout()
		return nil, fmt.Errorf("load profile: %w", err)
	}

	s.SetAuth(tok.AccessToken, user)
	return user, nil
}
