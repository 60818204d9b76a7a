package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rpggio/chemviz/internal/repository"
)

// Manager owns the session token and publishes transitions to subscribers.
// A nil store keeps the token in memory only.
type Manager struct {
	store  TokenStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	token   string
	subs    map[int]func(Event)
	nextSub int
}

// NewManager creates a new session manager.
func NewManager(store TokenStore, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
		now:    time.Now,
		subs:   make(map[int]func(Event)),
	}
}

// Load restores a persisted token. A missing token leaves the session anonymous.
func (m *Manager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	token, err := m.store.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			token = ""
		} else {
			return fmt.Errorf("loading session token: %w", err)
		}
	}

	m.mu.Lock()
	m.token = strings.TrimSpace(token)
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Debug("session loaded", "state", m.State())
	}
	return nil
}

// Token returns the current token, or "" when anonymous.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// State returns the current authentication state.
func (m *Manager) State() State {
	if m.Token() == "" {
		return StateAnonymous
	}
	return StateAuthenticated
}

// IsAuthenticated reports whether a token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	state := m.State()
	return Status{State: state, Authenticated: state == StateAuthenticated}
}

// SetToken persists token and moves the session to authenticated.
func (m *Manager) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidInput
	}

	if m.store != nil {
		if err := m.store.Set(ctx, TokenKey, token); err != nil {
			return fmt.Errorf("persisting session token: %w", err)
		}
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()

	m.publish(EventSignedIn, "")
	return nil
}

// Logout clears the token. The in-memory session is cleared even if the
// store fails, and the store error is returned.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.clear(ctx)
	m.publish(EventSignedOut, "")
	if err != nil {
		return fmt.Errorf("clearing session token: %w", err)
	}
	return nil
}

// Invalidate clears the token after the backend rejected it. It always
// publishes EventInvalidated, including when the session was already anonymous.
func (m *Manager) Invalidate(ctx context.Context, reason string) {
	if err := m.clear(ctx); err != nil && m.logger != nil {
		m.logger.Warn("failed to clear invalidated token", "error", err)
	}
	if m.logger != nil {
		m.logger.Info("session invalidated", "reason", reason)
	}
	m.publish(EventInvalidated, reason)
}

// Subscribe registers fn for session events and returns a function that
// removes it. Callbacks run synchronously, outside the manager's lock.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) clear(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	return m.store.Delete(ctx, TokenKey)
}

func (m *Manager) publish(eventType EventType, reason string) {
	event := Event{
		Type:   eventType,
		State:  m.State(),
		Reason: reason,
		At:     m.now(),
	}

	m.mu.RLock()
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	slices.Sort(ids)

	for _, id := range ids {
		m.mu.RLock()
		fn, ok := m.subs[id]
		m.mu.RUnlock()
		if ok && fn != nil {
			fn(event)
		}
	}
}
