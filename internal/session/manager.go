package session

import (
	"context"
	"fmt"
	"sync"

	authdomain "github.com/smallbiznis/cbam/internal/auth/domain"
	"go.uber.org/zap"
)

// Manager caches the current session behind a readiness barrier and fans
// provider events out to subscribers. The newest event always wins.
type Manager struct {
	log      *zap.Logger
	provider Provider

	startOnce sync.Once
	ready     chan struct{}

	// delivery serialises apply and notify so subscribers see events in
	// sequence order. Handlers must not sign in or out synchronously.
	delivery sync.Mutex

	mu        sync.RWMutex
	current   *UserSession
	initErr   error
	lastSeq   uint64
	handlers  map[uint64]func(*UserSession)
	nextID    uint64
	cancelSub func()
}

func NewManager(provider Provider, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:      log.Named("session.manager"),
		provider: provider,
		ready:    make(chan struct{}),
		handlers: make(map[uint64]func(*UserSession)),
	}
}

// Start subscribes to the provider and restores the initial session. Only the
// first call does any work; later calls return the first outcome.
func (m *Manager) Start(ctx context.Context) error {
	m.startOnce.Do(func() {
		cancel := m.provider.Subscribe(m.apply)

		sess, err := m.provider.CurrentSession(ctx)

		m.delivery.Lock()
		defer m.delivery.Unlock()

		m.mu.Lock()
		m.cancelSub = cancel
		if err != nil {
			m.initErr = fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
			m.mu.Unlock()
			m.log.Warn("session restore failed", zap.Error(err))
			close(m.ready)
			return
		}
		// An event that raced the restore is newer than the restored state.
		applied := m.lastSeq == 0
		if applied {
			m.current = sess.clone()
		}
		current := m.current.clone()
		handlers := m.snapshotLocked()
		m.mu.Unlock()

		close(m.ready)
		m.log.Debug("session restored", zap.String("event", string(EventInitialSession)), zap.Bool("signed_in", current != nil))
		if applied {
			notify(handlers, current)
		}
	})

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initErr
}

// Stop cancels the provider subscription.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancelSub
	m.cancelSub = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) apply(ev Event) {
	m.delivery.Lock()
	defer m.delivery.Unlock()

	m.mu.Lock()
	if ev.Seq <= m.lastSeq {
		m.mu.Unlock()
		m.log.Debug("dropping stale session event",
			zap.String("event", string(ev.Type)),
			zap.Uint64("seq", ev.Seq),
			zap.Uint64("last_seq", m.lastSeq),
		)
		return
	}
	m.lastSeq = ev.Seq
	m.current = ev.Session.clone()
	// A delivered event proves the provider is reachable again.
	m.initErr = nil
	current := m.current.clone()
	handlers := m.snapshotLocked()
	m.mu.Unlock()

	notify(handlers, current)
}

func (m *Manager) snapshotLocked() []func(*UserSession) {
	out := make([]func(*UserSession), 0, len(m.handlers))
	for _, h := range m.handlers {
		out = append(out, h)
	}
	return out
}

func notify(handlers []func(*UserSession), sess *UserSession) {
	for _, h := range handlers {
		h(sess.clone())
	}
}

func (m *Manager) wait(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetCurrentSession waits for Start to finish and returns the cached session,
// nil when signed out.
func (m *Manager) GetCurrentSession(ctx context.Context) (*UserSession, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.initErr != nil {
		return nil, m.initErr
	}
	return m.current.clone(), nil
}

// GetCurrentUser is GetCurrentSession reduced to the user profile.
func (m *Manager) GetCurrentUser(ctx context.Context) (*authdomain.Profile, error) {
	sess, err := m.GetCurrentSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	user := sess.User
	return &user, nil
}

// OnSessionChange registers handler for every applied event. The returned
// func removes it.
func (m *Manager) OnSessionChange(handler func(*UserSession)) (cancel func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.handlers[id] = handler
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.handlers, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) SignUp(ctx context.Context, email, password string) (*UserSession, error) {
	return m.provider.SignUp(ctx, email, password)
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (*UserSession, error) {
	return m.provider.SignIn(ctx, email, password)
}

func (m *Manager) SignOut(ctx context.Context) error {
	return m.provider.SignOut(ctx)
}
