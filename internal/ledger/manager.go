package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cashbook/internal/cache"
	"cashbook/internal/core"
)

const loadTimeout = 30 * time.Second

// Manager hands out loaded sessions, one per user, kept in a bounded cache.
//
// Every durable write advances the owner's write epoch. A cached session is
// served only while it reflects the current epoch, so a write made through a
// session that was evicted while still in use forces the next request to
// reload from the store.
type Manager struct {
	store     Store
	publisher Publisher
	sessions  cache.Cache[*Session]
	loads     singleflight.Group

	mu     sync.Mutex
	epochs map[string]uint64
}

// NewManager creates a manager. publisher may be nil.
func NewManager(store Store, publisher Publisher, sessions cache.Cache[*Session]) *Manager {
	m := &Manager{
		store:     store,
		publisher: publisher,
		sessions:  sessions,
		epochs:    make(map[string]uint64),
	}
	if n, ok := sessions.(cache.EvictNotifier[*Session]); ok {
		n.OnEvict(func(_ string, s *Session) { s.markStale() })
	}
	return m
}

// Session returns the user's loaded session, loading it from the store on a
// cache miss, after a divergence, or after a write it did not see.
func (m *Manager) Session(ctx context.Context, user core.User) (*Session, error) {
	if user.ID == "" {
		return nil, fmt.Errorf("%w: no user", core.ErrPermission)
	}
	if s, ok := m.cached(user.ID); ok {
		return s, nil
	}

	v, err, _ := m.loads.Do(user.ID, func() (any, error) {
		if s, ok := m.cached(user.ID); ok {
			return s, nil
		}
		// shared by every caller waiting on this key, so it must not end
		// with the first caller's request
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		s := NewSession(user, m.store, WithPublisher(m.publisher))
		s.onCommit = func() { m.committed(s) }
		epoch := m.epoch(user.ID)
		if err := s.Load(lctx); err != nil {
			return nil, fmt.Errorf("load session for %s: %w", user.ID, err)
		}
		m.mu.Lock()
		s.epoch = epoch
		m.mu.Unlock()

		m.sessions.Set(user.ID, s)
		slog.DebugContext(ctx, "Ledger session cached", "user_id", user.ID, "cached_sessions", m.sessions.Size())
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Invalidate drops the cached session of userID.
func (m *Manager) Invalidate(userID string) {
	m.sessions.Delete(userID)
}

func (m *Manager) cached(userID string) (*Session, bool) {
	s, ok := m.sessions.Get(userID)
	if !ok || s.Stale() {
		return nil, false
	}
	m.mu.Lock()
	current := s.epoch == m.epochs[userID]
	m.mu.Unlock()
	if !current {
		return nil, false
	}
	return s, true
}

func (m *Manager) epoch(userID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epochs[userID]
}

// committed advances the owner's epoch. The writing session keeps up only if
// it already reflected every earlier write.
func (m *Manager) committed(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := s.user.ID
	prev := m.epochs[id]
	m.epochs[id] = prev + 1
	if s.epoch == prev && !s.Stale() {
		s.epoch = prev + 1
		return
	}
	slog.Debug("Write through an outdated ledger session", "user_id", id)
}
