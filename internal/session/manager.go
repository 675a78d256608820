// Package session keeps one cart and at most one live checkout per
// storefront session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jcmexdev/foodie-storefront/internal/cart"
	"github.com/jcmexdev/foodie-storefront/internal/checkout"
	"github.com/jcmexdev/foodie-storefront/internal/coordinator"
	"github.com/jcmexdev/foodie-storefront/internal/coordinator/sagalog"
	"github.com/jcmexdev/foodie-storefront/internal/pkg/cache"
)

var ErrNoCheckout = errors.New("no checkout in progress")

type session struct {
	cart     *cart.Store
	checkout *checkout.Machine
	lastSeen time.Time
}

// Manager is the registry of sessions. Carts are hydrated lazily from the
// cache on first use and written back by the store itself.
type Manager struct {
	cache   cache.Cache
	charger coordinator.Charger
	sagaLog sagalog.Repository
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewManager(c cache.Cache, charger coordinator.Charger, sagaLog sagalog.Repository) *Manager {
	return &Manager{
		cache:    c,
		charger:  charger,
		sagaLog:  sagaLog,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Cart returns the session's cart store, hydrating it on first access.
func (m *Manager) Cart(ctx context.Context, id string) *cart.Store {
	return m.get(ctx, id).cart
}

func (m *Manager) get(ctx context.Context, id string) *session {
	now := m.now()

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		m.touch(s, now)
		return s
	}

	// Hydrate without holding mu; a store that loses the race is discarded.
	fresh := cart.NewStore(ctx, m.cache, m.cache.GenerateKey(id, cart.StorageKey))

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.lastSeen = now
		return s
	}
	s = &session{cart: fresh, lastSeen: now}
	m.sessions[id] = s
	slog.DebugContext(ctx, "session opened", "session_id", id)
	return s
}

func (m *Manager) touch(s *session, now time.Time) {
	m.mu.Lock()
	s.lastSeen = now
	m.mu.Unlock()
}

// StartCheckout returns the session's live checkout, or starts a new one
// when there is none or the previous one is finished. An empty cart yields
// checkout.ErrEmptyCart.
func (m *Manager) StartCheckout(ctx context.Context, id string) (*checkout.Machine, error) {
	s := m.get(ctx, id)

	m.mu.Lock()
	defer m.mu.Unlock()
	if s.checkout != nil && !s.checkout.Closed() {
		return s.checkout, nil
	}
	mc, err := checkout.New(s.cart, m.charger, checkout.WithSagaLog(m.sagaLog))
	if err != nil {
		return nil, err
	}
	s.checkout = mc
	slog.InfoContext(ctx, "checkout started", "session_id", id, "items", s.cart.TotalItems())
	return mc, nil
}

// Checkout returns the session's most recent checkout, finished or not.
func (m *Manager) Checkout(id string) (*checkout.Machine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || s.checkout == nil {
		return nil, ErrNoCheckout
	}
	return s.checkout, nil
}

// Evict drops sessions idle for longer than idle, except those with a
// settlement in flight. Carts stay in the cache and rehydrate on return.
func (m *Manager) Evict(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.lastSeen.After(cutoff) {
			continue
		}
		if s.checkout != nil && s.checkout.View().Processing {
			continue
		}
		delete(m.sessions, id)
		n++
	}
	return n
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
