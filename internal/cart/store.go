// Package cart holds the session basket and keeps it written through to a
// key/value storage port.
package cart

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
)

// Storage is the persistence port the Store writes through to.
// Load returns (nil, nil) when nothing is stored under key.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Store is the single source of truth for one session's basket.
// Every mutation is persisted before the call returns.
type Store struct {
	mu      sync.Mutex
	items   []Item
	storage Storage
	key     string
}

// NewStore builds a Store and seeds it with exactly one read from storage.
// A missing, unreadable or corrupt snapshot yields an empty basket.
func NewStore(ctx context.Context, storage Storage, key string) *Store {
	s := &Store{storage: storage, key: key}
	s.items = s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) []Item {
	raw, err := s.storage.Load(ctx, s.key)
	if err != nil {
		slog.WarnContext(ctx, "cart snapshot unavailable, starting empty", "key", s.key, "error", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.WarnContext(ctx, "cart snapshot corrupt, starting empty", "key", s.key, "error", err)
		return nil
	}

	// Drop entries that break the basket invariants rather than trusting the snapshot.
	out := make([]Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// AddItem increments the quantity of an existing entry, or appends the
// candidate with quantity 1. Fields of a re-added candidate are ignored.
func (s *Store) AddItem(ctx context.Context, c Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(c.ID); i >= 0 {
		s.items[i].Quantity++
	} else {
		s.items = append(s.items, c.toItem())
	}
	s.persist(ctx)
}

// RemoveItem deletes the entry with the given id. Absent ids are a no-op.
func (s *Store) RemoveItem(ctx context.Context, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(itemID)
	s.persist(ctx)
}

// UpdateQuantity sets the quantity of an existing entry. A quantity of zero
// or less removes the entry instead.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.remove(itemID)
	} else if i := s.indexOf(itemID); i >= 0 {
		s.items[i].Quantity = quantity
	}
	s.persist(ctx)
}

// Clear empties the basket.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persist(ctx)
}

// Deduct removes the quantities in lines from the basket. Entries added
// after lines was captured, or quantities above it, stay in the basket.
func (s *Store) Deduct(ctx context.Context, lines []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lines {
		i := s.indexOf(l.ID)
		if i < 0 {
			continue
		}
		if s.items[i].Quantity <= l.Quantity {
			s.remove(l.ID)
		} else {
			s.items[i].Quantity -= l.Quantity
		}
	}
	s.persist(ctx)
}

// Restore adds lines back: quantities merge into existing entries, missing
// entries are appended in the order given.
func (s *Store) Restore(ctx context.Context, lines []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if i := s.indexOf(l.ID); i >= 0 {
			s.items[i].Quantity += l.Quantity
		} else {
			s.items = append(s.items, l)
		}
	}
	s.persist(ctx)
}

// Items returns a copy of the basket in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// IsEmpty reports whether the basket holds no entries.
func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) == 0
}

// TotalItems is the sum of quantities.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}

// TotalPrice is the sum of unit price times quantity.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s *Store) indexOf(itemID string) int {
	return slices.IndexFunc(s.items, func(it Item) bool { return it.ID == itemID })
}

func (s *Store) remove(itemID string) {
	s.items = slices.DeleteFunc(s.items, func(it Item) bool { return it.ID == itemID })
}

// persist must be called with mu held. Failures are logged; the in-memory
// basket stays authoritative for the rest of the session.
func (s *Store) persist(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode cart snapshot", "key", s.key, "error", err)
		return
	}
	if err := s.storage.Save(ctx, s.key, raw); err != nil {
		slog.WarnContext(ctx, "failed to persist cart snapshot", "key", s.key, "error", err)
	}
}
