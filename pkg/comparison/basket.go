// Package comparison keeps the set of credit results an applicant selected
// for side-by-side comparison.
package comparison

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/pkg/credit"
)

// Item is a selected result and the time it was added.
type Item struct {
	credit.Result
	AddedAt time.Time `json:"addedAt"`
}

// Clock returns the current time.
type Clock func() time.Time

// Basket is an ordered, duplicate-free collection of results keyed by result
// ID. It is safe for concurrent use.
type Basket struct {
	mu    sync.RWMutex
	items []Item
	now   Clock
}

// NewBasket creates an empty basket. A nil clock uses time.Now.
func NewBasket(clock Clock) *Basket {
	if clock == nil {
		clock = time.Now
	}
	return &Basket{items: []Item{}, now: clock}
}

// Add appends result unless a result with the same ID is already present. It
// reports whether the basket changed.
func (b *Basket) Add(result credit.Result) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.indexOf(result.ID) >= 0 {
		return false
	}
	b.items = append(b.items, Item{Result: result, AddedAt: b.now()})
	return true
}

// Remove deletes the item with the given ID, reporting whether it existed.
func (b *Basket) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.items = append(b.items[:i], b.items[i+1:]...)
	return true
}

// Clear empties the basket.
func (b *Basket) Clear() {
	b.mu.Lock()
	b.items = []Item{}
	b.mu.Unlock()
}

// Items returns a copy of the basket contents in insertion order.
func (b *Basket) Items() []Item {
	b.mu.RLock()
	defer b.mu.RUnlock()

	items := make([]Item, len(b.items))
	copy(items, b.items)
	return items
}

// Len returns the number of items.
func (b *Basket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Contains reports whether a result with id is in the basket.
func (b *Basket) Contains(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.indexOf(id) >= 0
}

func (b *Basket) indexOf(id string) int {
	for i, item := range b.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Sessions owns one basket per session id. Baskets left untouched for longer
// than the idle TTL are dropped by Sweep.
type Sessions struct {
	mu      sync.Mutex
	baskets map[string]*session
	clock   Clock
	idleTTL time.Duration
}

type session struct {
	basket   *Basket
	lastSeen time.Time
}

// NewSessions creates an empty registry whose baskets use clock. A zero
// idleTTL keeps baskets until they are dropped.
func NewSessions(clock Clock, idleTTL time.Duration) *Sessions {
	if clock == nil {
		clock = time.Now
	}
	return &Sessions{baskets: make(map[string]*session), clock: clock, idleTTL: idleTTL}
}

// Basket returns the basket for id, creating it on first use.
func (s *Sessions) Basket(id string) *Basket {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	entry, ok := s.baskets[id]
	if !ok {
		entry = &session{basket: NewBasket(s.clock)}
		s.baskets[id] = entry
	}
	entry.lastSeen = now
	return entry.basket
}

// Lookup returns the basket for id without creating one.
func (s *Sessions) Lookup(id string) (*Basket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.baskets[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = s.clock()
	return entry.basket, true
}

// Drop forgets a session's basket.
func (s *Sessions) Drop(id string) {
	s.mu.Lock()
	delete(s.baskets, id)
	s.mu.Unlock()
}

// Len returns the number of sessions holding a basket.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.baskets)
}

// Sweep drops every session idle for longer than the idle TTL and returns
// how many were dropped.
func (s *Sessions) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clock().Add(-s.idleTTL)
	dropped := 0
	for id, entry := range s.baskets {
		if entry.lastSeen.Before(cutoff) {
			delete(s.baskets, id)
			dropped++
		}
	}
	return dropped
}

// Janitor sweeps idle sessions every interval until ctx is done.
func (s *Sessions) Janitor(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if s.idleTTL <= 0 || interval <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := s.Sweep(); dropped > 0 {
				logger.Debug("dropped idle comparison sessions",
					zap.String("op", "comparison.Janitor"),
					zap.Int("dropped", dropped),
					zap.Int("remaining", s.Len()),
				)
			}
		}
	}
}
