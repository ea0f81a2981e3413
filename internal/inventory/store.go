// Package inventory holds the fulfillment worker's operational stock.
package inventory

import (
	"sort"
	"sync"
)

// Store maps item names to available quantity. Every check-and-decrement
// happens under a single lock.
type Store struct {
	mu    sync.Mutex
	stock map[string]int
}

// New returns a store seeded with a copy of initial.
func New(initial map[string]int) *Store {
	s := &Store{stock: make(map[string]int, len(initial))}
	for item, qty := range initial {
		if qty > 0 {
			s.stock[item] = qty
		} else {
			s.stock[item] = 0
		}
	}
	return s
}

// Reserve decrements item by quantity if enough is available. It makes no
// change and returns false otherwise. Unknown items have no stock.
func (s *Store) Reserve(item string, quantity int) bool {
	if quantity <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	available, ok := s.stock[item]
	if !ok || available < quantity {
		return false
	}
	s.stock[item] = available - quantity
	return true
}

// Restore returns quantity of item to the store.
func (s *Store) Restore(item string, quantity int) {
	if quantity <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[item] += quantity
}

// Available returns the current quantity of item.
func (s *Store) Available(item string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[item]
}

// Snapshot returns a point-in-time copy of the stock.
func (s *Store) Snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.stock))
	for item, qty := range s.stock {
		out[item] = qty
	}
	return out
}

// Names returns the item names in sorted order.
func Names(stock map[string]int) []string {
	names := make([]string, 0, len(stock))
	for item := range stock {
		names = append(names, item)
	}
	sort.Strings(names)
	return names
}
