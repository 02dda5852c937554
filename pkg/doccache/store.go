package doccache

import (
	"sync"
	"time"
)

// entry is a stored value with the time of its most recent insert.
type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// entryStore is a map guarded by a single exclusive lock. Every method holds
// the lock for its whole duration and never blocks on anything else.
type entryStore[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
}

func newEntryStore[V any]() *entryStore[V] {
	return &entryStore[V]{
		entries: make(map[string]entry[V]),
	}
}

// insert adds or replaces the entry for key, resetting its age.
func (s *entryStore[V]) insert(key string, value V, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: value, insertedAt: now}
}

// lookup returns the entry for key. If expired reports true for the entry it
// is deleted and lookup reports it as absent.
func (s *entryStore[V]) lookup(key string, expired func(entry[V]) bool) (entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return entry[V]{}, false
	}
	if expired != nil && expired(e) {
		delete(s.entries, key)
		return entry[V]{}, false
	}
	return e, true
}

// remove deletes key and reports whether it was present.
func (s *entryStore[V]) remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// removeWhere deletes every entry matching pred and returns how many went.
func (s *entryStore[V]) removeWhere(pred func(key string, e entry[V]) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if pred(key, e) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *entryStore[V]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// clearAll drops every entry and returns how many there were.
func (s *entryStore[V]) clearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	clear(s.entries)
	return n
}
