// Package stores provides the in-memory cache stores.
package stores

import (
	"strings"
	"sync"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLStore is a keyed store whose entries expire ttl after they were set.
// Expired entries are invisible to Get and are removed by PurgeExpired.
type TTLStore[V any] struct {
	name    string
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]entry[V]
	now     func() time.Time
	logger  *logging.ChanneledLogger

	hits, misses uint64
}

// Stats are counters for reports.
type Stats struct {
	Name    string
	Entries int
	Hits    uint64
	Misses  uint64
}

// NewTTLStore creates a store. A nil logger disables logging.
func NewTTLStore[V any](name string, ttl time.Duration, logger *logging.ChanneledLogger) *TTLStore[V] {
	if logger != nil {
		logger.Cache().Info("Initializing cache store", "store", name, "ttl", ttl)
	}
	return &TTLStore[V]{
		name:    name,
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock replaces the time source, for tests.
func (s *TTLStore[V]) WithClock(now func() time.Time) *TTLStore[V] {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// Name implements interfaces.Expirer.
func (s *TTLStore[V]) Name() string { return s.name }

// TTL returns the lifetime of new entries.
func (s *TTLStore[V]) TTL() time.Duration { return s.ttl }

// Get returns the live value for key.
func (s *TTLStore[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		s.misses++
		var zero V
		return zero, false
	}
	s.hits++
	return e.value, true
}

// Set stores value under key for the store's TTL.
func (s *TTLStore[V]) Set(key string, value V) {
	s.mu.Lock()
	s.entries[key] = entry[V]{value: value, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

// Touch extends the life of an existing live entry.
func (s *TTLStore[V]) Touch(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	now := s.now()
	if !ok || !now.Before(e.expiresAt) {
		return false
	}
	e.expiresAt = now.Add(s.ttl)
	s.entries[key] = e
	return true
}

// Update applies fn to the live value for key under the store lock. It
// reports false without calling fn when the key is absent or expired.
func (s *TTLStore[V]) Update(key string, fn func(V) V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return false
	}
	e.value = fn(e.value)
	s.entries[key] = e
	return true
}

// Delete removes key.
func (s *TTLStore[V]) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// DeletePrefix removes every key starting with prefix and reports how many.
func (s *TTLStore[V]) DeletePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes every entry.
func (s *TTLStore[V]) Clear() {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]entry[V])
	s.mu.Unlock()
	if s.logger != nil {
		s.logger.Cache().Info("Cache store cleared", "store", s.name, "entries", n)
	}
}

// Len counts entries, including expired ones not yet purged.
func (s *TTLStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// PurgeExpired implements interfaces.Expirer.
func (s *TTLStore[V]) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns the store counters.
func (s *TTLStore[V]) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Name: s.name, Entries: len(s.entries), Hits: s.hits, Misses: s.misses}
}
