// Package cache holds request-layer values tagged with the snapshot they
// were computed from.
package cache

import (
	"sync"
	"time"
)

// Entry is a cached value and the time it was built.
type Entry[T any] struct {
	Value   T
	BuiltAt time.Time
}

// Fresh reports whether the entry is younger than ttl at now. A zero entry
// is never fresh.
func (e Entry[T]) Fresh(now time.Time, ttl time.Duration) bool {
	return !e.BuiltAt.IsZero() && now.Sub(e.BuiltAt) < ttl
}

// RefreshOrServeStale returns cur when it is fresh. Otherwise it calls
// refresh; on success the new entry is returned, and on failure the stale
// entry is served with the refresh error when one exists. With no entry to
// fall back on the error is returned with a zero entry.
//
// The boolean reports whether the returned entry is stale.
func RefreshOrServeStale[T any](now time.Time, cur Entry[T], ttl time.Duration, refresh func() (T, error)) (Entry[T], bool, error) {
	if cur.Fresh(now, ttl) {
		return cur, false, nil
	}
	v, err := refresh()
	if err != nil {
		if cur.BuiltAt.IsZero() {
			return Entry[T]{}, false, err
		}
		return cur, true, err
	}
	return Entry[T]{Value: v, BuiltAt: now}, false, nil
}

// Status reports how Fetch satisfied a lookup.
type Status int

const (
	Miss Status = iota
	Hit
	Stale
)

func (s Status) String() string {
	switch s {
	case Hit:
		return "HIT"
	case Stale:
		return "STALE"
	default:
		return "MISS"
	}
}

// Store is a keyed TTL cache. Entries built before the current generation
// are never fresh, so a snapshot swap invalidates everything at once. The
// previous generation's entries are kept only as a stale fallback.
type Store[T any] struct {
	mu         sync.RWMutex
	ttl        time.Duration
	now        func() time.Time
	generation time.Time
	entries    map[string]Entry[T]
	previous   map[string]Entry[T]
}

// NewStore creates a Store with the given TTL.
func NewStore[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{ttl: ttl, now: time.Now, entries: make(map[string]Entry[T])}
}

// Get returns the value for key if it is fresh and belongs to generation.
func (s *Store[T]) Get(key string, generation time.Time) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	if !s.generation.Equal(generation) {
		return zero, false
	}
	e, ok := s.entries[key]
	if !ok || !e.Fresh(s.now(), s.ttl) {
		return zero, false
	}
	return e.Value, true
}

// Put stores v under key for generation. A newer generation retires the
// current entries to the stale fallback; an older one is ignored.
func (s *Store[T]) Put(key string, generation time.Time, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation.Before(s.generation) {
		return
	}
	if !s.generation.Equal(generation) {
		s.generation = generation
		s.previous = s.entries
		s.entries = make(map[string]Entry[T])
	}
	s.entries[key] = Entry[T]{Value: v, BuiltAt: s.now()}
}

// lookup returns the best entry for key and the TTL it may be judged by.
// Entries from a generation older than the requested one get a zero TTL:
// they can be served stale but never fresh.
func (s *Store[T]) lookup(key string, generation time.Time) (Entry[T], time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.generation.Equal(generation):
		if e, ok := s.entries[key]; ok {
			return e, s.ttl
		}
		return s.previous[key], 0
	case generation.After(s.generation):
		if e, ok := s.entries[key]; ok {
			return e, 0
		}
		return s.previous[key], 0
	default:
		return Entry[T]{}, 0
	}
}

// Fetch returns a fresh value for key, computing and storing it when
// needed. When compute fails and an older value exists, the older value is
// returned as Stale along with the compute error.
func (s *Store[T]) Fetch(key string, generation time.Time, compute func() (T, error)) (T, Status, error) {
	cur, ttl := s.lookup(key, generation)

	computed := false
	e, stale, err := RefreshOrServeStale(s.now(), cur, ttl, func() (T, error) {
		computed = true
		return compute()
	})
	switch {
	case stale:
		return e.Value, Stale, err
	case err != nil:
		var zero T
		return zero, Miss, err
	case !computed:
		return e.Value, Hit, nil
	}
	s.Put(key, generation, e.Value)
	return e.Value, Miss, nil
}

// Len returns the number of entries in the current generation, fresh or not.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
