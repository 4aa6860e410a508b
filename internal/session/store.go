package session

import (
	"context"
	"sync"
	"time"
)

type entry[T any] struct {
	value   T
	expires time.Time
}

// Store keeps per-owner conversation state. An entry expires ttl after it was last touched.
type Store[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]entry[T]
	now     func() time.Time
}

func NewStore[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{
		ttl:     ttl,
		entries: make(map[int64]entry[T]),
		now:     time.Now,
	}
}

// Get returns the owner's state and refreshes its expiry.
func (s *Store[T]) Get(owner int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[owner]
	now := s.now()
	if !ok || s.expired(e, now) {
		delete(s.entries, owner)
		var zero T
		return zero, false
	}
	e.expires = now.Add(s.ttl)
	s.entries[owner] = e
	return e.value, true
}

func (s *Store[T]) Set(owner int64, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[owner] = entry[T]{value: value, expires: s.now().Add(s.ttl)}
}

func (s *Store[T]) Delete(owner int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, owner)
}

// Len counts stored entries, including expired ones not yet swept.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for owner, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, owner)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store[T]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store[T]) expired(e entry[T], now time.Time) bool {
	return s.ttl > 0 && !now.Before(e.expires)
}
