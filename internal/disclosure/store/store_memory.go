package store

import (
	"context"
	"sync"
	"time"

	"veriseal/pkg/platform/sentinel"
)

type memoryEntry struct {
	shipmentID string
	expiresAt  time.Time
}

// InMemoryTokenStore is a process-local TokenStore.
type InMemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type MemoryOption func(*InMemoryTokenStore)

// WithMemoryClock sets the time source used for expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryTokenStore) {
		s.now = now
	}
}

func NewInMemory(opts ...MemoryOption) *InMemoryTokenStore {
	s := &InMemoryTokenStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryTokenStore) Register(_ context.Context, jti, shipmentID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[jti]; exists {
		return sentinel.ErrConflict
	}
	s.entries[jti] = memoryEntry{shipmentID: shipmentID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemoryTokenStore) Consume(_ context.Context, jti string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[jti]
	if !ok {
		return "", sentinel.ErrAlreadyUsed
	}
	delete(s.entries, jti)
	if !s.now().Before(entry.expiresAt) {
		return "", sentinel.ErrAlreadyUsed
	}
	return entry.shipmentID, nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *InMemoryTokenStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for jti, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, jti)
			removed++
		}
	}
	return removed
}
