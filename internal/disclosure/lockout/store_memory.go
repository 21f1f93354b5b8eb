package lockout

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	attempts    int
	windowEnd   time.Time
	lockedUntil time.Time
}

// InMemoryStore is a process-local lockout Store.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
	now     func() time.Time
}

func NewInMemoryStore(now func() time.Time) *InMemoryStore {
	if now == nil {
		now = time.Now
	}
	return &InMemoryStore{records: make(map[string]*memoryRecord), now: now}
}

func (s *InMemoryStore) record(key string) *memoryRecord {
	rec, ok := s.records[key]
	if !ok {
		rec = &memoryRecord{}
		s.records[key] = rec
	}
	return rec
}

func (s *InMemoryStore) Reserve(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec := s.record(key)
	if remaining := rec.lockedUntil.Sub(now); remaining > 0 {
		return 0, remaining, nil
	}
	if !now.Before(rec.windowEnd) {
		rec.attempts = 0
		rec.windowEnd = now.Add(window)
	}
	rec.attempts++
	return rec.attempts, 0, nil
}

func (s *InMemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok && rec.attempts > 0 {
		rec.attempts--
	}
	return nil
}

func (s *InMemoryStore) Lock(_ context.Context, key string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record(key)
	rec.lockedUntil = s.now().Add(d)
	rec.attempts = 0
	rec.windowEnd = time.Time{}
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}
