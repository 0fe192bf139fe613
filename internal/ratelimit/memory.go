package ratelimit

import (
	"context"
	"sync"
	"time"
)

type record struct {
	count   int64
	resetAt time.Time
}

// MemoryStore keeps fixed-window counters in process memory. Increment and
// compare happen under one mutex, so concurrent requests on the same key
// cannot undercount.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.records[key]
	if !ok || now.After(rec.resetAt) {
		rec = &record{count: 0, resetAt: now.Add(window)}
		s.records[key] = rec
	}
	rec.count++
	return rec.count, rec.resetAt, nil
}

// Sweep drops expired records to bound memory.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, rec := range s.records {
		if now.After(rec.resetAt) {
			delete(s.records, key)
		}
	}
}

// StartSweeper sweeps until the context is cancelled.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
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
