package throttle

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for local development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]time.Time)}
}

func (s *MemoryStore) CountAndRecord(_ context.Context, userID, channel string, since, now time.Time, limit int) (bool, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userID + "|" + channel

	// Drop records that have aged out of every plausible window while we
	// hold the lock; keeps the slice from growing without bound.
	kept := s.records[key][:0]
	for _, t := range s.records[key] {
		if !t.Before(since) {
			kept = append(kept, t)
		}
	}
	s.records[key] = kept

	var oldest time.Time
	if len(kept) > 0 {
		oldest = kept[0]
	}
	if len(kept) >= limit {
		return false, oldest, nil
	}
	s.records[key] = append(kept, now)
	return true, oldest, nil
}
