package auth

import (
	"context"
	"sync"
	"time"
)

var _ RevocationStore = (*MemoryRevocationStore)(nil)

// MemoryRevocationStore is an in-process RevocationStore used in tests
// and single-node development. Entries lapse by deadline; lookups prune
// opportunistically.
type MemoryRevocationStore struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryRevocationStore(now func() time.Time) *MemoryRevocationStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryRevocationStore{
		now:     now,
		entries: make(map[string]time.Time),
	}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}
	s.mu.Lock()
	s.entries[jti] = s.now().Add(ttl)
	s.mu.Unlock()
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	deadline, ok := s.entries[jti]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !s.now().Before(deadline) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Revoke may have
		// extended the deadline.
		if d, ok := s.entries[jti]; ok && !s.now().Before(d) {
			delete(s.entries, jti)
		}
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}
