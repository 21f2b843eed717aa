package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultTTL applies when a caller passes a non-positive time-to-live.
const DefaultTTL = time.Minute

type record struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore provides an in-memory Store useful for testing and single-node
// deployments. Expired entries are dropped lazily on read and during writes.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]record
	now     func() time.Time
}

// MemoryStoreOption customises MemoryStore construction.
type MemoryStoreOption func(*MemoryStore)

// WithClock overrides the time source, giving tests explicit control over expiry.
func WithClock(clock func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewMemoryStore constructs an empty memory-backed cache.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	store := &MemoryStore{
		records: make(map[string]record),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Get implements the Store interface.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, false, nil
	}
	if !rec.expiresAt.IsZero() && !now.Before(rec.expiresAt) {
		delete(s.records, key)
		return nil, false, nil
	}
	value := append([]byte(nil), rec.value...)
	return value, true, nil
}

// Set implements the Store interface.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = record{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
	return nil
}

// InvalidatePrefix implements the Store interface.
func (s *MemoryStore) InvalidatePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.records {
		if strings.HasPrefix(key, prefix) {
			delete(s.records, key)
		}
	}
	return nil
}

// CleanupExpired removes up to limit expired entries, returning the count removed.
func (s *MemoryStore) CleanupExpired(_ context.Context, now time.Time, limit int) int {
	now = now.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	removed := 0
	for key, rec := range s.records {
		if rec.expiresAt.IsZero() || now.Before(rec.expiresAt) {
			continue
		}
		delete(s.records, key)
		removed++
		if removed >= limit {
			break
		}
	}
	return removed
}
