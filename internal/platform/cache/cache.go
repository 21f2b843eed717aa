package cache

import (
	"context"
	"time"
)

// Store is the injected get/set/invalidate capability backing the search and
// suggestion caches. Keys are namespaced strings; values are opaque serialized
// payloads returned verbatim on a hit. Implementations must provide
// single-key atomicity; callers never take additional locks.
type Store interface {
	// Get returns the payload for key and whether a non-expired entry exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores the payload under key with the given time-to-live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// InvalidatePrefix drops every entry whose key starts with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
}
