// Package cache is a time-to-live cache over the key-value store. Entries
// are evicted lazily when a read finds them expired; there is no capacity
// bound and no background sweep. That is fine for the handful of fixed
// resource kinds this app caches, where page counts stay small in practice,
// but it does mean a stale entry occupies storage until its next read.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"wodscan/internal/kv"
)

const (
	// ProfileTTL bounds how long a cached profile is served without a
	// remote refetch.
	ProfileTTL = 10 * time.Minute
	// WorkoutPageTTL bounds cached workout-history pages.
	WorkoutPageTTL = 5 * time.Minute
	// MaxCachedPages caps which history pages are cached at all. Pages
	// beyond this always go to the network, keeping key growth bounded.
	MaxCachedPages = 3
)

// entry is the stored envelope: the payload plus its write time in epoch
// milliseconds.
type entry[T any] struct {
	Payload   T     `json:"payload"`
	Timestamp int64 `json:"timestamp"`
}

// Cache stores one resource kind under a base key, optionally fanned out
// by subkey (e.g. page number). An entry is valid while
// now - storedAt <= ttl.
type Cache[T any] struct {
	store kv.Store
	key   string
	ttl   time.Duration
	now   func() time.Time
}

func New[T any](store kv.Store, key string, ttl time.Duration) *Cache[T] {
	return &Cache[T]{store: store, key: key, ttl: ttl, now: time.Now}
}

func (c *Cache[T]) keyFor(subkey string) string {
	if subkey == "" {
		return c.key
	}
	return c.key + "_" + subkey
}

// Put overwrites the entry for subkey unconditionally.
func (c *Cache[T]) Put(ctx context.Context, subkey string, payload T) error {
	data, err := json.Marshal(entry[T]{
		Payload:   payload,
		Timestamp: c.now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.keyFor(subkey), string(data))
}

// Get reports the cached payload for subkey, or a miss. An expired entry
// is deleted on the spot and reported as a miss; an unreadable or
// undecodable entry is simply a miss (passive reads never fail).
func (c *Cache[T]) Get(ctx context.Context, subkey string) (T, bool) {
	var zero T

	raw, ok, err := c.store.Get(ctx, c.keyFor(subkey))
	if err != nil || !ok {
		return zero, false
	}

	var e entry[T]
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return zero, false
	}

	if c.now().UnixMilli()-e.Timestamp > c.ttl.Milliseconds() {
		_ = c.store.Remove(ctx, c.keyFor(subkey))
		return zero, false
	}

	return e.Payload, true
}

// Invalidate drops the entry for subkey regardless of age.
func (c *Cache[T]) Invalidate(ctx context.Context, subkey string) error {
	return c.store.Remove(ctx, c.keyFor(subkey))
}
