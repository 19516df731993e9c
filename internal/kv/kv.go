// Package kv wraps the device's persistent string key-value store behind
// a narrow interface so that the session, cache, and local-data layers can
// be tested against an in-memory store and shipped on SQLite.
package kv

import "context"

// Logical key namespace. The store is shared process-wide, but each key is
// mutated by exactly one component: the session manager owns KeyToken and
// is the only component allowed to clear the other namespaces wholesale,
// the cache layer owns the *_cache keys, and the local store owns
// KeyUserProfile and KeyWorkouts. That discipline is by convention only;
// the store itself enforces nothing.
const (
	KeyToken            = "jwt_token"
	KeyUserProfile      = "user_profile"
	KeyWorkouts         = "workouts"
	KeyProfileCache     = "profile_cache"
	WorkoutCachePrefix  = "workout_cache"
	KeyWorkoutCachePage = "workout_cache_page" // page number appended as _{n}
)

// Store is a persistent, process-wide string key-value store. Get reports
// absence separately from failure so callers can treat "not set" as a
// normal outcome without swallowing real storage errors.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	MultiRemove(ctx context.Context, keys []string) error
	Keys(ctx context.Context) ([]string, error)
}
