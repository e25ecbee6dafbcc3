package nscache

import (
	"context"
	"time"
)

// Cache is the backend-agnostic key-value contract. Values are opaque
// byte slices; layer typed access on top with Typed[V] and a Codec.
//
// Misses are return values, never errors: Get reports (nil, false, nil)
// for an absent key and CompareAndSwap reports false on mismatch.
// Errors are reserved for contract violations (*ValidationError) and
// remote transport failures (*ConnectionError).
type Cache interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// An entry whose TTL has passed is a miss even if not yet purged.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key, overwriting unconditionally.
	// ttl == 0 applies the backend's configured default TTL
	// (or no expiry when none is configured). ttl < 0 is invalid.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Reports true iff a live entry existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether key holds a live entry.
	Exists(ctx context.Context, key string) (bool, error)

	// TTL returns the remaining time-to-live for key.
	// ok is false when the key is absent or has no expiration.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)

	// Expire updates the TTL of an existing key without touching its
	// value; ttl == 0 removes the expiration. Reports false when the
	// key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// SetMany stores all entries of items with a shared TTL.
	SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error

	// GetMany returns the live values for keys; absent keys are omitted.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// DeleteMany removes keys and returns how many live entries were deleted.
	DeleteMany(ctx context.Context, keys []string) (int, error)

	// Increment adds delta to the integer counter at key, creating it
	// at delta when absent, and returns the new value. Linearizable
	// with respect to concurrent Increment/Decrement/SetIfAbsent/
	// CompareAndSwap on the same key. Counters are stored as decimal
	// ASCII so both backends agree on the representation.
	Increment(ctx context.Context, key string, delta int64) (int64, error)

	// Decrement is Increment with a negated delta.
	Decrement(ctx context.Context, key string, delta int64) (int64, error)

	// SetIfAbsent stores value only when key has no live entry.
	// Reports true iff the write happened (the SETNX primitive).
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// CompareAndSwap replaces the value at key with next iff the
	// current value equals expected byte-for-byte. Reports false, not
	// an error, on mismatch or absence. The entry's TTL is preserved.
	CompareAndSwap(ctx context.Context, key string, expected, next []byte) (bool, error)

	// Keys returns the live keys matching pattern. Pattern syntax:
	// '*' matches any run of bytes, '?' exactly one byte (so a
	// multi-byte UTF-8 rune needs one '?' per byte, as with Redis
	// MATCH); matching is case-sensitive and anchored to the whole
	// key.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// CountMatching returns the number of live keys matching pattern.
	CountMatching(ctx context.Context, pattern string) (int, error)

	// DeleteMatching removes every live key matching pattern and
	// returns the number deleted.
	DeleteMatching(ctx context.Context, pattern string) (int, error)

	// WithNamespace returns a Cache view scoped to prefix: every key is
	// stored as "prefix:key". Views nest; prefixes compose.
	WithNamespace(prefix string) Cache

	// ClearNamespace removes every key under prefix, regardless of how
	// many views were used to write them.
	ClearNamespace(ctx context.Context, prefix string) (int, error)

	// Stats returns a snapshot of the instance counters.
	Stats(ctx context.Context) (Stats, error)

	// ResetStats zeroes all counters and records the reset time.
	ResetStats()

	// Close releases backend resources (sweep goroutine, client pool).
	// Idempotent.
	Close(ctx context.Context) error
}

// Stats is a point-in-time snapshot of a cache instance's counters.
// Counters accumulate from construction (or the last ResetStats) and
// never affect cache behavior.
type Stats struct {
	Size        int64     // live (non-expired) entries
	Hits        int64     // Get/GetMany found a live entry
	Misses      int64     // Get/GetMany found nothing
	Evictions   int64     // entries removed by the LRU bound
	LastResetAt time.Time // zero until the first ResetStats
}
