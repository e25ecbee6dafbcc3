package nscache

import "time"

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking - the cache calls them
// on hot paths (wrap with hooks/async if your sink can block).
type Hooks interface {
	// An entry was evicted by the LRU bound.
	Evicted(key string)

	// An expired entry was purged. lazy is true when the purge happened
	// on a read path rather than in the background sweep.
	Expired(key string, lazy bool)

	// One background sweep pass finished.
	SweepDone(removed int, elapsed time.Duration)

	// A remote backend operation failed with a transport error.
	BackendError(op string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Evicted(string)               {}
func (NopHooks) Expired(string, bool)         {}
func (NopHooks) SweepDone(int, time.Duration) {}
func (NopHooks) BackendError(string, error)   {}
