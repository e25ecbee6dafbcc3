// Package asynchook decouples hook sinks from cache hot paths: events
// are queued to a bounded channel and delivered by worker goroutines.
// When the queue is full, events are dropped rather than blocking the
// caller.
package asynchook

import (
	"sync"
	"time"

	"github.com/unkn0wn-root/nscache"
)

type Hooks struct {
	inner nscache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ nscache.Hooks = (*Hooks)(nil)

func New(inner nscache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) Evicted(key string)         { h.try(func() { h.inner.Evicted(key) }) }
func (h *Hooks) Expired(key string, l bool) { h.try(func() { h.inner.Expired(key, l) }) }
func (h *Hooks) SweepDone(n int, d time.Duration) {
	h.try(func() { h.inner.SweepDone(n, d) })
}
func (h *Hooks) BackendError(op string, err error) {
	h.try(func() { h.inner.BackendError(op, err) })
}
