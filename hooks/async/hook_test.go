package asynchook

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingHooks struct {
	mu      sync.Mutex
	evicted int
	expired int
	sweeps  int
	backend int
	lastKey string
}

func (c *countingHooks) Evicted(key string) {
	c.mu.Lock()
	c.evicted++
	c.lastKey = key
	c.mu.Unlock()
}
func (c *countingHooks) Expired(string, bool) {
	c.mu.Lock()
	c.expired++
	c.mu.Unlock()
}
func (c *countingHooks) SweepDone(int, time.Duration) {
	c.mu.Lock()
	c.sweeps++
	c.mu.Unlock()
}
func (c *countingHooks) BackendError(string, error) {
	c.mu.Lock()
	c.backend++
	c.mu.Unlock()
}

func TestAsyncDeliversAndDrainsOnClose(t *testing.T) {
	sink := &countingHooks{}
	h := New(sink, 2, 64)

	h.Evicted("k1")
	h.Expired("k2", true)
	h.SweepDone(3, time.Millisecond)
	h.BackendError("Get", errors.New("boom"))

	// Close waits for queued events to be delivered
	h.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.evicted != 1 || sink.expired != 1 || sink.sweeps != 1 || sink.backend != 1 {
		t.Fatalf("delivery counts = %+v", sink)
	}
	if sink.lastKey != "k1" {
		t.Fatalf("lastKey = %q, want k1", sink.lastKey)
	}
}

func TestAsyncCloseIdempotent(t *testing.T) {
	h := New(&countingHooks{}, 1, 8)
	h.Close()
	h.Close()
}

func TestAsyncDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &blockingHooks{release: block}
	h := New(sink, 1, 1)

	// first event occupies the worker, second fills the queue,
	// the rest must drop instead of blocking this goroutine
	for i := 0; i < 10; i++ {
		h.Evicted("k")
	}
	close(block)
	h.Close()

	if n := sink.calls.Load(); n < 1 || n > 2 {
		t.Fatalf("delivered %d events, want 1..2 with the rest dropped", n)
	}
}

type blockingHooks struct {
	release chan struct{}
	calls   atomic.Int64
}

func (b *blockingHooks) Evicted(string) {
	<-b.release
	b.calls.Add(1)
}
func (b *blockingHooks) Expired(string, bool)         {}
func (b *blockingHooks) SweepDone(int, time.Duration) {}
func (b *blockingHooks) BackendError(string, error)   {}
