// Package memory implements the nscache contract with an in-process
// store: a key->entry map plus an intrusive recency list under one
// mutex, bounded LRU eviction, lazy expiry on read and a background
// TTL sweep. Critical sections never perform I/O.
package memory

import (
	"bytes"
	"container/list"
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/nscache"
	"github.com/unkn0wn-root/nscache/internal/glob"
)

const defaultSweep = time.Minute

// Config tunes a Store. The zero value is valid: no default TTL, no
// eviction bound, stats disabled, 1m sweep.
type Config struct {
	// DefaultTTL is applied when Set/SetMany receive ttl == 0.
	// Zero means entries without an explicit TTL never expire.
	DefaultTTL time.Duration

	// MaxSize bounds the number of entries; exceeding it evicts from
	// the least-recently-used end. 0 disables eviction.
	MaxSize int

	// TrackStats enables hit/miss/eviction counting.
	TrackStats bool

	// SweepInterval is the period of the background pass that purges
	// expired entries. 0 => 1 minute.
	SweepInterval time.Duration

	Logger nscache.Logger // nil => NopLogger
	Hooks  nscache.Hooks  // nil => NopHooks
}

type entry struct {
	key        string
	value      []byte
	expireAt   time.Time // zero => no expiry
	insertedAt time.Time
	version    uint64
	elem       *list.Element // position in Store.order; never nil for a stored entry
}

// Store is the in-process backend. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // front = most recently used

	defaultTTL time.Duration
	maxSize    int
	trackStats bool
	log        nscache.Logger
	hooks      nscache.Hooks

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	statMu  sync.Mutex
	resetAt time.Time

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ nscache.Cache = (*Store)(nil)

func New(cfg Config) (*Store, error) {
	if cfg.MaxSize < 0 {
		return nil, &nscache.ValidationError{Op: "memory.New", Reason: "negative max size"}
	}
	if cfg.DefaultTTL < 0 {
		return nil, &nscache.ValidationError{Op: "memory.New", Reason: "negative default ttl"}
	}
	if cfg.SweepInterval < 0 {
		return nil, &nscache.ValidationError{Op: "memory.New", Reason: "negative sweep interval"}
	}

	s := &Store{
		entries:    make(map[string]*entry),
		order:      list.New(),
		defaultTTL: cfg.DefaultTTL,
		maxSize:    cfg.MaxSize,
		trackStats: cfg.TrackStats,
		log:        nscache.Coalesce[nscache.Logger](cfg.Logger, nscache.NopLogger{}),
		hooks:      nscache.Coalesce[nscache.Hooks](cfg.Hooks, nscache.NopHooks{}),
	}

	interval := nscache.Coalesce(cfg.SweepInterval, defaultSweep)
	s.ticker = time.NewTicker(interval)
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.sweepLoop()

	return s, nil
}

func (s *Store) sweepLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.Sweep()
		case <-s.stopCh:
			return
		}
	}
}

// Close stops the sweep goroutine and blocks until it has exited.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	s.closeOnce.Do(func() {
		s.ticker.Stop()
		close(s.stopCh)
		s.wg.Wait()
	})
	return nil
}

// expired reports whether e's TTL has passed at now.
func expired(e *entry, now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// lookupLocked returns the live entry for key, purging it first when it
// has expired. Both the lazy-expiry read path and the sweep remove
// through removeLocked so an entry is reclaimed exactly once.
func (s *Store) lookupLocked(key string, now time.Time) (*entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if expired(e, now) {
		s.removeLocked(e)
		s.hooks.Expired(key, true)
		return nil, false
	}
	return e, true
}

func (s *Store) removeLocked(e *entry) {
	delete(s.entries, e.key)
	s.order.Remove(e.elem)
}

func (s *Store) touchLocked(e *entry) {
	s.order.MoveToFront(e.elem)
}

// expireAtFor resolves the contract's TTL semantics: 0 means the
// configured default (or no expiry), negative is rejected upstream.
func (s *Store) expireAtFor(ttl time.Duration, now time.Time) time.Time {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if ttl == 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// upsertLocked writes value under key, bumping the version of an
// existing entry or inserting a fresh one at the recency front, then
// enforces the eviction bound. Insertion and eviction for the key share
// the caller's critical section.
func (s *Store) upsertLocked(key string, value []byte, ttl time.Duration, now time.Time) *entry {
	if e, ok := s.entries[key]; ok {
		e.value = value
		e.expireAt = s.expireAtFor(ttl, now)
		e.version++
		s.touchLocked(e)
		return e
	}
	e := &entry{
		key:        key,
		value:      value,
		expireAt:   s.expireAtFor(ttl, now),
		insertedAt: now,
		version:    1,
	}
	e.elem = s.order.PushFront(e)
	s.entries[key] = e
	s.evictOverLimitLocked(now)
	return e
}

// evictOverLimitLocked enforces the bound against live entries. When
// the physical count exceeds maxSize, expired entries are reclaimed
// first through the expiry path; whatever then remains over the limit
// is evicted from the recency tail. An expiry never counts as an
// eviction.
func (s *Store) evictOverLimitLocked(now time.Time) {
	if s.maxSize <= 0 || s.order.Len() <= s.maxSize {
		return
	}
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if expired(e, now) {
			s.removeLocked(e)
			s.hooks.Expired(e.key, true)
		}
		el = prev
	}
	for s.order.Len() > s.maxSize {
		victim := s.order.Back().Value.(*entry)
		s.removeLocked(victim)
		if s.trackStats {
			s.evictions.Add(1)
		}
		s.hooks.Evicted(victim.key)
		s.log.Debug("evicted lru entry", nscache.Fields{"key": victim.key})
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := nscache.ValidateKey("Get", key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	e, ok := s.lookupLocked(key, time.Now())
	if !ok {
		s.mu.Unlock()
		if s.trackStats {
			s.misses.Add(1)
		}
		return nil, false, nil
	}
	s.touchLocked(e)
	v := bytes.Clone(e.value)
	s.mu.Unlock()
	if s.trackStats {
		s.hits.Add(1)
	}
	return v, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := nscache.ValidateKey("Set", key); err != nil {
		return err
	}
	if err := nscache.ValidateTTL("Set", ttl); err != nil {
		return err
	}
	s.mu.Lock()
	s.upsertLocked(key, bytes.Clone(value), ttl, time.Now())
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	if err := nscache.ValidateKey("Delete", key); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookupLocked(key, time.Now())
	if !ok {
		return false, nil
	}
	s.removeLocked(e)
	return true, nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	if err := nscache.ValidateKey("Exists", key); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lookupLocked(key, time.Now())
	return ok, nil
}

func (s *Store) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	if err := nscache.ValidateKey("TTL", key); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e, ok := s.lookupLocked(key, now)
	if !ok || e.expireAt.IsZero() {
		return 0, false, nil
	}
	return e.expireAt.Sub(now), true, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if err := nscache.ValidateKey("Expire", key); err != nil {
		return false, err
	}
	if err := nscache.ValidateTTL("Expire", ttl); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e, ok := s.lookupLocked(key, now)
	if !ok {
		return false, nil
	}
	if ttl == 0 {
		e.expireAt = time.Time{} // make persistent
	} else {
		e.expireAt = now.Add(ttl)
	}
	return true, nil
}

func (s *Store) SetMany(_ context.Context, items map[string][]byte, ttl time.Duration) error {
	if err := nscache.ValidateTTL("SetMany", ttl); err != nil {
		return err
	}
	for k := range items {
		if err := nscache.ValidateKey("SetMany", k); err != nil {
			return err
		}
	}
	s.mu.Lock()
	now := time.Now()
	for k, v := range items {
		s.upsertLocked(k, bytes.Clone(v), ttl, now)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	for _, k := range keys {
		if err := nscache.ValidateKey("GetMany", k); err != nil {
			return nil, err
		}
	}
	out := make(map[string][]byte, len(keys))
	var hits, misses int64
	s.mu.Lock()
	now := time.Now()
	for _, k := range keys {
		if _, dup := out[k]; dup {
			continue
		}
		if e, ok := s.lookupLocked(k, now); ok {
			s.touchLocked(e)
			out[k] = bytes.Clone(e.value)
			hits++
		} else {
			misses++
		}
	}
	s.mu.Unlock()
	if s.trackStats {
		s.hits.Add(hits)
		s.misses.Add(misses)
	}
	return out, nil
}

func (s *Store) DeleteMany(_ context.Context, keys []string) (int, error) {
	for _, k := range keys {
		if err := nscache.ValidateKey("DeleteMany", k); err != nil {
			return 0, err
		}
	}
	deleted := 0
	s.mu.Lock()
	now := time.Now()
	for _, k := range keys {
		if e, ok := s.lookupLocked(k, now); ok {
			s.removeLocked(e)
			deleted++
		}
	}
	s.mu.Unlock()
	return deleted, nil
}

// Increment performs the whole read-modify-write under the store mutex,
// so concurrent increments on one key serialize and none is lost. A
// missing key is created at delta with no expiration; an existing
// entry keeps its TTL.
func (s *Store) Increment(_ context.Context, key string, delta int64) (int64, error) {
	if err := nscache.ValidateKey("Increment", key); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e, ok := s.lookupLocked(key, now)
	if !ok {
		e = &entry{
			key:        key,
			value:      []byte(strconv.FormatInt(delta, 10)),
			insertedAt: now,
			version:    1,
		}
		e.elem = s.order.PushFront(e)
		s.entries[key] = e
		s.evictOverLimitLocked(now)
		return delta, nil
	}
	cur, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, &nscache.ValidationError{Op: "Increment", Reason: "value is not an integer"}
	}
	next := cur + delta
	e.value = []byte(strconv.FormatInt(next, 10))
	e.version++
	s.touchLocked(e)
	return next, nil
}

func (s *Store) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return s.Increment(ctx, key, -delta)
}

func (s *Store) SetIfAbsent(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := nscache.ValidateKey("SetIfAbsent", key); err != nil {
		return false, err
	}
	if err := nscache.ValidateTTL("SetIfAbsent", ttl); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if _, ok := s.lookupLocked(key, now); ok {
		return false, nil
	}
	s.upsertLocked(key, bytes.Clone(value), ttl, now)
	return true, nil
}

// CompareAndSwap compares by value, not by entry version: the caller
// observes values, so an overwrite with identical bytes still lets a
// pending swap succeed. The swap preserves the entry's TTL.
func (s *Store) CompareAndSwap(_ context.Context, key string, expected, next []byte) (bool, error) {
	if err := nscache.ValidateKey("CompareAndSwap", key); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookupLocked(key, time.Now())
	if !ok || !bytes.Equal(e.value, expected) {
		return false, nil
	}
	e.value = bytes.Clone(next)
	e.version++
	s.touchLocked(e)
	return true, nil
}

// matchLocked walks the live keyspace collecting keys that match
// pattern, purging expired entries it passes over.
func (s *Store) matchLocked(pattern string, now time.Time) []string {
	if glob.Literal(pattern) {
		if _, ok := s.lookupLocked(pattern, now); ok {
			return []string{pattern}
		}
		return nil
	}
	var out []string
	for k, e := range s.entries {
		if expired(e, now) {
			s.removeLocked(e)
			s.hooks.Expired(k, true)
			continue
		}
		if glob.Match(pattern, k) {
			out = append(out, k)
		}
	}
	return out
}

func (s *Store) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	keys := s.matchLocked(pattern, time.Now())
	s.mu.Unlock()
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) CountMatching(_ context.Context, pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matchLocked(pattern, time.Now())), nil
}

func (s *Store) DeleteMatching(_ context.Context, pattern string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	deleted := 0
	for _, k := range s.matchLocked(pattern, now) {
		if e, ok := s.entries[k]; ok {
			s.removeLocked(e)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) WithNamespace(prefix string) nscache.Cache {
	return nscache.Namespaced(s, prefix)
}

func (s *Store) ClearNamespace(ctx context.Context, prefix string) (int, error) {
	return s.DeleteMatching(ctx, prefix+":*")
}

// Stats reports counters and the current live-entry count. Size skips
// expired-but-unpurged entries, matching the count the eviction bound
// enforces.
func (s *Store) Stats(_ context.Context) (nscache.Stats, error) {
	s.mu.Lock()
	now := time.Now()
	var size int64
	for _, e := range s.entries {
		if !expired(e, now) {
			size++
		}
	}
	s.mu.Unlock()

	s.statMu.Lock()
	resetAt := s.resetAt
	s.statMu.Unlock()

	return nscache.Stats{
		Size:        size,
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		Evictions:   s.evictions.Load(),
		LastResetAt: resetAt,
	}, nil
}

func (s *Store) ResetStats() {
	s.statMu.Lock()
	s.resetAt = time.Now()
	s.statMu.Unlock()
	s.hits.Store(0)
	s.misses.Store(0)
	s.evictions.Store(0)
}

// Sweep runs one purge pass over the store and returns the number of
// expired entries removed. It snapshots the keyspace, then removes in
// small batches so the store is never locked for the whole pass -
// each batch holds the same critical section a Delete would.
func (s *Store) Sweep() int {
	start := time.Now()

	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	const batch = 128
	removed := 0
	for i := 0; i < len(keys); i += batch {
		end := min(i+batch, len(keys))
		s.mu.Lock()
		now := time.Now()
		for _, k := range keys[i:end] {
			if e, ok := s.entries[k]; ok && expired(e, now) {
				s.removeLocked(e)
				s.hooks.Expired(k, false)
				removed++
			}
		}
		s.mu.Unlock()
	}

	if removed > 0 {
		s.log.Debug("sweep purged expired entries", nscache.Fields{
			"removed": removed,
			"elapsed": time.Since(start),
		})
	}
	s.hooks.SweepDone(removed, time.Since(start))
	return removed
}
