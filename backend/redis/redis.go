// Package redis implements the nscache contract over a Redis server
// using the protocol's native primitives: SETNX for set-if-absent,
// INCRBY/DECRBY for counters, EXPIRE/TTL/PERSIST for expiry and
// server-side SCAN MATCH for key enumeration. Compare-and-swap by
// value has no native primitive and runs as a Lua script, so no client
// lock is ever held across a network call.
package redis

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/nscache"
)

const scanCount = 256

// Config tunes a Store. Either set Client to wrap a caller-owned
// client, or leave it nil and the store dials Addr itself (and then
// owns the connection pool).
type Config struct {
	Addr     string // "" => "127.0.0.1:6379"
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	PoolSize     int
	MinIdleConns int
	MaxIdleConns int

	// DefaultTTL is applied when Set/SetMany receive ttl == 0.
	DefaultTTL time.Duration

	TrackStats bool

	Logger nscache.Logger
	Hooks  nscache.Hooks

	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns Client
}

// Store is the Redis-backed cache. Safe for concurrent use; the
// underlying client pools connections and an exhausted pool surfaces
// as a retryable *nscache.ConnectionError instead of blocking forever.
type Store struct {
	rdb         goredis.UniversalClient
	closeClient bool

	defaultTTL time.Duration
	trackStats bool
	log        nscache.Logger
	hooks      nscache.Hooks

	hits   atomic.Int64
	misses atomic.Int64

	statMu  sync.Mutex
	resetAt time.Time
}

var _ nscache.Cache = (*Store)(nil)

// compare current value, swap preserving TTL; absent or mismatch => 0
var casScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  redis.call('SET', KEYS[1], ARGV[2], 'KEEPTTL')
  return 1
end
return 0
`)

func New(cfg Config) (*Store, error) {
	if cfg.DefaultTTL < 0 {
		return nil, &nscache.ValidationError{Op: "redis.New", Reason: "negative default ttl"}
	}

	rdb := cfg.Client
	closeClient := cfg.CloseClient
	if rdb == nil {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:         nscache.Coalesce(cfg.Addr, "127.0.0.1:6379"),
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			PoolTimeout:  cfg.PoolTimeout,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxIdleConns: cfg.MaxIdleConns,
		})
		closeClient = true
	}

	return &Store{
		rdb:         rdb,
		closeClient: closeClient,
		defaultTTL:  cfg.DefaultTTL,
		trackStats:  cfg.TrackStats,
		log:         nscache.Coalesce[nscache.Logger](cfg.Logger, nscache.NopLogger{}),
		hooks:       nscache.Coalesce[nscache.Hooks](cfg.Hooks, nscache.NopHooks{}),
	}, nil
}

// wrapErr converts a transport/server error into the contract's error
// taxonomy. Pool timeouts and network failures are retryable; a closed
// client is not.
func (s *Store) wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	s.hooks.BackendError(op, err)
	s.log.Warn("redis backend error", nscache.Fields{"op": op, "err": err})
	return &nscache.ConnectionError{
		Op:        op,
		Retryable: !errors.Is(err, goredis.ErrClosed),
		Err:       err,
	}
}

// isNotIntegerErr matches the server reply INCRBY/DECRBY give for a
// non-numeric value. The prefix "ERR value is not an integer" is the
// stable part of Redis's canonical message; only replies from the
// server qualify, never client-side errors.
func isNotIntegerErr(err error) bool {
	var rerr goredis.Error
	return errors.As(err, &rerr) && strings.HasPrefix(rerr.Error(), "ERR value is not an integer")
}

func (s *Store) resolveTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return s.defaultTTL
	}
	return ttl
}

// escapeGlob neutralizes Redis glob metacharacters outside the
// contract's syntax ('*' and '?') so MATCH sees them as literals.
var escapeGlob = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`).Replace

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := nscache.ValidateKey("Get", key); err != nil {
		return nil, false, err
	}
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		if s.trackStats {
			s.misses.Add(1)
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.wrapErr("Get", err)
	}
	if s.trackStats {
		s.hits.Add(1)
	}
	return b, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := nscache.ValidateKey("Set", key); err != nil {
		return err
	}
	if err := nscache.ValidateTTL("Set", ttl); err != nil {
		return err
	}
	return s.wrapErr("Set", s.rdb.Set(ctx, key, value, s.resolveTTL(ttl)).Err())
}

func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := nscache.ValidateKey("Delete", key); err != nil {
		return false, err
	}
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, s.wrapErr("Delete", err)
	}
	return n > 0, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := nscache.ValidateKey("Exists", key); err != nil {
		return false, err
	}
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, s.wrapErr("Exists", err)
	}
	return n > 0, nil
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if err := nscache.ValidateKey("TTL", key); err != nil {
		return 0, false, err
	}
	d, err := s.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, false, s.wrapErr("TTL", err)
	}
	if d < 0 { // -2 absent, -1 no expiration
		return 0, false, nil
	}
	return d, true, nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := nscache.ValidateKey("Expire", key); err != nil {
		return false, err
	}
	if err := nscache.ValidateTTL("Expire", ttl); err != nil {
		return false, err
	}
	var ok bool
	var err error
	if ttl == 0 {
		ok, err = s.rdb.Persist(ctx, key).Result()
	} else {
		ok, err = s.rdb.Expire(ctx, key, ttl).Result()
	}
	if err != nil {
		return false, s.wrapErr("Expire", err)
	}
	return ok, nil
}

func (s *Store) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	if err := nscache.ValidateTTL("SetMany", ttl); err != nil {
		return err
	}
	for k := range items {
		if err := nscache.ValidateKey("SetMany", k); err != nil {
			return err
		}
	}
	if len(items) == 0 {
		return nil
	}
	// MSET has no TTL form; pipeline individual SETs in one round-trip
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		resolved := s.resolveTTL(ttl)
		for k, v := range items {
			p.Set(ctx, k, v, resolved)
		}
		return nil
	})
	return s.wrapErr("SetMany", err)
}

func (s *Store) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	for _, k := range keys {
		if err := nscache.ValidateKey("GetMany", k); err != nil {
			return nil, err
		}
	}
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, s.wrapErr("GetMany", err)
	}
	var hits, misses int64
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
			misses++
		case string:
			out[keys[i]] = []byte(vv)
			hits++
		case []byte:
			out[keys[i]] = vv
			hits++
		}
	}
	if s.trackStats {
		s.hits.Add(hits)
		s.misses.Add(misses)
	}
	return out, nil
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) (int, error) {
	for _, k := range keys {
		if err := nscache.ValidateKey("DeleteMany", k); err != nil {
			return 0, err
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, s.wrapErr("DeleteMany", err)
	}
	return int(n), nil
}

func (s *Store) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if err := nscache.ValidateKey("Increment", key); err != nil {
		return 0, err
	}
	n, err := s.rdb.IncrBy(ctx, key, delta).Result()
	if err != nil {
		if isNotIntegerErr(err) {
			return 0, &nscache.ValidationError{Op: "Increment", Reason: "value is not an integer"}
		}
		return 0, s.wrapErr("Increment", err)
	}
	return n, nil
}

func (s *Store) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	if err := nscache.ValidateKey("Decrement", key); err != nil {
		return 0, err
	}
	n, err := s.rdb.DecrBy(ctx, key, delta).Result()
	if err != nil {
		if isNotIntegerErr(err) {
			return 0, &nscache.ValidationError{Op: "Decrement", Reason: "value is not an integer"}
		}
		return 0, s.wrapErr("Decrement", err)
	}
	return n, nil
}

func (s *Store) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := nscache.ValidateKey("SetIfAbsent", key); err != nil {
		return false, err
	}
	if err := nscache.ValidateTTL("SetIfAbsent", ttl); err != nil {
		return false, err
	}
	ok, err := s.rdb.SetNX(ctx, key, value, s.resolveTTL(ttl)).Result()
	if err != nil {
		return false, s.wrapErr("SetIfAbsent", err)
	}
	return ok, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, key string, expected, next []byte) (bool, error) {
	if err := nscache.ValidateKey("CompareAndSwap", key); err != nil {
		return false, err
	}
	n, err := casScript.Run(ctx, s.rdb, []string{key}, expected, next).Int()
	if err != nil {
		return false, s.wrapErr("CompareAndSwap", err)
	}
	return n == 1, nil
}

func (s *Store) scan(ctx context.Context, op, pattern string, visit func(key string) error) error {
	iter := s.rdb.Scan(ctx, 0, escapeGlob(pattern), scanCount).Iterator()
	for iter.Next(ctx) {
		if err := visit(iter.Val()); err != nil {
			return err
		}
	}
	return s.wrapErr(op, iter.Err())
}

func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	seen := make(map[string]struct{})
	err := s.scan(ctx, "Keys", pattern, func(k string) error {
		// SCAN may return a key more than once
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) CountMatching(ctx context.Context, pattern string) (int, error) {
	keys, err := s.Keys(ctx, pattern)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *Store) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	keys, err := s.Keys(ctx, pattern)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for i := 0; i < len(keys); i += scanCount {
		end := min(i+scanCount, len(keys))
		n, err := s.rdb.Del(ctx, keys[i:end]...).Result()
		if err != nil {
			return deleted, s.wrapErr("DeleteMatching", err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

func (s *Store) WithNamespace(prefix string) nscache.Cache {
	return nscache.Namespaced(s, prefix)
}

func (s *Store) ClearNamespace(ctx context.Context, prefix string) (int, error) {
	return s.DeleteMatching(ctx, prefix+":*")
}

// Stats reports client-side hit/miss counters and the server's key
// count (DBSIZE spans the whole logical database, not only keys this
// store wrote). Evictions are managed server-side and read as 0 here.
func (s *Store) Stats(ctx context.Context) (nscache.Stats, error) {
	size, err := s.rdb.DBSize(ctx).Result()
	if err != nil {
		return nscache.Stats{}, s.wrapErr("Stats", err)
	}
	s.statMu.Lock()
	resetAt := s.resetAt
	s.statMu.Unlock()
	return nscache.Stats{
		Size:        size,
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		LastResetAt: resetAt,
	}, nil
}

func (s *Store) ResetStats() {
	s.statMu.Lock()
	s.resetAt = time.Now()
	s.statMu.Unlock()
	s.hits.Store(0)
	s.misses.Store(0)
}

// Close releases the underlying client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
