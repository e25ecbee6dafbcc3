package nscache

import (
	"context"
	"strings"
	"time"
)

// Namespaced returns a Cache view scoped to prefix: every key passed to
// the view is stored in the underlying cache as "prefix:key", and keys
// returned by Keys have the prefix stripped. Views implement the full
// contract and nest - WithNamespace on a view composes prefixes
// ("outer:inner:key"). An empty prefix returns inner unchanged.
//
// A view owns no storage. Stats, ResetStats and Close act on the
// underlying cache.
func Namespaced(inner Cache, prefix string) Cache {
	if prefix == "" {
		return inner
	}
	return &nsView{inner: inner, prefix: prefix}
}

type nsView struct {
	inner  Cache
	prefix string
}

var _ Cache = (*nsView)(nil)

func (v *nsView) key(k string) string { return v.prefix + ":" + k }

func (v *nsView) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ValidateKey("Get", key); err != nil {
		return nil, false, err
	}
	return v.inner.Get(ctx, v.key(key))
}

func (v *nsView) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey("Set", key); err != nil {
		return err
	}
	return v.inner.Set(ctx, v.key(key), value, ttl)
}

func (v *nsView) Delete(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey("Delete", key); err != nil {
		return false, err
	}
	return v.inner.Delete(ctx, v.key(key))
}

func (v *nsView) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey("Exists", key); err != nil {
		return false, err
	}
	return v.inner.Exists(ctx, v.key(key))
}

func (v *nsView) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if err := ValidateKey("TTL", key); err != nil {
		return 0, false, err
	}
	return v.inner.TTL(ctx, v.key(key))
}

func (v *nsView) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ValidateKey("Expire", key); err != nil {
		return false, err
	}
	return v.inner.Expire(ctx, v.key(key), ttl)
}

func (v *nsView) SetMany(ctx context.Context, items map[string][]byte, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}
	scoped := make(map[string][]byte, len(items))
	for k, val := range items {
		if err := ValidateKey("SetMany", k); err != nil {
			return err
		}
		scoped[v.key(k)] = val
	}
	return v.inner.SetMany(ctx, scoped, ttl)
}

func (v *nsView) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	scoped := make([]string, len(keys))
	for i, k := range keys {
		if err := ValidateKey("GetMany", k); err != nil {
			return nil, err
		}
		scoped[i] = v.key(k)
	}
	got, err := v.inner.GetMany(ctx, scoped)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(got))
	for i, k := range keys {
		if val, ok := got[scoped[i]]; ok {
			out[k] = val
		}
	}
	return out, nil
}

func (v *nsView) DeleteMany(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	scoped := make([]string, len(keys))
	for i, k := range keys {
		if err := ValidateKey("DeleteMany", k); err != nil {
			return 0, err
		}
		scoped[i] = v.key(k)
	}
	return v.inner.DeleteMany(ctx, scoped)
}

func (v *nsView) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	if err := ValidateKey("Increment", key); err != nil {
		return 0, err
	}
	return v.inner.Increment(ctx, v.key(key), delta)
}

func (v *nsView) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	if err := ValidateKey("Decrement", key); err != nil {
		return 0, err
	}
	return v.inner.Decrement(ctx, v.key(key), delta)
}

func (v *nsView) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if err := ValidateKey("SetIfAbsent", key); err != nil {
		return false, err
	}
	return v.inner.SetIfAbsent(ctx, v.key(key), value, ttl)
}

func (v *nsView) CompareAndSwap(ctx context.Context, key string, expected, next []byte) (bool, error) {
	if err := ValidateKey("CompareAndSwap", key); err != nil {
		return false, err
	}
	return v.inner.CompareAndSwap(ctx, v.key(key), expected, next)
}

func (v *nsView) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := v.inner.Keys(ctx, v.key(pattern))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if s, ok := strings.CutPrefix(k, v.prefix+":"); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (v *nsView) CountMatching(ctx context.Context, pattern string) (int, error) {
	return v.inner.CountMatching(ctx, v.key(pattern))
}

func (v *nsView) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	return v.inner.DeleteMatching(ctx, v.key(pattern))
}

func (v *nsView) WithNamespace(prefix string) Cache {
	return Namespaced(v.inner, v.key(prefix))
}

func (v *nsView) ClearNamespace(ctx context.Context, prefix string) (int, error) {
	return v.inner.ClearNamespace(ctx, v.key(prefix))
}

func (v *nsView) Stats(ctx context.Context) (Stats, error) { return v.inner.Stats(ctx) }
func (v *nsView) ResetStats()                              { v.inner.ResetStats() }
func (v *nsView) Close(ctx context.Context) error          { return v.inner.Close(ctx) }
