package nscache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/nscache/codec"
)

// Typed is a typed view over a byte-level Cache. Values are encoded
// with the configured codec before every write and decoded after every
// read; everything else (TTLs, namespacing, atomicity) is the
// underlying cache's behavior.
//
// CompareAndSwap compares encoded bytes, so codecs whose output is not
// deterministic for equal values (e.g. maps under encoding/json) can
// produce spurious mismatches; prefer a deterministic codec (CBOR in
// deterministic mode, Msgpack for tag-ordered structs) for CAS-heavy
// values.
type Typed[V any] struct {
	cache Cache
	codec codec.Codec[V]
}

// NewTyped wraps c with cd. Counter operations stay on the underlying
// cache: Increment/Decrement are reachable via Bytes().
func NewTyped[V any](c Cache, cd codec.Codec[V]) Typed[V] {
	return Typed[V]{cache: c, codec: cd}
}

// Bytes returns the underlying byte-level cache.
func (t Typed[V]) Bytes() Cache { return t.cache }

// WithNamespace returns a typed view over the namespaced cache.
func (t Typed[V]) WithNamespace(prefix string) Typed[V] {
	return Typed[V]{cache: t.cache.WithNamespace(prefix), codec: t.codec}
}

func (t Typed[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	b, ok, err := t.cache.Get(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := t.codec.Decode(b)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (t Typed[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	b, err := t.codec.Encode(value)
	if err != nil {
		return err
	}
	return t.cache.Set(ctx, key, b, ttl)
}

func (t Typed[V]) SetIfAbsent(ctx context.Context, key string, value V, ttl time.Duration) (bool, error) {
	b, err := t.codec.Encode(value)
	if err != nil {
		return false, err
	}
	return t.cache.SetIfAbsent(ctx, key, b, ttl)
}

// CompareAndSwap encodes expected and next and defers to the byte-level
// CAS, so the swap is as atomic as the backend's primitive.
func (t Typed[V]) CompareAndSwap(ctx context.Context, key string, expected, next V) (bool, error) {
	eb, err := t.codec.Encode(expected)
	if err != nil {
		return false, err
	}
	nb, err := t.codec.Encode(next)
	if err != nil {
		return false, err
	}
	return t.cache.CompareAndSwap(ctx, key, eb, nb)
}

func (t Typed[V]) GetMany(ctx context.Context, keys []string) (map[string]V, error) {
	raw, err := t.cache.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]V, len(raw))
	for k, b := range raw {
		v, err := t.codec.Decode(b)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (t Typed[V]) SetMany(ctx context.Context, items map[string]V, ttl time.Duration) error {
	encoded := make(map[string][]byte, len(items))
	for k, v := range items {
		b, err := t.codec.Encode(v)
		if err != nil {
			return err
		}
		encoded[k] = b
	}
	return t.cache.SetMany(ctx, encoded, ttl)
}

func (t Typed[V]) Delete(ctx context.Context, key string) (bool, error) {
	return t.cache.Delete(ctx, key)
}
