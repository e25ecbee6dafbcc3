// Package nscache implements a backend-agnostic key-value cache with TTL
// expiration, LRU eviction, per-key atomic operations (counters, SETNX,
// compare-and-swap by value), glob key enumeration and logical
// namespacing.
//
// Components:
//   - Cache: the contract. Two backends ship with the module:
//     backend/memory (in-process, bounded LRU, background TTL sweep) and
//     backend/redis (remote, native Redis primitives).
//   - Typed[V] + Codec[V]: typed access over the byte-level contract.
//   - Namespaced: a key-prefixing view implementing the full contract
//     over any Cache; views nest and prefixes compose.
//
// Keys:
//
//	<ns>:<key> - entries written through a namespace view
//
// SETNX/lock pattern:
//
//	ok, _ := cache.SetIfAbsent(ctx, "lock:job", owner, 30*time.Second)
//	if ok { /* this process holds the lock until TTL */ }
//
// CAS pattern (optimistic locking on a read value):
//
//	cur, _, _ := cache.Get(ctx, k)
//	next := apply(cur)
//	ok, _ := cache.CompareAndSwap(ctx, k, cur, next) // retry on !ok
package nscache
