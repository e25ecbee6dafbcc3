package nscache_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/unkn0wn-root/nscache"
	"github.com/unkn0wn-root/nscache/backend/memory"
)

func newMem(t *testing.T) nscache.Cache {
	t.Helper()
	s, err := memory.New(memory.Config{})
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	base := newMem(t)

	a := base.WithNamespace("a")
	b := base.WithNamespace("b")

	if err := a.Set(ctx, "k", []byte("1"), 0); err != nil {
		t.Fatalf("a.Set: %v", err)
	}
	if err := b.Set(ctx, "k", []byte("2"), 0); err != nil {
		t.Fatalf("b.Set: %v", err)
	}

	got, _, _ := a.Get(ctx, "k")
	if string(got) != "1" {
		t.Fatalf("a/k = %q, want 1", got)
	}
	got, _, _ = b.Get(ctx, "k")
	if string(got) != "2" {
		t.Fatalf("b/k = %q, want 2", got)
	}

	// underlying keys carry the prefix
	keys, _ := base.Keys(ctx, "*")
	if !reflect.DeepEqual(keys, []string{"a:k", "b:k"}) {
		t.Fatalf("base keys = %v", keys)
	}
}

func TestNamespaceClear(t *testing.T) {
	ctx := context.Background()
	base := newMem(t)

	a := base.WithNamespace("a")
	b := base.WithNamespace("b")
	_ = a.Set(ctx, "k1", []byte("1"), 0)
	_ = a.Set(ctx, "k2", []byte("2"), 0)
	_ = b.Set(ctx, "k", []byte("3"), 0)

	// clearing at the top level reaches keys written through views
	n, err := base.ClearNamespace(ctx, "a")
	if err != nil || n != 2 {
		t.Fatalf("ClearNamespace: n=%d err=%v, want 2", n, err)
	}
	if ok, _ := b.Exists(ctx, "k"); !ok {
		t.Fatalf("clearing namespace a must not touch namespace b")
	}
}

func TestNamespaceNesting(t *testing.T) {
	ctx := context.Background()
	base := newMem(t)

	inner := base.WithNamespace("outer").WithNamespace("inner")
	_ = inner.Set(ctx, "k", []byte("v"), 0)

	if got, _, _ := base.Get(ctx, "outer:inner:k"); string(got) != "v" {
		t.Fatalf("composed key not found at top level; got=%q", got)
	}
	if got, _, _ := inner.Get(ctx, "k"); string(got) != "v" {
		t.Fatalf("nested view cannot read its own write; got=%q", got)
	}
}

func TestNamespaceKeysStripPrefix(t *testing.T) {
	ctx := context.Background()
	base := newMem(t)

	a := base.WithNamespace("a")
	_ = a.Set(ctx, "user:1", []byte("v"), 0)
	_ = a.Set(ctx, "user:2", []byte("v"), 0)
	_ = base.Set(ctx, "user:3", []byte("v"), 0) // outside the namespace

	keys, err := a.Keys(ctx, "user:*")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"user:1", "user:2"}) {
		t.Fatalf("view keys = %v, want stripped [user:1 user:2]", keys)
	}

	n, _ := a.DeleteMatching(ctx, "user:*")
	if n != 2 {
		t.Fatalf("view DeleteMatching = %d, want 2", n)
	}
	if ok, _ := base.Exists(ctx, "user:3"); !ok {
		t.Fatalf("view delete must not leak outside its namespace")
	}
}

func TestNamespaceBulkAndCounters(t *testing.T) {
	ctx := context.Background()
	base := newMem(t)
	a := base.WithNamespace("a")

	if err := a.SetMany(ctx, map[string][]byte{"x": []byte("1"), "y": []byte("2")}, 0); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	got, err := a.GetMany(ctx, []string{"x", "y", "z"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	want := map[string][]byte{"x": []byte("1"), "y": []byte("2")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("GetMany through view = %v, want %v", got, want)
	}

	if n, _ := a.Increment(ctx, "ctr", 5); n != 5 {
		t.Fatalf("Increment through view = %d, want 5", n)
	}
	if raw, _, _ := base.Get(ctx, "a:ctr"); string(raw) != "5" {
		t.Fatalf("counter stored under wrong key; a:ctr=%q", raw)
	}
}

func TestNamespaceEmptyPrefixIsInner(t *testing.T) {
	base := newMem(t)
	if base.WithNamespace("") != base {
		t.Fatalf("empty prefix should return the inner cache unchanged")
	}
}

func TestNamespaceValidation(t *testing.T) {
	ctx := context.Background()
	a := newMem(t).WithNamespace("a")

	// a view must reject an empty key itself, not pass "a:" downstream
	var ve *nscache.ValidationError
	if _, _, err := a.Get(ctx, ""); !errors.As(err, &ve) {
		t.Fatalf("view Get empty key: want ValidationError, got %v", err)
	}
	if err := a.Set(ctx, "", []byte("v"), 0); !errors.As(err, &ve) {
		t.Fatalf("view Set empty key: want ValidationError, got %v", err)
	}
}
