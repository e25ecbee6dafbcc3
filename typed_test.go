package nscache_test

import (
	"context"
	"testing"
	"time"

	"github.com/unkn0wn-root/nscache"
	"github.com/unkn0wn-root/nscache/codec"
)

type profile struct {
	ID   string `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

func TestTypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	tc := nscache.NewTyped[profile](newMem(t), codec.JSON[profile]{})

	want := profile{ID: "1", Name: "Ada"}
	if err := tc.Set(ctx, "p:1", want, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := tc.Get(ctx, "p:1")
	if err != nil || !ok || got != want {
		t.Fatalf("Get: ok=%v err=%v got=%+v", ok, err, got)
	}

	if _, ok, _ := tc.Get(ctx, "p:2"); ok {
		t.Fatalf("typed miss should report ok=false")
	}
}

func TestTypedMsgpackRoundTrip(t *testing.T) {
	ctx := context.Background()
	tc := nscache.NewTyped[profile](newMem(t), codec.Msgpack[profile]{})

	want := profile{ID: "2", Name: "Grace"}
	if err := tc.Set(ctx, "p:2", want, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := tc.Get(ctx, "p:2")
	if err != nil || !ok || got != want {
		t.Fatalf("Get: ok=%v err=%v got=%+v", ok, err, got)
	}
}

func TestTypedCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	tc := nscache.NewTyped[profile](newMem(t), codec.JSON[profile]{})

	a := profile{ID: "1", Name: "a"}
	b := profile{ID: "1", Name: "b"}
	c := profile{ID: "1", Name: "c"}

	_ = tc.Set(ctx, "p", a, 0)
	if ok, err := tc.CompareAndSwap(ctx, "p", a, b); err != nil || !ok {
		t.Fatalf("typed CAS matching: ok=%v err=%v", ok, err)
	}
	if ok, _ := tc.CompareAndSwap(ctx, "p", a, c); ok {
		t.Fatalf("typed CAS with stale expected must fail")
	}
	got, _, _ := tc.Get(ctx, "p")
	if got != b {
		t.Fatalf("value after CAS = %+v, want %+v", got, b)
	}
}

func TestTypedSetIfAbsent(t *testing.T) {
	ctx := context.Background()
	tc := nscache.NewTyped[profile](newMem(t), codec.JSON[profile]{})

	if ok, err := tc.SetIfAbsent(ctx, "p", profile{ID: "1"}, time.Minute); err != nil || !ok {
		t.Fatalf("SetIfAbsent absent: ok=%v err=%v", ok, err)
	}
	if ok, _ := tc.SetIfAbsent(ctx, "p", profile{ID: "2"}, 0); ok {
		t.Fatalf("SetIfAbsent on live key must report false")
	}
}

func TestTypedManyAndNamespace(t *testing.T) {
	ctx := context.Background()
	tc := nscache.NewTyped[profile](newMem(t), codec.JSON[profile]{}).WithNamespace("users")

	items := map[string]profile{
		"1": {ID: "1", Name: "A"},
		"2": {ID: "2", Name: "B"},
	}
	if err := tc.SetMany(ctx, items, 0); err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	got, err := tc.GetMany(ctx, []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 || got["1"] != items["1"] || got["2"] != items["2"] {
		t.Fatalf("GetMany = %+v", got)
	}

	if deleted, _ := tc.Delete(ctx, "1"); !deleted {
		t.Fatalf("Delete through typed view should report true")
	}
}

func TestTypedLimitCodec(t *testing.T) {
	ctx := context.Background()
	base := newMem(t)
	// writes use the plain codec; reads go through a 1-byte limit
	writer := nscache.NewTyped[profile](base, codec.JSON[profile]{})
	reader := nscache.NewTyped[profile](base, codec.Limit[profile]{Inner: codec.JSON[profile]{}, MaxDecode: 1})

	_ = writer.Set(ctx, "p", profile{ID: "1", Name: "long enough"}, 0)
	if _, _, err := reader.Get(ctx, "p"); err == nil {
		t.Fatalf("limit codec should reject oversized payloads")
	}
}
