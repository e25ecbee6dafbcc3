package redis

import (
	"context"
	"errors"
	"testing"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/nscache"
)

func TestNewValidatesConfig(t *testing.T) {
	var ve *nscache.ValidationError
	if _, err := New(Config{DefaultTTL: -1}); !errors.As(err, &ve) {
		t.Fatalf("negative default ttl: want ValidationError, got %v", err)
	}
}

func TestEscapeGlob(t *testing.T) {
	cases := map[string]string{
		"user:*":   "user:*", // contract metacharacters pass through
		"user:?":   "user:?",
		"a[b]c":    `a\[b\]c`, // redis-only metacharacters are literals here
		`back\one`: `back\\one`,
	}
	for in, want := range cases {
		if got := escapeGlob(in); got != want {
			t.Errorf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWrapErrTaxonomy(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	if s.wrapErr("Get", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}

	werr := s.wrapErr("Get", errors.New("read tcp: connection refused"))
	var ce *nscache.ConnectionError
	if !errors.As(werr, &ce) || !ce.Retryable {
		t.Fatalf("transport error should be a retryable ConnectionError, got %v", werr)
	}
	if !nscache.IsRetryable(werr) {
		t.Fatalf("IsRetryable should report true for %v", werr)
	}

	closed := s.wrapErr("Get", goredis.ErrClosed)
	if nscache.IsRetryable(closed) {
		t.Fatalf("a closed client is not retryable")
	}
}

// serverErr mimics a reply error from the server, the only kind that
// carries the goredis.Error marker.
type serverErr string

func (e serverErr) Error() string { return string(e) }
func (serverErr) RedisError()     {}

func TestIsNotIntegerErr(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{serverErr("ERR value is not an integer or out of range"), true},
		{serverErr("WRONGTYPE Operation against a key holding the wrong kind of value"), false},
		// a transport error mentioning the phrase must not qualify
		{errors.New("proxy: value is not an integer"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := isNotIntegerErr(c.err); got != c.want {
			t.Errorf("isNotIntegerErr(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestCloseIdempotent(t *testing.T) {
	s, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
