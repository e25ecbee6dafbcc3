// Package sloghooks logs cache events through log/slog with optional
// sampling and key redaction, for wiring eviction/expiry visibility
// into an application's existing slog pipeline.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/nscache"
)

type Options struct {
	// Sampling to avoid floods on churny caches; 0/1 = log all.
	EvictedEvery uint64
	ExpiredEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	evictedCtr atomic.Uint64
	expiredCtr atomic.Uint64
}

var _ nscache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Evicted(key string) {
	if h.l == nil || !sample(h.opts.EvictedEvery, &h.evictedCtr) {
		return
	}
	h.l.Debug("nscache.evicted",
		"key", h.redact(key))
}

func (h *Hooks) Expired(key string, lazy bool) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("nscache.expired",
		"key", h.redact(key),
		"lazy", lazy)
}

func (h *Hooks) SweepDone(removed int, elapsed time.Duration) {
	if h.l == nil || removed == 0 {
		return
	}
	h.l.Info("nscache.sweep_done",
		"removed", removed,
		"elapsed", elapsed)
}

func (h *Hooks) BackendError(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("nscache.backend_error",
		"op", op,
		"err", err)
}
