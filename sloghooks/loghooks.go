// Package sloghooks reports gateway events as slog records.
package sloghooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/netgate"
	"github.com/unkn0wn-root/netgate/failure"
	"github.com/unkn0wn-root/netgate/ttlcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery   uint64
	MissEvery  uint64
	EvictEvery uint64
	// Optional key redactor. Cache keys carry query strings that may hold
	// ids or tokens. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr   atomic.Uint64
	missCtr  atomic.Uint64
	evictCtr atomic.Uint64
}

var _ netgate.Hooks = (*Hooks)(nil)

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

func (h *Hooks) CacheHit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("netgate.cache_hit", "key", h.redact(key))
}

func (h *Hooks) CacheMiss(key string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("netgate.cache_miss", "key", h.redact(key))
}

func (h *Hooks) CacheEvicted(key string, reason ttlcache.EvictReason) {
	if h.l == nil || !sample(h.opts.EvictEvery, &h.evictCtr) {
		return
	}
	h.l.Debug("netgate.cache_evicted",
		"key", h.redact(key),
		"reason", reason.String())
}

func (h *Hooks) Invalidated(fragment string, n int) {
	if h.l == nil {
		return
	}
	h.l.Info("netgate.invalidated",
		"fragment", fragment,
		"removed", n)
}

func (h *Hooks) BatchFlushed(size int) {
	if h.l == nil {
		return
	}
	h.l.Debug("netgate.batch_flushed", "size", size)
}

func (h *Hooks) CallFailed(op string, f failure.Failure) {
	if h.l == nil {
		return
	}
	level := slog.LevelWarn
	if f.Kind == failure.Unknown || f.Kind == failure.ServerError {
		level = slog.LevelError
	}
	h.l.Log(context.Background(), level, "netgate.call_failed",
		"op", op,
		"kind", f.Kind.String(),
		"code", f.Code,
		"retryable", f.Retryable)
}

func (h *Hooks) StalePutSkipped(key string) {
	if h.l == nil {
		return
	}
	h.l.Info("netgate.stale_put_skipped", "key", h.redact(key))
}
