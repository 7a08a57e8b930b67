// Package asynchook moves hook calls off the gateway's hot path.
//
// Usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{HitEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker, queue of 1000 events
//	defer hooks.Close()
//
//	gw, _ := netgate.New[User](netgate.Options[User]{
//	    Transport: tr,
//	    Hooks:     hooks, // or raw if synchronous calls are fine
//	})
//
// Events are dropped, never queued unboundedly, when the queue is full.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/netgate"
	"github.com/unkn0wn-root/netgate/failure"
	"github.com/unkn0wn-root/netgate/ttlcache"
)

type Hooks struct {
	inner   netgate.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards q against send-after-close
	closed  bool
	dropped atomic.Uint64
}

var _ netgate.Hooks = (*Hooks)(nil)

func New(inner netgate.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close delivers queued events and stops the workers. Later events are
// dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped counts events lost to a full queue or a closed hook.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) CacheHit(k string)        { h.try(func() { h.inner.CacheHit(k) }) }
func (h *Hooks) CacheMiss(k string)       { h.try(func() { h.inner.CacheMiss(k) }) }
func (h *Hooks) BatchFlushed(n int)       { h.try(func() { h.inner.BatchFlushed(n) }) }
func (h *Hooks) StalePutSkipped(k string) { h.try(func() { h.inner.StalePutSkipped(k) }) }
func (h *Hooks) CacheEvicted(k string, r ttlcache.EvictReason) {
	h.try(func() { h.inner.CacheEvicted(k, r) })
}
func (h *Hooks) Invalidated(fragment string, n int) {
	h.try(func() { h.inner.Invalidated(fragment, n) })
}
func (h *Hooks) CallFailed(op string, f failure.Failure) {
	h.try(func() { h.inner.CallFailed(op, f) })
}
