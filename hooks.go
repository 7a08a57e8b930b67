package netgate

import (
	"github.com/unkn0wn-root/netgate/failure"
	"github.com/unkn0wn-root/netgate/ttlcache"
)

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the gateway calls them on
// hot paths, some while holding its invalidation lock.
type Hooks interface {
	CacheHit(key string)
	CacheMiss(key string)

	// An entry left the cache without being invalidated.
	CacheEvicted(key string, reason ttlcache.EvictReason)

	// A mutation or manual purge removed n entries matching fragment.
	Invalidated(fragment string, n int)

	// The scheduler started a flush of size calls.
	BatchFlushed(size int)

	// op is "read" or "mutate".
	CallFailed(op string, f failure.Failure)

	// A read finished after a concurrent invalidation and its result was
	// not cached.
	StalePutSkipped(key string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

var _ Hooks = NopHooks{}

func (NopHooks) CacheHit(string)                           {}
func (NopHooks) CacheMiss(string)                          {}
func (NopHooks) CacheEvicted(string, ttlcache.EvictReason) {}
func (NopHooks) Invalidated(string, int)                   {}
func (NopHooks) BatchFlushed(int)                          {}
func (NopHooks) CallFailed(string, failure.Failure)        {}
func (NopHooks) StalePutSkipped(string)                    {}
