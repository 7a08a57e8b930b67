package cli

import (
	"github.com/unkn0wn-root/netgate"
	"github.com/unkn0wn-root/netgate/failure"
	"github.com/unkn0wn-root/netgate/ttlcache"
)

// fanout delivers every event to each of its hooks in order.
type fanout []netgate.Hooks

var _ netgate.Hooks = fanout(nil)

func (f fanout) CacheHit(key string) {
	for _, h := range f {
		h.CacheHit(key)
	}
}

func (f fanout) CacheMiss(key string) {
	for _, h := range f {
		h.CacheMiss(key)
	}
}

func (f fanout) CacheEvicted(key string, reason ttlcache.EvictReason) {
	for _, h := range f {
		h.CacheEvicted(key, reason)
	}
}

func (f fanout) Invalidated(fragment string, n int) {
	for _, h := range f {
		h.Invalidated(fragment, n)
	}
}

func (f fanout) BatchFlushed(size int) {
	for _, h := range f {
		h.BatchFlushed(size)
	}
}

func (f fanout) CallFailed(op string, fl failure.Failure) {
	for _, h := range f {
		h.CallFailed(op, fl)
	}
}

func (f fanout) StalePutSkipped(key string) {
	for _, h := range f {
		h.StalePutSkipped(key)
	}
}
