// Package ttlcache implements a bounded in-memory cache with per-entry expiry.
//
// Expiry is lazy: an expired entry is dropped the next time it is read, or
// when capacity pressure evicts it. Memory is bounded by MaxSize either way,
// so expired entries that are never read again may linger until evicted.
// Set SweepInterval to drop them periodically instead.
//
// Eviction removes the entry inserted longest ago (overwrites count as a new
// insertion). Reads never change eviction order, so this is not an LRU.
package ttlcache

import (
	"container/heap"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/unkn0wn-root/netgate/internal/clock"
)

const (
	defaultTTL     = 5 * time.Minute
	defaultMaxSize = 1024
)

var ErrInvalidSize = errors.New("ttlcache: max size must be positive")

// EvictReason tells an OnEvict callback why an entry left the cache.
type EvictReason uint8

const (
	ReasonCapacity EvictReason = iota + 1
	ReasonExpired
	ReasonSwept
)

func (r EvictReason) String() string {
	switch r {
	case ReasonCapacity:
		return "capacity"
	case ReasonExpired:
		return "expired"
	case ReasonSwept:
		return "swept"
	default:
		return "unknown"
	}
}

// Options configure a Cache. Zero values fall back to defaults.
type Options[K comparable, V any] struct {
	TTL     time.Duration // 0 => 5m
	MaxSize int           // 0 => 1024; negative is an error

	// SweepInterval enables a background sweep of expired entries. 0 disables it.
	SweepInterval time.Duration

	Clock clock.Clock // nil => wall clock

	// OnEvict runs after an entry is evicted or expires. Explicit Remove,
	// RemoveFunc and Clear do not call it. It runs outside the cache lock.
	OnEvict func(key K, value V, reason EvictReason)
}

type entry[K comparable, V any] struct {
	key        K
	value      V
	insertedAt time.Time
	expiresAt  time.Time
	seq        uint64
	index      int // position in the insertion heap
}

// Cache is safe for concurrent use. Every operation, including Get, runs under
// a single mutex because reads may delete expired entries.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]*entry[K, V]
	order insertionHeap[K, V]
	seq   uint64

	ttl     time.Duration
	maxSize int
	clock   clock.Clock
	onEvict func(K, V, EvictReason)

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type evicted[K comparable, V any] struct {
	key    K
	value  V
	reason EvictReason
}

func New[K comparable, V any](opts Options[K, V]) (*Cache[K, V], error) {
	if opts.MaxSize < 0 {
		return nil, ErrInvalidSize
	}
	c := &Cache[K, V]{
		items:   make(map[K]*entry[K, V]),
		ttl:     opts.TTL,
		maxSize: opts.MaxSize,
		clock:   opts.Clock,
		onEvict: opts.OnEvict,
	}
	if c.ttl <= 0 {
		c.ttl = defaultTTL
	}
	if c.maxSize == 0 {
		c.maxSize = defaultMaxSize
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}

	if opts.SweepInterval > 0 {
		c.stopCh = make(chan struct{})
		c.wg.Add(1)
		go c.sweepLoop(opts.SweepInterval)
	}
	return c, nil
}

// TTL returns the default lifetime applied by Put.
func (c *Cache[K, V]) TTL() time.Duration { return c.ttl }

// MaxSize returns the capacity bound.
func (c *Cache[K, V]) MaxSize() int { return c.maxSize }

// Put inserts or overwrites key with the default TTL.
func (c *Cache[K, V]) Put(key K, value V) {
	c.PutWithTTL(key, value, c.ttl)
}

// PutWithTTL inserts or overwrites key with an explicit lifetime.
// A non-positive ttl falls back to the default.
func (c *Cache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	now := c.clock.Now()
	c.seq++
	if e, ok := c.items[key]; ok {
		e.value = value
		e.insertedAt = now
		e.expiresAt = now.Add(ttl)
		e.seq = c.seq
		heap.Fix(&c.order, e.index)
	} else {
		e = &entry[K, V]{
			key:        key,
			value:      value,
			insertedAt: now,
			expiresAt:  now.Add(ttl),
			seq:        c.seq,
		}
		c.items[key] = e
		heap.Push(&c.order, e)
	}

	var out *evicted[K, V]
	if len(c.items) > c.maxSize {
		oldest := heap.Pop(&c.order).(*entry[K, V])
		delete(c.items, oldest.key)
		out = &evicted[K, V]{key: oldest.key, value: oldest.value, reason: ReasonCapacity}
	}
	c.mu.Unlock()

	if out != nil {
		c.notify(*out)
	}
}

// Get returns the value for key. An expired entry is removed and reported as
// a miss.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V

	c.mu.Lock()
	e, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return zero, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.removeLocked(e)
		c.mu.Unlock()
		c.notify(evicted[K, V]{key: e.key, value: e.value, reason: ReasonExpired})
		return zero, false
	}
	v := e.value
	c.mu.Unlock()
	return v, true
}

// Remove deletes key if present.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	if e, ok := c.items[key]; ok {
		c.removeLocked(e)
	}
	c.mu.Unlock()
}

// RemoveFunc deletes every entry whose key satisfies match and returns how
// many were removed. match runs under the cache lock.
func (c *Cache[K, V]) RemoveFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.items {
		if match(k) {
			c.removeLocked(e)
			n++
		}
	}
	return n
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.items = make(map[K]*entry[K, V])
	c.order = nil
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not. It does not sweep.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the stored keys, oldest insertion first.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	// sort a copy; sorting c.order in place would desync the entries' heap indexes
	sorted := make(insertionHeap[K, V], len(c.order))
	copy(sorted, c.order)
	sort.Slice(sorted, func(i, j int) bool { return sorted.less(sorted[i], sorted[j]) })

	keys := make([]K, len(sorted))
	for i, e := range sorted {
		keys[i] = e.key
	}
	return keys
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	now := c.clock.Now()
	var out []evicted[K, V]
	for _, e := range c.items {
		if !now.Before(e.expiresAt) {
			c.removeLocked(e)
			out = append(out, evicted[K, V]{key: e.key, value: e.value, reason: ReasonSwept})
		}
	}
	c.mu.Unlock()

	for _, ev := range out {
		c.notify(ev)
	}
	return len(out)
}

// Close stops the background sweep. The cache stays usable afterwards.
func (c *Cache[K, V]) Close() {
	c.closeOnce.Do(func() {
		if c.stopCh != nil {
			close(c.stopCh)
			c.wg.Wait()
		}
	})
}

func (c *Cache[K, V]) sweepLoop(every time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache[K, V]) removeLocked(e *entry[K, V]) {
	delete(c.items, e.key)
	heap.Remove(&c.order, e.index)
}

func (c *Cache[K, V]) notify(ev evicted[K, V]) {
	if c.onEvict != nil {
		c.onEvict(ev.key, ev.value, ev.reason)
	}
}
