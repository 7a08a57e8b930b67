package netgate

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/netgate/batch"
	"github.com/unkn0wn-root/netgate/codec"
	"github.com/unkn0wn-root/netgate/failure"
	"github.com/unkn0wn-root/netgate/internal/clock"
	"github.com/unkn0wn-root/netgate/transport"
	"github.com/unkn0wn-root/netgate/ttlcache"
)

// maxErrBody caps how much of a non-2xx body is kept in a failure message.
const maxErrBody = 512

type gateway[V any] struct {
	tr       transport.Transport
	codec    codec.Codec[V]
	body     codec.Codec[any]
	cache    *ttlcache.Cache[string, V]
	sched    *batch.Scheduler[*transport.Response]
	classify failure.Classifier
	mode     InvalidationMode
	log      Logger
	hooks    Hooks
	enabled  bool
	closed   atomic.Bool

	// mu makes "check generation then store" and "bump generation then
	// invalidate" atomic with respect to each other. gen moves on every
	// invalidation; a read that observed an older gen must not store.
	mu  sync.Mutex
	gen uint64
}

func newGateway[V any](opts Options[V]) (*gateway[V], error) {
	if opts.Transport == nil {
		return nil, ErrNoTransport
	}
	if opts.MaxSize < 0 {
		return nil, &OptionError{Field: "MaxSize", Reason: "must not be negative"}
	}
	if opts.MaxConcurrency < 0 {
		return nil, &OptionError{Field: "MaxConcurrency", Reason: "must not be negative"}
	}
	if opts.Invalidation > InvalidatePathPrefix {
		return nil, &OptionError{Field: "Invalidation", Reason: "unknown mode"}
	}

	g := &gateway[V]{
		tr:      opts.Transport,
		codec:   opts.Codec,
		body:    opts.BodyCodec,
		mode:    opts.Invalidation,
		enabled: !opts.Disabled,
	}

	// defaults
	g.log = coalesce[Logger](opts.Logger, NopLogger{})
	g.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	clk := coalesce[clock.Clock](opts.Clock, clock.Real())
	if g.codec == nil {
		g.codec = codec.JSON[V]{}
	}
	if g.body == nil {
		g.body = codec.JSON[any]{}
	}
	g.classify = failure.Classifier{Now: clk.Now}

	cache, err := ttlcache.New(ttlcache.Options[string, V]{
		TTL:           opts.TTL,
		MaxSize:       opts.MaxSize,
		SweepInterval: opts.SweepInterval,
		Clock:         clk,
		OnEvict: func(key string, _ V, reason ttlcache.EvictReason) {
			g.hooks.CacheEvicted(key, reason)
		},
	})
	if err != nil {
		return nil, &OptionError{Field: "MaxSize", Reason: "invalid", Err: err}
	}
	g.cache = cache

	g.sched = batch.New[*transport.Response](batch.Options{
		Delay:          opts.BatchDelay,
		MaxWait:        opts.MaxBatchWait,
		MaxConcurrency: opts.MaxConcurrency,
		Clock:          clk,
		OnFlush: func(n int) {
			g.hooks.BatchFlushed(n)
			g.log.Debug("batch flushed", Fields{"size": n})
		},
	})

	return g, nil
}

func (g *gateway[V]) Enabled() bool { return g.enabled }

func (g *gateway[V]) Len() int { return g.cache.Len() }

func (g *gateway[V]) Read(ctx context.Context, path string, params url.Values) Result[V] {
	key := CacheKey(http.MethodGet, path, params)
	if g.closed.Load() {
		return g.fail("read", key, 0, ErrClosed)
	}

	if g.enabled {
		if v, ok := g.cache.Get(key); ok {
			g.hooks.CacheHit(key)
			return Result[V]{Value: v, Source: SourceCache}
		}
		g.hooks.CacheMiss(key)
	}

	// snapshot before the call so an invalidation racing with it wins
	observed := g.snapshotGen()

	req := &transport.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  params,
		Accept: g.codec.ContentType(),
	}
	fut := g.sched.Submit(ctx, func(ctx context.Context) (*transport.Response, error) {
		return g.tr.Perform(ctx, req)
	})
	resp, err := fut.Wait(ctx)
	if err == nil && ctx.Err() != nil {
		// a cancelled read never populates the cache
		err = ctx.Err()
	}
	if err != nil {
		return g.fail("read", key, 0, err)
	}
	if !resp.OK() {
		return g.fail("read", key, resp.Status, statusErr(resp))
	}

	v, err := g.decode(resp.Body)
	if err != nil {
		return g.fail("read", key, resp.Status, err)
	}
	if g.enabled {
		g.storeIfCurrent(key, v, observed)
	}
	return Result[V]{Value: v, Source: SourceTransport, Status: resp.Status}
}

func (g *gateway[V]) Mutate(ctx context.Context, method, path string, body any) Result[V] {
	key := CacheKey(method, path, nil)
	if g.closed.Load() {
		return g.fail("mutate", key, 0, ErrClosed)
	}

	req := &transport.Request{
		Method: method,
		Path:   path,
		Accept: g.codec.ContentType(),
	}
	if body != nil {
		b, err := g.body.Encode(body)
		if err != nil {
			return g.fail("mutate", key, 0, err)
		}
		req.Body = b
		req.ContentType = g.body.ContentType()
	}

	resp, err := g.perform(ctx, req)
	if err != nil {
		return g.fail("mutate", key, 0, err)
	}
	if !resp.OK() {
		return g.fail("mutate", key, resp.Status, statusErr(resp))
	}

	// the server accepted the change; purge before looking at the body
	g.invalidate(path)

	v, err := g.decode(resp.Body)
	if err != nil {
		return g.fail("mutate", key, resp.Status, err)
	}
	return Result[V]{Value: v, Source: SourceTransport, Status: resp.Status}
}

func (g *gateway[V]) Invalidate(fragment string) int {
	return g.invalidate(fragment)
}

// Close drains the scheduler, then stops the cache sweeper. Reads and
// mutations after Close fail as Cancelled.
func (g *gateway[V]) Close(ctx context.Context) error {
	if !g.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := g.sched.Close(ctx)
	g.cache.Close()
	if err != nil {
		g.log.Warn("close: scheduler did not drain", Fields{"err": err})
	}
	return err
}

// perform calls the transport outside the scheduler. A panic comes back as
// a *batch.PanicError, the same as it would from a batched read.
func (g *gateway[V]) perform(ctx context.Context, req *transport.Request) (resp *transport.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, &batch.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return g.tr.Perform(ctx, req)
}

func (g *gateway[V]) snapshotGen() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

func (g *gateway[V]) storeIfCurrent(key string, v V, observed uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != observed {
		g.hooks.StalePutSkipped(key)
		g.log.Debug("store skipped (invalidated during read)", Fields{"key": key, "observed": observed, "gen": g.gen})
		return false
	}
	g.cache.Put(key, v)
	return true
}

func (g *gateway[V]) invalidate(fragment string) int {
	match := g.mode.matcher(fragment)

	g.mu.Lock()
	g.gen++
	n := g.cache.RemoveFunc(match)
	gen := g.gen
	g.mu.Unlock()

	g.hooks.Invalidated(fragment, n)
	g.log.Debug("invalidated", Fields{"fragment": fragment, "removed": n, "gen": gen, "mode": g.mode.String()})
	return n
}

// decode maps an empty body to the zero value so 204 responses succeed.
func (g *gateway[V]) decode(b []byte) (V, error) {
	if len(b) == 0 {
		var zero V
		return zero, nil
	}
	return g.codec.Decode(b)
}

func (g *gateway[V]) fail(op, key string, status int, err error) Result[V] {
	if errors.Is(err, batch.ErrClosed) {
		err = ErrClosed
	}
	f := g.classify.Classify(err)
	g.hooks.CallFailed(op, f)

	fields := Fields{"op": op, "key": key, "kind": f.Kind.String(), "retryable": f.Retryable, "err": err}
	if status != 0 {
		fields["status"] = status
	}
	switch f.Kind {
	case failure.Cancelled, failure.NotFound:
		g.log.Debug("call failed", fields)
	case failure.Unknown, failure.ServerError:
		g.log.Error("call failed", fields)
	default:
		g.log.Warn("call failed", fields)
	}
	return Result[V]{Failure: &f, Status: status}
}

func statusErr(resp *transport.Response) error {
	body := resp.Body
	if len(body) > maxErrBody {
		body = body[:maxErrBody]
	}
	return &failure.StatusError{StatusCode: resp.Status, Body: body}
}
