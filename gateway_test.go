package netgate

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/unkn0wn-root/netgate/failure"
	"github.com/unkn0wn-root/netgate/internal/clock"
	"github.com/unkn0wn-root/netgate/transport"
	"github.com/unkn0wn-root/netgate/ttlcache"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// fakeTransport answers from handle and records every request.
type fakeTransport struct {
	mu     sync.Mutex
	calls  []transport.Request
	handle func(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

func (f *fakeTransport) Perform(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, *req)
	h := f.handle
	f.mu.Unlock()
	if h == nil {
		return jsonResp(http.StatusOK, user{ID: "1", Name: "Ada"}), nil
	}
	return h(ctx, req)
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) last() transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func jsonResp(status int, v any) *transport.Response {
	b, _ := json.Marshal(v)
	return &transport.Response{Status: status, Body: b}
}

// recHooks counts events.
type recHooks struct {
	NopHooks
	mu          sync.Mutex
	hits        int
	misses      int
	stale       int
	flushes     []int
	failed      []failure.Kind
	evicted     map[string]ttlcache.EvictReason
	invalidated map[string]int
}

func newRecHooks() *recHooks {
	return &recHooks{evicted: map[string]ttlcache.EvictReason{}, invalidated: map[string]int{}}
}

func (h *recHooks) CacheHit(string)  { h.mu.Lock(); h.hits++; h.mu.Unlock() }
func (h *recHooks) CacheMiss(string) { h.mu.Lock(); h.misses++; h.mu.Unlock() }
func (h *recHooks) StalePutSkipped(string) {
	h.mu.Lock()
	h.stale++
	h.mu.Unlock()
}
func (h *recHooks) BatchFlushed(n int) { h.mu.Lock(); h.flushes = append(h.flushes, n); h.mu.Unlock() }
func (h *recHooks) CallFailed(_ string, f failure.Failure) {
	h.mu.Lock()
	h.failed = append(h.failed, f.Kind)
	h.mu.Unlock()
}
func (h *recHooks) CacheEvicted(k string, r ttlcache.EvictReason) {
	h.mu.Lock()
	h.evicted[k] = r
	h.mu.Unlock()
}
func (h *recHooks) Invalidated(fragment string, n int) {
	h.mu.Lock()
	h.invalidated[fragment] += n
	h.mu.Unlock()
}

var _ Hooks = (*recHooks)(nil)

func newTestGateway(t *testing.T, tr transport.Transport, optsOpt func(*Options[user])) *gateway[user] {
	t.Helper()
	opts := Options[user]{
		Transport:  tr,
		TTL:        time.Minute,
		MaxSize:    64,
		BatchDelay: time.Millisecond,
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	gw, err := New[user](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = gw.Close(context.Background()) })
	return mustImpl(t, gw)
}

func mustImpl[V any](t *testing.T, g Gateway[V]) *gateway[V] {
	t.Helper()
	impl, ok := g.(*gateway[V])
	if !ok {
		t.Fatalf("unexpected concrete type for Gateway")
	}
	return impl
}

// readWithClock drives the fake clock until the read resolves.
func readWithClock(t *testing.T, g *gateway[user], clk *clock.Fake, path string) Result[user] {
	t.Helper()
	ch := make(chan Result[user], 1)
	go func() { ch <- g.Read(context.Background(), path, nil) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case r := <-ch:
			return r
		default:
		}
		if g.sched.Pending() > 0 {
			clk.Advance(g.sched.Delay())
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("read %s never finished", path)
	return Result[user]{}
}

func TestReadMissThenHit(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	hooks := newRecHooks()
	g := newTestGateway(t, tr, func(o *Options[user]) { o.Hooks = hooks })

	first := g.Read(ctx, "/users/1", nil)
	if !first.OK() || first.Source != SourceTransport || first.Status != http.StatusOK {
		t.Fatalf("first read: %+v", first)
	}
	if first.Value.Name != "Ada" {
		t.Fatalf("decoded %+v", first.Value)
	}

	second := g.Read(ctx, "/users/1", nil)
	if !second.OK() || second.Source != SourceCache || second.Value != first.Value {
		t.Fatalf("second read: %+v", second)
	}
	if tr.count() != 1 {
		t.Fatalf("transport calls=%d want 1", tr.count())
	}
	if hooks.hits != 1 || hooks.misses != 1 {
		t.Fatalf("hits=%d misses=%d", hooks.hits, hooks.misses)
	}

	req := tr.last()
	if req.Method != http.MethodGet || req.Accept != "application/json" {
		t.Fatalf("request %+v", req)
	}
}

// A POST to /users purges the cached GET /users?page=1.
func TestMutationInvalidatesCachedRead(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	g := newTestGateway(t, tr, nil)
	page := url.Values{"page": {"1"}}

	g.Read(ctx, "/users", page)
	g.Read(ctx, "/users", page)
	if tr.count() != 1 {
		t.Fatalf("warm-up calls=%d want 1", tr.count())
	}

	res := g.Mutate(ctx, http.MethodPost, "/users", user{Name: "Grace"})
	if !res.OK() {
		t.Fatalf("mutate failed: %v", res.Failure)
	}
	post := tr.last()
	if post.ContentType != "application/json" || len(post.Body) == 0 {
		t.Fatalf("mutation body not sent: %+v", post)
	}

	after := g.Read(ctx, "/users", page)
	if after.Source != SourceTransport {
		t.Fatalf("read after mutate served from %v", after.Source)
	}
	if tr.count() != 3 {
		t.Fatalf("transport calls=%d want 3", tr.count())
	}
}

func TestFailuresAreClassifiedAndNotCached(t *testing.T) {
	ctx := context.Background()
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	cases := []struct {
		name   string
		resp   *transport.Response
		err    error
		want   failure.Kind
		status int
	}{
		{"not found", &transport.Response{Status: 404, Body: []byte("no such user")}, nil, failure.NotFound, 404},
		{"rate limited", &transport.Response{Status: 429}, nil, failure.RateLimited, 429},
		{"server error", &transport.Response{Status: 503}, nil, failure.ServerError, 503},
		{"unauthorized", &transport.Response{Status: 401}, nil, failure.Authentication, 401},
		{"refused", nil, refused, failure.NetworkUnavailable, 0},
		{"receive timeout", nil, &failure.TimeoutError{Phase: failure.PhaseReceive}, failure.Timeout, 0},
		{"bad body", &transport.Response{Status: 200, Body: []byte("{not json")}, nil, failure.Unknown, 200},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := &fakeTransport{handle: func(context.Context, *transport.Request) (*transport.Response, error) {
				return tc.resp, tc.err
			}}
			hooks := newRecHooks()
			g := newTestGateway(t, tr, func(o *Options[user]) { o.Hooks = hooks })

			res := g.Read(ctx, "/users/1", nil)
			if res.OK() {
				t.Fatal("expected a failure")
			}
			if res.Failure.Kind != tc.want || res.Failure.Retryable != tc.want.Retryable() {
				t.Fatalf("failure=%+v want kind %v", res.Failure, tc.want)
			}
			if res.Status != tc.status {
				t.Fatalf("status=%d want %d", res.Status, tc.status)
			}
			if g.Len() != 0 {
				t.Fatal("failure must not populate the cache")
			}
			var raw *net.OpError
			if _, err := res.Unwrap(); errors.As(err, &raw) {
				t.Fatal("raw transport error leaked through the result")
			}

			g.Read(ctx, "/users/1", nil)
			if tr.count() != 2 {
				t.Fatalf("retry did not reach transport: calls=%d", tr.count())
			}
			if len(hooks.failed) != 2 {
				t.Fatalf("CallFailed fired %d times", len(hooks.failed))
			}
		})
	}
}

func TestMutationFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	g := newTestGateway(t, tr, nil)

	g.Read(ctx, "/users", nil)
	tr.handle = func(context.Context, *transport.Request) (*transport.Response, error) {
		return &transport.Response{Status: 422, Body: []byte(`{"error":"name required"}`)}, nil
	}

	res := g.Mutate(ctx, http.MethodPost, "/users", map[string]string{})
	if res.OK() || res.Failure.Kind != failure.Validation {
		t.Fatalf("mutate: %+v", res)
	}
	if g.Len() != 1 {
		t.Fatalf("Len=%d: a failed mutation must not invalidate", g.Len())
	}
}

func TestCancelledReadIsNotCached(t *testing.T) {
	tr := &fakeTransport{}
	g := newTestGateway(t, tr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := g.Read(ctx, "/users/1", nil)
	if res.OK() || res.Failure.Kind != failure.Cancelled || res.Failure.Retryable {
		t.Fatalf("res=%+v want cancelled", res)
	}
	if g.Len() != 0 {
		t.Fatal("cancelled read populated the cache")
	}
}

func TestCancelDuringTransportCall(t *testing.T) {
	entered := make(chan struct{})
	tr := &fakeTransport{handle: func(ctx context.Context, _ *transport.Request) (*transport.Response, error) {
		close(entered)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	g := newTestGateway(t, tr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-entered
		cancel()
	}()
	res := g.Read(ctx, "/slow", nil)
	if res.OK() || res.Failure.Kind != failure.Cancelled {
		t.Fatalf("res=%+v want cancelled", res)
	}
	if g.Len() != 0 {
		t.Fatal("cancelled read populated the cache")
	}
}

func TestSubstringInvalidationIsCoarse(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	g := newTestGateway(t, tr, nil)

	for _, p := range []string{"/users", "/users/42", "/admin/users", "/teams"} {
		g.Read(ctx, p, url.Values{"team": {"1"}})
	}

	res := g.Mutate(ctx, http.MethodPut, "/users", nil)
	if !res.OK() {
		t.Fatal(res.Failure)
	}
	want := []string{CacheKey("GET", "/teams", url.Values{"team": {"1"}})}
	if got := g.cache.Keys(); len(got) != 1 || got[0] != want[0] {
		t.Fatalf("remaining keys=%v want %v", got, want)
	}
}

func TestPrefixInvalidation(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	g := newTestGateway(t, tr, func(o *Options[user]) { o.Invalidation = InvalidatePathPrefix })

	for _, p := range []string{"/users", "/users/42", "/admin/users", "/usersettings"} {
		g.Read(ctx, p, nil)
	}
	g.Mutate(ctx, http.MethodDelete, "/users", nil)

	keys := g.cache.Keys()
	if len(keys) != 2 || keys[0] != "GET:/admin/users:" || keys[1] != "GET:/usersettings:" {
		t.Fatalf("remaining keys=%v", keys)
	}
}

func TestInvalidationRemovesEveryMatch(t *testing.T) {
	ctx := context.Background()
	g := newTestGateway(t, &fakeTransport{}, nil)

	paths := []string{"/a/x", "/a/y", "/b/x", "/c"}
	for _, p := range paths {
		g.Read(ctx, p, nil)
	}
	if n := g.Invalidate("/x"); n != 2 {
		t.Fatalf("Invalidate removed %d want 2", n)
	}
	for _, k := range g.cache.Keys() {
		if strings.Contains(k, "/x") {
			t.Fatalf("key %q survived invalidation", k)
		}
	}
	if n := g.Invalidate(""); n != 2 || g.Len() != 0 {
		t.Fatalf("empty fragment removed %d, Len=%d", n, g.Len())
	}
}

// A read that started before an invalidation must not cache its result.
func TestStalePutSkippedAfterConcurrentMutation(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	tr := &fakeTransport{handle: func(_ context.Context, req *transport.Request) (*transport.Response, error) {
		if req.Method == http.MethodGet {
			close(entered)
			<-release
		}
		return jsonResp(http.StatusOK, user{ID: "42", Name: "old"}), nil
	}}
	hooks := newRecHooks()
	g := newTestGateway(t, tr, func(o *Options[user]) { o.Hooks = hooks })

	done := make(chan Result[user], 1)
	go func() { done <- g.Read(ctx, "/users/42", nil) }()

	<-entered
	if res := g.Mutate(ctx, http.MethodPut, "/users/42", user{ID: "42", Name: "new"}); !res.OK() {
		t.Fatal(res.Failure)
	}
	close(release)

	res := <-done
	if !res.OK() || res.Value.Name != "old" {
		t.Fatalf("read result %+v", res)
	}
	if g.Len() != 0 {
		t.Fatal("stale read result was cached after the mutation")
	}
	if hooks.stale != 1 {
		t.Fatalf("StalePutSkipped fired %d times", hooks.stale)
	}
}

func TestConcurrentReadsShareOneFlush(t *testing.T) {
	clk := clock.NewFake(epoch)
	tr := &fakeTransport{}
	hooks := newRecHooks()
	g := newTestGateway(t, tr, func(o *Options[user]) {
		o.Clock = clk
		o.BatchDelay = 100 * time.Millisecond
		o.Hooks = hooks
	})

	const n = 4
	results := make(chan Result[user], n)
	for i := 0; i < n; i++ {
		path := "/users/" + string(rune('a'+i))
		go func() { results <- g.Read(context.Background(), path, nil) }()
	}

	deadline := time.Now().Add(2 * time.Second)
	for g.sched.Pending() < n {
		if time.Now().After(deadline) {
			t.Fatalf("pending=%d want %d", g.sched.Pending(), n)
		}
		time.Sleep(time.Millisecond)
	}
	if tr.count() != 0 {
		t.Fatal("transport called before the debounce window closed")
	}

	clk.Advance(100 * time.Millisecond)
	for i := 0; i < n; i++ {
		if r := <-results; !r.OK() {
			t.Fatal(r.Failure)
		}
	}
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.flushes) != 1 || hooks.flushes[0] != n {
		t.Fatalf("flushes=%v want [%d]", hooks.flushes, n)
	}
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	clk := clock.NewFake(epoch)
	tr := &fakeTransport{}
	hooks := newRecHooks()
	g := newTestGateway(t, tr, func(o *Options[user]) {
		o.Clock = clk
		o.TTL = time.Second
		o.BatchDelay = 10 * time.Millisecond
		o.Hooks = hooks
	})

	readWithClock(t, g, clk, "/users/1")
	if r := readWithClock(t, g, clk, "/users/1"); r.Source != SourceCache {
		t.Fatalf("second read from %v", r.Source)
	}

	clk.Advance(time.Second)
	if r := readWithClock(t, g, clk, "/users/1"); r.Source != SourceTransport {
		t.Fatalf("read after TTL from %v", r.Source)
	}
	if tr.count() != 2 {
		t.Fatalf("transport calls=%d want 2", tr.count())
	}
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if hooks.evicted["GET:/users/1:"] != ttlcache.ReasonExpired {
		t.Fatalf("evictions=%v", hooks.evicted)
	}
}

func TestCapacityBound(t *testing.T) {
	ctx := context.Background()
	hooks := newRecHooks()
	g := newTestGateway(t, &fakeTransport{}, func(o *Options[user]) {
		o.MaxSize = 2
		o.Hooks = hooks
	})

	g.Read(ctx, "/a", nil)
	g.Read(ctx, "/b", nil)
	g.Read(ctx, "/c", nil)
	if g.Len() != 2 {
		t.Fatalf("Len=%d want 2", g.Len())
	}
	if hooks.evicted["GET:/a:"] != ttlcache.ReasonCapacity {
		t.Fatalf("evictions=%v", hooks.evicted)
	}
}

func TestDisabledBypassesCache(t *testing.T) {
	ctx := context.Background()
	tr := &fakeTransport{}
	g := newTestGateway(t, tr, func(o *Options[user]) { o.Disabled = true })

	g.Read(ctx, "/users", nil)
	g.Read(ctx, "/users", nil)
	if tr.count() != 2 || g.Len() != 0 || g.Enabled() {
		t.Fatalf("calls=%d Len=%d enabled=%v", tr.count(), g.Len(), g.Enabled())
	}
}

func TestEmptyBodyDecodesToZero(t *testing.T) {
	tr := &fakeTransport{handle: func(context.Context, *transport.Request) (*transport.Response, error) {
		return &transport.Response{Status: http.StatusNoContent}, nil
	}}
	g := newTestGateway(t, tr, nil)

	res := g.Mutate(context.Background(), http.MethodDelete, "/users/1", nil)
	if !res.OK() || res.Value != (user{}) || res.Status != http.StatusNoContent {
		t.Fatalf("res=%+v", res)
	}
	if req := tr.last(); len(req.Body) != 0 || req.ContentType != "" {
		t.Fatalf("nil body sent as %q (%s)", req.Body, req.ContentType)
	}
}

func TestClosedGatewayFailsAsCancelled(t *testing.T) {
	tr := &fakeTransport{}
	g := newTestGateway(t, tr, nil)

	if warm := g.Read(context.Background(), "/users", nil); !warm.OK() {
		t.Fatalf("warm-up read: %+v", warm.Failure)
	}
	if g.Len() != 1 {
		t.Fatalf("len=%d want 1 before Close", g.Len())
	}

	if err := g.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := g.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	cached := g.Read(context.Background(), "/users", nil)
	cold := g.Read(context.Background(), "/teams", nil)
	m := g.Mutate(context.Background(), http.MethodPost, "/users", nil)
	for _, res := range []Result[user]{cached, cold, m} {
		if res.OK() || res.Failure.Kind != failure.Cancelled || res.Source != SourceNone {
			t.Fatalf("res=%+v want cancelled", res)
		}
	}
	if tr.count() != 1 {
		t.Fatalf("transport calls=%d want only the warm-up", tr.count())
	}
}

func TestTransportPanicBecomesFailure(t *testing.T) {
	tr := transport.Func(func(context.Context, *transport.Request) (*transport.Response, error) {
		panic("transport bug")
	})
	hooks := newRecHooks()
	g := newTestGateway(t, tr, func(o *Options[user]) { o.Hooks = hooks })

	r := g.Read(context.Background(), "/users", nil)
	m := g.Mutate(context.Background(), http.MethodPut, "/users/1", user{ID: "1"})
	for name, res := range map[string]Result[user]{"read": r, "mutate": m} {
		if res.OK() || res.Failure.Kind != failure.Unknown || res.Failure.Retryable {
			t.Fatalf("%s: res=%+v want unknown failure", name, res)
		}
		if !strings.Contains(res.Failure.Message, "transport bug") {
			t.Fatalf("%s: message %q lost the panic value", name, res.Failure.Message)
		}
	}
	if g.Len() != 0 {
		t.Fatalf("len=%d, a panicking call must not touch the cache", g.Len())
	}
	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	if len(hooks.failed) != 2 {
		t.Fatalf("CallFailed fired %d times want 2", len(hooks.failed))
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New[user](Options[user]{}); !errors.Is(err, ErrNoTransport) {
		t.Fatalf("err=%v want ErrNoTransport", err)
	}
	var oe *OptionError
	if _, err := New[user](Options[user]{Transport: &fakeTransport{}, MaxSize: -1}); !errors.As(err, &oe) || oe.Field != "MaxSize" {
		t.Fatalf("err=%v want MaxSize OptionError", err)
	}
	if _, err := New[user](Options[user]{Transport: &fakeTransport{}, Invalidation: 9}); !errors.As(err, &oe) {
		t.Fatalf("err=%v want OptionError", err)
	}
}
