package netgate

import (
	"context"
	"net/url"
	"time"

	"github.com/unkn0wn-root/netgate/codec"
	"github.com/unkn0wn-root/netgate/internal/clock"
	"github.com/unkn0wn-root/netgate/transport"
)

// Gateway is the read/mutate surface. V is the decoded response type.
// Read and Mutate never return raw errors; failures come back classified in
// Result.Failure.
type Gateway[V any] interface {
	// Read serves GET path?params from cache or the transport.
	Read(ctx context.Context, path string, params url.Values) Result[V]

	// Mutate always calls the transport. On success every cached key matching
	// path under the configured policy is invalidated. body is encoded with
	// Options.BodyCodec; nil sends no body.
	Mutate(ctx context.Context, method, path string, body any) Result[V]

	// Invalidate drops cached keys matching fragment and reports how many
	// went. An empty fragment matches every key.
	Invalidate(fragment string) int

	Len() int
	Enabled() bool
	Close(ctx context.Context) error
}

// Options tune a Gateway. Only Transport is required.
type Options[V any] struct {
	Transport transport.Transport

	Codec     codec.Codec[V]   // response bodies; nil => JSON
	BodyCodec codec.Codec[any] // mutation bodies; nil => JSON

	TTL           time.Duration // 0 => 5m
	MaxSize       int           // 0 => 1024
	SweepInterval time.Duration // 0 => lazy expiry only

	BatchDelay     time.Duration // debounce window; 0 => 50ms
	MaxBatchWait   time.Duration // 0 => unbounded (continuous traffic may defer a flush)
	MaxConcurrency int           // per flush; 0 => unlimited

	Invalidation InvalidationMode // default InvalidateSubstring
	Disabled     bool             // bypass the cache entirely

	Logger Logger      // nil => NopLogger
	Hooks  Hooks       // nil => NopHooks
	Clock  clock.Clock // nil => wall clock
}

func New[V any](opts Options[V]) (Gateway[V], error) {
	g, err := newGateway[V](opts)
	if err != nil {
		return nil, err
	}
	return g, nil
}
