// Package promhook counts gateway events with Prometheus metrics.
package promhook

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/unkn0wn-root/netgate"
	"github.com/unkn0wn-root/netgate/failure"
	"github.com/unkn0wn-root/netgate/ttlcache"
)

type Hooks struct {
	lookups     *prometheus.CounterVec
	evictions   *prometheus.CounterVec
	invalidated prometheus.Counter
	batchSize   prometheus.Histogram
	failures    *prometheus.CounterVec
	stalePuts   prometheus.Counter
}

var _ netgate.Hooks = (*Hooks)(nil)

// New registers the gateway metrics on reg under namespace (e.g. "myapp").
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func New(reg prometheus.Registerer, namespace string) *Hooks {
	f := promauto.With(reg)
	return &Hooks{
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "netgate",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result (hit or miss).",
		}, []string{"result"}),
		evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "netgate",
			Name:      "cache_evictions_total",
			Help:      "Entries dropped by capacity, expiry or sweep.",
		}, []string{"reason"}),
		invalidated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "netgate",
			Name:      "cache_invalidated_total",
			Help:      "Entries removed by mutations and manual purges.",
		}),
		batchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "netgate",
			Name:      "batch_size",
			Help:      "Calls dispatched per scheduler flush.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "netgate",
			Name:      "call_failures_total",
			Help:      "Classified call failures.",
		}, []string{"op", "kind", "retryable"}),
		stalePuts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "netgate",
			Name:      "stale_puts_skipped_total",
			Help:      "Read results not cached because an invalidation overtook them.",
		}),
	}
}

func (h *Hooks) CacheHit(string)  { h.lookups.WithLabelValues("hit").Inc() }
func (h *Hooks) CacheMiss(string) { h.lookups.WithLabelValues("miss").Inc() }

func (h *Hooks) CacheEvicted(_ string, reason ttlcache.EvictReason) {
	h.evictions.WithLabelValues(reason.String()).Inc()
}

func (h *Hooks) Invalidated(_ string, n int) { h.invalidated.Add(float64(n)) }

func (h *Hooks) BatchFlushed(size int) { h.batchSize.Observe(float64(size)) }

func (h *Hooks) CallFailed(op string, f failure.Failure) {
	retryable := "false"
	if f.Retryable {
		retryable = "true"
	}
	h.failures.WithLabelValues(op, f.Kind.String(), retryable).Inc()
}

func (h *Hooks) StalePutSkipped(string) { h.stalePuts.Inc() }
