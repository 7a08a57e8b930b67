package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/unkn0wn-root/netgate"
	"github.com/unkn0wn-root/netgate/codec"
	"github.com/unkn0wn-root/netgate/config"
	asynchook "github.com/unkn0wn-root/netgate/hooks/async"
	promhook "github.com/unkn0wn-root/netgate/hooks/prom"
	"github.com/unkn0wn-root/netgate/kvstore"
	"github.com/unkn0wn-root/netgate/kvstore/bigcache"
	"github.com/unkn0wn-root/netgate/kvstore/redis"
	"github.com/unkn0wn-root/netgate/kvstore/ristretto"
	"github.com/unkn0wn-root/netgate/sloghooks"
	"github.com/unkn0wn-root/netgate/transport"
)

// env holds everything one command invocation builds and tears down.
type env struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer

	log      netgate.Logger
	flushLog func()
	store    kvstore.Store // nil when store.backend is none
	http     *transport.HTTP
	gw       netgate.Gateway[any]
	reg      *prometheus.Registry
	hooks    *asynchook.Hooks
	metrics  bool
}

type envOptions struct {
	configPath string
	token      string // seeded into the store before the first call
	format     string // response codec: json or msgpack
	events     bool   // log gateway events through sloghooks
	metrics    bool   // print prometheus text on close
}

func newEnv(ctx context.Context, stdout, stderr io.Writer, o envOptions) (*env, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, stdout: stdout, stderr: stderr, metrics: o.metrics}

	e.log, e.flushLog, err = newLogger(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}
	e.store, err = newStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", cfg.Store.Backend, err)
	}
	if o.token != "" {
		if e.store == nil {
			return nil, fmt.Errorf("--token needs a store backend, got %q", cfg.Store.Backend)
		}
		if err := e.store.Set(ctx, cfg.Store.TokenKey, []byte(o.token), 0); err != nil {
			_ = e.store.Close(ctx)
			return nil, fmt.Errorf("seed token: %w", err)
		}
	}
	return e, nil
}

// withGateway builds the transport and the gateway on top of e.
func (e *env) withGateway(o envOptions) error {
	hopts := config.HTTPOptions(e.cfg)
	if e.store != nil {
		hopts.Credentials = transport.StoreCredentials{Store: e.store, Key: e.cfg.Store.TokenKey}
	}
	h, err := transport.NewHTTP(hopts)
	if err != nil {
		return err
	}
	e.http = h

	c, err := responseCodec(o.format, e.cfg.Transport.MaxBodyBytes)
	if err != nil {
		return err
	}

	e.reg = prometheus.NewRegistry()
	hooks := fanout{promhook.New(e.reg, "")}
	if o.events {
		hooks = append(hooks, sloghooks.New(newSlog(e.cfg.Log, e.stderr), sloghooks.Options{}))
	}
	e.hooks = asynchook.New(hooks, 1, 1024)

	gopts := config.GatewayOptions[any](e.cfg, h)
	gopts.Codec = c
	gopts.Logger = e.log
	gopts.Hooks = e.hooks
	e.gw, err = netgate.New(gopts)
	return err
}

func responseCodec(format string, maxBody int64) (codec.Codec[any], error) {
	var inner codec.Codec[any]
	switch format {
	case "", "json":
		inner = codec.JSON[any]{}
	case "msgpack":
		inner = codec.Msgpack[any]{UseJSONTag: true}
	default:
		return nil, fmt.Errorf("unknown format %q (json, msgpack)", format)
	}
	return codec.Limit[any]{Inner: inner, MaxDecode: int(maxBody)}, nil
}

func newStore(ctx context.Context, c config.StoreConfig) (kvstore.Store, error) {
	switch c.Backend {
	case "none":
		return nil, nil
	case "memory":
		return ristretto.New(ristretto.DefaultConfig())
	case "bigcache":
		return bigcache.New(ctx, bigcache.Config{MaxEntriesInWindow: 64, MaxEntrySize: 4096})
	case "redis":
		return redis.Dial(c.RedisAddr, c.RedisPassword, c.RedisDB, c.Prefix)
	}
	return nil, fmt.Errorf("unknown backend %q", c.Backend)
}

// persistent reports whether a token written now survives this process.
func (e *env) persistent() bool { return e.cfg.Store.Backend == "redis" }

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if e.gw != nil {
		if err := e.gw.Close(ctx); err != nil {
			e.log.Warn("gateway close", netgate.Fields{"err": err})
		}
	}
	if e.hooks != nil {
		e.hooks.Close()
		if n := e.hooks.Dropped(); n > 0 {
			e.log.Warn("hook events dropped", netgate.Fields{"dropped": n})
		}
	}
	if e.http != nil {
		e.http.CloseIdle()
	}
	if e.store != nil {
		if err := e.store.Close(ctx); err != nil {
			e.log.Warn("store close", netgate.Fields{"err": err})
		}
	}
	if e.metrics && e.reg != nil {
		e.writeMetrics()
	}
	e.flushLog()
}

func (e *env) writeMetrics() {
	mfs, err := e.reg.Gather()
	if err != nil {
		e.log.Warn("gather metrics", netgate.Fields{"err": err})
		return
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(e.stderr, mf); err != nil {
			return
		}
	}
}
