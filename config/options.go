package config

import (
	"github.com/unkn0wn-root/netgate"
	"github.com/unkn0wn-root/netgate/transport"
)

// GatewayOptions maps the cache, batch and invalidation settings onto
// netgate.Options. Logger, Hooks and codecs are left for the caller.
func GatewayOptions[V any](c *Config, tr transport.Transport) netgate.Options[V] {
	mode, _ := netgate.ParseInvalidationMode(c.Invalidation) // checked by Validate
	return netgate.Options[V]{
		Transport:      tr,
		TTL:            c.Cache.TTL,
		MaxSize:        c.Cache.MaxSize,
		SweepInterval:  c.Cache.SweepInterval,
		Disabled:       c.Cache.Disabled,
		BatchDelay:     c.Batch.Delay,
		MaxBatchWait:   c.Batch.MaxWait,
		MaxConcurrency: c.Batch.MaxConcurrency,
		Invalidation:   mode,
	}
}

// HTTPOptions maps the transport settings. Credentials are left for the
// caller.
func HTTPOptions(c *Config) transport.HTTPOptions {
	return transport.HTTPOptions{
		BaseURL:        c.BaseURL,
		ConnectTimeout: c.Transport.ConnectTimeout,
		SendTimeout:    c.Transport.SendTimeout,
		ReceiveTimeout: c.Transport.ReceiveTimeout,
		UserAgent:      c.Transport.UserAgent,
		MaxBodyBytes:   c.Transport.MaxBodyBytes,
	}
}
