// Package config loads gateway settings from YAML, .env and NETGATE_*
// environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/unkn0wn-root/netgate"
)

type Config struct {
	BaseURL      string          `yaml:"base_url"`
	Invalidation string          `yaml:"invalidation"` // substring | prefix
	Cache        CacheConfig     `yaml:"cache"`
	Batch        BatchConfig     `yaml:"batch"`
	Transport    TransportConfig `yaml:"transport"`
	Log          LogConfig       `yaml:"log"`
	Store        StoreConfig     `yaml:"store"`
}

type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	MaxSize       int           `yaml:"max_size"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	Disabled      bool          `yaml:"disabled"`
}

type BatchConfig struct {
	Delay          time.Duration `yaml:"delay"`
	MaxWait        time.Duration `yaml:"max_wait"`
	MaxConcurrency int           `yaml:"max_concurrency"`
}

type TransportConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	ReceiveTimeout time.Duration `yaml:"receive_timeout"`
	UserAgent      string        `yaml:"user_agent"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

type LogConfig struct {
	Level   string `yaml:"level"`   // debug | info | warn | error
	Format  string `yaml:"format"`  // json | text
	Backend string `yaml:"backend"` // logrus | zap | slog
}

type StoreConfig struct {
	Backend       string `yaml:"backend"` // none | memory | bigcache | redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Prefix        string `yaml:"prefix"`
	TokenKey      string `yaml:"token_key"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Invalidation: "substring",
		Cache: CacheConfig{
			TTL:     5 * time.Minute,
			MaxSize: 1024,
		},
		Batch: BatchConfig{
			Delay: 50 * time.Millisecond,
		},
		Transport: TransportConfig{
			ConnectTimeout: 5 * time.Second,
			SendTimeout:    10 * time.Second,
			ReceiveTimeout: 30 * time.Second,
			UserAgent:      "netgate",
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "text",
			Backend: "logrus",
		},
		Store: StoreConfig{
			Backend:  "memory",
			Prefix:   "netgate:",
			TokenKey: "auth/token",
		},
	}
}

var (
	logLevels   = set("debug", "info", "warn", "error")
	logFormats  = set("json", "text")
	logBackends = set("logrus", "zap", "slog")
	stores      = set("none", "memory", "bigcache", "redis")
)

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q must be an absolute http(s) URL", c.BaseURL))
	}
	if _, err := netgate.ParseInvalidationMode(c.Invalidation); err != nil {
		errs = append(errs, fmt.Errorf("invalidation: %q is not substring or prefix", c.Invalidation))
	}

	for name, d := range map[string]time.Duration{
		"cache.ttl":                 c.Cache.TTL,
		"cache.sweep_interval":      c.Cache.SweepInterval,
		"batch.delay":               c.Batch.Delay,
		"batch.max_wait":            c.Batch.MaxWait,
		"transport.connect_timeout": c.Transport.ConnectTimeout,
		"transport.send_timeout":    c.Transport.SendTimeout,
		"transport.receive_timeout": c.Transport.ReceiveTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if c.Cache.MaxSize < 0 {
		errs = append(errs, errors.New("cache.max_size must not be negative"))
	}
	if c.Batch.MaxConcurrency < 0 {
		errs = append(errs, errors.New("batch.max_concurrency must not be negative"))
	}
	if c.Transport.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("transport.max_body_bytes must not be negative"))
	}

	if !logLevels[c.Log.Level] {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if !logFormats[c.Log.Format] {
		errs = append(errs, fmt.Errorf("log.format %q is not json or text", c.Log.Format))
	}
	if !logBackends[c.Log.Backend] {
		errs = append(errs, fmt.Errorf("log.backend %q is not logrus, zap or slog", c.Log.Backend))
	}
	if !stores[c.Store.Backend] {
		errs = append(errs, fmt.Errorf("store.backend %q is unknown", c.Store.Backend))
	}
	if c.Store.Backend == "redis" && c.Store.RedisAddr == "" {
		errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
	}
	return errors.Join(errs...)
}

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}
