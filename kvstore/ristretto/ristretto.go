// Package ristretto backs kvstore.Store with dgraph-io/ristretto.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/netgate/kvstore"
)

var ErrInvalidConfig = errors.New("ristretto store: NumCounters, MaxCost and BufferItems must be positive")

type Store struct {
	c *rc.Cache
}

var _ kvstore.Store = (*Store)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64 // in bytes; each value costs len(value)
	BufferItems int64
	Metrics     bool
}

// DefaultConfig suits a handful of small secrets.
func DefaultConfig() Config {
	return Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64}
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, ErrInvalidConfig
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// drop entries of an unexpected shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set waits for the write to be applied so a following Get observes it.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if !s.c.SetWithTTL(key, value, int64(len(value)), ttl) {
		return kvstore.ErrRejected
	}
	s.c.Wait()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

func (s *Store) Close(context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics is nil unless Config.Metrics was set.
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }
