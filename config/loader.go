package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NETGATE_"

// Load reads path (optional), applies .env and NETGATE_* overrides on top of
// the defaults and validates the result. ${VAR} references in the YAML are
// expanded before parsing.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func decode(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	bytes64 := func(key string, dst *int64) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("BASE_URL", &cfg.BaseURL)
	str("INVALIDATION", &cfg.Invalidation)

	dur("CACHE_TTL", &cfg.Cache.TTL)
	num("CACHE_MAX_SIZE", &cfg.Cache.MaxSize)
	dur("CACHE_SWEEP_INTERVAL", &cfg.Cache.SweepInterval)
	flag("CACHE_DISABLED", &cfg.Cache.Disabled)

	dur("BATCH_DELAY", &cfg.Batch.Delay)
	dur("BATCH_MAX_WAIT", &cfg.Batch.MaxWait)
	num("BATCH_MAX_CONCURRENCY", &cfg.Batch.MaxConcurrency)

	dur("CONNECT_TIMEOUT", &cfg.Transport.ConnectTimeout)
	dur("SEND_TIMEOUT", &cfg.Transport.SendTimeout)
	dur("RECEIVE_TIMEOUT", &cfg.Transport.ReceiveTimeout)
	str("USER_AGENT", &cfg.Transport.UserAgent)
	bytes64("MAX_BODY_BYTES", &cfg.Transport.MaxBodyBytes)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_BACKEND", &cfg.Log.Backend)

	str("STORE_BACKEND", &cfg.Store.Backend)
	str("REDIS_ADDR", &cfg.Store.RedisAddr)
	str("REDIS_PASSWORD", &cfg.Store.RedisPassword)
	num("REDIS_DB", &cfg.Store.RedisDB)
	str("STORE_PREFIX", &cfg.Store.Prefix)
	str("TOKEN_KEY", &cfg.Store.TokenKey)

	return errors.Join(errs...)
}
