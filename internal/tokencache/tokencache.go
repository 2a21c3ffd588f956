// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

// Package tokencache keeps issued upload tokens in Redis for fast
// verification. Without an external Redis the devserver runs an embedded
// miniredis so a single binary still behaves like the real deployment.
package tokencache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "upload_token:"

// Entry is the cached verification record for one upload token.
type Entry struct {
	Fingerprint string `json:"fingerprint"`
	ProjectKey  string `json:"projectKey"`
	IssuedAt    int64  `json:"issuedAt"`
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits   int64
	Misses int64
	Sets   int64
}

// Cache is a Redis-backed token cache, possibly served by an embedded
// miniredis instance.
type Cache struct {
	client   *redis.Client
	embedded *miniredis.Miniredis
	logger   zerolog.Logger
	stats    struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// New connects to the Redis at addr, falling back to an embedded instance
// when addr is empty or unreachable. The fallback is logged, never an
// error: a dev ingest server must come up without infrastructure.
func New(addr string, logger zerolog.Logger) (*Cache, error) {
	if addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:         addr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := client.Ping(ctx).Err()
		if err == nil {
			logger.Info().
				Str("event", "tokencache.connected").
				Str("addr", addr).
				Msg("connected to Redis token cache")
			return &Cache{client: client, logger: logger}, nil
		}

		_ = client.Close()
		logger.Warn().
			Err(err).
			Str("event", "tokencache.fallback_embedded").
			Str("addr", addr).
			Msg("Redis unreachable, starting embedded token cache")
	}

	embedded := miniredis.NewMiniRedis()
	if err := embedded.Start(); err != nil {
		return nil, fmt.Errorf("start embedded token cache: %w", err)
	}

	client := redis.NewClient(&redis.Options{Addr: embedded.Addr()})
	logger.Info().
		Str("event", "tokencache.embedded").
		Str("addr", embedded.Addr()).
		Msg("embedded token cache started")

	return &Cache{client: client, embedded: embedded, logger: logger}, nil
}

// Embedded reports whether the cache is served by the in-process instance.
func (c *Cache) Embedded() bool {
	return c.embedded != nil
}

// Put stores the verification record under the token for ttl.
func (c *Cache) Put(ctx context.Context, token string, entry Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal token entry: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+token, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache token: %w", err)
	}
	c.stats.sets.Add(1)
	return nil
}

// Check looks the token up. A miss is (zero, false, nil); errors are
// reserved for transport failures.
func (c *Cache) Check(ctx context.Context, token string) (Entry, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+token).Bytes()
	if err == redis.Nil {
		c.stats.misses.Add(1)
		return Entry{}, false, nil
	}
	if err != nil {
		c.stats.misses.Add(1)
		return Entry{}, false, fmt.Errorf("cache lookup: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		c.stats.misses.Add(1)
		return Entry{}, false, fmt.Errorf("decode token entry: %w", err)
	}

	c.stats.hits.Add(1)
	return entry, true, nil
}

// Revoke drops the token immediately. Revoking an absent token is not an
// error.
func (c *Cache) Revoke(ctx context.Context, token string) error {
	return c.client.Del(ctx, keyPrefix+token).Err()
}

// Stats returns cache effectiveness counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.stats.hits.Load(),
		Misses: c.stats.misses.Load(),
		Sets:   c.stats.sets.Load(),
	}
}

// HealthCheck pings the backing store.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client and stops the embedded instance if one is
// running.
func (c *Cache) Close() error {
	err := c.client.Close()
	if c.embedded != nil {
		c.embedded.Close()
	}
	return err
}
