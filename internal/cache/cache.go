// Package cache provides a small TTL cache for review-service responses, backed
// either by process memory or by redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/sevigo/bounty-warden/internal/config"
)

// Cache stores opaque byte values under string keys.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl. A non-positive ttl uses the cache default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

const keyPrefix = "bounty-warden:"

// New builds the cache configured by cfg together with a cleanup function.
func New(cfg *config.CacheConfig, logger *slog.Logger) (Cache, func(), error) {
	switch cfg.Backend {
	case "", "memory":
		c := NewMemory(cfg.TTL)
		return c, func() { _ = c.Close() }, nil
	case "redis":
		c, err := NewRedis(cfg, logger)
		if err != nil {
			return nil, func() {}, err
		}
		return c, func() {
			if err := c.Close(); err != nil {
				logger.Error("failed to close redis client", "error", err)
			}
		}, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

type memoryCache struct {
	c *gocache.Cache
}

// NewMemory returns an in-process cache whose entries expire after ttl.
func NewMemory(ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &memoryCache{c: gocache.New(ttl, 2*ttl)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (m *memoryCache) Close() error {
	m.c.Flush()
	return nil
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the redis server named in cfg and verifies it with a ping.
func NewRedis(cfg *config.CacheConfig, logger *slog.Logger) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("connected to redis cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB)

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisCache{client: client, ttl: ttl}, nil
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, true, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.ttl
	}
	if err := r.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
