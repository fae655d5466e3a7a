package utils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// Cache stores serialized listing pages for a short time.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// cacheItem wraps a value and its expiry.
type cacheItem struct {
	data      []byte
	expiresAt time.Time
}

// LocalCache is a bounded in-process cache with per-entry expiry.
type LocalCache struct {
	lru *lru.Cache[string, cacheItem]
	now func() time.Time
}

// NewLocalCache creates a cache holding at most size entries.
func NewLocalCache(size int) (*LocalCache, error) {
	l, err := lru.New[string, cacheItem](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LocalCache{lru: l, now: time.Now}, nil
}

func (c *LocalCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.lru.Add(key, cacheItem{data: value, expiresAt: c.now().Add(ttl)})
}

// Get returns the value, dropping it first if expired.
func (c *LocalCache) Get(_ context.Context, key string) ([]byte, bool) {
	item, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(item.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return item.data, true
}

func (c *LocalCache) Delete(_ context.Context, key string) {
	c.lru.Remove(key)
}

// RedisCache shares cached pages between server instances.
// Redis failures degrade to a miss.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache parses url and pings the server.
func NewRedisCache(ctx context.Context, url, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisCache{client: client, prefix: prefix}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis cache get failed", "key", key, "err", err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		slog.Warn("redis cache set failed", "key", key, "err", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		slog.Warn("redis cache delete failed", "key", key, "err", err)
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
