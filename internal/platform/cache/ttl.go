package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss indicates the key is absent or expired.
var ErrMiss = errors.New("platform/cache: miss")

// TTLCache stores JSON encoded values with a fixed expiry.
type TTLCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTTLCache constructs a TTLCache.
func NewTTLCache(client *redis.Client, ttl time.Duration) *TTLCache {
	return &TTLCache{client: client, ttl: ttl}
}

// Get unmarshals the cached value into target.
func (c *TTLCache) Get(ctx context.Context, key string, target any) error {
	if c == nil || c.client == nil {
		return ErrMiss
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

// Set marshals value and stores it under key.
func (c *TTLCache) Set(ctx context.Context, key string, value any) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate removes key.
func (c *TTLCache) Invalidate(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}
