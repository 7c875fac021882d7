package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edustack/campus-api/internal/apperr"
)

// RedisCache adapts a go-redis client to the Cache interface.
type RedisCache struct {
	rdb *redis.Client
}

var _ Cache = (*RedisCache)(nil)

// NewRedis wraps an already-connected client. The caller retains ownership
// of the client's lifecycle.
func NewRedis(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, &apperr.CacheError{Op: "get", Err: err}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, &apperr.CacheError{Op: "decode", Err: err}
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return &apperr.CacheError{Op: "encode", Err: err}
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return &apperr.CacheError{Op: "set", Err: err}
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return &apperr.CacheError{Op: "delete", Err: err}
	}
	return nil
}
