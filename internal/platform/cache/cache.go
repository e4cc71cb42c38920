package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache is a JSON read-through cache. Load fills dst either from the cache or
// from fetch, and concurrent misses for the same key share one fetch.
type Cache interface {
	Load(ctx context.Context, key string, ttl time.Duration, dst any, fetch func(context.Context) (any, error)) error
	Invalidate(ctx context.Context, keys ...string) error
}

type Redis struct {
	rdb    *redis.Client
	prefix string
	sf     singleflight.Group
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

func (c *Redis) Load(ctx context.Context, key string, ttl time.Duration, dst any, fetch func(context.Context) (any, error)) error {
	fullKey := c.prefix + key
	cached, err := c.rdb.Get(ctx, fullKey).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(cached, dst); jsonErr == nil {
			return nil
		}
		slog.WarnContext(ctx, "cache entry unreadable, refetching", "key", fullKey)
	case !errors.Is(err, redis.Nil):
		// Redis being down degrades to direct reads.
		slog.WarnContext(ctx, "cache get failed", "key", fullKey, "err", err)
	}

	v, err, _ := c.sf.Do(fullKey, func() (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cache encode %s: %w", fullKey, err)
		}
		if err := c.rdb.Set(ctx, fullKey, payload, ttl).Err(); err != nil {
			slog.WarnContext(ctx, "cache set failed", "key", fullKey, "err", err)
		}
		return payload, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dst)
}

func (c *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, key := range keys {
		full = append(full, c.prefix+key)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// Noop always fetches. It is used when REDIS_ADDR is unset.
type Noop struct{}

func (Noop) Load(ctx context.Context, _ string, _ time.Duration, dst any, fetch func(context.Context) (any, error)) error {
	value, err := fetch(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dst)
}

func (Noop) Invalidate(context.Context, ...string) error {
	return nil
}
