package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Turistty/Simplifique-Application/internal/app/domain/reward"
	"github.com/Turistty/Simplifique-Application/pkg/logger"
)

const cacheKey = "catalog:grouped"

// Cache holds a short-lived copy of the grouped catalog view.
type Cache interface {
	Get(ctx context.Context) ([]reward.Reward, bool)
	Set(ctx context.Context, rewards []reward.Reward)
	Invalidate(ctx context.Context)
}

// RedisCache is a Redis-backed catalog cache. A miss or a Redis error is
// reported as a plain miss; callers always fall through to the store.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache creates a cache with the given TTL (default 30s).
func NewRedisCache(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("catalog-cache")
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Get(ctx context.Context) ([]reward.Reward, bool) {
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("catalog cache read failed")
		}
		return nil, false
	}
	var rewards []reward.Reward
	if err := json.Unmarshal(data, &rewards); err != nil {
		c.log.WithError(err).Warn("catalog cache decode failed")
		return nil, false
	}
	return rewards, true
}

func (c *RedisCache) Set(ctx context.Context, rewards []reward.Reward) {
	data, err := json.Marshal(rewards)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("catalog cache write failed")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, cacheKey).Err(); err != nil {
		c.log.WithError(err).Warn("catalog cache invalidate failed")
	}
}
