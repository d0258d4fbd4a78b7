package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/userhub/engine/pkg/logger"
	"go.uber.org/zap"
)

const scanCount = 100

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	URL       string
	OpTimeout time.Duration
}

type redisCache struct {
	client    *redis.Client
	opTimeout time.Duration
}

// NewRedis builds a Redis-backed cache. The connection is lazy, so an
// unreachable server only shows up as misses and warnings.
func NewRedis(opts RedisOptions) (Cache, error) {
	ro, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return newRedisFromClient(redis.NewClient(ro), opts.OpTimeout), nil
}

func newRedisFromClient(client *redis.Client, opTimeout time.Duration) *redisCache {
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &redisCache{client: client, opTimeout: opTimeout}
}

func (c *redisCache) Get(ctx context.Context, key string, dest any) bool {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.L().Warn("cache value undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.L().Warn("cache value unencodable", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		logger.L().Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.L().Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (c *redisCache) DeletePattern(ctx context.Context, pattern string) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	batch := make([]string, 0, scanCount)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := c.client.Del(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}

	iter := c.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanCount {
			if err := flush(); err != nil {
				logger.L().Warn("cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
				return
			}
		}
	}
	if err := iter.Err(); err != nil {
		logger.L().Warn("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	if err := flush(); err != nil {
		logger.L().Warn("cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

func (c *redisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
