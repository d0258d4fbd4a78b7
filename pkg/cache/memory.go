package cache

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/userhub/engine/pkg/logger"
	"go.uber.org/zap"
)

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time
}

type memoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
}

// NewMemory returns an in-process cache holding at most size entries.
// maxTTL caps every entry's lifetime; shorter per-key TTLs are honoured on read.
func NewMemory(size int, maxTTL time.Duration) Cache {
	return &memoryCache{lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) bool {
	e, ok := c.lru.Get(key)
	if !ok {
		return false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		return false
	}
	if err := json.Unmarshal(e.raw, dest); err != nil {
		logger.L().Warn("cache value undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *memoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.L().Warn("cache value unencodable", zap.String("key", key), zap.Error(err))
		return
	}
	e := memoryEntry{raw: raw}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.lru.Add(key, e)
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) {
	for _, k := range keys {
		c.lru.Remove(k)
	}
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) {
	for _, k := range c.lru.Keys() {
		if ok, err := path.Match(pattern, k); err != nil {
			logger.L().Warn("bad cache pattern", zap.String("pattern", pattern), zap.Error(err))
			return
		} else if ok {
			c.lru.Remove(k)
		}
	}
}

func (c *memoryCache) Ping(context.Context) error { return nil }

func (c *memoryCache) Close() error {
	c.lru.Purge()
	return nil
}
