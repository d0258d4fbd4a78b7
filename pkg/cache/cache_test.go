package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userhub/engine/pkg/logger"
)

type entry struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json", ""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "user:42", UserKey(42))
	assert.Equal(t, "users:limit=10:offset=20", ListKey(10, 20))
}

func TestMemoryRoundTrip(t *testing.T) {
	c := NewMemory(16, time.Minute)
	ctx := context.Background()

	var got entry
	assert.False(t, c.Get(ctx, "user:1", &got))

	c.Set(ctx, "user:1", entry{ID: 1, Name: "ann"}, time.Minute)
	require.True(t, c.Get(ctx, "user:1", &got))
	assert.Equal(t, entry{ID: 1, Name: "ann"}, got)

	c.Delete(ctx, "user:1")
	assert.False(t, c.Get(ctx, "user:1", &got))
}

func TestMemoryHonoursShortTTL(t *testing.T) {
	c := NewMemory(16, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", "v", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	var s string
	assert.False(t, c.Get(ctx, "k", &s))
}

func TestMemoryDeletePattern(t *testing.T) {
	c := NewMemory(16, time.Minute)
	ctx := context.Background()

	c.Set(ctx, ListKey(10, 0), []entry{}, time.Minute)
	c.Set(ctx, ListKey(10, 10), []entry{{ID: 11}}, time.Minute)
	c.Set(ctx, UserKey(1), entry{ID: 1}, time.Minute)

	c.DeletePattern(ctx, ListPattern)

	var page []entry
	assert.False(t, c.Get(ctx, ListKey(10, 0), &page))
	assert.False(t, c.Get(ctx, ListKey(10, 10), &page))
	var one entry
	assert.True(t, c.Get(ctx, UserKey(1), &one))
}

func TestMemoryUndecodableIsMiss(t *testing.T) {
	c := NewMemory(4, time.Minute)
	ctx := context.Background()
	c.Set(ctx, "k", "not a struct", time.Minute)

	var e entry
	assert.False(t, c.Get(ctx, "k", &e))
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(RedisOptions{URL: "http://nope"})
	require.Error(t, err)
}

func TestRedisFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := newRedisFromClient(client, 200*time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	var e entry
	assert.False(t, c.Get(ctx, "user:1", &e))
	assert.NotPanics(t, func() {
		c.Set(ctx, "user:1", entry{ID: 1}, time.Minute)
		c.Delete(ctx, "user:1")
		c.DeletePattern(ctx, ListPattern)
	})
	assert.Error(t, c.Ping(ctx))
}
