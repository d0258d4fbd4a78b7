package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a best-effort key/value store for derived data. Implementations
// never surface their own failures: a broken backend behaves like an empty one.
type Cache interface {
	// Get decodes the value stored at key into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	// DeletePattern removes every key matching a glob pattern such as "users:*".
	DeletePattern(ctx context.Context, pattern string)
	Ping(ctx context.Context) error
	Close() error
}

// ListPattern matches every cached user page.
const ListPattern = "users:*"

func UserKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func ListKey(limit, offset int) string {
	return fmt.Sprintf("users:limit=%d:offset=%d", limit, offset)
}
