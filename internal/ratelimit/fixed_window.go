package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithWindowExpiry counts a hit and stamps the window's TTL on the
// first one, atomically, so a half-written key can never live forever.
var incrWithWindowExpiry = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindowLimiter counts hits per key in fixed time windows shared
// across replicas through Redis. Scopes (signup, login, submit) get
// independent counters on the same connection.
type FixedWindowLimiter struct {
	client *redis.Client
	scope  string
	limit  int
	window time.Duration
}

// NewFixedWindowLimiter builds a limiter on an existing Redis client.
func NewFixedWindowLimiter(client *redis.Client, scope string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, errors.New("rate limiter requires a scope name")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	return &FixedWindowLimiter{
		client: client,
		scope:  scope,
		limit:  limit,
		window: window,
	}, nil
}

// Allow reports whether the key has quota left in the current window.
// Redis failures fail closed: rate-limited endpoints guard account
// creation and login, where open-on-error would invite abuse.
func (l *FixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	windowMs := l.window.Milliseconds()
	slot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("fleetonboard:ratelimit:%s:%s:%d", l.scope, key, slot)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	count, err := incrWithWindowExpiry.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false
	}
	return count <= int64(l.limit)
}
