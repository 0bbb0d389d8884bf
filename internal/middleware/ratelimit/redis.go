// Package ratelimit provides a redis-backed token-bucket limiter for
// abuse-prone routes (auth, gateway callbacks).
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter wraps a redis client for distributed token-bucket limiting.
type Limiter struct {
	client *redis.Client
}

// NewLimiter creates a limiter. client may be nil, in which case every
// request is allowed.
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Lua keeps refill-and-take atomic across instances.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])
local bucket = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(bucket[1]) or capacity
local last = tonumber(bucket[2]) or now
local delta = math.max(0, now - last)
local refill = delta * refill_rate
local new_tokens = math.min(capacity, tokens + refill)
if new_tokens < requested then
  redis.call('HMSET', key, 'tokens', new_tokens, 'last', now)
  redis.call('EXPIRE', key, 60)
  return {0, new_tokens}
else
  new_tokens = new_tokens - requested
  redis.call('HMSET', key, 'tokens', new_tokens, 'last', now)
  redis.call('EXPIRE', key, 60)
  return {1, new_tokens}
end
`)

// Take attempts to take n tokens from the bucket identified by key.
func (l *Limiter) Take(ctx context.Context, key string, capacity int, refillRate float64, n int) (bool, error) {
	if l.client == nil {
		return true, nil
	}
	now := time.Now().Unix()
	res, err := tokenBucketScript.Run(ctx, l.client, []string{key}, capacity, refillRate, now, n).Result()
	if err != nil {
		return false, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 1 {
		return false, fmt.Errorf("unexpected redis script result: %v", res)
	}
	allowed, _ := vals[0].(int64)
	return allowed == 1, nil
}
