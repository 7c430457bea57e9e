package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/gema-edu-api/internal/ids"
)

// slidingWindow trims the sorted set, admits the hit when under the limit, and returns
// {allowed, count, oldest score in ms}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local first = now
if oldest[2] then
  first = tonumber(oldest[2])
end
return {allowed, count, first}
`)

// RedisStore shares windows across processes using one sorted set per key.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore constructs a Redis-backed store; keys are namespaced by prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

// WithClock overrides the time source.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.now = now
	return s
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, limit int, span time.Duration) (Result, error) {
	now := s.now()
	values, err := slidingWindow.Run(ctx, s.client, []string{s.prefix + key},
		now.UnixMilli(), span.Milliseconds(), limit, ids.NewAt(now)).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit redis hit: %w", err)
	}
	if len(values) != 3 {
		return Result{}, fmt.Errorf("ratelimit redis hit: unexpected reply %v", values)
	}

	oldest := time.UnixMilli(values[2])
	if values[0] == 0 {
		return denied(limit, oldest, span, now), nil
	}

	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(values[1]),
		ResetAt:   oldest.Add(span),
	}, nil
}

// Sweep is a no-op: Redis expires idle keys with the window.
func (s *RedisStore) Sweep(time.Time) int {
	return 0
}
