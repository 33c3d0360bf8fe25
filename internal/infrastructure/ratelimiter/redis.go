package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript implements an atomic sliding window over a sorted set.
// An INCR counter generates unique members so two requests landing on the
// same millisecond do not collide.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)
	if current < limit then
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':counter', expire_seconds)
		return {1, 0}
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local reset_at = 0
	if oldest and #oldest >= 2 then
		reset_at = tonumber(oldest[2]) + window_ms
	end
	return {0, reset_at}
`)

// RedisRateLimiter shares the sliding window across server instances.
type RedisRateLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
}

func NewRedisRateLimiter(client *redis.Client, keyPrefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
	}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()
	windowStart := now.Add(-rl.window)

	result, err := slidingWindowScript.Run(ctx, rl.client,
		[]string{rl.keyPrefix + key},
		now.UnixMilli(), windowStart.UnixMilli(), rl.limit, rl.window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis script error: %w", err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("unexpected redis response length: %d", len(result))
	}

	if result[0] == 1 {
		return true, 0, nil
	}

	retryAfter := rl.window
	if result[1] > 0 {
		retryAfter = time.Until(time.UnixMilli(result[1]))
	}
	return false, retryAfter, nil
}

func (rl *RedisRateLimiter) Close() error {
	return rl.client.Close()
}
