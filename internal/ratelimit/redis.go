package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisLimiter - sliding window на сортированных множествах Redis.
// Lua-скрипт выполняется атомарно, так что проверка и списание не
// разъезжаются между конкурентными запросами и инстансами API.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local cost = tonumber(ARGV[4])
	local expire_seconds = tonumber(ARGV[5])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local current = redis.call('ZCARD', key)

	if current + cost > limit then
		return 0
	end

	for i = 1, cost do
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, now .. ':' .. counter)
	end
	redis.call('EXPIRE', key, expire_seconds)
	redis.call('EXPIRE', key .. ':counter', expire_seconds)
	return 1
`)

func (l *RedisLimiter) Allow(ctx context.Context, key string, cost int) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-l.window)
	expireSeconds := int64(math.Ceil(l.window.Seconds()))

	res, err := slidingWindow.Run(ctx, l.client, []string{redisKeyPrefix + key},
		now.UnixMilli(), windowStart.UnixMilli(), l.limit, cost, expireSeconds).Int64()
	if err != nil {
		return false, fmt.Errorf("redis script error: %w", err)
	}
	return res == 1, nil
}

// Reset сбрасывает счетчик ключа
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, redisKeyPrefix+key, redisKeyPrefix+key+":counter").Err()
}
