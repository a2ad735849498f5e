package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/habitguard/study-server/internal/redis"
)

// slidingWindow keeps one sorted-set member per admitted request, scored by
// its arrival in milliseconds. Returns {allowed, remaining, resetAtMillis}.
var slidingWindow = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)

local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if #oldest == 2 then
    reset = tonumber(oldest[2]) + window
end

if count >= limit then
    return {0, 0, reset}
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, limit - count - 1, reset}
`)

// RedisRateLimiter shares windows across server instances and falls back to
// a process-local window when Redis is unreachable.
type RedisRateLimiter struct {
	client   redis.Scripter
	fallback *MemoryRateLimiter
}

func NewRedisRateLimiter(client redis.Scripter) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		fallback: NewMemoryRateLimiter(),
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, bucket string, limit int) Quota {
	now := time.Now().UnixMilli()
	keys := []string{redisclient.RateLimitKey(bucket)}

	res, err := slidingWindow.Run(ctx, l.client, keys, now, rateWindow.Milliseconds(), limit, uuid.NewString()).Int64Slice()
	if err != nil || len(res) != 3 {
		log.Warn().Err(err).Str("bucket", bucket).Msg("redis rate limit unavailable, using local window")
		return l.fallback.Allow(ctx, bucket, limit)
	}

	return Quota{
		Allowed:   res[0] == 1,
		Remaining: int(res[1]),
		ResetAt:   time.UnixMilli(res[2]),
	}
}
