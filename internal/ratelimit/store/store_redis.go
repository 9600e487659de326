package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"yeirin/internal/ratelimit/models"
)

// slidingWindowScript trims the sorted set to the window, then admits the
// request if there is room. Running it as one script keeps concurrent
// instances from both taking the last slot.
//
// KEYS[1] bucket, ARGV: now_ms, window_ms, limit, member
// Returns {allowed, count, oldest_ms}.
var slidingWindowScript = redis.NewScript(`
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
local oldestScore = now
if oldest[2] then oldestScore = tonumber(oldest[2]) end
return {allowed, count, oldestScore}
`)

// Redis keeps one sorted set per bucket, scored by request time, so every
// instance shares the same limits.
type Redis struct {
	client redis.Scripter
	now    func() time.Time
}

func NewRedis(client redis.Scripter) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (s *Redis) Allow(ctx context.Context, key string, policy models.Policy) (*models.Result, error) {
	now := s.now()
	res, err := slidingWindowScript.Run(ctx, s.client, []string{key},
		now.UnixMilli(),
		policy.Window.Milliseconds(),
		policy.Limit,
		strconv.FormatInt(now.UnixNano(), 10)+"-"+uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected reply length %d", len(res))
	}

	count := int(res[1])
	resetAt := time.UnixMilli(res[2]).Add(policy.Window)
	result := &models.Result{
		Allowed:   res[0] == 1,
		Limit:     policy.Limit,
		Remaining: max(policy.Limit-count, 0),
		ResetAt:   resetAt,
	}
	if !result.Allowed {
		result.RetryAfter = retryAfter(resetAt.Sub(now))
	}
	return result, nil
}
