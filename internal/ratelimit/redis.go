package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisWindowScript prunes, counts and appends in one round trip so the
// read-modify-write is atomic across every process sharing the key.
// Scores are unix milliseconds.
var redisWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local size = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", "(" .. (now - size))
local count = redis.call("ZCARD", key)
if count >= max then
  local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
  local first = now
  if oldest[2] then first = tonumber(oldest[2]) end
  return {0, count, first}
end
redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, size)
return {1, count + 1, 0}
`)

// RedisWindow is a sliding window stored in a Redis sorted set.
type RedisWindow struct {
	client redis.Scripter
	key    string
	size   time.Duration
	max    int
	now    func() time.Time
}

// NewRedisClient opens a client for the shared window store.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), nil
}

// NewRedisWindow builds a window for one service on top of client.
func NewRedisWindow(client redis.Scripter, key string, size time.Duration, max int, now func() time.Time) (*RedisWindow, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if key == "" {
		return nil, errors.New("redis window key is required")
	}
	if now == nil {
		now = time.Now
	}
	return &RedisWindow{client: client, key: key, size: size, max: max, now: now}, nil
}

// TryAdmit implements Limiter.
func (r *RedisWindow) TryAdmit(ctx context.Context) (Decision, error) {
	if r.max <= 0 {
		return Decision{Allowed: true, Limit: r.max}, nil
	}
	sizeMillis := r.size.Milliseconds()
	if sizeMillis <= 0 {
		sizeMillis = 1000
	}
	nowMillis := r.now().UnixMilli()
	res, err := redisWindowScript.Run(ctx, r.client, []string{r.key}, nowMillis, sizeMillis, r.max, uuid.NewString()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis window %s: %w", r.key, err)
	}
	return decodeRedisDecision(res, r.max, nowMillis, sizeMillis)
}

func decodeRedisDecision(res any, max int, nowMillis, sizeMillis int64) (Decision, error) {
	values, ok := res.([]any)
	if !ok || len(values) < 3 {
		return Decision{}, errors.New("unexpected redis window response")
	}
	allowed, ok1 := values[0].(int64)
	count, ok2 := values[1].(int64)
	oldest, ok3 := values[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return Decision{}, errors.New("invalid redis window response")
	}
	if allowed == 1 {
		return Decision{Allowed: true, Limit: max, Remaining: max - int(count)}, nil
	}
	wait := time.Duration(oldest+sizeMillis-nowMillis) * time.Millisecond
	if wait < 0 {
		wait = 0
	}
	return Decision{Allowed: false, Limit: max, RetryAfter: wait}, nil
}
