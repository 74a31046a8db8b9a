package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// hitScript 在一次往返内完成窗口判断与计数，保证同一 key 的并发请求不会丢失更新。
// KEYS[1]=计数 key，ARGV: max, window(ms), now(ms)。返回 1 放行，0 拒绝。
var hitScript = redis.NewScript(`
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
local start = tonumber(redis.call('HGET', KEYS[1], 'start') or '0')
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

if count == 0 or now > start + window then
  redis.call('HSET', KEYS[1], 'count', 1, 'start', now)
  redis.call('PEXPIRE', KEYS[1], window * 2)
  return 1
end

if count >= max then
  return 0
end

redis.call('HINCRBY', KEYS[1], 'count', 1)
return 1
`)

// RedisStore 把计数保存在 Redis 哈希中，适合多实例部署。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a RedisStore instance.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, max int, window time.Duration, now time.Time) (bool, error) {
	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + key},
		max, window.Milliseconds(), now.UnixMilli()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
