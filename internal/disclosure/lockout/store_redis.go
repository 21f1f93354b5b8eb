package lockout

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	attemptsKeyPrefix = "veriseal:lockout:attempts:"
	lockKeyPrefix     = "veriseal:lockout:lock:"
)

// KEYS[1] lock, KEYS[2] attempts; ARGV[1] window in ms.
// Returns {attempt, remaining lock ms}.
var reserveScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
  return {0, ttl}
end
local n = redis.call('INCR', KEYS[2])
if n == 1 then
  redis.call('PEXPIRE', KEYS[2], ARGV[1])
end
return {n, 0}
`)

var releaseScript = redis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n > 0 then
  return redis.call('DECR', KEYS[1])
end
return 0
`)

// RedisStore keeps lockout state in Redis so every instance enforces the
// same limits. The attempt window is the TTL set by the first attempt.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	res, err := reserveScript.Run(ctx, s.client,
		[]string{lockKeyPrefix + key, attemptsKeyPrefix + key},
		window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("reserve pin attempt: %w", err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("reserve pin attempt: unexpected reply %v", res)
	}
	return int(res[0]), time.Duration(res[1]) * time.Millisecond, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{attemptsKeyPrefix + key}).Err(); err != nil {
		return fmt.Errorf("release pin attempt: %w", err)
	}
	return nil
}

func (s *RedisStore) Lock(ctx context.Context, key string, d time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, lockKeyPrefix+key, "1", d)
	pipe.Del(ctx, attemptsKeyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("lock pin checks: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, attemptsKeyPrefix+key, lockKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear pin lockout: %w", err)
	}
	return nil
}
