package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"message-processor/pkg/logger"
)

// RedisLocker is a KeyedLocker backed by Redis SET NX, usable across
// service instances. Locks expire after TTL so a crashed holder cannot
// wedge a (customer, channel) pair forever.
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retryWait time.Duration
	log       *logger.Logger
}

// NewRedisLocker creates a RedisLocker against the given address
func NewRedisLocker(addr string, ttl time.Duration, log *logger.Logger) *RedisLocker {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &RedisLocker{
		client:    client,
		ttl:       ttl,
		retryWait: 25 * time.Millisecond,
		log:       log,
	}
}

// Ping verifies the Redis connection
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Lock polls SET NX until the lock is acquired or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	lockKey := "lock:" + key

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryWait):
		}
	}

	return func() { l.release(lockKey, token) }, nil
}

// release deletes the lock key only if we still hold it; the TTL may have
// expired and handed it to another instance. A failed release is logged and
// then left to the TTL.
func (l *RedisLocker) release(key, token string) {
	if err := l.client.Eval(context.Background(), releaseScript, []string{key}, token).Err(); err != nil {
		l.log.LogError(err, "failed to release lock", "key", key)
	}
}

// releaseScript deletes the lock key only when it still carries our token
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`
