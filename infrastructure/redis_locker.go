package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"economy/application"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
)

// RedisLocker implements application.Locker with redislock leases
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(client)}
}

// Obtain makes a single attempt; a held lock reports application.ErrLockHeld
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, application.ErrLockHeld
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// lease expired before release; nothing left to free
			return nil
		}
		return err
	}, nil
}
