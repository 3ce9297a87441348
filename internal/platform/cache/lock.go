package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cloudcoder/internal/common"
)

// releaseScript deletes the lock key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Locker hands out short-lived exclusive locks stored in Redis.
type Locker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
	log   *zap.Logger
}

func NewLocker(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Locker {
	return &Locker{rdb: rdb, ttl: ttl, retry: 25 * time.Millisecond, log: log}
}

// WithLock runs fn while holding key. It waits for a held lock until ctx is
// done or the lock's TTL has passed, then fails with common.ErrLockFailed.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquiring lock %s: %w: %w", key, common.ErrServiceUnavailable, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("lock %s is held: %w", key, common.ErrLockFailed)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retry):
		}
	}

	defer func() {
		deleted, err := releaseScript.Run(context.WithoutCancel(ctx), l.rdb, []string{key}, token).Int64()
		if err != nil {
			l.log.Error("failed to release lock", zap.String("key", key), zap.Error(err))
		} else if deleted != 1 {
			l.log.Warn("lock expired before release", zap.String("key", key))
		}
	}()
	return fn(ctx)
}
