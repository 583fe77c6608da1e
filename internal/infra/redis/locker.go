package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

// unlockScript deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker serializes per-user writes across service instances with SET NX PX locks.
// The lease bounds how long a crashed holder can block others.
type Locker struct {
	client *redis.Client
	lease  time.Duration
	retry  time.Duration
	wait   time.Duration
}

func NewLocker(client *redis.Client, lease time.Duration) *Locker {
	if lease <= 0 {
		lease = 5 * time.Second
	}
	return &Locker{
		client: client,
		lease:  lease,
		retry:  20 * time.Millisecond,
		wait:   lease,
	}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := "lock:" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquire %s: %w", key, ErrLockTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	return func() {
		// Release with a fresh context so a canceled request still frees the key.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = unlockScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
	}, nil
}
