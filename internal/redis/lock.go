package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("schedule lock not acquired")
)

// Locker guards the booking/cancellation critical section per (doctor, date).
// Two concurrent mutations of the same schedule day must not both match and
// split the same slot.
type Locker interface {
	WithScheduleLock(ctx context.Context, doctorID uuid.UUID, date string, fn func(ctx context.Context) error) error
}

type redisScheduleLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisScheduleLocker creates a locker that uses a per (doctor, date)
// Redis key.
func NewRedisScheduleLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisScheduleLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisScheduleLocker) WithScheduleLock(ctx context.Context, doctorID uuid.UUID, date string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:schedule:%s:%s", doctorID.String(), date)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire schedule lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisScheduleLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release schedule lock: %w", err)
	}
	return nil
}
