package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const RedisDoctorLockKeyPrefix = "lock:doctor:"

// unlockScript deletes the lock only if it still holds our token, so a lock
// that expired and was taken by another instance is never released by us.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

// RedisDoctorLocker serializes per doctor across every instance sharing the Redis.
// The critical section is bounded by ttl; fn receives a context that expires with the lock.
type RedisDoctorLocker struct {
	client        *redis.Client
	ttl           time.Duration
	waitTimeout   time.Duration
	retryInterval time.Duration
	log           *logrus.Logger
}

func NewRedisDoctorLocker(client *redis.Client, ttl, waitTimeout, retryInterval time.Duration, log *logrus.Logger) *RedisDoctorLocker {
	return &RedisDoctorLocker{
		client:        client,
		ttl:           ttl,
		waitTimeout:   waitTimeout,
		retryInterval: retryInterval,
		log:           log,
	}
}

func (l *RedisDoctorLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	key := RedisDoctorLockKeyPrefix + doctorID.String()
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.release(releaseCtx, key, token); err != nil {
			l.log.Warnf("Failed to release lock for doctor %s: %+v", doctorID, err)
		}
	}()

	lockCtx, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(lockCtx)
}

func (l *RedisDoctorLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.waitTimeout)
	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s: %w", key, ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisDoctorLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
