package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

// ErrRunLocked reports that another process is already validating the
// same comparison config.
var ErrRunLocked = errors.New("validation run already in progress")

// RunLocker serializes validation runs per comparison config across
// processes.
type RunLocker interface {
	// Acquire takes the lock for configID and returns a release func.
	// Returns ErrRunLocked when another holder has it.
	Acquire(ctx context.Context, configID int) (func(), error)
}

// RedisRunLocker backs RunLocker with bsm/redislock. The TTL covers the
// longest expected run; locks are released explicitly on completion.
type RedisRunLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

func NewRedisRunLocker(locker *redislock.Client) *RedisRunLocker {
	return &RedisRunLocker{locker: locker, ttl: 30 * time.Second}
}

func (r *RedisRunLocker) Acquire(ctx context.Context, configID int) (func(), error) {
	lock, err := r.locker.Obtain(ctx, fmt.Sprintf("validation:%d", configID), r.ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrRunLocked
	}
	if err != nil {
		return nil, err
	}
	return func() { _ = lock.Release(context.Background()) }, nil
}

// NoopRunLocker is used when redis is not configured; runs within a
// single process are still serialized by the executor itself.
type NoopRunLocker struct{}

func (NoopRunLocker) Acquire(ctx context.Context, configID int) (func(), error) {
	return func() {}, nil
}
