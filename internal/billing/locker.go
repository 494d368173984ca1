package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"telecom-billing/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned by a Locker when another run holds the key.
var ErrLockBusy = errors.New("billing: lock busy")

// Locker serializes invoicing runs per period across API instances and CLI runs.
type Locker interface {
	// Acquire returns a release func, or ErrLockBusy when the key is held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), err error)
}

// RedisLocker leases keys in Redis via utils.AcquireLock.
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), error) {
	lock, err := utils.AcquireLock(ctx, l.rdb, key, ttl)
	if err != nil {
		if errors.Is(err, utils.ErrLockHeld) {
			return nil, ErrLockBusy
		}
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	return func(ctx context.Context) { _ = lock.Release(ctx) }, nil
}

// LocalLocker is an in-process Locker for single-instance runs and tests.
// TTL is ignored; the holder must release.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]struct{}{}}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrLockBusy
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

func invoicingLockKey(periodID string) string {
	return "billing:invoicing:" + periodID
}
