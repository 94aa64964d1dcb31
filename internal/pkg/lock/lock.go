package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
)

var ErrNotObtained = errors.New("lock not obtained, operation already in progress")

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker serializes work on a key across goroutines (and, for the Redis
// implementation, across processes).
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type RedisLocker struct {
	client  *redislock.Client
	backoff time.Duration
	retries int
}

func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{client: client, backoff: 100 * time.Millisecond, retries: 50}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	lk, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		slog.Warn("could not obtain lock", "key", key)
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return lk, nil
}

// LocalLocker is an in-process Locker. ttl is ignored; the lease lives until
// released.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *LocalLocker) Obtain(ctx context.Context, key string, _ time.Duration) (Lease, error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return &localLease{ch: ch}, nil
	case <-ctx.Done():
		return nil, ErrNotObtained
	}
}

type localLease struct {
	once sync.Once
	ch   chan struct{}
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() { <-l.ch })
	return nil
}
