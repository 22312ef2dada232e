package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Locker runs an action while holding a named lock.
type Locker interface {
	WithLock(ctx context.Context, name string, expiry time.Duration, action func() error) error
}

// DistributedLockService is a Redis-backed Locker built on redsync.
type DistributedLockService struct {
	rs *redsync.Redsync
}

// NewDistributedLockService creates a lock service over an existing client.
func NewDistributedLockService(client redis.UniversalClient) *DistributedLockService {
	return &DistributedLockService{rs: redsync.New(goredis.NewPool(client))}
}

// AcquireLock takes the named lock, retrying a few times before giving up.
func (s *DistributedLockService) AcquireLock(ctx context.Context, name string, expiry time.Duration) (*redsync.Mutex, error) {
	mutex := s.rs.NewMutex("lock:"+name,
		redsync.WithExpiry(expiry),
		redsync.WithTries(20),
		redsync.WithRetryDelay(50*time.Millisecond),
		redsync.WithDriftFactor(0.01),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return nil, ErrLockNotAcquired
		}
		return nil, err
	}

	return mutex, nil
}

// WithLock runs action while holding the named lock.
func (s *DistributedLockService) WithLock(ctx context.Context, name string, expiry time.Duration, action func() error) error {
	mutex, err := s.AcquireLock(ctx, name, expiry)
	if err != nil {
		return err
	}

	defer func() {
		_, _ = mutex.UnlockContext(context.WithoutCancel(ctx))
	}()

	return action()
}

// LocalLocker is an in-process Locker keyed by name, used when Redis is absent.
// Expiry is ignored: a local lock is held exactly as long as the action runs.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

func (l *LocalLocker) WithLock(ctx context.Context, name string, _ time.Duration, action func() error) error {
	lock := l.acquireRef(name)
	defer l.releaseRef(name, lock)

	select {
	case lock.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-lock.sem }()

	return action()
}

func (l *LocalLocker) acquireRef(name string) *localLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[name]
	if !ok {
		lock = &localLock{sem: make(chan struct{}, 1)}
		l.locks[name] = lock
	}
	lock.refs++
	return lock
}

func (l *LocalLocker) releaseRef(name string, lock *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, name)
	}
}

// held reports how many names currently have waiters or holders.
func (l *LocalLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
