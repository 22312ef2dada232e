package cache

import "errors"

var (
	// ErrRedisNotAvailable is returned when Redis cannot be reached.
	ErrRedisNotAvailable = errors.New("redis not available")

	// ErrLockNotAcquired is returned when a lock could not be taken in time.
	ErrLockNotAcquired = errors.New("lock not acquired")
)
