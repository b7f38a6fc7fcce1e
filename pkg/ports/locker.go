package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a held lock.
type UnlockFunc func(ctx context.Context) error

// FlowLocker serializes editing of one flow across processes. Lock blocks
// until the lock is acquired or ctx is done.
type FlowLocker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
