package lifecycle

import (
	"context"
	"time"

	"github.com/yungbote/hackfeed-backend/internal/domain/jobs"
)

// Locker provides cross-process mutual exclusion for batch runs.
// TryLock never blocks waiting for the lock; ok=false means someone else holds it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// NoopLocker always grants the lock. Used when no Redis is configured.
type NoopLocker struct{}

func (NoopLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	return func(context.Context) error { return nil }, true, nil
}

// EventPublisher receives a RunEvent whenever a job run finishes or is skipped.
type EventPublisher interface {
	Publish(ctx context.Context, ev jobs.RunEvent) error
}

const lockPrefix = "hackfeed:lock:"

func lockKey(job string) string { return lockPrefix + job }
