package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-key mutual exclusion lock with a TTL.
type Locker struct {
	rdb goredis.UniversalClient
	log *logger.Logger
}

func NewLocker(rdb goredis.UniversalClient, log *logger.Logger) *Locker {
	if log == nil {
		log = logger.Nop()
	}
	return &Locker{rdb: rdb, log: log.With("service", "RedisLocker")}
}

// TryLock sets key to a fresh token if it is unset. The returned unlock
// releases the key only if the token still matches.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	if l == nil || l.rdb == nil {
		return nil, false, fmt.Errorf("redis locker not initialized")
	}
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		l.log.Debug("Lock held elsewhere", "key", key)
		return nil, false, nil
	}
	unlock := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("redis unlock %s: %w", key, err)
		}
		if n == 0 {
			l.log.Warn("Lock expired before release", "key", key)
		}
		return nil
	}
	return unlock, true, nil
}
