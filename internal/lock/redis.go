package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if it still carries our token, so an
// expired holder cannot free a lock someone else has since taken.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every instance pointing at the same Redis. Keys
// expire after ttl so a crashed holder cannot block a seat forever.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	log    *zap.Logger
}

func NewRedis(client *redis.Client, ttl, retry time.Duration, log *zap.Logger) *Redis {
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		retry:  retry,
		log:    log.With(zap.String("component", "redis_lock")),
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, timeoutErr(key, ctx.Err())
			}
			r.log.Error("Failed to set lock key", zap.String("key", key), zap.Error(err))
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, timeoutErr(key, ctx.Err())
		}
	}

	return func() {
		// the caller's ctx may already be done; release on a short fresh one
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := releaseScript.Run(relCtx, r.client, []string{key}, token).Err(); err != nil {
			r.log.Warn("Failed to release lock key", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
