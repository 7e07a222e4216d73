package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only if it still holds our token, so a holder
// whose TTL lapsed cannot free somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a Locker shared by every instance talking to one redis.
// The key is held with SET NX PX; a crashed holder's key expires after TTL.
type RedisLocker struct {
	rdb      redis.UniversalClient
	ttl      time.Duration
	interval time.Duration
	prefix   string
	logger   zerolog.Logger
}

type RedisOption func(*RedisLocker)

// WithPollInterval sets how often a waiter retries SET NX.
func WithPollInterval(d time.Duration) RedisOption {
	return func(l *RedisLocker) { l.interval = d }
}

func WithPrefix(p string) RedisOption {
	return func(l *RedisLocker) { l.prefix = p }
}

// WithLogger receives release failures. A failed release keeps the slot
// blocked until the key expires.
func WithLogger(logger zerolog.Logger) RedisOption {
	return func(l *RedisLocker) { l.logger = logger }
}

func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, opts ...RedisOption) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	l := &RedisLocker{rdb: rdb, ttl: ttl, interval: 25 * time.Millisecond, prefix: "clinicbook:lock:", logger: zerolog.Nop()}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, wait time.Duration) (Release, error) {
	k := l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return l.releaser(k, token), nil
		}
		if !time.Now().Add(l.interval).Before(deadline) {
			return nil, ErrTimeout
		}

		t := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *RedisLocker) releaser(k, token string) Release {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.rdb, []string{k}, token).Err(); err != nil {
				l.logger.Error().Err(err).Str("lock", k).Dur("expires_in", l.ttl).Msg("lock release failed")
			}
		})
	}
}
