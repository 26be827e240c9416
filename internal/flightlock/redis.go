package flightlock

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries our token,
// so a holder whose lease already lapsed cannot free someone else's lock.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// Redis is a Locker shared by every kiosk backend instance talking to
// the same Redis.  A lock is a key set with NX and a lease (TTL); the
// lease bounds how long a crashed holder can keep a flight blocked.
// Callers must finish their critical section well within the lease.
type Redis struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
	log    *slog.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewRedis returns a Redis-backed locker.  Keys are stored as
// "<prefix>:<key>"; a trailing colon on prefix is dropped.
func NewRedis(rdb redis.Cmdable, prefix string, ttl time.Duration, log *slog.Logger) *Redis {
	prefix = strings.TrimRight(prefix, ":")
	if prefix == "" {
		prefix = "flightlock"
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Redis{
		rdb:        rdb,
		prefix:     prefix,
		ttl:        ttl,
		log:        log,
		minBackoff: 5 * time.Millisecond,
		maxBackoff: 100 * time.Millisecond,
	}
}

// Lock implements Locker.  It polls with exponential backoff until the
// key is acquired, ctx is done, or Redis returns an error.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.keyFor(key)
	token := uuid.NewString()
	backoff := r.minBackoff
	for {
		ok, err := r.rdb.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		if ok {
			break
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}

	var once sync.Once
	return func() { once.Do(func() { r.release(key, redisKey, token) }) }, nil
}

func (r *Redis) release(key, redisKey, token string) {
	// The caller's ctx may already be cancelled; release on a fresh one.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := releaseScript.Run(ctx, r.rdb, []string{redisKey}, token).Int64()
	switch {
	case err != nil && !errors.Is(err, redis.Nil):
		r.log.Warn("flightlock: release failed", "key", key, "err", err)
	case err == nil && n == 0:
		r.log.Warn("flightlock: lease lapsed before release", "key", key, "ttl", r.ttl)
	}
}

func (r *Redis) keyFor(key string) string { return r.prefix + ":" + key }
