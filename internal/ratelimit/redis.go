package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a CounterStore backed by Redis INCR with a TTL
// opening the window on the first hit. It exists for multi-instance
// deployments where the in-memory store would give each replica its
// own budget. INCR is atomic server-side, so concurrent requests on
// one key observe a strictly increasing count.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore builds a Redis-backed counter store. Keys are
// namespaced under the given prefix.
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

// Incr implements CounterStore. The remaining TTL reconstructs the
// window start so callers can compute the reset instant.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()
	k := s.prefix + ":" + key

	count, err := s.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("ratelimit: incr %s: %w", key, err)
	}
	// First hit in the window carries the expiry.
	if count == 1 {
		if err := s.rdb.Expire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, fmt.Errorf("ratelimit: expire %s: %w", key, err)
		}
		return count, now, nil
	}

	ttl, err := s.rdb.PTTL(ctx, k).Result()
	if err != nil || ttl <= 0 {
		// Counter without expiry (e.g. a crash between INCR and
		// EXPIRE); reattach one rather than let it live forever.
		_ = s.rdb.Expire(ctx, k, window).Err()
		ttl = window
	}
	return count, now.Add(ttl - window), nil
}
