// Package throttle limits login attempts per email using Redis counters
// that expire after a fixed window. A successful login clears the count,
// so only failures accumulate.
//
// A nil *Limiter is valid and never blocks, so login works unchanged
// when no Redis is configured.
package throttle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts login attempts in Redis.
type Limiter struct {
	rdb         *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// New returns a limiter allowing maxAttempts failures per window.
func New(rdb *redis.Client, maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, maxAttempts: int64(maxAttempts), window: window}
}

// Key is the Redis key holding the failure count for email.
func Key(email string) string {
	return "login:failures:" + strings.ToLower(strings.TrimSpace(email))
}

// Allow counts an attempt for email and reports whether it is within
// the limit. The increment and the check are one round trip, so
// concurrent attempts can never all see the same count. The window
// starts at the first attempt.
func (l *Limiter) Allow(ctx context.Context, email string) (bool, error) {
	if l == nil {
		return true, nil
	}

	key := Key(email)
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("throttle: count %s: %w", key, err)
	}
	return incr.Val() <= l.maxAttempts, nil
}

// Reset clears the count after a successful login.
func (l *Limiter) Reset(ctx context.Context, email string) error {
	if l == nil {
		return nil
	}
	if err := l.rdb.Del(ctx, Key(email)).Err(); err != nil {
		return fmt.Errorf("throttle: reset %s: %w", Key(email), err)
	}
	return nil
}

// Ping checks the Redis connection.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}
