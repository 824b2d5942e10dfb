// Package ratelimit bounds how many issues a citizen may report per window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultWindow is the fixed window a counter lives for after its first hit.
const DefaultWindow = 24 * time.Hour

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// Limiter counts hits per key in fixed windows. Refund takes back one allowed hit
// whose request did not go through.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Refund(ctx context.Context, key string) error
}

// Key namespaces a subject under prefix.
func Key(prefix, subject string) string {
	return prefix + ":" + subject
}

// RedisLimiter is a fixed-window counter: INCR the key, set its expiry on the first
// hit, and refuse once the count passes limit.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter builds a limiter. A non-positive window uses DefaultWindow.
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, subject string) (Decision, error) {
	key := Key(l.prefix, subject)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return Decision{}, err
		}
	}
	if count <= l.limit {
		return Decision{Allowed: true, Count: count}, nil
	}

	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil {
		return Decision{}, err
	}
	if ttl < 0 {
		// The key lost its expiry (first EXPIRE failed or was interrupted); restore it.
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return Decision{}, err
		}
		ttl = l.window
	}
	return Decision{Allowed: false, Count: count, RetryAfter: ttl}, nil
}

// Refund implements Limiter. A counter that drops to zero or below is removed so
// the next hit starts a fresh window with an expiry.
func (l *RedisLimiter) Refund(ctx context.Context, subject string) error {
	key := Key(l.prefix, subject)
	count, err := l.client.Decr(ctx, key).Result()
	if err != nil {
		return err
	}
	if count <= 0 {
		return l.client.Del(ctx, key).Err()
	}
	return nil
}

// MemoryLimiter is the in-process equivalent of RedisLimiter for single-node and test use.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int64
	window  time.Duration
	now     func() time.Time
	windows map[string]*memoryWindow
}

type memoryWindow struct {
	count   int64
	expires time.Time
}

// NewMemoryLimiter builds a limiter. A non-positive window uses DefaultWindow.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryLimiter{
		limit:   int64(limit),
		window:  window,
		now:     time.Now,
		windows: make(map[string]*memoryWindow),
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, subject string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[subject]
	if !ok || !now.Before(w.expires) {
		w = &memoryWindow{expires: now.Add(l.window)}
		l.windows[subject] = w
	}
	w.count++
	if w.count <= l.limit {
		return Decision{Allowed: true, Count: w.count}, nil
	}
	return Decision{Allowed: false, Count: w.count, RetryAfter: w.expires.Sub(now)}, nil
}

// Refund implements Limiter.
func (l *MemoryLimiter) Refund(_ context.Context, subject string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[subject]
	if !ok || !l.now().Before(w.expires) {
		return nil
	}
	if w.count > 0 {
		w.count--
	}
	return nil
}
