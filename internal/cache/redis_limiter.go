package cache

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to a redis:// or rediss:// URL and pings it.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(normalizeRedisURL(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("🚀 Redis connected: %s", opt.Addr)
	return client, nil
}

// Some consoles show `redis-cli -u redis://...` examples. Accept them too.
func normalizeRedisURL(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "rediss://"); i >= 0 {
		s = s[i:]
	} else if i := strings.Index(s, "redis://"); i >= 0 {
		s = s[i:]
	}
	s = strings.Trim(s, `"'`)
	if i := strings.IndexAny(s, " \t\r\n"); i >= 0 {
		s = strings.Trim(s[:i], `"'`)
	}
	return s
}

// RedisLimiter is a fixed-window counter shared by every server instance.
type RedisLimiter struct {
	client      redis.Cmdable
	prefix      string
	maxAttempts int64
	window      time.Duration
}

func NewRedisLimiter(client redis.Cmdable, prefix string, maxAttempts int, window time.Duration) *RedisLimiter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if prefix == "" {
		prefix = "rate_limit"
	}
	return &RedisLimiter{
		client:      client,
		prefix:      prefix,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	k := fmt.Sprintf("%s:%s", r.prefix, key)

	n, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to update rate limit: %w", err)
	}
	// the window starts at the first attempt and does not slide
	if n == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return n <= r.maxAttempts, nil
}

// Reset clears the counter for key.
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, fmt.Sprintf("%s:%s", r.prefix, key)).Err()
}
