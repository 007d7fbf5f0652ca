package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter is a fixed-window counter keyed by caller-supplied strings
// (client IP, lowercased email). It backstops the per-account lockout: the
// lockout only triggers for existing accounts, the limiter also slows down
// enumeration of absent ones.
type LoginLimiter struct {
	client *redis.Client
	window time.Duration
	max    int64
}

func NewLoginLimiter(client *redis.Client) *LoginLimiter {
	return &LoginLimiter{
		client: client,
		window: 5 * time.Minute,
		max:    10,
	}
}

// Allow reports whether another attempt under key fits in the current window.
// On Redis errors it fails open and returns the error for logging.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	rkey := "loginrl:" + key

	n, err := l.client.Incr(ctx, rkey).Result()
	if err != nil {
		return true, fmt.Errorf("login limiter incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, rkey, l.window).Err(); err != nil {
			return true, fmt.Errorf("login limiter expire: %w", err)
		}
	}
	return n <= l.max, nil
}
