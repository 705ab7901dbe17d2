// Package redisrepo holds the Redis-backed repositories of the auth API.
package redisrepo

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chefserve/chef-vendor/pkg/logger"
)

// RateLimiter is a fixed-window counter keyed on a hashed identifier.
// Redis errors fail open so an outage never locks vendors out of sign-in.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow increments the window counter for key and reports whether the
// caller is still within limit.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	// Hash the key for privacy
	hasher := sha256.New()
	hasher.Write([]byte(key))
	rlKey := fmt.Sprintf("ratelimit:%x", hasher.Sum(nil))

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	count, err := r.client.Incr(ctx, rlKey).Result()
	if err != nil {
		logger.WarnContext(ctx, "rate limit check failed, allowing request", "error", err)
		return true, nil
	}

	if count == 1 {
		if err := r.client.Expire(ctx, rlKey, window).Err(); err != nil {
			logger.WarnContext(ctx, "rate limit expire failed", "error", err)
		}
	}

	return count <= int64(limit), nil
}
