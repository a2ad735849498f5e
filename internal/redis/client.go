// Package redis wraps go-redis and owns the server's key layout.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "study:"

type Client struct {
	*redis.Client
}

// NewClient fails unless the server answers a ping before ctx is done.
func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	c := &Client{redis.NewClient(opts)}
	if err := c.Healthy(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) Healthy(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// SessionEventChannel carries one user's session changes to every instance.
func SessionEventChannel(userID string) string {
	return keyPrefix + "events:" + userID
}

func StatsCacheKey(userID, period string) string {
	return keyPrefix + "stats:" + userID + ":" + period
}

// RateLimitKey holds the sliding window of one limiter bucket.
func RateLimitKey(bucket string) string {
	return keyPrefix + "ratelimit:" + bucket
}
