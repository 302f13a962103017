package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for the verification queue.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks if Redis is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// AcquireTargetLock attempts to acquire the per-target session lock. Only one
// verification session may run against a target at a time.
func (c *Client) AcquireTargetLock(ctx context.Context, target string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("verifying:%s", target)
	ok, err := c.rdb.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// RefreshTargetLock extends the TTL of a session lock.
func (c *Client) RefreshTargetLock(ctx context.Context, target string, ttl time.Duration) error {
	key := fmt.Sprintf("verifying:%s", target)
	return c.rdb.Expire(ctx, key, ttl).Err()
}

// ReleaseTargetLock releases the per-target session lock.
func (c *Client) ReleaseTargetLock(ctx context.Context, target string) error {
	key := fmt.Sprintf("verifying:%s", target)
	return c.rdb.Del(ctx, key).Err()
}
