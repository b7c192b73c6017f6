// internal/cache/redis.go
package cache

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	onlineKey   = "chessmatch_online"
	visitorsKey = "chessmatch_visitors"
)

// Client wraps the Redis connection used for live presence counters: a
// process-shared online gauge and the set of unique visitor fingerprints.
type Client struct {
	rdb *redis.Client
}

// Connect initializes the Redis client from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func Connect() (*Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// IncrOnline bumps the online gauge by one.
func (c *Client) IncrOnline(ctx context.Context) error {
	return c.rdb.Incr(ctx, onlineKey).Err()
}

// DecrOnline drops the online gauge by one.
func (c *Client) DecrOnline(ctx context.Context) error {
	return c.rdb.Decr(ctx, onlineKey).Err()
}

// AddVisitor records a visitor fingerprint in the unique-visitor set.
func (c *Client) AddVisitor(ctx context.Context, fingerprint string) error {
	return c.rdb.SAdd(ctx, visitorsKey, fingerprint).Err()
}

// OnlineCount reads the online gauge. A missing key counts as zero.
func (c *Client) OnlineCount(ctx context.Context) (int64, error) {
	n, err := c.rdb.Get(ctx, onlineKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// UniqueVisitors reads the cardinality of the fingerprint set.
func (c *Client) UniqueVisitors(ctx context.Context) (int64, error) {
	return c.rdb.SCard(ctx, visitorsKey).Result()
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
