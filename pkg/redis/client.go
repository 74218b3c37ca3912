package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/gravityx/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client wraps the Redis client for reading the reveal streams the indexer appends to.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// RevealStream returns the stream key holding the reveals of a poll.
func RevealStream(pollID uint64) string {
	return fmt.Sprintf("gravity:poll:%d:reveals", pollID)
}

// NewClient creates a new Redis client using environment variables for configuration.
// Environment variables:
//   - REDIS_HOST: Redis host (default: "localhost")
//   - REDIS_PORT: Redis port (default: "6379")
//   - REDIS_PASSWORD: Redis password (default: "")
//   - REDIS_DB: Redis database number (default: "0")
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")
	password := utils.Env("REDIS_PASSWORD", "")
	db := utils.EnvInt("REDIS_DB", 0)

	addr := fmt.Sprintf("%s:%s", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		// Connection pool
		PoolSize:     utils.EnvInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: 2,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Connected to Redis", zap.String("addr", addr), zap.Int("db", db))

	return &Client{client: rdb, logger: logger}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// XRange returns up to count entries from a stream between two IDs.
// Use "-" / "+" for the open ends and a "(" prefix for an exclusive start.
func (c *Client) XRange(ctx context.Context, stream, start, end string, count int64) ([]redis.XMessage, error) {
	return c.client.XRangeN(ctx, stream, start, end, count).Result()
}

// XRevRange returns up to count entries from a stream, newest first.
func (c *Client) XRevRange(ctx context.Context, stream, end, start string, count int64) ([]redis.XMessage, error) {
	return c.client.XRevRangeN(ctx, stream, end, start, count).Result()
}
