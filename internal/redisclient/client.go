package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient connects to Redis; used as a fast-path duplicate filter for
// webhook deliveries. The transaction store's conditional updates remain
// the correctness guarantee, this only sheds redundant work.
func NewClient(addr string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// MarkProcessed records a webhook reference; returns false if it was
// already recorded within the TTL.
func (c *Client) MarkProcessed(ctx context.Context, reference string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, "webhook:"+reference, "1", ttl).Result()
}

// Forget removes a processed mark so a failed delivery can be retried.
func (c *Client) Forget(ctx context.Context, reference string) error {
	return c.rdb.Del(ctx, "webhook:"+reference).Err()
}
