// Package redis owns the application's redis connection, shared by the
// HTTP middleware, the task queue and the gateway fan-out.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// Client wraps the go-redis client.
type Client struct {
	rdb *redis.Client
}

// Default is the client the running process connected with.
var Default *Client

// Connect parses url, opens the connection and verifies it with a ping.
func Connect(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	Default = &Client{rdb: rdb}
	return Default, nil
}

// Raw exposes the underlying go-redis client for pipelines and key
// commands the wrapper does not cover.
func (c *Client) Raw() *redis.Client { return c.rdb }

// Publish sends a message on a pub/sub channel.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.rdb.Publish(ctx, channel, message).Err()
}

// Subscribe opens a pub/sub subscription for the given channels.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}
