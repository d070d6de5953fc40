// Package redis is a connection hub for the shared query-cache tier.
package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
)

// Connection lazily dials and caches a single shared Redis client.
type Connection struct {
	Addr     string
	Password string
	DB       int
	Logger   mlog.Logger

	client *redis.Client
}

// Connect dials Redis and verifies reachability with a PING.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Info("connecting to redis")

	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		c.Logger.Errorf("redis ping failed: %v", err)
		return err
	}

	c.client = client
	c.Logger.Info("connected to redis")

	return nil
}

// Client returns the shared *redis.Client, connecting on first use.
func (c *Connection) Client(ctx context.Context) (*redis.Client, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}
