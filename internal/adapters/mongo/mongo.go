// Package mongo is a thin singleton connection hub over the official
// mongo-driver client, logging through mlog.Logger and returning errors
// instead of calling log.Fatal on a failed first connect.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
)

// Connection lazily dials a MongoDB cluster and hands out the client.
type Connection struct {
	URI      string
	Database string
	Logger   mlog.Logger

	client *mongo.Client
}

// Connect dials the cluster and pings it once to fail fast on bad config.
func (c *Connection) Connect(ctx context.Context) error {
	logger := c.logger()

	logger.Infof("connecting to mongodb database %q", c.Database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.URI))
	if err != nil {
		return fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("connected to mongodb")
	c.client = client

	return nil
}

// Client returns the underlying client, connecting on first use.
func (c *Connection) Client(ctx context.Context) (*mongo.Client, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}

func (c *Connection) logger() mlog.Logger {
	if c.Logger == nil {
		return mlog.None()
	}

	return c.Logger
}
