// Package rabbitmq is a connection hub over amqp091-go, grounded on the
// teacher's common/mrabbitmq.RabbitMQConnection — generalized to log
// through mlog.Logger and return errors instead of calling Logger.Fatal on
// a failed dial.
package rabbitmq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
)

// Connection lazily dials a RabbitMQ broker and hands out a channel.
type Connection struct {
	URL    string
	Logger mlog.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

// Connect dials the broker and opens a channel.
func (c *Connection) Connect(context.Context) error {
	logger := c.logger()
	logger.Info("connecting to rabbitmq")

	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}

	logger.Info("connected to rabbitmq")
	c.conn = conn
	c.ch = ch

	return nil
}

// Channel returns the open channel, connecting on first use.
func (c *Connection) Channel(ctx context.Context) (*amqp.Channel, error) {
	if c.ch == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.ch, nil
}

// Close tears down the channel and connection, if open.
func (c *Connection) Close() error {
	if c.ch != nil {
		c.ch.Close()
	}

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}

func (c *Connection) logger() mlog.Logger {
	if c.Logger == nil {
		return mlog.None()
	}

	return c.Logger
}
