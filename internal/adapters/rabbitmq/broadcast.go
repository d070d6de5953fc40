package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
	"github.com/LerianStudio/confdogma/internal/services/engine"
)

// WatchExchange is the fanout exchange every replica's watch broadcaster
// publishes to and consumes from. Fanout, not a work queue: every replica
// must see every advance, not just one of them.
const WatchExchange = "confdogma.watch"

type wakeupMessage struct {
	Project      string   `json:"project"`
	Repository   string   `json:"repository"`
	Revision     int64    `json:"revision"`
	TouchedPaths []string `json:"touched_paths"`
}

// Remote is the watch.Broadcaster implementation: Broadcast publishes a
// fire-and-forget wake-up onto WatchExchange, and Listen runs a consumer
// loop feeding received wake-ups into a local watch.Service via sink.
type Remote struct {
	conn   *Connection
	logger mlog.Logger
}

// NewRemote builds a Remote over conn, declaring WatchExchange if it
// doesn't already exist.
func NewRemote(ctx context.Context, conn *Connection, logger mlog.Logger) (*Remote, error) {
	if logger == nil {
		logger = mlog.None()
	}

	ch, err := conn.Channel(ctx)
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(WatchExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, err
	}

	return &Remote{conn: conn, logger: logger}, nil
}

// Broadcast publishes adv to every other replica. Failure is logged and
// swallowed: watch wake-up is an optimization over the fallback path of a
// waiter eventually re-checking via its own timeout, never a correctness
// requirement.
func (r *Remote) Broadcast(ctx context.Context, project, repo string, adv engine.HeadAdvanced) {
	ch, err := r.conn.Channel(ctx)
	if err != nil {
		r.logger.Warnf("watch broadcast: %v", err)
		return
	}

	body, err := json.Marshal(wakeupMessage{
		Project: project, Repository: repo,
		Revision: adv.Revision, TouchedPaths: adv.TouchedPaths,
	})
	if err != nil {
		r.logger.Warnf("watch broadcast: encode: %v", err)
		return
	}

	err = ch.PublishWithContext(ctx, WatchExchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		r.logger.Warnf("watch broadcast: publish: %v", err)
	}
}

// Sink is the subset of watch.Service that Listen feeds remote wake-ups
// into, kept narrow so this package doesn't need to import watch for
// anything but this one method shape.
type Sink interface {
	ApplyRemote(project, repo string, adv engine.HeadAdvanced)
}

// Listen runs a consumer loop over a private, auto-deleted queue bound to
// WatchExchange, feeding every received wake-up into sink until ctx is
// canceled. Meant to run in its own goroutine.
func (r *Remote) Listen(ctx context.Context, sink Sink) error {
	ch, err := r.conn.Channel(ctx)
	if err != nil {
		return err
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return err
	}

	if err := ch.QueueBind(q.Name, "", WatchExchange, false, nil); err != nil {
		return err
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}

			var msg wakeupMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				r.logger.Warnf("watch broadcast: decode: %v", err)
				continue
			}

			sink.ApplyRemote(msg.Project, msg.Repository, engine.HeadAdvanced{
				Revision: msg.Revision, TouchedPaths: msg.TouchedPaths,
			})
		}
	}
}
