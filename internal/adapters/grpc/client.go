package grpc

import (
	"context"
	"encoding/json"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/LerianStudio/confdogma/internal/adapters/grpc/confdogmapb"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
)

// Client implements replog.Forwarder: it dials the leader named by
// leaderID (an address, e.g. "10.0.1.4:7070", as published alongside the
// etcd election key) and forwards cmd over confdogmapb.Forwarder/Forward.
// One *grpc.ClientConn is kept per leader address and reused across calls;
// connections to a replica that stops being leader are closed lazily the
// next time a different address is forwarded to.
type Client struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewClient builds an empty Client.
func NewClient() *Client {
	return &Client{conns: map[string]*grpc.ClientConn{}}
}

// Forward satisfies replog.Forwarder.
func (c *Client) Forward(ctx context.Context, leaderID string, cmd command.Command) (command.Result, error) {
	conn, err := c.connFor(leaderID)
	if err != nil {
		return command.Result{}, apperr.Wrap(apperr.KindReplicationUnavailable, err, "dial leader %s", leaderID)
	}

	cmdJSON, err := json.Marshal(cmd)
	if err != nil {
		return command.Result{}, apperr.Wrap(apperr.KindInternal, err, "encode command for forwarding")
	}

	client := confdogmapb.NewForwarderClient(conn)

	resp, err := client.Forward(ctx, &confdogmapb.ForwardRequest{CommandJSON: cmdJSON})
	if err != nil {
		return command.Result{}, apperr.Wrap(apperr.KindReplicationUnavailable, err, "forward to leader %s", leaderID)
	}

	if resp.ErrorKind != "" {
		return command.Result{}, apperr.New(apperr.Kind(resp.ErrorKind), "%s", resp.ErrorMessage)
	}

	var result command.Result
	if err := json.Unmarshal(resp.ResultJSON, &result); err != nil {
		return command.Result{}, apperr.Wrap(apperr.KindInternal, err, "decode forwarded result")
	}

	return result, nil
}

func (c *Client) connFor(target string) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn, ok := c.conns[target]; ok {
		return conn, nil
	}

	for addr, old := range c.conns {
		_ = old.Close()
		delete(c.conns, addr)
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}

	c.conns[target] = conn

	return conn, nil
}

// Close tears down every cached connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error

	for addr, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(c.conns, addr)
	}

	return firstErr
}
