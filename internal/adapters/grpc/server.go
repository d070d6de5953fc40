// Package grpc wires the internal leader-forwarding RPC (confdogmapb) to
// the command executor on the server side and to replog.Forwarder on the
// client side, so a follower's write reaches the leader's replication log
// append instead of being rejected outright.
package grpc

import (
	"context"
	"encoding/json"

	"github.com/LerianStudio/confdogma/internal/adapters/grpc/confdogmapb"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
)

// Applier is the subset of executor.UseCase the server needs: apply one
// command and return its result.
type Applier interface {
	Apply(ctx context.Context, cmd command.Command) (command.Result, error)
}

// Server implements confdogmapb.ForwarderServer over an Applier. It is
// meant to run only on the elected leader; replog itself is responsible
// for not forwarding when this replica already is the leader.
type Server struct {
	confdogmapb.UnimplementedForwarderServer

	applier Applier
}

// NewServer builds a Server over applier.
func NewServer(applier Applier) *Server {
	return &Server{applier: applier}
}

// Forward decodes req.CommandJSON, applies it, and encodes the result.
func (s *Server) Forward(ctx context.Context, req *confdogmapb.ForwardRequest) (*confdogmapb.ForwardResponse, error) {
	var cmd command.Command
	if err := json.Unmarshal(req.CommandJSON, &cmd); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidRequest, err, "decode forwarded command")
	}

	result, err := s.applier.Apply(ctx, cmd)
	if err != nil {
		return &confdogmapb.ForwardResponse{
			ErrorKind:    string(apperr.KindOf(err)),
			ErrorMessage: err.Error(),
		}, nil
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "encode forwarded result")
	}

	return &confdogmapb.ForwardResponse{ResultJSON: resultJSON}, nil
}
