package executor

import (
	"context"

	"github.com/LerianStudio/confdogma/internal/domain/command"
)

// UpdateServerStatus records this replica's administrative status (e.g. a
// "draining" flag set ahead of a planned restart) so it can be inspected
// without going through the replication log's read path. The log entry
// exists so every replica's view of "who announced what status" agrees,
// even though the status itself is local.
func (uc *UseCase) UpdateServerStatus(ctx context.Context, cmd command.Command) (command.Result, error) {
	uc.statusMu.Lock()
	uc.serverStatus = cmd.ServerStatus
	uc.statusMu.Unlock()

	if !IsReplay(ctx) {
		uc.Logger.Infof("server status updated to %q by %s", cmd.ServerStatus, cmd.Author)
	}

	return command.Result{TimestampMs: cmd.TimestampMs}, nil
}

// ServerStatus returns the most recently applied status.
func (uc *UseCase) ServerStatus() string {
	uc.statusMu.Lock()
	defer uc.statusMu.Unlock()

	return uc.serverStatus
}
