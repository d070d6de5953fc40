package executor

import (
	"context"

	"github.com/LerianStudio/confdogma/internal/domain/command"
)

// sessions tracks which client sessions this replica currently considers
// live. A session groups a client's watches so a replica can drop them in
// bulk (remove_session) instead of requiring the client to cancel each
// watch individually.
func (uc *UseCase) CreateSession(ctx context.Context, cmd command.Command) (command.Result, error) {
	uc.statusMu.Lock()
	if uc.sessions == nil {
		uc.sessions = map[string]bool{}
	}
	uc.sessions[cmd.SessionID] = true
	uc.statusMu.Unlock()

	if !IsReplay(ctx) {
		uc.Logger.Infof("session %s created for %s", cmd.SessionID, cmd.Author)
	}

	return command.Result{TimestampMs: cmd.TimestampMs}, nil
}

// RemoveSession drops a session. It is a one-shot notification point during
// live operation (a client disconnected) but a pure state update on replay.
func (uc *UseCase) RemoveSession(ctx context.Context, cmd command.Command) (command.Result, error) {
	uc.statusMu.Lock()
	delete(uc.sessions, cmd.SessionID)
	uc.statusMu.Unlock()

	if !IsReplay(ctx) {
		uc.Logger.Infof("session %s removed", cmd.SessionID)
	}

	return command.Result{TimestampMs: cmd.TimestampMs}, nil
}
