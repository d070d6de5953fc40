package executor

import (
	"context"
	"time"

	"github.com/LerianStudio/confdogma/internal/adapters/mongodb/audit"
	"github.com/LerianStudio/confdogma/internal/domain/change"
	"github.com/LerianStudio/confdogma/internal/domain/command"
)

// Push is the general-purpose write: apply cmd.Changes atop cmd.BaseRevision
// and advance the repository head by one revision. The heavy lifting —
// conflict detection, redundant-change rejection, CAS retry — all lives in
// the engine; this handler's only job is translating the command into an
// engine.Commit call and keeping the registry's cached head in sync.
func (uc *UseCase) Push(ctx context.Context, cmd command.Command) (command.Result, error) {
	e, err := uc.engineFor(cmd.Project, cmd.Repository)
	if err != nil {
		return command.Result{}, err
	}

	ts := time.UnixMilli(cmd.TimestampMs)

	rev, storedTsMs, err := e.Commit(ctx, cmd.BaseRevision, cmd.Author, ts, cmd.Summary, cmd.Detail, cmd.Markup, cmd.Changes, cmd.IdempotencyKey)
	if err != nil {
		return command.Result{}, err
	}

	storedTs := time.UnixMilli(storedTsMs)

	if err := uc.Registry.AdvanceHead(ctx, cmd.Project, cmd.Repository, rev); err != nil {
		uc.Logger.Warnf("advance cached head for %s/%s: %v", cmd.Project, cmd.Repository, err)
	}

	uc.Audit.RecordCommit(ctx, audit.CommitEntry{
		Project:      cmd.Project,
		Repository:   cmd.Repository,
		Revision:     rev,
		Author:       cmd.Author,
		Summary:      cmd.Summary,
		PathsTouched: changePaths(cmd.Changes),
		CommittedAt:  storedTs,
		RecordedAt:   storedTs,
	})

	return command.Result{NewRevision: rev, TimestampMs: storedTsMs}, nil
}

// NormalizeRevision resolves a possibly-relative revision to absolute
// without mutating anything. It travels through the replication log anyway
// so its result is pinned to the log position the caller observed, not a
// head that might move between the caller's read and this evaluation.
func (uc *UseCase) NormalizeRevision(ctx context.Context, cmd command.Command) (command.Result, error) {
	e, err := uc.engineFor(cmd.Project, cmd.Repository)
	if err != nil {
		return command.Result{}, err
	}

	abs, err := e.Normalize(ctx, cmd.BaseRevision)
	if err != nil {
		return command.Result{}, err
	}

	return command.Result{NewRevision: abs, TimestampMs: cmd.TimestampMs}, nil
}

func changePaths(changes []change.Change) []string {
	paths := make([]string, len(changes))
	for i, c := range changes {
		paths[i] = c.Path
	}

	return paths
}
