package executor

import (
	"context"
	"time"

	"github.com/LerianStudio/confdogma/internal/adapters/mongodb/audit"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/change"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/domain/query"
)

// Transform evaluates the registered function named by cmd.TransformID
// against the current content at cmd.TransformPath and commits the result.
// Running the function here — at apply time, identically on every replica —
// rather than at enqueue time is what lets register/deregister-style
// read-modify-write workflows serialize safely through the log: whichever
// content is current when this entry's turn comes is what the function
// sees, on every replica alike.
func (uc *UseCase) Transform(ctx context.Context, cmd command.Command) (command.Result, error) {
	fn, ok := uc.Transforms[cmd.TransformID]
	if !ok {
		return command.Result{}, apperr.New(apperr.KindInvalidRequest, "unregistered transform %q", cmd.TransformID)
	}

	e, err := uc.engineFor(cmd.Project, cmd.Repository)
	if err != nil {
		return command.Result{}, err
	}

	abs, err := e.Normalize(ctx, cmd.BaseRevision)
	if err != nil {
		return command.Result{}, err
	}

	existing, err := e.Get(ctx, abs, query.Identity(cmd.TransformPath))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return command.Result{NotFound: true, TimestampMs: cmd.TimestampMs}, nil
		}

		return command.Result{}, err
	}

	next, err := fn(existing.Content)
	if err != nil {
		return command.Result{}, apperr.Wrap(apperr.KindInvalidRequest, err, "transform %q on %s", cmd.TransformID, cmd.TransformPath)
	}

	typ := change.TypeUpsertText
	if change.IsJSONPath(cmd.TransformPath) {
		typ = change.TypeUpsertJSON
	}

	ts := time.UnixMilli(cmd.TimestampMs)

	rev, storedTsMs, err := e.Commit(ctx, cmd.BaseRevision, cmd.Author, ts, cmd.Summary, cmd.Detail, cmd.Markup,
		[]change.Change{{Type: typ, Path: cmd.TransformPath, Content: next}}, cmd.IdempotencyKey)
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
		PathsTouched: []string{cmd.TransformPath},
		CommittedAt:  storedTs,
		RecordedAt:   storedTs,
	})

	return command.Result{NewRevision: rev, TimestampMs: storedTsMs}, nil
}
