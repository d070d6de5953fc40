package executor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/LerianStudio/confdogma/internal/adapters/mongodb/audit"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/domain/project"
)

// RemoveProject soft-removes a project; it stays listed under "removed"
// until it passes the purge grace window.
func (uc *UseCase) RemoveProject(ctx context.Context, cmd command.Command) (command.Result, error) {
	ts := time.UnixMilli(cmd.TimestampMs)

	if err := uc.Registry.SetProjectState(ctx, cmd.Project, project.StateRemoved, &ts); err != nil {
		return command.Result{}, err
	}

	uc.Audit.RecordLifecycle(ctx, audit.LifecycleEntry{
		Kind: "project_removed", Project: cmd.Project, Author: cmd.Author,
		OccurredAt: ts, RecordedAt: ts,
	})

	return command.Result{TimestampMs: cmd.TimestampMs}, nil
}

// UnremoveProject restores a soft-removed project to active.
func (uc *UseCase) UnremoveProject(ctx context.Context, cmd command.Command) (command.Result, error) {
	if err := uc.Registry.SetProjectState(ctx, cmd.Project, project.StateActive, nil); err != nil {
		return command.Result{}, err
	}

	ts := time.UnixMilli(cmd.TimestampMs)
	uc.Audit.RecordLifecycle(ctx, audit.LifecycleEntry{
		Kind: "project_unremoved", Project: cmd.Project, Author: cmd.Author,
		OccurredAt: ts, RecordedAt: ts,
	})

	return command.Result{TimestampMs: cmd.TimestampMs}, nil
}

// PurgeProject physically deletes a project: every repository under it,
// then the project row and its data directory. Callers (the purge cron) are
// responsible for only issuing this once a soft-removed project has passed
// its grace window.
func (uc *UseCase) PurgeProject(ctx context.Context, cmd command.Command) (command.Result, error) {
	repos, err := uc.Registry.ListRepositories(ctx, cmd.Project, "")
	if err != nil {
		return command.Result{}, err
	}

	for _, r := range repos {
		if err := uc.purgeRepository(ctx, cmd.Project, r.Name); err != nil {
			return command.Result{}, err
		}
	}

	if err := uc.Registry.DeleteProject(ctx, cmd.Project); err != nil {
		return command.Result{}, err
	}

	dir := filepath.Join(uc.DataDir, cmd.Project)
	if err := os.RemoveAll(dir); err != nil {
		return command.Result{}, apperr.Wrap(apperr.KindInternal, err, "remove project directory %s", dir)
	}

	ts := time.UnixMilli(cmd.TimestampMs)
	uc.Audit.RecordLifecycle(ctx, audit.LifecycleEntry{
		Kind: "project_purged", Project: cmd.Project, Author: cmd.Author,
		OccurredAt: ts, RecordedAt: ts,
	})

	return command.Result{TimestampMs: cmd.TimestampMs}, nil
}
