package executor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/LerianStudio/confdogma/internal/adapters/mongodb/audit"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/domain/repository"
)

// CreateRepository creates a user repository under an existing project.
// "meta" and "dogma" are reserved — only the create_project composite
// sequence (create_project.go) may create those.
func (uc *UseCase) CreateRepository(ctx context.Context, cmd command.Command) (command.Result, error) {
	if !repository.ValidName(cmd.Repository, false) {
		return command.Result{}, apperr.New(apperr.KindInvalidRequest, "invalid or reserved repository name %q", cmd.Repository)
	}

	rev, err := uc.createRepository(ctx, cmd.Project, cmd.Repository, cmd.Author, time.UnixMilli(cmd.TimestampMs))
	if err != nil {
		return command.Result{}, err
	}

	return command.Result{NewRevision: rev, TimestampMs: cmd.TimestampMs}, nil
}

// RemoveRepository soft-removes a repository.
func (uc *UseCase) RemoveRepository(ctx context.Context, cmd command.Command) (command.Result, error) {
	if repository.ReservedNames[cmd.Repository] {
		return command.Result{}, apperr.New(apperr.KindForbidden, "cannot remove reserved repository %q", cmd.Repository)
	}

	ts := time.UnixMilli(cmd.TimestampMs)

	if err := uc.Registry.SetRepositoryState(ctx, cmd.Project, cmd.Repository, repository.StateRemoved, &ts); err != nil {
		return command.Result{}, err
	}

	uc.Audit.RecordLifecycle(ctx, audit.LifecycleEntry{
		Kind: "repository_removed", Project: cmd.Project, Repository: cmd.Repository,
		Author: cmd.Author, OccurredAt: ts, RecordedAt: ts,
	})

	return command.Result{TimestampMs: cmd.TimestampMs}, nil
}

// UnremoveRepository restores a soft-removed repository to active.
func (uc *UseCase) UnremoveRepository(ctx context.Context, cmd command.Command) (command.Result, error) {
	if err := uc.Registry.SetRepositoryState(ctx, cmd.Project, cmd.Repository, repository.StateActive, nil); err != nil {
		return command.Result{}, err
	}

	ts := time.UnixMilli(cmd.TimestampMs)
	uc.Audit.RecordLifecycle(ctx, audit.LifecycleEntry{
		Kind: "repository_unremoved", Project: cmd.Project, Repository: cmd.Repository,
		Author: cmd.Author, OccurredAt: ts, RecordedAt: ts,
	})

	return command.Result{TimestampMs: cmd.TimestampMs}, nil
}

// PurgeRepository physically deletes a repository: its registry row, cached
// engine, and data directory.
func (uc *UseCase) PurgeRepository(ctx context.Context, cmd command.Command) (command.Result, error) {
	if repository.ReservedNames[cmd.Repository] {
		return command.Result{}, apperr.New(apperr.KindForbidden, "cannot purge reserved repository %q", cmd.Repository)
	}

	if err := uc.purgeRepository(ctx, cmd.Project, cmd.Repository); err != nil {
		return command.Result{}, err
	}

	ts := time.UnixMilli(cmd.TimestampMs)
	uc.Audit.RecordLifecycle(ctx, audit.LifecycleEntry{
		Kind: "repository_purged", Project: cmd.Project, Repository: cmd.Repository,
		Author: cmd.Author, OccurredAt: ts, RecordedAt: ts,
	})

	return command.Result{TimestampMs: cmd.TimestampMs}, nil
}

func (uc *UseCase) purgeRepository(ctx context.Context, projectName, repoName string) error {
	uc.forgetEngine(projectName, repoName)

	if err := uc.Registry.DeleteRepository(ctx, projectName, repoName); err != nil {
		return err
	}

	dir := filepath.Join(uc.DataDir, projectName, repoName)
	if err := os.RemoveAll(dir); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "remove repository directory %s", dir)
	}

	return nil
}
