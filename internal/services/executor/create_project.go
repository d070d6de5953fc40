package executor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LerianStudio/confdogma/internal/adapters/mongodb/audit"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/change"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/domain/commit"
	"github.com/LerianStudio/confdogma/internal/domain/project"
	"github.com/LerianStudio/confdogma/internal/domain/repository"
)

// CreateProject runs the composite create sequence: the project row, its
// implicit "meta" and "dogma" repositories, and a seed metadata document in
// "meta". Every step tolerates having already happened so a replayed
// duplicate of this command (e.g. retried after a crash mid-sequence) picks
// up wherever the previous attempt left off instead of failing.
func (uc *UseCase) CreateProject(ctx context.Context, cmd command.Command) (command.Result, error) {
	ts := time.UnixMilli(cmd.TimestampMs)

	p := &project.Project{
		Name:      cmd.Project,
		Creator:   cmd.Author,
		CreatedAt: ts,
		State:     project.StateActive,
	}

	if err := uc.Registry.CreateProject(ctx, p); err != nil && apperr.KindOf(err) != apperr.KindAlreadyExists {
		return command.Result{}, err
	}

	for _, name := range []string{"meta", "dogma"} {
		if _, err := uc.createRepository(ctx, cmd.Project, name, cmd.Author, ts); err != nil {
			return command.Result{}, err
		}
	}

	if err := uc.seedProjectMetadata(ctx, cmd.Project, cmd.Author, ts); err != nil {
		return command.Result{}, err
	}

	uc.Audit.RecordLifecycle(ctx, audit.LifecycleEntry{
		Kind: "project_created", Project: cmd.Project, Author: cmd.Author,
		OccurredAt: ts, RecordedAt: ts,
	})

	return command.Result{TimestampMs: cmd.TimestampMs}, nil
}

func (uc *UseCase) seedProjectMetadata(ctx context.Context, projectName, author string, ts time.Time) error {
	e, err := uc.engineFor(projectName, "meta")
	if err != nil {
		return err
	}

	doc, err := json.Marshal(map[string]any{
		"name":       projectName,
		"creator":    author,
		"created_at": ts.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "encode project metadata seed")
	}

	_, _, err = e.Commit(ctx, 0, author, ts, "seed project metadata", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertJSON, Path: "/project.json", Content: doc}}, "")
	if err != nil && apperr.KindOf(err) != apperr.KindRedundantChange {
		return err
	}

	return nil
}

// createRepository is the shared path for both the create_project composite
// sequence's implicit repositories and an explicit create_repository
// command: registry row, object store init commit, cached head.
func (uc *UseCase) createRepository(ctx context.Context, projectName, name, author string, ts time.Time) (int64, error) {
	r := &repository.Repository{
		Project:   projectName,
		Name:      name,
		Creator:   author,
		CreatedAt: ts,
		State:     repository.StateActive,
		Head:      1,
	}

	if err := uc.Registry.CreateRepository(ctx, r); err != nil && apperr.KindOf(err) != apperr.KindAlreadyExists {
		return 0, err
	}

	e, err := uc.engineFor(projectName, name)
	if err != nil {
		return 0, err
	}

	if err := e.InitRepository(ctx, author, ts); err != nil && apperr.KindOf(err) != apperr.KindAlreadyExists {
		return 0, err
	}

	if err := uc.Registry.AdvanceHead(ctx, projectName, name, 1); err != nil {
		return 0, err
	}

	return 1, nil
}
