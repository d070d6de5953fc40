// Package executor is the command dispatch table: it hands a replayed log
// entry to the concrete repository engine / registry operation named by its
// Tag, and is the only thing in this module that implements
// internal/services/replog.Applier. Command handlers are grouped by subject
// into files (create_project.go, project.go, push.go, …) under a shared
// UseCase receiver.
package executor

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/LerianStudio/confdogma/internal/adapters/mongodb/audit"
	"github.com/LerianStudio/confdogma/internal/adapters/objectstore"
	"github.com/LerianStudio/confdogma/internal/adapters/postgres/registry"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
	"github.com/LerianStudio/confdogma/internal/services/engine"
)

// TransformFunc deterministically derives the next content for a path from
// its current content. Registered by ID so a Command (which must be
// wire-serializable) can name one without carrying a closure.
type TransformFunc func(current []byte) ([]byte, error)

type replayKey struct{}

// WithReplay marks ctx as belonging to a catch-up replay rather than a
// freshly-submitted command, letting handlers suppress one-shot side
// effects (e.g. a notification that should only fire once per client
// request, not again every time a replica replays history at startup).
func WithReplay(ctx context.Context, replay bool) context.Context {
	return context.WithValue(ctx, replayKey{}, replay)
}

// IsReplay reports whether ctx was marked by WithReplay.
func IsReplay(ctx context.Context) bool {
	v, _ := ctx.Value(replayKey{}).(bool)
	return v
}

// UseCase aggregates the dependencies every command handler needs: the
// registry of project/repository metadata, a lazily-opened engine per
// (project, repo), and the transform registry that TagTransform commands
// are looked up in at apply time.
type UseCase struct {
	DataDir    string
	Registry   *registry.Store
	Notifier   engine.Notifier
	Logger     mlog.Logger
	Audit      *audit.Trail
	Transforms map[string]TransformFunc

	mu      sync.Mutex
	engines map[string]*engine.Engine

	statusMu     sync.Mutex
	serverStatus string
	sessions     map[string]bool
}

// New builds a UseCase. Object stores under dataDir are opened lazily, one
// per (project, repository) pair, the first time a command touches them. A
// nil auditTrail is fine — Trail itself no-ops without a backing repo.
func New(dataDir string, reg *registry.Store, notifier engine.Notifier, auditTrail *audit.Trail, logger mlog.Logger) *UseCase {
	if logger == nil {
		logger = mlog.None()
	}

	if auditTrail == nil {
		auditTrail = audit.NewTrail(nil, logger)
	}

	return &UseCase{
		DataDir:    dataDir,
		Registry:   reg,
		Notifier:   notifier,
		Logger:     logger,
		Audit:      auditTrail,
		Transforms: map[string]TransformFunc{},
		engines:    map[string]*engine.Engine{},
	}
}

// RegisterTransform makes fn available to TagTransform commands under id.
func (uc *UseCase) RegisterTransform(id string, fn TransformFunc) {
	uc.Transforms[id] = fn
}

// engineFor returns the cached Engine for (project, repo), opening its
// object store on first use.
func (uc *UseCase) engineFor(project, repo string) (*engine.Engine, error) {
	key := project + "/" + repo

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if e, ok := uc.engines[key]; ok {
		return e, nil
	}

	store, err := objectstore.Open(filepath.Join(uc.DataDir, project, repo))
	if err != nil {
		return nil, err
	}

	e := engine.New(project, repo, store, uc.Notifier, uc.Logger)
	uc.engines[key] = e

	return e, nil
}

// EngineFor exposes the cached Engine for (project, repo) to read-only
// callers (the HTTP query handlers) that have no business going through
// the replication log — reads don't need to be ordered against other
// reads, only against the writes that already serialize through Apply.
func (uc *UseCase) EngineFor(project, repo string) (*engine.Engine, error) {
	return uc.engineFor(project, repo)
}

// forgetEngine drops a cached Engine, used after a repository is purged so
// a later recreation under the same name doesn't reuse a stale handle.
func (uc *UseCase) forgetEngine(project, repo string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	delete(uc.engines, project+"/"+repo)
}

// Apply dispatches cmd to its handler. It satisfies replog.Applier.
func (uc *UseCase) Apply(ctx context.Context, cmd command.Command) (command.Result, error) {
	switch cmd.Tag {
	case command.TagCreateProject:
		return uc.CreateProject(ctx, cmd)
	case command.TagRemoveProject:
		return uc.RemoveProject(ctx, cmd)
	case command.TagUnremoveProject:
		return uc.UnremoveProject(ctx, cmd)
	case command.TagPurgeProject:
		return uc.PurgeProject(ctx, cmd)
	case command.TagCreateRepository:
		return uc.CreateRepository(ctx, cmd)
	case command.TagRemoveRepository:
		return uc.RemoveRepository(ctx, cmd)
	case command.TagUnremoveRepository:
		return uc.UnremoveRepository(ctx, cmd)
	case command.TagPurgeRepository:
		return uc.PurgeRepository(ctx, cmd)
	case command.TagNormalizeRevision:
		return uc.NormalizeRevision(ctx, cmd)
	case command.TagPush:
		return uc.Push(ctx, cmd)
	case command.TagTransform:
		return uc.Transform(ctx, cmd)
	case command.TagCreateSession:
		return uc.CreateSession(ctx, cmd)
	case command.TagRemoveSession:
		return uc.RemoveSession(ctx, cmd)
	case command.TagUpdateServerStatus:
		return uc.UpdateServerStatus(ctx, cmd)
	default:
		return command.Result{}, apperr.New(apperr.KindInvalidRequest, "unknown command tag %q", cmd.Tag)
	}
}
