// Package watch is the per-repository long-poll fan-out: callers register
// interest in (last_known_revision, path_filter) and park until a commit
// touching a matching path advances the head, the timeout elapses, the
// caller's context is canceled, or the replica starts shutting down. It
// implements engine.Notifier so internal/services/engine.Commit can publish
// directly to it without engine importing this package back — the same
// interface-at-the-boundary shape the sourcegraph conf store uses for its
// own "ready" broadcast channel (internal/conf/store.go), generalized here
// to per-repository channels instead of one process-wide one.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/entry"
	"github.com/LerianStudio/confdogma/internal/services/engine"
)

// maxRecentRevisions bounds how many past commits' touched-path sets a
// repoState remembers. A waiter whose last-known revision falls outside
// this window can't be matched precisely against path_filter, so it wakes
// unconditionally instead — spurious wake-ups are acceptable but rare, and
// this window only matters for a waiter parked far longer than any
// reasonable request timeout while thousands of commits land.
const maxRecentRevisions = 4096

// Request is one watch registration.
type Request struct {
	LastKnownRevision int64
	PathPattern       string
	Timeout           time.Duration
	NotifyOnMissing   bool
	// CheckMissing reports whether the watched path is currently absent.
	// Only consulted when NotifyOnMissing is set; nil is treated as "never
	// missing" (the caller didn't wire an existence check).
	CheckMissing func(ctx context.Context) (bool, error)
}

// Result is what a Wait call resolves with.
type Result struct {
	Revision    int64
	NotModified bool
}

// Broadcaster fans a local head advance out to other replicas, so their
// waiters resume without polling etcd themselves. Implemented by
// internal/adapters/rabbitmq over a fanout exchange; nil is fine for a
// single-replica deployment.
type Broadcaster interface {
	Broadcast(ctx context.Context, project, repo string, adv engine.HeadAdvanced)
}

// Service is the process-wide watch fan-out, one repoState per
// (project, repository).
type Service struct {
	mu    sync.Mutex
	repos map[string]*repoState

	broadcaster Broadcaster

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// New builds an empty Service. broadcaster may be nil.
func New(broadcaster Broadcaster) *Service {
	return &Service{repos: map[string]*repoState{}, shutdown: make(chan struct{}), broadcaster: broadcaster}
}

// Shutdown resolves every parked waiter with shutting-down and causes every
// future Wait call to fail the same way. Safe to call more than once.
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

// Publish satisfies engine.Notifier: every successful commit calls this
// with the new head and the paths it touched. It also broadcasts the
// advance to other replicas, if a Broadcaster is configured.
func (s *Service) Publish(project, repo string, adv engine.HeadAdvanced) {
	s.stateFor(project, repo).publish(adv)

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(context.Background(), project, repo, adv)
	}
}

// ApplyRemote folds in a head advance observed via broadcast from another
// replica, without re-broadcasting it. Called by the rabbitmq consumer
// loop, never by local commits (those go through Publish).
func (s *Service) ApplyRemote(project, repo string, adv engine.HeadAdvanced) {
	s.stateFor(project, repo).publish(adv)
}

func (s *Service) stateFor(project, repo string) *repoState {
	key := project + "/" + repo

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.repos[key]
	if !ok {
		st = newRepoState()
		s.repos[key] = st
	}

	return st
}

// Wait registers interest in (project, repo) per req and blocks until a
// match, timeout, cancellation, or shutdown. A zero Timeout checks once and
// returns immediately, matching the "timeout_ms = 0" boundary case.
func (s *Service) Wait(ctx context.Context, project, repo string, req Request) (Result, error) {
	select {
	case <-s.shutdown:
		return Result{}, apperr.New(apperr.KindShuttingDown, "replica is shutting down")
	default:
	}

	if req.NotifyOnMissing {
		missing, err := checkMissing(ctx, req.CheckMissing)
		if err != nil {
			return Result{}, err
		}

		if missing {
			return Result{}, apperr.New(apperr.KindNotFound, "watched entry not found")
		}
	}

	st := s.stateFor(project, repo)

	if rev, ok := st.matchSince(req.LastKnownRevision, req.PathPattern); ok {
		return Result{Revision: rev}, nil
	}

	if req.Timeout <= 0 {
		return Result{NotModified: true}, nil
	}

	deadline := time.Now().Add(req.Timeout)

	for {
		st.mu.Lock()
		gen := st.gen
		st.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Result{NotModified: true}, nil
		}

		timer := time.NewTimer(remaining)

		select {
		case <-ctx.Done():
			timer.Stop()
			// Client cancellation resolves silently: no error, just an
			// unused result the caller will never consult.
			return Result{NotModified: true}, nil

		case <-s.shutdown:
			timer.Stop()
			return Result{}, apperr.New(apperr.KindShuttingDown, "replica is shutting down")

		case <-timer.C:
			return Result{NotModified: true}, nil

		case <-gen:
			timer.Stop()

			if req.NotifyOnMissing {
				missing, err := checkMissing(ctx, req.CheckMissing)
				if err != nil {
					return Result{}, err
				}

				if missing {
					return Result{}, apperr.New(apperr.KindNotFound, "watched entry not found")
				}
			}

			if rev, ok := st.matchSince(req.LastKnownRevision, req.PathPattern); ok {
				return Result{Revision: rev}, nil
			}
		}
	}
}

func checkMissing(ctx context.Context, fn func(context.Context) (bool, error)) (bool, error) {
	if fn == nil {
		return false, nil
	}

	return fn(ctx)
}

// repoState is one repository's recent commit history, enough to answer
// "does any commit in (last, head] touch path_filter" without re-reading
// the object store, plus the broadcast channel parked waiters select on.
type repoState struct {
	mu     sync.Mutex
	head   int64
	recent map[int64][]string
	order  []int64
	gen    chan struct{}
}

func newRepoState() *repoState {
	return &repoState{recent: map[int64][]string{}, gen: make(chan struct{})}
}

func (st *repoState) publish(adv engine.HeadAdvanced) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.head = adv.Revision
	st.recent[adv.Revision] = adv.TouchedPaths
	st.order = append(st.order, adv.Revision)

	for len(st.order) > maxRecentRevisions {
		delete(st.recent, st.order[0])
		st.order = st.order[1:]
	}

	close(st.gen)
	st.gen = make(chan struct{})
}

// matchSince reports the first revision in (last, head] whose touched paths
// match pattern ("" matches any commit). If last falls outside the
// remembered window, it conservatively reports head as a match.
func (st *repoState) matchSince(last int64, pattern string) (int64, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.head <= last {
		return 0, false
	}

	if len(st.order) > 0 && last < st.order[0]-1 {
		return st.head, true
	}

	for rev := last + 1; rev <= st.head; rev++ {
		paths, ok := st.recent[rev]
		if !ok {
			return st.head, true
		}

		if pattern == "" {
			return rev, true
		}

		for _, p := range paths {
			if entry.MatchPattern(pattern, p) {
				return rev, true
			}
		}
	}

	return 0, false
}
