// Package replog is the per-process front door onto the replication log:
// leader campaign, per-repository write quota, submit-and-wait for local
// writers, startup/steady-state replay into the command executor, and a
// cron-driven pruning sweep.
package replog

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/LerianStudio/confdogma/internal/adapters/etcdlog"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
	"github.com/LerianStudio/confdogma/internal/pkg/quota"
	"github.com/LerianStudio/confdogma/internal/pkg/tracing"
)

// maxAppendRetries bounds appendWithRetry's index-CAS retry loop.
const maxAppendRetries = 8

// Applier hands one replayed log entry to the command executor. Apply must
// be idempotent: replaying the same entry twice (e.g. after a crash
// between apply and durably advancing last-applied) must be a no-op the
// second time.
type Applier interface {
	Apply(ctx context.Context, cmd command.Command) (command.Result, error)
}

// Forwarder submits a command to the current leader over the internal RPC
// surface, used by a follower that receives a write.
type Forwarder interface {
	Forward(ctx context.Context, leaderID string, cmd command.Command) (command.Result, error)
}

// Tracker durably records the last log index this replica has applied, so
// restart resumes replay from the right place instead of from scratch.
type Tracker interface {
	Get(ctx context.Context) (int64, error)
	Set(ctx context.Context, index int64) error
}

// Config holds the replication.* tunables read from the process
// configuration.
type Config struct {
	ReplicaID            string
	PathPrefix           string
	WriteQuotaPerRepo    int
	QuotaWindow          time.Duration
	MaxLogCount          int64
	MinLogAge            time.Duration
	PruneIntervalCron    string // robfig/cron spec, e.g. "@every 5m"
}

// Service drives one replica's participation in the replication log.
type Service struct {
	cfg      Config
	log      *etcdlog.Log
	applier  Applier
	forward  Forwarder
	tracker  Tracker
	quota    *quota.Limiter
	logger   mlog.Logger
	cron     *cron.Cron

	mu          sync.Mutex
	lastApplied int64
}

// New builds a Service. Call Start to begin campaigning for leadership and
// replaying the log; call Stop to resign and halt the pruning cron. tracker
// may be nil, in which case last-applied only lives in memory for this
// process's lifetime (every restart replays the whole log).
func New(cfg Config, log *etcdlog.Log, applier Applier, forward Forwarder, tracker Tracker, logger mlog.Logger) *Service {
	if logger == nil {
		logger = mlog.None()
	}

	return &Service{
		cfg:         cfg,
		log:         log,
		applier:     applier,
		forward:     forward,
		tracker:     tracker,
		quota:       quota.New(cfg.WriteQuotaPerRepo, cfg.QuotaWindow),
		logger:      logger,
		lastApplied: -1,
	}
}

// Start campaigns for leadership in the background and begins replaying
// the log from last-applied. It returns once the initial replay
// completes; ongoing replay continues on a background goroutine until ctx
// is canceled.
func (s *Service) Start(ctx context.Context) error {
	if s.tracker != nil {
		last, err := s.tracker.Get(ctx)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.lastApplied = last
		s.mu.Unlock()
	}

	if _, err := s.Replay(ctx); err != nil {
		return err
	}

	go func() {
		if err := s.log.Campaign(ctx); err != nil {
			if ctx.Err() == nil {
				s.logger.Errorf("leadership campaign ended: %v", err)
			}

			return
		}

		s.logger.Info("acquired leadership")
	}()

	s.cron = cron.New()

	if s.cfg.PruneIntervalCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.PruneIntervalCron, func() { s.prune(ctx) }); err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "schedule prune sweep %q", s.cfg.PruneIntervalCron)
		}
	}

	s.cron.Start()

	return nil
}

// Stop resigns leadership (if held) and stops the pruning cron.
func (s *Service) Stop(ctx context.Context) {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	if err := s.log.Resign(ctx); err != nil {
		s.logger.Warnf("resign leadership: %v", err)
	}
}

// Replay applies every log entry after last-applied, advancing
// last-applied as it goes, and returns the Result of the last entry
// applied (the zero Result if nothing was pending). Safe to call
// repeatedly; a second call with nothing new to replay is a no-op.
func (s *Service) Replay(ctx context.Context) (command.Result, error) {
	head, err := s.log.HeadIndex(ctx)
	if err != nil {
		return command.Result{}, err
	}

	s.mu.Lock()
	from := s.lastApplied + 1
	s.mu.Unlock()

	if head < from {
		return command.Result{}, nil
	}

	entries, err := s.log.Read(ctx, from, head)
	if err != nil {
		return command.Result{}, err
	}

	var last command.Result

	for _, e := range entries {
		entryCtx, span := tracing.Tracer().Start(ctx, "replog.apply_entry")
		span.SetAttributes(
			attribute.Int64("confdogma.log_index", e.Index),
			attribute.String("confdogma.command_tag", string(e.Command.Tag)),
		)

		res, err := s.applier.Apply(entryCtx, e.Command)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()

		if err != nil {
			// Apply is defined to be idempotent; a redundant-change
			// result here means a peer already produced the same
			// outcome before this replica's object store caught up, not
			// a real failure. Anything else halts replay.
			if apperr.KindOf(err) != apperr.KindRedundantChange {
				return command.Result{}, apperr.Wrap(apperr.KindInternal, err, "apply log entry %d", e.Index)
			}
		} else {
			last = res
		}

		s.mu.Lock()
		s.lastApplied = e.Index
		s.mu.Unlock()

		if s.tracker != nil {
			if err := s.tracker.Set(ctx, e.Index); err != nil {
				return command.Result{}, apperr.Wrap(apperr.KindInternal, err, "persist last-applied index %d", e.Index)
			}
		}
	}

	return last, nil
}

// Submit enforces the per-repository quota, then either appends cmd to the
// log directly (if this replica is leader) or forwards it (if not),
// returning once the command has been durably ordered and locally
// applied.
func (s *Service) Submit(ctx context.Context, cmd command.Command) (command.Result, error) {
	ctx, span := tracing.Tracer().Start(ctx, "replog.submit")
	span.SetAttributes(
		attribute.String("confdogma.project", cmd.Project),
		attribute.String("confdogma.repository", cmd.Repository),
		attribute.String("confdogma.command_tag", string(cmd.Tag)),
	)
	defer span.End()

	if cmd.Repository != "" && !s.quota.Allow(cmd.Project + "/" + cmd.Repository) {
		err := apperr.New(apperr.KindQuotaExceeded, "write quota exceeded for %s/%s", cmd.Project, cmd.Repository)
		span.SetStatus(codes.Error, err.Error())

		return command.Result{}, err
	}

	isLeader, err := s.log.IsLeader(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return command.Result{}, err
	}

	if !isLeader {
		leaderID, err := s.log.LeaderID(ctx)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return command.Result{}, err
		}

		if leaderID == "" {
			err := apperr.New(apperr.KindReplicationUnavailable, "no leader elected")
			span.SetStatus(codes.Error, err.Error())

			return command.Result{}, err
		}

		span.SetAttributes(attribute.Bool("confdogma.forwarded", true))

		res, err := s.forward.Forward(ctx, leaderID, cmd)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}

		return res, err
	}

	if err := s.appendWithRetry(ctx, cmd); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return command.Result{}, err
	}

	res, err := s.Replay(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	return res, err
}

// appendWithRetry appends cmd to the log, retrying on KindChangeConflict —
// another leader-local writer took the index this attempt raced for —
// by re-reading HeadIndex and trying the next index again, the same
// bounded CAS-retry shape engine.Commit uses for the object-store ref.
func (s *Service) appendWithRetry(ctx context.Context, cmd command.Command) error {
	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		_, err := s.log.Append(ctx, cmd, command.Now())
		if err == nil {
			return nil
		}

		if apperr.KindOf(err) != apperr.KindChangeConflict {
			return err
		}
	}

	return apperr.New(apperr.KindChangeConflict, "exceeded %d append retries", maxAppendRetries)
}

// PruneSweep runs one prune pass on demand, the same sweep the cron
// schedules periodically — exposed for an operator-triggered one-shot
// sweep outside the usual cron cadence.
func (s *Service) PruneSweep(ctx context.Context) {
	s.prune(ctx)
}

// prune sweeps log entries that are both past maxLogCount (counting back
// from head) and older than minLogAge: an entry is kept while either
// condition alone would keep it, and pruned only once both have lapsed.
func (s *Service) prune(ctx context.Context) {
	head, err := s.log.HeadIndex(ctx)
	if err != nil || head < 0 {
		return
	}

	countBoundary := head - s.cfg.MaxLogCount
	if countBoundary <= 0 {
		return
	}

	entries, err := s.log.Read(ctx, 0, countBoundary)
	if err != nil {
		s.logger.Warnf("prune: read candidate range: %v", err)
		return
	}

	nowMs := command.Now()
	keepFrom := int64(0)

	for _, e := range entries {
		age := time.Duration(nowMs-e.CommitTsMs) * time.Millisecond
		if age < s.cfg.MinLogAge {
			break // entries are index-ordered, so everything after is even younger
		}

		keepFrom = e.Index + 1
	}

	if keepFrom == 0 {
		return
	}

	deleted, err := s.log.Prune(ctx, keepFrom)
	if err != nil {
		s.logger.Warnf("prune sweep failed: %v", err)
		return
	}

	if deleted > 0 {
		s.logger.Infof("pruned %d replication log entries below index %d", deleted, keepFrom)
	}
}
