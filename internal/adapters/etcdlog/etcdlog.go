// Package etcdlog realizes the replication log's coordination primitives
// on go.etcd.io/etcd/client/v3: a dense, monotonically-increasing append
// log keyed under {pathPrefix}/log/{index:020d}, and leader election via
// concurrency.Election under {pathPrefix}/leader. etcd's MVCC revision
// already totally orders writes; our own zero-padded index is the stable,
// replica-visible sequence number callers key off of.
package etcdlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
)

// Entry is one appended, replayable log record.
type Entry struct {
	Index      int64           `json:"index"`
	ReplicaID  string          `json:"replica_id"`
	Command    command.Command `json:"command"`
	CommitTsMs int64           `json:"commit_ts_ms"`
}

// Log is one replica's handle onto the shared etcd-backed replication log
// for a single pathPrefix namespace.
type Log struct {
	Client     *clientv3.Client
	PathPrefix string
	ReplicaID  string
	Logger     mlog.Logger

	session  *concurrency.Session
	election *concurrency.Election
}

func (l *Log) logPrefix() string   { return l.PathPrefix + "/log/" }
func (l *Log) logKey(i int64) string { return fmt.Sprintf("%s%020d", l.logPrefix(), i) }
func (l *Log) leaderKey() string   { return l.PathPrefix + "/leader" }

// HeadIndex returns the highest index currently appended, or -1 if the log
// is empty.
func (l *Log) HeadIndex(ctx context.Context) (int64, error) {
	resp, err := l.Client.Get(ctx, l.logPrefix(),
		clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortDescend), clientv3.WithLimit(1))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindReplicationUnavailable, err, "read replication log head")
	}

	if len(resp.Kvs) == 0 {
		return -1, nil
	}

	return indexFromKey(string(resp.Kvs[0].Key), l.logPrefix())
}

// Append writes cmd at head+1, failing with a conflict if another writer
// raced it onto the same index (detected via a CAS on the key's absence).
// Callers retry on conflict by re-reading HeadIndex.
func (l *Log) Append(ctx context.Context, cmd command.Command, commitTsMs int64) (int64, error) {
	head, err := l.HeadIndex(ctx)
	if err != nil {
		return 0, err
	}

	next := head + 1
	key := l.logKey(next)

	entry := Entry{Index: next, ReplicaID: l.ReplicaID, Command: cmd, CommitTsMs: commitTsMs}

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, err, "encode log entry")
	}

	txn := l.Client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(data)))

	resp, err := txn.Commit()
	if err != nil {
		return 0, apperr.Wrap(apperr.KindReplicationUnavailable, err, "append to replication log")
	}

	if !resp.Succeeded {
		return 0, apperr.New(apperr.KindChangeConflict, "replication log index %d already taken, retry", next)
	}

	return next, nil
}

// Read returns entries in [from, to], inclusive, used for startup replay
// and forwarding.
func (l *Log) Read(ctx context.Context, from, to int64) ([]Entry, error) {
	resp, err := l.Client.Get(ctx, l.logKey(from), clientv3.WithRange(l.logKey(to+1)))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindReplicationUnavailable, err, "read replication log range")
	}

	out := make([]Entry, 0, len(resp.Kvs))

	for _, kv := range resp.Kvs {
		var e Entry
		if err := json.Unmarshal(kv.Value, &e); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "decode log entry at %s", kv.Key)
		}

		out = append(out, e)
	}

	return out, nil
}

// Prune deletes entries with index < keepFrom, honoring the caller's
// already-computed retention boundary (age and count thresholds are
// replog's job, not this adapter's).
func (l *Log) Prune(ctx context.Context, keepFrom int64) (int64, error) {
	if keepFrom <= 0 {
		return 0, nil
	}

	resp, err := l.Client.Delete(ctx, l.logPrefix(), clientv3.WithRange(l.logKey(keepFrom)))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindReplicationUnavailable, err, "prune replication log")
	}

	return resp.Deleted, nil
}

// Campaign blocks until this replica becomes leader (or ctx is canceled),
// opening a fresh etcd lease-backed session so the leader key is released
// automatically on process death.
func (l *Log) Campaign(ctx context.Context) error {
	session, err := concurrency.NewSession(l.Client)
	if err != nil {
		return apperr.Wrap(apperr.KindReplicationUnavailable, err, "open etcd session")
	}

	l.session = session
	l.election = concurrency.NewElection(session, l.leaderKey())

	if err := l.election.Campaign(ctx, l.ReplicaID); err != nil {
		return apperr.Wrap(apperr.KindReplicationUnavailable, err, "campaign for leadership")
	}

	l.Logger.Infof("replica %s elected leader", l.ReplicaID)

	return nil
}

// Resign gives up leadership voluntarily (graceful shutdown); the lease
// also expires this replica's claim automatically on crash.
func (l *Log) Resign(ctx context.Context) error {
	if l.election == nil {
		return nil
	}

	return l.election.Resign(ctx)
}

// IsLeader reports whether this replica currently holds the election.
func (l *Log) IsLeader(ctx context.Context) (bool, error) {
	if l.election == nil {
		return false, nil
	}

	resp, err := l.election.Leader(ctx)
	if err != nil {
		if err == concurrency.ErrElectionNoLeader {
			return false, nil
		}

		return false, apperr.Wrap(apperr.KindReplicationUnavailable, err, "query current leader")
	}

	return len(resp.Kvs) > 0 && string(resp.Kvs[0].Value) == l.ReplicaID, nil
}

// LeaderID returns the replica ID of the current leader, "" if none.
func (l *Log) LeaderID(ctx context.Context) (string, error) {
	if l.election == nil {
		l.election = concurrency.NewElection(l.mustSession(ctx), l.leaderKey())
	}

	resp, err := l.election.Leader(ctx)
	if err != nil {
		if err == concurrency.ErrElectionNoLeader {
			return "", nil
		}

		return "", apperr.Wrap(apperr.KindReplicationUnavailable, err, "query current leader")
	}

	if len(resp.Kvs) == 0 {
		return "", nil
	}

	return string(resp.Kvs[0].Value), nil
}

func (l *Log) mustSession(ctx context.Context) *concurrency.Session {
	if l.session == nil {
		s, err := concurrency.NewSession(l.Client)
		if err != nil {
			l.Logger.Errorf("open etcd session for leader lookup: %v", err)
		}

		l.session = s
	}

	return l.session
}

func indexFromKey(key, prefix string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, err, "parse log index from key %s", key)
	}

	return n, nil
}
