package audit

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	confmongo "github.com/LerianStudio/confdogma/internal/adapters/mongo"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
)

// Repository appends audit documents. Every method swallows the detail of
// failure from its caller's perspective — see Trail below — so this
// interface itself stays a plain two-method surface to keep swapping in a
// fake for tests simple.
//
//go:generate mockgen --destination=audit.mock.go --package=audit . Repository
type Repository interface {
	RecordCommit(ctx context.Context, entry CommitEntry) error
	RecordLifecycle(ctx context.Context, entry LifecycleEntry) error
}

// MongoRepository is the mongo-driver-backed Repository.
type MongoRepository struct {
	conn     *confmongo.Connection
	database string
}

// NewMongoRepository builds a Repository over conn.
func NewMongoRepository(conn *confmongo.Connection) *MongoRepository {
	return &MongoRepository{conn: conn, database: strings.ToLower(conn.Database)}
}

// RecordCommit appends one commit event.
func (r *MongoRepository) RecordCommit(ctx context.Context, entry CommitEntry) error {
	client, err := r.conn.Client(ctx)
	if err != nil {
		return err
	}

	coll := client.Database(r.database).Collection(CommitsCollection)
	_, err = coll.InsertOne(ctx, entry)

	return err
}

// RecordLifecycle appends one lifecycle transition event.
func (r *MongoRepository) RecordLifecycle(ctx context.Context, entry LifecycleEntry) error {
	client, err := r.conn.Client(ctx)
	if err != nil {
		return err
	}

	coll := client.Database(r.database).Collection(LifecycleCollection)
	_, err = coll.InsertOne(ctx, entry)

	return err
}

// RecentCommits returns the most recent audited commits for a repository,
// newest first, for ad hoc operational inspection.
func (r *MongoRepository) RecentCommits(ctx context.Context, project, repo string, limit int64) ([]CommitEntry, error) {
	client, err := r.conn.Client(ctx)
	if err != nil {
		return nil, err
	}

	coll := client.Database(r.database).Collection(CommitsCollection)

	opts := options.Find().SetSort(bson.D{{Key: "committed_at", Value: -1}}).SetLimit(limit)

	cur, err := coll.Find(ctx, bson.M{"project": project, "repository": repo}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []CommitEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// Trail wraps a Repository so every call site can fire-and-forget an audit
// write without threading error handling through the engine/executor hot
// path: failures are logged and dropped, never gating the write itself.
type Trail struct {
	repo   Repository
	logger mlog.Logger
}

// NewTrail builds a Trail. A nil repo makes every method a no-op, so a
// replica configured without MongoDB runs unaffected.
func NewTrail(repo Repository, logger mlog.Logger) *Trail {
	if logger == nil {
		logger = mlog.None()
	}

	return &Trail{repo: repo, logger: logger}
}

// RecordCommit appends entry, logging and discarding any failure.
func (t *Trail) RecordCommit(ctx context.Context, entry CommitEntry) {
	if t.repo == nil {
		return
	}

	if err := t.repo.RecordCommit(ctx, entry); err != nil {
		t.logger.Warnf("audit: record commit %s/%s@%d: %v", entry.Project, entry.Repository, entry.Revision, err)
	}
}

// RecordLifecycle appends entry, logging and discarding any failure.
func (t *Trail) RecordLifecycle(ctx context.Context, entry LifecycleEntry) {
	if t.repo == nil {
		return
	}

	if err := t.repo.RecordLifecycle(ctx, entry); err != nil {
		t.logger.Warnf("audit: record lifecycle %s %s/%s: %v", entry.Kind, entry.Project, entry.Repository, err)
	}
}
