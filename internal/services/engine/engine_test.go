package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/confdogma/internal/adapters/objectstore"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/change"
	"github.com/LerianStudio/confdogma/internal/domain/commit"
	"github.com/LerianStudio/confdogma/internal/domain/query"
)

type recordingNotifier struct {
	advances []HeadAdvanced
}

func (n *recordingNotifier) Publish(project, repo string, adv HeadAdvanced) {
	n.advances = append(n.advances, adv)
}

func newTestEngine(t *testing.T) (*Engine, *recordingNotifier) {
	t.Helper()

	store, err := objectstore.Open(t.TempDir())
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	e := New("proj", "repo", store, notifier, nil)

	require.NoError(t, e.InitRepository(context.Background(), "init-author", time.Unix(0, 0)))

	return e, notifier
}

func TestInitRepositoryRejectsSecondCall(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.InitRepository(context.Background(), "someone", time.Now())
	assert.Error(t, err)
	assert.Equal(t, apperr.KindAlreadyExists, apperr.KindOf(err))
}

func TestCommitAdvancesRevisionAndNotifies(t *testing.T) {
	e, notifier := newTestEngine(t)
	ctx := context.Background()

	rev, _, err := e.Commit(ctx, 0, "alice", time.Now(), "first write", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("hello")}}, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, rev)

	require.Len(t, notifier.advances, 1)
	assert.EqualValues(t, 2, notifier.advances[0].Revision)
	assert.Equal(t, []string{"/a.txt"}, notifier.advances[0].TouchedPaths)
}

func TestCommitRejectsEmptyChangeSet(t *testing.T) {
	e, _ := newTestEngine(t)

	_, _, err := e.Commit(context.Background(), 0, "alice", time.Now(), "noop", "", commit.MarkupPlaintext, nil, "")
	assert.Error(t, err)
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
}

func TestCommitRejectsDuplicateResultingPath(t *testing.T) {
	e, _ := newTestEngine(t)

	changes := []change.Change{
		{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("1")},
		{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("2")},
	}

	_, _, err := e.Commit(context.Background(), 0, "alice", time.Now(), "dup", "", commit.MarkupPlaintext, changes, "")
	assert.Error(t, err)
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
}

func TestCommitRejectsRedundantChange(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	changes := []change.Change{{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("hello")}}

	_, _, err := e.Commit(ctx, 0, "alice", time.Now(), "first", "", commit.MarkupPlaintext, changes, "")
	require.NoError(t, err)

	_, _, err = e.Commit(ctx, 0, "alice", time.Now(), "same again", "", commit.MarkupPlaintext, changes, "")
	assert.Error(t, err)
	assert.Equal(t, apperr.KindRedundantChange, apperr.KindOf(err))
}

func TestCommitIdempotencyKeyShortCircuitsReplay(t *testing.T) {
	e, notifier := newTestEngine(t)
	ctx := context.Background()

	changes := []change.Change{{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("hello")}}

	rev1, _, err := e.Commit(ctx, 0, "alice", time.Now(), "first", "", commit.MarkupPlaintext, changes, "idem-1")
	require.NoError(t, err)

	rev2, _, err := e.Commit(ctx, 0, "alice", time.Now(), "first", "", commit.MarkupPlaintext, changes, "idem-1")
	require.NoError(t, err)

	assert.Equal(t, rev1, rev2)
	assert.Len(t, notifier.advances, 1, "replayed idempotent commit must not re-notify")
}

func TestCommitRejectsStaleBaseRevision(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.Commit(ctx, 0, "alice", time.Now(), "one", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("1")}}, "")
	require.NoError(t, err)

	_, _, err = e.Commit(ctx, 0, "alice", time.Now(), "two", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertText, Path: "/b.txt", Content: []byte("2")}}, "")
	require.NoError(t, err)

	_, _, err = e.Commit(ctx, 1, "alice", time.Now(), "stale", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertText, Path: "/c.txt", Content: []byte("3")}}, "")
	assert.Error(t, err)
	assert.Equal(t, apperr.KindChangeConflict, apperr.KindOf(err))
}

func TestCommitClampsTimestampToHeadCommit(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	base := time.UnixMilli(10_000)

	_, ts1, err := e.Commit(ctx, 0, "alice", base, "one", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("1")}}, "")
	require.NoError(t, err)
	assert.EqualValues(t, base.UnixMilli(), ts1)

	skewed := time.UnixMilli(5_000) // behind the head commit, as if forwarded from a lagging replica's clock

	_, ts2, err := e.Commit(ctx, 0, "alice", skewed, "two", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertText, Path: "/b.txt", Content: []byte("2")}}, "")
	require.NoError(t, err)
	assert.EqualValues(t, ts1, ts2, "a commit timestamped behind its parent must clamp up to the parent's")
}

func TestCommitRejectsPathOutsideMetaAllowlist(t *testing.T) {
	store, err := objectstore.Open(t.TempDir())
	require.NoError(t, err)

	e := New("proj", "meta", store, nil, nil)
	require.NoError(t, e.InitRepository(context.Background(), "init-author", time.Unix(0, 0)))

	ctx := context.Background()

	_, _, err = e.Commit(ctx, 0, "alice", time.Now(), "write stray file", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertText, Path: "/notes.txt", Content: []byte("hi")}}, "")
	assert.Error(t, err)
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))

	_, _, err = e.Commit(ctx, 0, "alice", time.Now(), "write credential", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertJSON, Path: "/credentials/db.json", Content: []byte(`{}`)}}, "")
	assert.NoError(t, err)
}

func TestGetReturnsCommittedContent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.Commit(ctx, 0, "alice", time.Now(), "write", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("hello")}}, "")
	require.NoError(t, err)

	en, err := e.Get(ctx, 0, query.Identity("/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), en.Content)
}

func TestGetNotFoundForMissingPath(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Get(context.Background(), 0, query.Identity("/missing.txt"))
	assert.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestNormalizeResolvesRelativeRevisions(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.Commit(ctx, 0, "alice", time.Now(), "one", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("1")}}, "")
	require.NoError(t, err)

	head, err := e.Normalize(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, head)

	prev, err := e.Normalize(ctx, -1)
	require.NoError(t, err)
	assert.EqualValues(t, head, prev)

	_, err = e.Normalize(ctx, 99)
	assert.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDiffReportsUpsertsAndRemovals(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.Commit(ctx, 0, "alice", time.Now(), "one", "", commit.MarkupPlaintext,
		[]change.Change{
			{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("1")},
			{Type: change.TypeUpsertText, Path: "/b.txt", Content: []byte("2")},
		}, "")
	require.NoError(t, err)

	_, _, err = e.Commit(ctx, 0, "alice", time.Now(), "two", "", commit.MarkupPlaintext,
		[]change.Change{
			{Type: change.TypeUpsertText, Path: "/a.txt", Content: []byte("1-changed")},
			{Type: change.TypeRemove, Path: "/b.txt"},
		}, "")
	require.NoError(t, err)

	changes, err := e.Diff(ctx, 2, 0, "")
	require.NoError(t, err)

	byPath := map[string]change.Change{}
	for _, c := range changes {
		byPath[c.Path] = c
	}

	require.Contains(t, byPath, "/a.txt")
	assert.Equal(t, []byte("1-changed"), byPath["/a.txt"].Content)

	require.Contains(t, byPath, "/b.txt")
	assert.Equal(t, change.TypeRemove, byPath["/b.txt"].Type)
}

func TestMergeFilesDeepMergesJSONDocuments(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.Commit(ctx, 0, "alice", time.Now(), "base", "", commit.MarkupPlaintext,
		[]change.Change{
			{Type: change.TypeUpsertJSON, Path: "/base.json", Content: []byte(`{"a":1,"nested":{"x":1}}`)},
			{Type: change.TypeUpsertJSON, Path: "/override.json", Content: []byte(`{"a":2,"nested":{"y":2}}`)},
		}, "")
	require.NoError(t, err)

	merged, err := e.MergeFiles(ctx, 0, []string{"/base.json", "/override.json"}, nil, nil)
	require.NoError(t, err)

	assert.JSONEq(t, `{"a":2,"nested":{"x":1,"y":2}}`, string(merged.Content))
}

func TestMergeFilesSkipsMissingOptionalPaths(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.Commit(ctx, 0, "alice", time.Now(), "base", "", commit.MarkupPlaintext,
		[]change.Change{{Type: change.TypeUpsertJSON, Path: "/base.json", Content: []byte(`{"a":1}`)}}, "")
	require.NoError(t, err)

	merged, err := e.MergeFiles(ctx, 0, []string{"/base.json"}, []string{"/missing.json"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(merged.Content))
}

func TestMergeFilesRequiredPathMissingIsNotFound(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.MergeFiles(context.Background(), 0, []string{"/missing.json"}, nil, nil)
	assert.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
