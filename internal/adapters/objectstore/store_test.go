package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutBlobIsContentAddressedAndIdempotent(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	id1, err := s.PutBlob(context.Background(), []byte("hello"))
	require.NoError(t, err)

	id2, err := s.PutBlob(context.Background(), []byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, id1, id2)

	data, err := s.ReadBlob(context.Background(), id1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestReadBlobMissingIsNotFound(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.ReadBlob(context.Background(), ID("deadbeef"))
	assert.Error(t, err)
}

func TestPutTreeRoundTrips(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	blobID, err := s.PutBlob(context.Background(), []byte("content"))
	require.NoError(t, err)

	treeID, err := s.PutTree(context.Background(), []TreeEntry{{Name: "a.txt", Kind: KindBlob, ID: blobID}})
	require.NoError(t, err)

	tree, err := s.ReadTree(context.Background(), treeID)
	require.NoError(t, err)
	require.Len(t, tree.Entries, 1)
	assert.Equal(t, "a.txt", tree.Entries[0].Name)
	assert.Equal(t, blobID, tree.Entries[0].ID)
}

func TestRefCASSucceedsFromExpectedAndFailsOnMismatch(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	commitID, err := s.PutCommit(context.Background(), &CommitObject{Summary: "init"})
	require.NoError(t, err)

	res, err := s.RefCAS(context.Background(), "", commitID)
	require.NoError(t, err)
	assert.True(t, res.OK)

	second, err := s.PutCommit(context.Background(), &CommitObject{Summary: "second", Parent: commitID})
	require.NoError(t, err)

	res, err = s.RefCAS(context.Background(), "wrong-expected", second)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, commitID, res.Current)

	res, err = s.RefCAS(context.Background(), commitID, second)
	require.NoError(t, err)
	assert.True(t, res.OK)

	head, err := s.ReadRef(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, head)
}

func TestGCRemovesUnreachableObjects(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	keptBlob, err := s.PutBlob(ctx, []byte("kept"))
	require.NoError(t, err)

	keptTree, err := s.PutTree(ctx, []TreeEntry{{Name: "a.txt", Kind: KindBlob, ID: keptBlob}})
	require.NoError(t, err)

	keptCommit, err := s.PutCommit(ctx, &CommitObject{Tree: keptTree, Summary: "init"})
	require.NoError(t, err)

	res, err := s.RefCAS(ctx, "", keptCommit)
	require.NoError(t, err)
	require.True(t, res.OK)

	// Orphaned blob, never referenced by any reachable tree/commit.
	orphanBlob, err := s.PutBlob(ctx, []byte("orphan"))
	require.NoError(t, err)

	require.NoError(t, s.GC(ctx))

	_, err = s.ReadBlob(ctx, keptBlob)
	assert.NoError(t, err, "reachable blob must survive GC")

	_, err = s.ReadBlob(ctx, orphanBlob)
	assert.Error(t, err, "unreachable blob must be collected")
}
