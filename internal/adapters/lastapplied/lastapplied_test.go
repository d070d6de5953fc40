package lastapplied

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFreshDirStartsAtMinusOne(t *testing.T) {
	tr, err := Open(t.TempDir())
	require.NoError(t, err)

	v, err := tr.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, -1, v)
}

func TestSetThenOpenSurvivesReload(t *testing.T) {
	dir := t.TempDir()

	tr, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, tr.Set(context.Background(), 42))

	reopened, err := Open(dir)
	require.NoError(t, err)

	v, err := reopened.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}

func TestSetOverwritesPreviousValue(t *testing.T) {
	tr, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, tr.Set(context.Background(), 1))
	require.NoError(t, tr.Set(context.Background(), 2))

	v, err := tr.Get(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
}
