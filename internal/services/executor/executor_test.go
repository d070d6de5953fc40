package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
)

func TestEngineForCachesByProjectAndRepo(t *testing.T) {
	uc := New(t.TempDir(), nil, nil, nil, nil)

	e1, err := uc.EngineFor("proj", "repo")
	assert.NoError(t, err)

	e2, err := uc.EngineFor("proj", "repo")
	assert.NoError(t, err)

	assert.Same(t, e1, e2)
}

func TestEngineForSeparatesDistinctRepos(t *testing.T) {
	uc := New(t.TempDir(), nil, nil, nil, nil)

	a, err := uc.EngineFor("proj", "repo-a")
	assert.NoError(t, err)

	b, err := uc.EngineFor("proj", "repo-b")
	assert.NoError(t, err)

	assert.NotSame(t, a, b)
}

func TestForgetEngineDropsCacheEntry(t *testing.T) {
	uc := New(t.TempDir(), nil, nil, nil, nil)

	e1, err := uc.EngineFor("proj", "repo")
	assert.NoError(t, err)

	uc.forgetEngine("proj", "repo")

	e2, err := uc.EngineFor("proj", "repo")
	assert.NoError(t, err)

	assert.NotSame(t, e1, e2)
}

func TestApplyRejectsUnknownTag(t *testing.T) {
	uc := New(t.TempDir(), nil, nil, nil, nil)

	_, err := uc.Apply(context.Background(), command.Command{Tag: command.Tag("not-a-real-tag")})
	assert.Error(t, err)
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
}

func TestReplayContextRoundTrips(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsReplay(ctx))

	ctx = WithReplay(ctx, true)
	assert.True(t, IsReplay(ctx))
}

func TestRegisterTransformMakesFnAvailable(t *testing.T) {
	uc := New(t.TempDir(), nil, nil, nil, nil)

	uc.RegisterTransform("upper", func(current []byte) ([]byte, error) {
		return current, nil
	})

	_, ok := uc.Transforms["upper"]
	assert.True(t, ok)
}
