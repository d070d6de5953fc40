package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LerianStudio/confdogma/internal/domain/entry"
)

func TestGetLoadsOnMissAndCachesResult(t *testing.T) {
	c, err := New(10)
	assert.NoError(t, err)

	var loads int
	load := func(ctx context.Context) (*entry.Entry, error) {
		loads++
		return &entry.Entry{Path: "/a.yaml", Content: []byte("v1")}, nil
	}

	en, err := c.Get(context.Background(), "key", load)
	assert.NoError(t, err)
	assert.Equal(t, []byte("v1"), en.Content)

	en2, err := c.Get(context.Background(), "key", load)
	assert.NoError(t, err)
	assert.Equal(t, []byte("v1"), en2.Content)

	assert.Equal(t, 1, loads)
}

func TestInvalidateForcesReload(t *testing.T) {
	c, err := New(10)
	assert.NoError(t, err)

	var loads int
	load := func(ctx context.Context) (*entry.Entry, error) {
		loads++
		return &entry.Entry{Path: "/a.yaml"}, nil
	}

	_, err = c.Get(context.Background(), "key", load)
	assert.NoError(t, err)

	c.Invalidate(context.Background(), "key")

	_, err = c.Get(context.Background(), "key", load)
	assert.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestWeightBudgetEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := New(1000, WithMaxWeightBytes(12))
	assert.NoError(t, err)

	load := func(content string) Loader {
		return func(ctx context.Context) (*entry.Entry, error) {
			return &entry.Entry{Path: "/x", Content: []byte(content)}, nil
		}
	}

	_, err = c.Get(context.Background(), "a", load("123456")) // weight 6 (+path len 2) = 8
	assert.NoError(t, err)

	_, err = c.Get(context.Background(), "b", load("123456"))
	assert.NoError(t, err)

	var loads int
	reload := func(ctx context.Context) (*entry.Entry, error) {
		loads++
		return &entry.Entry{Path: "/x", Content: []byte("123456")}, nil
	}

	_, err = c.Get(context.Background(), "a", reload)
	assert.NoError(t, err)
	assert.Equal(t, 1, loads, "adding b should have pushed a out of the weight budget")
}

func TestGetPropagatesLoaderError(t *testing.T) {
	c, err := New(10)
	assert.NoError(t, err)

	boom := assert.AnError
	_, err = c.Get(context.Background(), "key", func(ctx context.Context) (*entry.Entry, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}
