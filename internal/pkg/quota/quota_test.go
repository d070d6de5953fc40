package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowPermitsUpToPerWindowBurst(t *testing.T) {
	l := New(3, time.Minute)

	assert.True(t, l.Allow("repo-a"))
	assert.True(t, l.Allow("repo-a"))
	assert.True(t, l.Allow("repo-a"))
	assert.False(t, l.Allow("repo-a"))
}

func TestAllowTracksBucketsIndependentlyPerKey(t *testing.T) {
	l := New(1, time.Minute)

	assert.True(t, l.Allow("repo-a"))
	assert.False(t, l.Allow("repo-a"))

	assert.True(t, l.Allow("repo-b"))
}
