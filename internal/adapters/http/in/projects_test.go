package in

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyStatusPatchReplacesStatus(t *testing.T) {
	next, err := applyStatusPatch("active", []byte(`[{"op":"replace","path":"/status","value":"removed"}]`))
	assert.NoError(t, err)
	assert.Equal(t, "removed", next)
}

func TestApplyStatusPatchRejectsMalformedPatch(t *testing.T) {
	_, err := applyStatusPatch("active", []byte(`not-json`))
	assert.Error(t, err)
}

func TestApplyStatusPatchNoOpKeepsCurrentStatus(t *testing.T) {
	next, err := applyStatusPatch("removed", []byte(`[]`))
	assert.NoError(t, err)
	assert.Equal(t, "removed", next)
}
