package change

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsWellFormedPath(t *testing.T) {
	assert.NoError(t, Validate("/a/b/c.json"))
}

func TestValidateRejectsRelativePath(t *testing.T) {
	assert.Error(t, Validate("a/b.json"))
}

func TestValidateRejectsEmptySegment(t *testing.T) {
	assert.Error(t, Validate("/a//b.json"))
}

func TestValidateRejectsDotSegments(t *testing.T) {
	assert.Error(t, Validate("/a/../b.json"))
	assert.Error(t, Validate("/a/./b.json"))
}

func TestValidateRejectsRootOnly(t *testing.T) {
	assert.Error(t, Validate("/"))
}

func TestIsJSONPath(t *testing.T) {
	assert.True(t, IsJSONPath("/a/b.json"))
	assert.True(t, IsJSONPath("/a/b.JSON"))
	assert.False(t, IsJSONPath("/a/b.yaml"))
}

func TestIsYAMLPath(t *testing.T) {
	assert.True(t, IsYAMLPath("/a/b.yaml"))
	assert.True(t, IsYAMLPath("/a/b.yml"))
	assert.True(t, IsYAMLPath("/a/b.YML"))
	assert.False(t, IsYAMLPath("/a/b.json"))
}
