package jsonpatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyReplacesField(t *testing.T) {
	out, err := Apply([]byte(`{"status":"active"}`), []byte(`[{"op":"replace","path":"/status","value":"removed"}]`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"removed"}`, string(out))
}

func TestApplyRejectsMalformedPatch(t *testing.T) {
	_, err := Apply([]byte(`{}`), []byte(`not-json`))
	assert.Error(t, err)
}

func TestApplyRejectsFailedTestOp(t *testing.T) {
	_, err := Apply([]byte(`{"a":1}`), []byte(`[{"op":"test","path":"/a","value":2}]`))
	assert.Error(t, err)
}

func TestApplyTextPatchAppliesSingleHunk(t *testing.T) {
	src := "line1\nline2\nline3\n"
	patch := "--- a\n+++ b\n@@ -1,3 +1,3 @@\n line1\n-line2\n+line2-changed\n line3\n"

	out, err := ApplyTextPatch([]byte(src), []byte(patch))
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2-changed\nline3", string(out))
}

func TestApplyTextPatchAppendsLine(t *testing.T) {
	src := "line1\nline2\n"
	patch := "@@ -1,2 +1,3 @@\n line1\n line2\n+line3\n"

	out, err := ApplyTextPatch([]byte(src), []byte(patch))
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2\nline3", string(out))
}

func TestApplyTextPatchRejectsContextMismatch(t *testing.T) {
	src := "line1\nline2\n"
	patch := "@@ -1,2 +1,2 @@\n wrong-context\n line2\n"

	_, err := ApplyTextPatch([]byte(src), []byte(patch))
	assert.Error(t, err)
}

func TestApplyTextPatchRejectsRemoveMismatch(t *testing.T) {
	src := "line1\nline2\n"
	patch := "@@ -1,2 +1,1 @@\n line1\n-not-line2\n"

	_, err := ApplyTextPatch([]byte(src), []byte(patch))
	assert.Error(t, err)
}

func TestApplyTextPatchRejectsMalformedHunkHeader(t *testing.T) {
	_, err := ApplyTextPatch([]byte("line1\n"), []byte("@@ garbage @@\n line1\n"))
	assert.Error(t, err)
}
