package jsonpathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateSingleExpressionReturnsBareScalar(t *testing.T) {
	doc := []byte(`{"a":{"b":42}}`)

	out, err := Evaluate(doc, []string{"$.a.b"})
	require.NoError(t, err)
	assert.JSONEq(t, `42`, string(out))
}

func TestEvaluateMultipleExpressionsReturnsArray(t *testing.T) {
	doc := []byte(`{"a":1,"b":2}`)

	out, err := Evaluate(doc, []string{"$.a", "$.b"})
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(out))
}

func TestEvaluateRejectsInvalidJSON(t *testing.T) {
	_, err := Evaluate([]byte(`not-json`), []string{"$.a"})
	assert.Error(t, err)
}

func TestEvaluateRejectsMissingKey(t *testing.T) {
	_, err := Evaluate([]byte(`{"a":1}`), []string{"$.missing"})
	assert.Error(t, err)
}

func TestEvaluateStringScalarFallsBackToRawText(t *testing.T) {
	doc := []byte(`{"a":"hello"}`)

	out, err := Evaluate(doc, []string{"$.a"})
	require.NoError(t, err)
	assert.JSONEq(t, `"hello"`, string(out))
}
