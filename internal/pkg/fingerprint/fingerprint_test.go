package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/LerianStudio/confdogma/internal/domain/query"
)

func TestOfIsDeterministic(t *testing.T) {
	q := query.Identity("/a/b.yaml")

	a := Of("proj", "repo", 42, q)
	b := Of("proj", "repo", 42, q)

	assert.Equal(t, a, b)
}

func TestOfDistinguishesRevision(t *testing.T) {
	q := query.Identity("/a/b.yaml")

	a := Of("proj", "repo", 1, q)
	b := Of("proj", "repo", 2, q)

	assert.NotEqual(t, a, b)
}

func TestOfDistinguishesFieldBoundaries(t *testing.T) {
	// "ab"+"c" must not collide with "a"+"bc" once concatenated across
	// fields without a separator.
	q := query.Identity("/x.json")

	a := Of("a", "bc", 0, q)
	b := Of("ab", "c", 0, q)

	assert.NotEqual(t, a, b)
}

func TestOfDistinguishesQueryType(t *testing.T) {
	identity := query.Identity("/a.yaml")
	jsonpath := query.JSONPath("/a.yaml", "$.x")

	assert.NotEqual(t, Of("p", "r", 1, identity), Of("p", "r", 1, jsonpath))
}

func TestOfDistinguishesExpressionOrder(t *testing.T) {
	a := query.JSONPath("/a.yaml", "$.x", "$.y")
	b := query.JSONPath("/a.yaml", "$.y", "$.x")

	assert.NotEqual(t, Of("p", "r", 1, a), Of("p", "r", 1, b))
}
