package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracerStartEndDoesNotPanic(t *testing.T) {
	ctx, span := Tracer().Start(context.Background(), "tracing.test")
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)

	span.End()
}
