// Package tracing is the thin seam between call sites and whatever
// TracerProvider the process wired up at startup, the
// tracer.Start(ctx, "handler.xxx") convention without requiring every
// package to import and configure an SDK itself. Call sites that never
// configure a TracerProvider still work: otel.Tracer falls back to a no-op
// implementation.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Name is the instrumentation library name every confdogma span is
// recorded under.
const Name = "github.com/LerianStudio/confdogma"

// Tracer returns the process-wide tracer. Safe to call before any
// TracerProvider has been registered.
func Tracer() trace.Tracer {
	return otel.Tracer(Name)
}
