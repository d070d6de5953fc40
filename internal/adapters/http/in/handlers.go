// Package in is the fiber v2 wire surface: it translates HTTP requests into
// command.Command values submitted through replog.Service, or into direct,
// read-only calls against an engine.Engine, and translates results and
// apperr.Kind back into JSON/HTTP, sitting in front of the command and
// query use cases the way a thin transport layer should.
package in

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/LerianStudio/confdogma/internal/adapters/postgres/registry"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
	"github.com/LerianStudio/confdogma/internal/services/cache"
	"github.com/LerianStudio/confdogma/internal/services/engine"
	"github.com/LerianStudio/confdogma/internal/services/executor"
	"github.com/LerianStudio/confdogma/internal/services/replog"
	"github.com/LerianStudio/confdogma/internal/services/watch"
)

// EngineSource exposes the executor's read-only engine accessor without
// pulling the whole command-dispatch surface into this package's import
// graph.
type EngineSource interface {
	EngineFor(project, repo string) (*engine.Engine, error)
}

// Handlers aggregates every dependency the route handlers need: Replog for
// writes, Registry and Engines for reads, Watch for long-polling contents,
// an optional query Cache sitting in front of GetContents, a logger, and
// the version string reported by the version endpoint.
type Handlers struct {
	Registry *registry.Store
	Replog   *replog.Service
	Engines  EngineSource
	Watch    *watch.Service
	Cache    *cache.Cache
	Logger   mlog.Logger
	Version  string
}

// NewHandlers builds a Handlers. logger nil defaults to a no-op; cache nil
// disables read-through caching and every GetContents call reaches the
// engine directly.
func NewHandlers(reg *registry.Store, rl *replog.Service, engines *executor.UseCase, w *watch.Service, c *cache.Cache, logger mlog.Logger, version string) *Handlers {
	if logger == nil {
		logger = mlog.None()
	}

	return &Handlers{Registry: reg, Replog: rl, Engines: engines, Watch: w, Cache: c, Logger: logger, Version: version}
}

// authorOf reads the caller identity off the request. Authentication
// itself is out of scope for this module (an upstream proxy or
// authProviderFactory plugin is assumed to have already verified it); this
// handler only trusts the header it's handed.
func authorOf(c *fiber.Ctx) string {
	if author := c.Get("X-Confdogma-Author"); author != "" {
		return author
	}

	return "anonymous"
}

// idempotencyKeyOf reads the client-supplied idempotency key, defaulting to
// a fresh one so a client that doesn't care about replay-dedup still gets
// the exactly-once apply semantics in (F) for free within a single submit.
func idempotencyKeyOf(c *fiber.Ctx) string {
	if key := c.Get("Idempotency-Key"); key != "" {
		return key
	}

	return uuid.NewString()
}

// revisionOf parses the "revision" query parameter, defaulting to 0 (head;
// both 0 and -1 normalize to head).
func revisionOf(c *fiber.Ctx) (int64, error) {
	raw := c.Query("revision")
	if raw == "" {
		return 0, nil
	}

	rev, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.KindInvalidRequest, "revision %q is not an integer", raw)
	}

	return rev, nil
}

// pathParam reassembles the "*"-wildcard path segment fiber captures for a
// route like /contents/*, restoring the leading slash every Change/query
// path in this module is required to carry.
func pathParam(c *fiber.Ctx) string {
	p := c.Params("*")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	return p
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}

	return parts
}

func nowMs() int64 { return command.Now() }

func parseDuration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}

	return time.Duration(ms) * time.Millisecond
}
