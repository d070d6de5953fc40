package in

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/change"
	"github.com/LerianStudio/confdogma/internal/domain/command"
	"github.com/LerianStudio/confdogma/internal/domain/commit"
	"github.com/LerianStudio/confdogma/internal/domain/entry"
	"github.com/LerianStudio/confdogma/internal/domain/query"
	"github.com/LerianStudio/confdogma/internal/pkg/fingerprint"
	"github.com/LerianStudio/confdogma/internal/services/engine"
	"github.com/LerianStudio/confdogma/internal/services/watch"
)

// ListEntries answers GET /projects/{p}/repos/{r}/list/{path}?revision=.
// The path segment is taken as the pathPattern directly (e.g. "/**" lists
// everything), the same shape the engine's own Find takes.
func (h *Handlers) ListEntries(c *fiber.Ctx) error {
	e, err := h.Engines.EngineFor(c.Params("project"), c.Params("repo"))
	if err != nil {
		return WithError(c, err)
	}

	rev, err := revisionOf(c)
	if err != nil {
		return WithError(c, err)
	}

	entries, err := e.Find(c.UserContext(), rev, pathParam(c), entry.FindOptions{})
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, entries)
}

// GetContents answers GET /projects/{p}/repos/{r}/contents/{path}
// ?revision=&jsonpath=. When the caller sends both If-None-Match (the
// revision it already has) and a Prefer: wait=<millis> header, this parks
// on the watch fan-out instead of reading immediately, resolving with 304
// on timeout/no-change or 200 with the new value and its revision in
// ETag.
func (h *Handlers) GetContents(c *fiber.Ctx) error {
	projectName, repoName := c.Params("project"), c.Params("repo")
	path := pathParam(c)

	e, err := h.Engines.EngineFor(projectName, repoName)
	if err != nil {
		return WithError(c, err)
	}

	if waitMs, lastKnown, ok := parsePreferWait(c); ok {
		return h.watchContents(c, e, projectName, repoName, path, lastKnown, waitMs)
	}

	rev, err := revisionOf(c)
	if err != nil {
		return WithError(c, err)
	}

	q := queryFor(path, c.Query("jsonpath"))

	en, err := h.getCached(c.UserContext(), e, projectName, repoName, rev, q)
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, en)
}

// getCached resolves q against rev, consulting h.Cache first when one is
// configured. The cache key is fingerprinted off the absolute revision
// (never the raw, possibly-relative rev the caller sent), so a fixed
// historical revision's entry is reused forever while a head read
// (rev<=0) still misses the moment a new commit lands.
func (h *Handlers) getCached(ctx context.Context, e *engine.Engine, project, repo string, rev int64, q query.Query) (*entry.Entry, error) {
	if h.Cache == nil {
		return e.Get(ctx, rev, q)
	}

	abs, err := e.Normalize(ctx, rev)
	if err != nil {
		return nil, err
	}

	key := fingerprint.Of(project, repo, abs, q)

	return h.Cache.Get(ctx, key, func(ctx context.Context) (*entry.Entry, error) {
		return e.Get(ctx, abs, q)
	})
}

func queryFor(path, jsonpathParam string) query.Query {
	if exprs := splitCSV(jsonpathParam); len(exprs) > 0 {
		return query.JSONPath(path, exprs...)
	}

	return query.Identity(path)
}

// parsePreferWait reports whether the request asked for watch behavior,
// and if so, the wait duration (ms) and the last-known revision taken
// from If-None-Match.
func parsePreferWait(c *fiber.Ctx) (waitMs int64, lastKnown int64, ok bool) {
	prefer := c.Get("Prefer")
	if !strings.Contains(prefer, "wait") {
		return 0, 0, false
	}

	inm := strings.Trim(c.Get("If-None-Match"), `"`)
	if inm == "" {
		return 0, 0, false
	}

	lastKnown, err := strconv.ParseInt(inm, 10, 64)
	if err != nil {
		return 0, 0, false
	}

	waitMs = int64(30000)

	for _, part := range strings.Split(prefer, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "wait=") {
			if ms, err := strconv.ParseInt(strings.TrimPrefix(part, "wait="), 10, 64); err == nil {
				waitMs = ms
			}
		}
	}

	return waitMs, lastKnown, true
}

func (h *Handlers) watchContents(c *fiber.Ctx, e *engine.Engine, projectName, repoName, path string, lastKnown, waitMs int64) error {
	req := watch.Request{
		LastKnownRevision: lastKnown,
		PathPattern:       path,
		Timeout:           time.Duration(waitMs) * time.Millisecond,
		NotifyOnMissing:   true,
		CheckMissing: func(ctx context.Context) (bool, error) {
			_, err := e.Get(ctx, 0, query.Identity(path))
			if err != nil {
				if apperr.KindOf(err) == apperr.KindNotFound {
					return true, nil
				}

				return false, err
			}

			return false, nil
		},
	}

	result, err := h.Watch.Wait(c.UserContext(), projectName, repoName, req)
	if err != nil {
		return WithError(c, err)
	}

	if result.NotModified {
		return NotModified(c)
	}

	en, err := h.getCached(c.UserContext(), e, projectName, repoName, result.Revision, queryFor(path, c.Query("jsonpath")))
	if err != nil {
		return WithError(c, err)
	}

	c.Set("ETag", strconv.FormatInt(result.Revision, 10))

	return OK(c, en)
}

// PushContents answers POST /projects/{p}/repos/{r}/contents.
type pushRequest struct {
	BaseRevision int64           `json:"base_revision"`
	Summary      string          `json:"summary"`
	Detail       string          `json:"detail"`
	Markup       commit.Markup   `json:"markup"`
	Changes      []change.Change `json:"changes"`
}

func (h *Handlers) PushContents(c *fiber.Ctx) error {
	var req pushRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, apperr.Wrap(apperr.KindInvalidRequest, err, "parse request body"))
	}

	if req.Markup == "" {
		req.Markup = commit.MarkupPlaintext
	}

	cmd := command.Command{
		Tag:            command.TagPush,
		TimestampMs:    nowMs(),
		Author:         authorOf(c),
		IdempotencyKey: idempotencyKeyOf(c),
		Project:        c.Params("project"),
		Repository:     c.Params("repo"),
		BaseRevision:   req.BaseRevision,
		Summary:        req.Summary,
		Detail:         req.Detail,
		Markup:         req.Markup,
		Changes:        req.Changes,
	}

	res, err := h.Replog.Submit(c.UserContext(), cmd)
	if err != nil {
		return WithError(c, err)
	}

	return Created(c, fiber.Map{"new_revision": res.NewRevision})
}

// PreviewDiff answers POST /projects/{p}/repos/{r}/preview?revision=. This
// is read-only and has no side effect, so it bypasses the replication log
// entirely and asks the engine directly.
type previewRequest struct {
	Changes []change.Change `json:"changes"`
}

func (h *Handlers) PreviewDiff(c *fiber.Ctx) error {
	e, err := h.Engines.EngineFor(c.Params("project"), c.Params("repo"))
	if err != nil {
		return WithError(c, err)
	}

	rev, err := revisionOf(c)
	if err != nil {
		return WithError(c, err)
	}

	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return WithError(c, apperr.Wrap(apperr.KindInvalidRequest, err, "parse request body"))
	}

	result, err := e.PreviewDiff(c.UserContext(), rev, req.Changes)
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, result)
}

// Commits answers GET /projects/{p}/repos/{r}/commits{/revision?}
// ?path=&to=&maxCommits=.
func (h *Handlers) Commits(c *fiber.Ctx) error {
	e, err := h.Engines.EngineFor(c.Params("project"), c.Params("repo"))
	if err != nil {
		return WithError(c, err)
	}

	if rawRev := c.Params("revision"); rawRev != "" {
		rev, err := strconv.ParseInt(rawRev, 10, 64)
		if err != nil {
			return WithError(c, apperr.New(apperr.KindInvalidRequest, "revision %q is not an integer", rawRev))
		}

		commits, err := e.History(c.UserContext(), rev, rev, "", 1)
		if err != nil {
			return WithError(c, err)
		}

		if len(commits) == 0 {
			return WithError(c, apperr.New(apperr.KindNotFound, "commit %d not found", rev))
		}

		return OK(c, commits[0])
	}

	to, err := revisionOf(c)
	if err != nil {
		return WithError(c, err)
	}

	max := 100
	if raw := c.Query("maxCommits"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			max = n
		}
	}

	commits, err := e.History(c.UserContext(), 1, to, c.Query("path"), max)
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, commits)
}

// Compare answers GET /projects/{p}/repos/{r}/compare
// ?from=&to=&pathPattern=|jsonpath=. jsonpath comparisons are out of scope
// for a tree-level diff (diff operates over raw paths, not evaluated
// query results), so only pathPattern is honored here; a jsonpath filter
// narrows which changed entries are worth fetching afterward via Get.
func (h *Handlers) Compare(c *fiber.Ctx) error {
	e, err := h.Engines.EngineFor(c.Params("project"), c.Params("repo"))
	if err != nil {
		return WithError(c, err)
	}

	from, err := strconv.ParseInt(c.Query("from", "0"), 10, 64)
	if err != nil {
		return WithError(c, apperr.New(apperr.KindInvalidRequest, "from %q is not an integer", c.Query("from")))
	}

	to, err := strconv.ParseInt(c.Query("to", "0"), 10, 64)
	if err != nil {
		return WithError(c, apperr.New(apperr.KindInvalidRequest, "to %q is not an integer", c.Query("to")))
	}

	pattern := c.Query("pathPattern", "/**")

	changes, err := e.Diff(c.UserContext(), from, to, pattern)
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, changes)
}

// Merge answers GET /projects/{p}/repos/{r}/merge
// ?path=&optional_path=&jsonpath=&revision=.
func (h *Handlers) Merge(c *fiber.Ctx) error {
	e, err := h.Engines.EngineFor(c.Params("project"), c.Params("repo"))
	if err != nil {
		return WithError(c, err)
	}

	rev, err := revisionOf(c)
	if err != nil {
		return WithError(c, err)
	}

	paths := c.Context().QueryArgs().PeekMulti("path")
	optionalPaths := c.Context().QueryArgs().PeekMulti("optional_path")

	merged, err := e.MergeFiles(c.UserContext(),
		rev,
		bytesToStrings(paths),
		bytesToStrings(optionalPaths),
		splitCSV(c.Query("jsonpath")),
	)
	if err != nil {
		return WithError(c, err)
	}

	return OK(c, merged)
}

func bytesToStrings(raw [][]byte) []string {
	out := make([]string, len(raw))
	for i, b := range raw {
		out[i] = string(b)
	}

	return out
}
