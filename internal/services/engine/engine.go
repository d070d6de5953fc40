// Package engine implements the per-repository commit/query engine:
// normalize, find, get, history, diff, preview_diff, merge_files, and the
// commit write path with its CAS-retry state machine.
package engine

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/LerianStudio/confdogma/internal/adapters/objectstore"
	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/domain/change"
	"github.com/LerianStudio/confdogma/internal/domain/commit"
	"github.com/LerianStudio/confdogma/internal/domain/entry"
	"github.com/LerianStudio/confdogma/internal/domain/query"
	"github.com/LerianStudio/confdogma/internal/pkg/jsonpatch"
	"github.com/LerianStudio/confdogma/internal/pkg/jsonpathx"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
	"github.com/LerianStudio/confdogma/internal/pkg/tracing"
	"gopkg.in/yaml.v3"
)

// maxCASRetries bounds Commit's planning->applying retry loop.
const maxCASRetries = 8

// metaAllowedPatterns is the documented set of paths a "meta" repository
// may hold: per-project credentials and mirror config, member roles, and
// the project/repository metadata documents themselves. Any other path
// is refused.
var metaAllowedPatterns = []string{
	"/credentials/**",
	"/mirrors/**",
	"/members.json",
	"/project.json",
	"/repository.json",
}

// HeadAdvanced is published to a Notifier (internal/services/watch) every
// time Commit succeeds.
type HeadAdvanced struct {
	Revision     int64
	TouchedPaths []string
}

// Notifier is the minimal surface the watch fan-out exposes to the
// engine; kept as an interface here so engine has no import-time
// dependency on internal/services/watch.
type Notifier interface {
	Publish(project, repo string, adv HeadAdvanced)
}

// Engine is the repository engine for one (project, repository) pair.
type Engine struct {
	Project  string
	Repo     string
	Store    *objectstore.Store
	Notifier Notifier
	Logger   mlog.Logger
}

// New builds an Engine over an already-open object store.
func New(project, repo string, store *objectstore.Store, notifier Notifier, logger mlog.Logger) *Engine {
	if logger == nil {
		logger = mlog.None()
	}

	return &Engine{Project: project, Repo: repo, Store: store, Notifier: notifier, Logger: logger}
}

// revisionChain walks from head back to the root, returning commit IDs
// indexed by revision number (chain[0] unused, chain[1] is the init
// commit). This is O(head) per call; callers needing repeated lookups
// should cache the result within one request.
func (e *Engine) revisionChain(ctx context.Context) ([]objectstore.ID, error) {
	head, err := e.Store.ReadRef(ctx)
	if err != nil {
		return nil, err
	}

	var ids []objectstore.ID

	cur := head
	for !cur.Empty() {
		ids = append(ids, cur)

		c, err := e.Store.ReadCommit(ctx, cur)
		if err != nil {
			return nil, err
		}

		cur = c.Parent
	}

	// ids is head..root; reverse to root..head and prepend a sentinel so
	// chain[revision] addresses directly.
	chain := make([]objectstore.ID, len(ids)+1)
	for i, id := range ids {
		chain[len(ids)-i] = id
	}

	return chain, nil
}

// Normalize maps a possibly-relative revision to an absolute one. 0 and -1
// both mean head; -2 means one before head, and so on.
func (e *Engine) Normalize(ctx context.Context, rev int64) (int64, error) {
	chain, err := e.revisionChain(ctx)
	if err != nil {
		return 0, err
	}

	head := int64(len(chain) - 1)
	if head < 1 {
		return 0, apperr.New(apperr.KindNotFound, "repository has no commits yet")
	}

	abs := rev
	if rev == 0 {
		abs = head
	} else if rev < 0 {
		abs = head + rev + 1
	}

	if abs < 1 || abs > head {
		return 0, apperr.New(apperr.KindNotFound, "revision %d not found (head=%d)", rev, head)
	}

	return abs, nil
}

func (e *Engine) commitAt(ctx context.Context, abs int64) (objectstore.ID, *objectstore.CommitObject, error) {
	chain, err := e.revisionChain(ctx)
	if err != nil {
		return "", nil, err
	}

	if abs < 1 || abs >= int64(len(chain)) {
		return "", nil, apperr.New(apperr.KindNotFound, "revision %d not found", abs)
	}

	id := chain[abs]

	c, err := e.Store.ReadCommit(ctx, id)
	if err != nil {
		return "", nil, err
	}

	return id, c, nil
}

// flattenTree walks a tree recursively, collecting every blob entry under
// its absolute path.
func (e *Engine) flattenTree(ctx context.Context, treeID objectstore.ID, prefix string) (map[string]objectstore.TreeEntry, error) {
	out := map[string]objectstore.TreeEntry{}

	t, err := e.Store.ReadTree(ctx, treeID)
	if err != nil {
		return nil, err
	}

	for _, ent := range t.Entries {
		p := prefix + "/" + ent.Name
		if ent.Kind == objectstore.KindTree {
			sub, err := e.flattenTree(ctx, ent.ID, p)
			if err != nil {
				return nil, err
			}

			for k, v := range sub {
				out[k] = v
			}
		} else {
			out[p] = ent
		}
	}

	return out, nil
}

func entryTypeFor(path string, data []byte) entry.Type {
	switch {
	case change.IsJSONPath(path):
		return entry.TypeJSON
	case change.IsYAMLPath(path):
		return entry.TypeYAML
	default:
		return entry.TypeText
	}
}

// Find resolves pathPattern against rev, returning every matching Entry
// keyed by its path. The returned map has no iteration order of its own.
func (e *Engine) Find(ctx context.Context, rev int64, pathPattern string, opts entry.FindOptions) (map[string]entry.Entry, error) {
	abs, err := e.Normalize(ctx, rev)
	if err != nil {
		return nil, err
	}

	_, c, err := e.commitAt(ctx, abs)
	if err != nil {
		return nil, err
	}

	flat, err := e.flattenTree(ctx, c.Tree, "")
	if err != nil {
		return nil, err
	}

	out := map[string]entry.Entry{}

	for p, te := range flat {
		if !entry.MatchPattern(pathPattern, p) {
			continue
		}

		en := entry.Entry{Path: p, Type: entry.TypeText}

		if opts.FetchContent || change.IsJSONPath(p) || change.IsYAMLPath(p) {
			data, err := e.Store.ReadBlob(ctx, te.ID)
			if err != nil {
				return nil, err
			}

			en.Type = entryTypeFor(p, data)

			if opts.FetchContent {
				en.Content = data
			}
		}

		out[p] = en
	}

	return out, nil
}

// Get resolves a single Query against rev.
func (e *Engine) Get(ctx context.Context, rev int64, q query.Query) (*entry.Entry, error) {
	abs, err := e.Normalize(ctx, rev)
	if err != nil {
		return nil, err
	}

	_, c, err := e.commitAt(ctx, abs)
	if err != nil {
		return nil, err
	}

	flat, err := e.flattenTree(ctx, c.Tree, "")
	if err != nil {
		return nil, err
	}

	te, ok := flat[q.Path]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "entry %s not found at revision %d", q.Path, abs)
	}

	data, err := e.Store.ReadBlob(ctx, te.ID)
	if err != nil {
		return nil, err
	}

	enType := entryTypeFor(q.Path, data)
	en := &entry.Entry{Path: q.Path, Type: enType, Content: data}

	if q.Type == query.TypeJSONPath {
		evalData := data
		if enType == entry.TypeYAML {
			if evalData, err = yamlToJSON(data); err != nil {
				return nil, apperr.Wrap(apperr.KindQueryFailure, err, "%s is not valid YAML", q.Path)
			}
		}

		result, err := jsonpathx.Evaluate(evalData, q.Expressions)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindQueryFailure, err, "jsonpath %v on %s", q.Expressions, q.Path)
		}

		en.Content = result
	}

	return en, nil
}

// History returns commits in [from, to] (both ends inclusive, so from == to
// yields a single commit), ordered descending when from > to and ascending
// otherwise, bounded by max (default 100).
func (e *Engine) History(ctx context.Context, from, to int64, pathPattern string, max int) ([]commit.Commit, error) {
	if max <= 0 {
		max = 100
	}

	absFrom, err := e.Normalize(ctx, from)
	if err != nil {
		return nil, err
	}

	absTo, err := e.Normalize(ctx, to)
	if err != nil {
		return nil, err
	}

	lo, hi, descending := absFrom, absTo, false
	if absFrom > absTo {
		lo, hi, descending = absTo, absFrom, true
	}

	var out []commit.Commit

	for r := lo; r <= hi; r++ {
		_, c, err := e.commitAt(ctx, r)
		if err != nil {
			return nil, err
		}

		if pathPattern != "" {
			touched, err := e.commitTouchedPaths(ctx, r, c)
			if err != nil {
				return nil, err
			}

			matched := false

			for _, p := range touched {
				if entry.MatchPattern(pathPattern, p) {
					matched = true
					break
				}
			}

			if !matched {
				continue
			}
		}

		out = append(out, commit.Commit{
			Revision:  r,
			Author:    c.Author,
			Timestamp: time.UnixMilli(c.TimestampMs),
			Summary:   c.Summary,
			Detail:    c.Detail,
			Markup:    c.Markup,
		})
	}

	if descending {
		sort.Slice(out, func(i, j int) bool { return out[i].Revision > out[j].Revision })
	}

	if len(out) > max {
		out = out[:max]
	}

	return out, nil
}

// commitTouchedPaths diffs r against r-1 to discover which paths a commit
// touched, used by History's path filter.
func (e *Engine) commitTouchedPaths(ctx context.Context, r int64, c *objectstore.CommitObject) ([]string, error) {
	if r == 1 {
		flat, err := e.flattenTree(ctx, c.Tree, "")
		if err != nil {
			return nil, err
		}

		paths := make([]string, 0, len(flat))
		for p := range flat {
			paths = append(paths, p)
		}

		return paths, nil
	}

	parentCommit, err := e.Store.ReadCommit(ctx, c.Parent)
	if err != nil {
		return nil, err
	}

	return e.diffTrees(ctx, parentCommit.Tree, c.Tree)
}

// diffTrees returns the set of paths whose blob ID differs between two
// trees, including paths present in only one.
func (e *Engine) diffTrees(ctx context.Context, fromTree, toTree objectstore.ID) ([]string, error) {
	from, err := e.flattenTree(ctx, fromTree, "")
	if err != nil {
		return nil, err
	}

	to, err := e.flattenTree(ctx, toTree, "")
	if err != nil {
		return nil, err
	}

	var paths []string

	for p, te := range to {
		if old, ok := from[p]; !ok || old.ID != te.ID {
			paths = append(paths, p)
		}
	}

	for p := range from {
		if _, ok := to[p]; !ok {
			paths = append(paths, p)
		}
	}

	sort.Strings(paths)

	return paths, nil
}

// Diff returns the minimal Changes that transform revision `from` into
// revision `to`, restricted to pathPattern (empty matches everything).
func (e *Engine) Diff(ctx context.Context, from, to int64, pathPattern string) ([]change.Change, error) {
	absFrom, err := e.Normalize(ctx, from)
	if err != nil {
		return nil, err
	}

	absTo, err := e.Normalize(ctx, to)
	if err != nil {
		return nil, err
	}

	_, cFrom, err := e.commitAt(ctx, absFrom)
	if err != nil {
		return nil, err
	}

	_, cTo, err := e.commitAt(ctx, absTo)
	if err != nil {
		return nil, err
	}

	fromFlat, err := e.flattenTree(ctx, cFrom.Tree, "")
	if err != nil {
		return nil, err
	}

	toFlat, err := e.flattenTree(ctx, cTo.Tree, "")
	if err != nil {
		return nil, err
	}

	return e.diffFlat(ctx, fromFlat, toFlat, pathPattern)
}

func (e *Engine) diffFlat(ctx context.Context, from, to map[string]objectstore.TreeEntry, pathPattern string) ([]change.Change, error) {
	var changes []change.Change

	for p, te := range to {
		if pathPattern != "" && !entry.MatchPattern(pathPattern, p) {
			continue
		}

		old, existed := from[p]
		if existed && old.ID == te.ID {
			continue
		}

		data, err := e.Store.ReadBlob(ctx, te.ID)
		if err != nil {
			return nil, err
		}

		typ := change.TypeUpsertText
		if change.IsJSONPath(p) {
			typ = change.TypeUpsertJSON
		}

		changes = append(changes, change.Change{Type: typ, Path: p, Content: data})
	}

	for p := range from {
		if pathPattern != "" && !entry.MatchPattern(pathPattern, p) {
			continue
		}

		if _, stillThere := to[p]; !stillThere {
			changes = append(changes, change.Change{Type: change.TypeRemove, Path: p})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })

	return changes, nil
}

// PreviewDiff resolves changes against base's tree without committing,
// returning the canonical delta that would result. Callers rely on this
// being equal to Diff(parent, T) for a tree T actually committed from the
// same changes.
func (e *Engine) PreviewDiff(ctx context.Context, base int64, changes []change.Change) (map[string]change.Change, error) {
	abs, err := e.Normalize(ctx, base)
	if err != nil {
		return nil, err
	}

	_, c, err := e.commitAt(ctx, abs)
	if err != nil {
		return nil, err
	}

	baseFlat, err := e.flattenTree(ctx, c.Tree, "")
	if err != nil {
		return nil, err
	}

	resultFlat, err := e.applyChanges(ctx, baseFlat, changes)
	if err != nil {
		return nil, err
	}

	delta, err := e.diffFlat(ctx, baseFlat, resultFlat, "")
	if err != nil {
		return nil, err
	}

	out := make(map[string]change.Change, len(delta))
	for _, d := range delta {
		out[d.Path] = d
	}

	return out, nil
}

// applyChanges applies each change in declared order to a mutable copy of
// tree, returning the resulting flat tree. Later changes see the effect
// of earlier ones.
func (e *Engine) applyChanges(ctx context.Context, tree map[string]objectstore.TreeEntry, changes []change.Change) (map[string]objectstore.TreeEntry, error) {
	working := make(map[string]objectstore.TreeEntry, len(tree))
	for k, v := range tree {
		working[k] = v
	}

	seen := map[string]int{}

	for _, ch := range changes {
		if err := change.Validate(ch.Path); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidRequest, err, "invalid change path")
		}

		switch ch.Type {
		case change.TypeUpsertJSON, change.TypeUpsertText:
			id, err := e.Store.PutBlob(ctx, ch.Content)
			if err != nil {
				return nil, err
			}

			working[ch.Path] = objectstore.TreeEntry{Name: ch.Path, Kind: objectstore.KindBlob, ID: id}
			seen[ch.Path]++

		case change.TypeRemove:
			if _, ok := working[ch.Path]; !ok {
				return nil, apperr.New(apperr.KindChangeConflict, "remove of missing path %s", ch.Path)
			}

			delete(working, ch.Path)
			seen[ch.Path]++

		case change.TypeRename:
			src := ch.Path
			dst := string(ch.Content)

			te, ok := working[src]
			if !ok {
				return nil, apperr.New(apperr.KindChangeConflict, "rename of missing path %s", src)
			}

			if _, exists := working[dst]; exists {
				return nil, apperr.New(apperr.KindChangeConflict, "rename target %s already exists", dst)
			}

			delete(working, src)
			working[dst] = objectstore.TreeEntry{Name: dst, Kind: objectstore.KindBlob, ID: te.ID}
			seen[dst]++

		case change.TypeApplyJSONPatch:
			te, ok := working[ch.Path]
			if !ok {
				return nil, apperr.New(apperr.KindChangeConflict, "json-patch target %s does not exist", ch.Path)
			}

			cur, err := e.Store.ReadBlob(ctx, te.ID)
			if err != nil {
				return nil, err
			}

			next, err := jsonpatch.Apply(cur, ch.Content)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindChangeConflict, err, "apply json patch to %s", ch.Path)
			}

			id, err := e.Store.PutBlob(ctx, next)
			if err != nil {
				return nil, err
			}

			working[ch.Path] = objectstore.TreeEntry{Name: ch.Path, Kind: objectstore.KindBlob, ID: id}
			seen[ch.Path]++

		case change.TypeApplyTextPatch:
			te, ok := working[ch.Path]
			if !ok {
				return nil, apperr.New(apperr.KindChangeConflict, "text-patch target %s does not exist", ch.Path)
			}

			cur, err := e.Store.ReadBlob(ctx, te.ID)
			if err != nil {
				return nil, err
			}

			next, err := jsonpatch.ApplyTextPatch(cur, ch.Content)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindChangeConflict, err, "apply text patch to %s", ch.Path)
			}

			id, err := e.Store.PutBlob(ctx, next)
			if err != nil {
				return nil, err
			}

			working[ch.Path] = objectstore.TreeEntry{Name: ch.Path, Kind: objectstore.KindBlob, ID: id}
			seen[ch.Path]++

		default:
			return nil, apperr.New(apperr.KindInvalidRequest, "unknown change type %s", ch.Type)
		}
	}

	return working, nil
}

func buildTreeFromFlat(ctx context.Context, store *objectstore.Store, flat map[string]objectstore.TreeEntry) (objectstore.ID, error) {
	type node struct {
		children map[string]*node
		leaf     *objectstore.TreeEntry
	}

	root := &node{children: map[string]*node{}}

	for p, te := range flat {
		segs := splitPath(p)
		cur := root

		for i, seg := range segs {
			if i == len(segs)-1 {
				leaf := te
				cur.children[seg] = &node{leaf: &leaf}
				continue
			}

			child, ok := cur.children[seg]
			if !ok {
				child = &node{children: map[string]*node{}}
				cur.children[seg] = child
			}

			cur = child
		}
	}

	var build func(n *node) (objectstore.ID, error)

	build = func(n *node) (objectstore.ID, error) {
		var entries []objectstore.TreeEntry

		for name, child := range n.children {
			if child.leaf != nil {
				entries = append(entries, objectstore.TreeEntry{Name: name, Kind: objectstore.KindBlob, ID: child.leaf.ID})
				continue
			}

			id, err := build(child)
			if err != nil {
				return "", err
			}

			entries = append(entries, objectstore.TreeEntry{Name: name, Kind: objectstore.KindTree, ID: id})
		}

		return store.PutTree(ctx, entries)
	}

	return build(root)
}

func splitPath(p string) []string {
	var segs []string

	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			if i > start {
				segs = append(segs, p[start:i])
			}

			start = i + 1
		}
	}

	if start < len(p) {
		segs = append(segs, p[start:])
	}

	return segs
}

// InitRepository creates the revision-1 init commit: an empty tree with no
// parent. Every repository has exactly one of these, created atomically
// with the repository itself — it bypasses the
// "at least one change"/redundant-change rules that govern ordinary
// commits, since an empty repository has no prior tree to be redundant
// against.
func (e *Engine) InitRepository(ctx context.Context, author string, ts time.Time) error {
	head, err := e.Store.ReadRef(ctx)
	if err != nil {
		return err
	}

	if !head.Empty() {
		return apperr.New(apperr.KindAlreadyExists, "repository already initialized")
	}

	emptyTree, err := e.Store.PutTree(ctx, nil)
	if err != nil {
		return err
	}

	co := &objectstore.CommitObject{
		Tree:        emptyTree,
		Author:      author,
		TimestampMs: ts.UnixMilli(),
		Summary:     "init",
		Markup:      commit.MarkupPlaintext,
	}

	id, err := e.Store.PutCommit(ctx, co)
	if err != nil {
		return err
	}

	cas, err := e.Store.RefCAS(ctx, "", id)
	if err != nil {
		return err
	}

	if !cas.OK {
		return apperr.New(apperr.KindAlreadyExists, "repository already initialized")
	}

	return nil
}

// checkMetaPathAllowlist refuses any change whose resulting path falls
// outside metaAllowedPatterns, for a "meta" repository only. Every other
// repository is unrestricted.
func (e *Engine) checkMetaPathAllowlist(changes []change.Change) error {
	if e.Repo != "meta" {
		return nil
	}

	for _, ch := range changes {
		if !metaPathAllowed(ch.Path) {
			return apperr.New(apperr.KindInvalidRequest, "path %s is not a documented meta repository path", ch.Path)
		}

		if ch.Type == change.TypeRename && !metaPathAllowed(string(ch.Content)) {
			return apperr.New(apperr.KindInvalidRequest, "path %s is not a documented meta repository path", ch.Content)
		}
	}

	return nil
}

func metaPathAllowed(path string) bool {
	for _, pattern := range metaAllowedPatterns {
		if entry.MatchPattern(pattern, path) {
			return true
		}
	}

	return false
}

// Commit is the write path: normalize base, materialize the
// base tree, apply each change, reject redundant/empty results, then CAS
// the new commit into place, restarting from planning on CAS mismatch up
// to maxCASRetries times. The repository must already carry its init
// commit (see InitRepository), so normalize never fails for lack of a head;
// a base revision outside 1..head is still a not-found error.
// idempotencyKey, if non-empty and equal to the current head commit's, short
// circuits to returning the existing head unchanged — the mechanism that
// makes a replayed log entry a no-op instead of failing on a now-stale base.
// ts is clamped up to the parent commit's timestamp if it would otherwise
// run backwards (clock skew between replicas forwarding concurrent pushes
// to one leader must never violate commit-timestamp monotonicity); Commit
// returns the timestamp actually stored, which callers should use in place
// of their own ts when it matters (e.g. an audit record).
func (e *Engine) Commit(ctx context.Context, baseRev int64, author string, ts time.Time, summary, detail string, markup commit.Markup, changes []change.Change, idempotencyKey string) (int64, int64, error) {
	ctx, span := tracing.Tracer().Start(ctx, "engine.commit")
	defer span.End()

	if len(changes) == 0 {
		return 0, 0, apperr.New(apperr.KindInvalidRequest, "commit must contain at least one change")
	}

	seenPaths := map[string]bool{}
	for _, ch := range changes {
		key := ch.Path
		if ch.Type == change.TypeRename {
			key = string(ch.Content)
		}

		if seenPaths[key] {
			return 0, 0, apperr.New(apperr.KindInvalidRequest, "duplicate resulting path %s within commit", key)
		}

		seenPaths[key] = true
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		headID, curHead, err := e.currentHeadRevision(ctx)
		if err != nil {
			return 0, 0, err
		}

		headCommit, err := e.Store.ReadCommit(ctx, headID)
		if err != nil {
			return 0, 0, err
		}

		if idempotencyKey != "" && headCommit.IdempotencyKey == idempotencyKey {
			return curHead, headCommit.TimestampMs, nil
		}

		abs, err := e.Normalize(ctx, baseRev)
		if err != nil {
			return 0, 0, err
		}

		if abs < curHead {
			return 0, 0, apperr.New(apperr.KindChangeConflict, "base revision %d is stale (head=%d)", abs, curHead)
		}

		if err := e.checkMetaPathAllowlist(changes); err != nil {
			return 0, 0, err
		}

		baseFlat, err := e.flattenTree(ctx, headCommit.Tree, "")
		if err != nil {
			return 0, 0, err
		}

		resultFlat, err := e.applyChanges(ctx, baseFlat, changes)
		if err != nil {
			return 0, 0, err
		}

		newTreeID, err := buildTreeFromFlat(ctx, e.Store, resultFlat)
		if err != nil {
			return 0, 0, err
		}

		if newTreeID == headCommit.Tree {
			return 0, 0, apperr.New(apperr.KindRedundantChange, "commit produces a tree identical to the base")
		}

		tsMs := ts.UnixMilli()
		if tsMs < headCommit.TimestampMs {
			// Clamp rather than reject: clock skew between replicas
			// forwarding concurrent pushes to one leader must never be
			// able to produce a commit timestamped before its parent.
			tsMs = headCommit.TimestampMs
		}

		co := &objectstore.CommitObject{
			Parent:         headID,
			Tree:           newTreeID,
			Author:         author,
			TimestampMs:    tsMs,
			Summary:        summary,
			Detail:         detail,
			Markup:         markup,
			IdempotencyKey: idempotencyKey,
		}

		newCommitID, err := e.Store.PutCommit(ctx, co)
		if err != nil {
			return 0, 0, err
		}

		cas, err := e.Store.RefCAS(ctx, headID, newCommitID)
		if err != nil {
			return 0, 0, err
		}

		if !cas.OK {
			continue // restart from planning
		}

		newRev := curHead + 1

		if e.Notifier != nil {
			e.Notifier.Publish(e.Project, e.Repo, HeadAdvanced{Revision: newRev, TouchedPaths: touchedPaths(changes)})
		}

		return newRev, tsMs, nil
	}

	return 0, 0, apperr.New(apperr.KindChangeConflict, "exceeded %d CAS retries", maxCASRetries)
}

func touchedPaths(changes []change.Change) []string {
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		paths = append(paths, c.Path)
	}

	return paths
}

// currentHeadRevision returns the head commit ID and its revision number.
func (e *Engine) currentHeadRevision(ctx context.Context) (objectstore.ID, int64, error) {
	chain, err := e.revisionChain(ctx)
	if err != nil {
		return "", 0, err
	}

	head := int64(len(chain) - 1)
	if head < 1 {
		return "", 0, nil
	}

	return chain[head], head, nil
}

// jsonNodeType names a JSON value's node type for merge conflict
// reporting: JSON node types, not file types — see MergeFiles.
type jsonNodeType string

const (
	nodeObject jsonNodeType = "OBJECT"
	nodeArray  jsonNodeType = "ARRAY"
	nodeString jsonNodeType = "STRING"
	nodeNumber jsonNodeType = "NUMBER"
	nodeBool   jsonNodeType = "BOOLEAN"
	nodeNull   jsonNodeType = "NULL"
)

func nodeTypeOf(v any) jsonNodeType {
	switch v.(type) {
	case map[string]any:
		return nodeObject
	case []any:
		return nodeArray
	case string:
		return nodeString
	case float64, int, int64:
		return nodeNumber
	case bool:
		return nodeBool
	default:
		return nodeNull
	}
}

// MergedEntry is the result of MergeFiles: one JSON document produced by
// deep-merging a sequence of JSON files (and, optionally, further
// narrowing the result by JSON-path expressions).
type MergedEntry struct {
	Content []byte
}

// MergeFiles deep-merges the JSON files at paths (later overrides earlier
// on matching keys; arrays are replaced, not concatenated) and optionally
// evaluates jsonpaths against the merged document. optionalPaths that are
// missing at rev are silently skipped; paths are required and missing
// ones are a not-found error.
func (e *Engine) MergeFiles(ctx context.Context, rev int64, paths, optionalPaths []string, jsonpaths []string) (*MergedEntry, error) {
	merged := map[string]any{}

	load := func(p string, required bool) error {
		en, err := e.Get(ctx, rev, query.Identity(p))
		if err != nil {
			if !required && apperr.KindOf(err) == apperr.KindNotFound {
				return nil
			}

			return err
		}

		content := en.Content
		if en.Type == entry.TypeYAML {
			converted, err := yamlToJSON(en.Content)
			if err != nil {
				return apperr.Wrap(apperr.KindQueryFailure, err, "%s is not valid YAML", p)
			}

			content = converted
		}

		var doc map[string]any
		if err := jsonUnmarshal(content, &doc); err != nil {
			return apperr.Wrap(apperr.KindQueryFailure, err, "%s is not a JSON object", p)
		}

		return mergeInto(merged, doc, "")
	}

	for _, p := range paths {
		if err := load(p, true); err != nil {
			return nil, err
		}
	}

	for _, p := range optionalPaths {
		if err := load(p, false); err != nil {
			return nil, err
		}
	}

	content, err := jsonMarshal(merged)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "marshal merged document")
	}

	if len(jsonpaths) > 0 {
		content, err = jsonpathx.Evaluate(content, jsonpaths)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindQueryFailure, err, "jsonpath %v on merged document", jsonpaths)
		}
	}

	return &MergedEntry{Content: content}, nil
}

// mergeInto deep-merges src into dst in place, tracking pointer for error
// messages. A type clash between existing dst[k] and incoming src[k]
// (e.g. a string overriding an object) is a KindQueryFailure error whose
// "merge conflict" message names the JSON Pointer and both node types.
func mergeInto(dst, src map[string]any, pointer string) error {
	for k, v := range src {
		p := pointer + "/" + k

		existing, ok := dst[k]
		if !ok {
			dst[k] = v
			continue
		}

		existingObj, existingIsObj := existing.(map[string]any)
		incomingObj, incomingIsObj := v.(map[string]any)

		if existingIsObj && incomingIsObj {
			if err := mergeInto(existingObj, incomingObj, p); err != nil {
				return err
			}

			continue
		}

		if nodeTypeOf(existing) != nodeTypeOf(v) {
			return apperr.New(apperr.KindQueryFailure,
				"merge conflict at %s: expected %s, got %s", p, nodeTypeOf(existing), nodeTypeOf(v))
		}

		// Arrays are replaced wholesale, not concatenated.
		dst[k] = v
	}

	return nil
}

// yamlToJSON converts a YAML document to JSON at read time. Get (for
// jsonpath queries) and MergeFiles call it on .yml/.yaml entries so YAML
// and JSON documents are treated alike; stored blobs are left as written.
func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	return jsonMarshal(v)
}

func jsonMarshal(v any) ([]byte, error)   { return json.Marshal(v) }
func jsonUnmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
