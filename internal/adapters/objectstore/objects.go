package objectstore

import (
	"encoding/json"
	"sort"

	"github.com/LerianStudio/confdogma/internal/domain/commit"
)

// TreeEntryKind distinguishes a Tree's children.
type TreeEntryKind string

const (
	KindBlob TreeEntryKind = "blob"
	KindTree TreeEntryKind = "tree"
)

// TreeEntry is one named child of a Tree.
type TreeEntry struct {
	Name string        `json:"name"`
	Kind TreeEntryKind `json:"kind"`
	ID   ID            `json:"id"`
}

// Tree is a directory snapshot: an ordered, deduplicated set of named
// children. Entries are always stored sorted by Name so two trees with the
// same members canonically encode to the same bytes, and therefore the
// same ID — this is what lets Commit step 4 detect a redundant change by
// comparing tree IDs rather than walking content.
type Tree struct {
	Entries []TreeEntry `json:"entries"`
}

func newTree(entries []TreeEntry) *Tree {
	sorted := append([]TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	return &Tree{Entries: sorted}
}

func (t *Tree) encode() []byte {
	// json.Marshal of a slice preserves order, so a pre-sorted Entries
	// slice gives a canonical, hash-stable encoding.
	b, err := json.Marshal(t)
	if err != nil {
		panic("objectstore: tree is never non-marshalable: " + err.Error())
	}

	return b
}

func decodeTree(data []byte) (*Tree, error) {
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

// Lookup returns the child entry named name, if any.
func (t *Tree) Lookup(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}

	return TreeEntry{}, false
}

// CommitObject is the durable, content-addressed record of one Commit:
// its root Tree and parent pointer plus the metadata from commit.Commit.
type CommitObject struct {
	Parent      ID            `json:"parent,omitempty"`
	Tree        ID            `json:"tree"`
	Author      string        `json:"author"`
	TimestampMs int64         `json:"timestamp_ms"`
	Summary     string        `json:"summary"`
	Detail      string        `json:"detail"`
	Markup      commit.Markup `json:"markup"`
	// IdempotencyKey, when non-empty, is the key from the Command that
	// produced this commit. engine.Commit compares it against the head
	// commit before applying a replayed push so a retried log entry
	// (crash between commit and the replay cursor advancing) resolves to
	// the existing head instead of re-applying against a now-stale base.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (c *CommitObject) encode() []byte {
	b, err := json.Marshal(c)
	if err != nil {
		panic("objectstore: commit is never non-marshalable: " + err.Error())
	}

	return b
}

func decodeCommit(data []byte) (*CommitObject, error) {
	var c CommitObject
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	return &c, nil
}
