// Package objectstore implements the durable, content-addressed object
// store: blobs, trees, commits, and a single CAS'd ref per
// repository. There is no native Go git-object-format library in this
// project's dependency pack (see DESIGN.md), so the on-disk encoding here
// is our own — content-addressed by SHA-256, JSON-encoded trees/commits,
// raw bytes for blobs — rather than a real git repository.
package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
)

// Store is a content-addressed object store for one repository, rooted at
// Dir. All operations are synchronous.
type Store struct {
	Dir string

	// mu serializes ref_cas for this repository. A real multi-process
	// deployment would also need an flock on the ref file; this module
	// runs one object store per replica process, so an in-process mutex
	// is the only arbitration ref_cas needs locally — cross-replica
	// ordering is the replication log's job (internal/services/replog),
	// not this store's.
	mu sync.Mutex
}

// Open returns a Store rooted at dir, creating the directory layout if
// absent.
func Open(dir string) (*Store, error) {
	for _, sub := range []string{"objects", "refs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "create object store layout at %s", dir)
		}
	}

	return &Store{Dir: dir}, nil
}

func (s *Store) objectPath(id ID) string {
	str := string(id)
	return filepath.Join(s.Dir, "objects", str[:2], str[2:])
}

func (s *Store) refPath() string {
	return filepath.Join(s.Dir, "refs", "head")
}

func (s *Store) writeObject(id ID, data []byte) error {
	p := s.objectPath(id)
	if _, err := os.Stat(p); err == nil {
		return nil // content-addressed: identical id implies identical bytes
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, p)
}

func (s *Store) readObject(id ID) ([]byte, error) {
	b, err := os.ReadFile(s.objectPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.New(apperr.KindNotFound, "object %s not found", id)
		}

		return nil, apperr.Wrap(apperr.KindInternal, err, "read object %s", id)
	}

	return b, nil
}

// PutBlob stores raw file content and returns its content-addressed ID.
// Idempotent: re-putting identical bytes is a no-op past the identity
// check in writeObject.
func (s *Store) PutBlob(_ context.Context, data []byte) (ID, error) {
	id := hashID(tagBlob, data)
	if err := s.writeObject(id, data); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "put blob")
	}

	return id, nil
}

// ReadBlob returns the raw bytes for a blob ID.
func (s *Store) ReadBlob(_ context.Context, id ID) ([]byte, error) {
	return s.readObject(id)
}

// PutTree stores a directory snapshot and returns its ID.
func (s *Store) PutTree(_ context.Context, entries []TreeEntry) (ID, error) {
	t := newTree(entries)
	data := t.encode()
	id := hashID(tagTree, data)

	if err := s.writeObject(id, data); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "put tree")
	}

	return id, nil
}

// ReadTree returns the Tree for a tree ID.
func (s *Store) ReadTree(_ context.Context, id ID) (*Tree, error) {
	data, err := s.readObject(id)
	if err != nil {
		return nil, err
	}

	return decodeTree(data)
}

// PutCommit stores a commit object and returns its ID.
func (s *Store) PutCommit(_ context.Context, c *CommitObject) (ID, error) {
	data := c.encode()
	id := hashID(tagCommit, data)

	if err := s.writeObject(id, data); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "put commit")
	}

	return id, nil
}

// ReadCommit returns the CommitObject for a commit ID.
func (s *Store) ReadCommit(_ context.Context, id ID) (*CommitObject, error) {
	data, err := s.readObject(id)
	if err != nil {
		return nil, err
	}

	return decodeCommit(data)
}

// CASResult is the outcome of a RefCAS attempt.
type CASResult struct {
	OK      bool
	Current ID
}

// RefCAS atomically swaps the repository's head ref from expectedOld to
// newID. On mismatch it returns {OK: false, Current: <actual>} — a typed,
// non-fatal result, never an error.
func (s *Store) RefCAS(_ context.Context, expectedOld, newID ID) (CASResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readRefLocked()
	if err != nil {
		return CASResult{}, err
	}

	if current != expectedOld {
		return CASResult{OK: false, Current: current}, nil
	}

	if err := s.writeRefLocked(newID); err != nil {
		return CASResult{}, err
	}

	return CASResult{OK: true, Current: newID}, nil
}

// ReadRef returns the repository's current head commit ID ("" if none).
func (s *Store) ReadRef(_ context.Context) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readRefLocked()
}

func (s *Store) readRefLocked() (ID, error) {
	b, err := os.ReadFile(s.refPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", apperr.Wrap(apperr.KindInternal, err, "read ref")
	}

	return ID(b), nil
}

func (s *Store) writeRefLocked(id ID) error {
	tmp := s.refPath() + ".tmp"
	if err := os.WriteFile(tmp, []byte(id), 0o644); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "write ref")
	}

	f, err := os.OpenFile(tmp, os.O_RDWR, 0o644)
	if err == nil {
		_ = f.Sync()
		_ = f.Close()
	}

	return os.Rename(tmp, s.refPath())
}

// WalkHistory walks commit ancestry from start back to (but excluding)
// stop, applying pathFilter to decide which commits to keep, bounded by
// max. A nil pathFilter keeps every commit.
func (s *Store) WalkHistory(ctx context.Context, start, stop ID, pathFilter func(*CommitObject) bool, max int) ([]ID, error) {
	var out []ID

	cur := start
	for !cur.Empty() && cur != stop {
		c, err := s.ReadCommit(ctx, cur)
		if err != nil {
			return nil, err
		}

		if pathFilter == nil || pathFilter(c) {
			out = append(out, cur)
			if max > 0 && len(out) >= max {
				break
			}
		}

		cur = c.Parent
	}

	return out, nil
}

// GC removes objects unreachable from the current ref. It walks the
// reachable set (commits back to the root, their trees, their blobs) and
// deletes every object file not in it.
func (s *Store) GC(ctx context.Context) error {
	head, err := s.ReadRef(ctx)
	if err != nil {
		return err
	}

	reachable := map[ID]bool{}

	cur := head
	for !cur.Empty() {
		c, err := s.ReadCommit(ctx, cur)
		if err != nil {
			return err
		}

		reachable[cur] = true

		if err := s.markTreeReachable(ctx, c.Tree, reachable); err != nil {
			return err
		}

		cur = c.Parent
	}

	return filepath.WalkDir(filepath.Join(s.Dir, "objects"), func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, _ := filepath.Rel(filepath.Join(s.Dir, "objects"), path)
		id := ID(fmt.Sprintf("%s%s", filepath.Dir(rel), filepath.Base(rel)))

		if !reachable[id] {
			_ = os.Remove(path)
		}

		return nil
	})
}

func (s *Store) markTreeReachable(ctx context.Context, id ID, reachable map[ID]bool) error {
	if reachable[id] {
		return nil
	}

	reachable[id] = true

	t, err := s.ReadTree(ctx, id)
	if err != nil {
		return err
	}

	for _, e := range t.Entries {
		if e.Kind == KindTree {
			if err := s.markTreeReachable(ctx, e.ID, reachable); err != nil {
				return err
			}
		} else {
			reachable[e.ID] = true
		}
	}

	return nil
}
