// Package lastapplied persists one replica's last-applied replication log
// index to a single file under dataDir. It follows the same
// write-to-temp-then-rename pattern objectstore uses for its ref file, so a
// crash mid-write never leaves a torn value behind.
package lastapplied

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
)

// Tracker is a durable int64 cursor, one per replica process.
type Tracker struct {
	path string

	mu  sync.Mutex
	val int64
}

// Open loads (or initializes, to -1, meaning "nothing applied yet") the
// tracker file at filepath.Join(dataDir, "last_applied").
func Open(dataDir string) (*Tracker, error) {
	t := &Tracker{path: filepath.Join(dataDir, "last_applied"), val: -1}

	b, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}

		return nil, apperr.Wrap(apperr.KindInternal, err, "read last-applied index")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "parse last-applied index")
	}

	t.val = n

	return t, nil
}

// Get returns the last durably-recorded index, -1 if none yet.
func (t *Tracker) Get(_ context.Context) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.val, nil
}

// Set durably records index as the new last-applied cursor.
func (t *Tracker) Set(_ context.Context, index int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(index, 10)), 0o644); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "write last-applied index")
	}

	if err := os.Rename(tmp, t.path); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "commit last-applied index")
	}

	t.val = index

	return nil
}
