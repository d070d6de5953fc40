// Package commit defines the Commit aggregate: one atomic batch of Changes
// that advances a Repository's head by exactly one revision.
package commit

import (
	"time"

	"github.com/LerianStudio/confdogma/internal/domain/change"
)

// Markup selects how Detail is rendered.
type Markup string

const (
	MarkupPlaintext Markup = "plaintext"
	MarkupMarkdown  Markup = "markdown"
)

// Commit is the immutable, materialized record of one accepted write.
type Commit struct {
	Revision  int64
	Author    string
	Timestamp time.Time
	Summary   string
	Detail    string
	Markup    Markup
	Changes   []change.Change
}

// TouchedPaths returns the paths this commit's changes apply to, used by
// watch fan-out to decide which parked waiters to wake.
func (c *Commit) TouchedPaths() []string {
	paths := make([]string, 0, len(c.Changes))
	for _, ch := range c.Changes {
		paths = append(paths, ch.Path)
	}

	return paths
}
