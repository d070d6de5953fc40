// Package entry defines Entry, the materialized file (or directory) at a
// given revision, and the glob-like path pattern matcher used by find,
// history, and watch filters.
package entry

import "strings"

// Type identifies the shape of an Entry's content.
type Type string

const (
	TypeJSON      Type = "JSON"
	TypeYAML      Type = "YAML"
	TypeText      Type = "TEXT"
	TypeDirectory Type = "DIRECTORY"
)

// Entry is the materialized file at a revision.
type Entry struct {
	Path    string
	Type    Type
	Content []byte
	// LastFileRevision is the revision this entry's content last changed
	// at. engine.Find does not fill it in, whether or not
	// FindOptions.FetchLastFileRevision is set, so it stays 0.
	LastFileRevision int64
}

// FindOptions controls what find() materializes per matched path.
type FindOptions struct {
	FetchContent          bool
	FetchLastFileRevision bool
}

// MatchPattern reports whether path matches a glob-like pattern where "**"
// matches any depth, "*" matches exactly one path segment, and any other
// segment must match literally.
func MatchPattern(pattern, path string) bool {
	pSegs := splitSegs(pattern)
	tSegs := splitSegs(path)

	return matchSegs(pSegs, tSegs)
}

func splitSegs(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}

	return strings.Split(p, "/")
}

func matchSegs(pattern, target []string) bool {
	if len(pattern) == 0 {
		return len(target) == 0
	}

	head := pattern[0]

	if head == "**" {
		if len(pattern) == 1 {
			return true
		}

		for i := 0; i <= len(target); i++ {
			if matchSegs(pattern[1:], target[i:]) {
				return true
			}
		}

		return false
	}

	if len(target) == 0 {
		return false
	}

	if head != "*" && head != target[0] {
		return false
	}

	return matchSegs(pattern[1:], target[1:])
}
