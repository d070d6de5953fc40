// Package change defines the Change tagged union: one typed instruction
// against a single path within a commit.
package change

import (
	"path"
	"strings"
)

// Type identifies the kind of mutation a Change applies to its Path.
type Type string

const (
	TypeUpsertJSON      Type = "UPSERT_JSON"
	TypeUpsertText      Type = "UPSERT_TEXT"
	TypeRemove          Type = "REMOVE"
	TypeRename          Type = "RENAME"
	TypeApplyJSONPatch  Type = "APPLY_JSON_PATCH"
	TypeApplyTextPatch  Type = "APPLY_TEXT_PATCH"
)

// Change is one typed mutation within a commit.
//
// Content holds the payload for UPSERT_* and APPLY_*_PATCH; for RENAME it
// holds the destination path (re-using Content keeps the union flat rather
// than nesting a oneof per variant).
type Change struct {
	Type    Type
	Path    string
	Content []byte
}

// Validate checks the path-format rules: absolute, POSIX-style, no "." or
// ".." segments, no empty segments. It does not check the file extension
// against the change type; IsJSONPath and IsYAMLPath only classify a path.
func Validate(path_ string) error {
	if !strings.HasPrefix(path_, "/") {
		return errInvalidPath(path_, "must be absolute")
	}

	segs := strings.Split(path_, "/")[1:]
	if len(segs) == 0 {
		return errInvalidPath(path_, "must name a file")
	}

	for _, s := range segs {
		if s == "" {
			return errInvalidPath(path_, "contains an empty segment")
		}

		if s == ".." || s == "." {
			return errInvalidPath(path_, "contains a relative segment")
		}
	}

	return nil
}

// IsJSONPath reports whether path names a ".json" file.
func IsJSONPath(p string) bool {
	return strings.EqualFold(path.Ext(p), ".json")
}

// IsYAMLPath reports whether path names a ".yml"/".yaml" file.
func IsYAMLPath(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == ".yml" || ext == ".yaml"
}

type pathError struct {
	path   string
	reason string
}

func (e *pathError) Error() string { return "invalid path " + e.path + ": " + e.reason }

func errInvalidPath(path, reason string) error {
	return &pathError{path: path, reason: reason}
}
