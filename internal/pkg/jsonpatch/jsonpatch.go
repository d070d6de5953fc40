// Package jsonpatch wraps evanphx/json-patch for RFC 6902 JSON Patch
// application, and implements unified-diff text patch application for
// plain-text entries. There is no unified-diff-apply library in this
// project's dependency pack (see DESIGN.md), so ApplyTextPatch is our own.
package jsonpatch

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	jp "github.com/evanphx/json-patch"
)

// Apply applies an RFC 6902 JSON Patch document (patch) to cur, returning
// the resulting JSON.
func Apply(cur, patch []byte) ([]byte, error) {
	decoded, err := jp.DecodePatch(patch)
	if err != nil {
		return nil, fmt.Errorf("decode json patch: %w", err)
	}

	out, err := decoded.Apply(cur)
	if err != nil {
		return nil, fmt.Errorf("apply json patch: %w", err)
	}

	return out, nil
}

// ApplyTextPatch applies a unified-diff patch (as produced by `diff -u` or
// `git diff`, a single file with one or more hunks) to cur and returns the
// patched text. Only the @@ -l,s +l,s @@ hunk header and context/add/remove
// line prefixes are interpreted; file-header lines (---/+++) are ignored.
func ApplyTextPatch(cur, patch []byte) ([]byte, error) {
	hunks, err := parseHunks(patch)
	if err != nil {
		return nil, err
	}

	srcLines := splitLines(cur)
	var out []string
	srcIdx := 0 // 0-based cursor into srcLines

	for _, h := range hunks {
		// Copy untouched lines up to the hunk's start.
		start := h.oldStart - 1
		if start < srcIdx || start > len(srcLines) {
			return nil, fmt.Errorf("text patch: hunk at line %d out of order or out of range", h.oldStart)
		}

		out = append(out, srcLines[srcIdx:start]...)
		srcIdx = start

		for _, line := range h.lines {
			switch line[0] {
			case ' ':
				if srcIdx >= len(srcLines) || srcLines[srcIdx] != line[1:] {
					return nil, fmt.Errorf("text patch: context mismatch at source line %d", srcIdx+1)
				}

				out = append(out, line[1:])
				srcIdx++
			case '-':
				if srcIdx >= len(srcLines) || srcLines[srcIdx] != line[1:] {
					return nil, fmt.Errorf("text patch: remove mismatch at source line %d", srcIdx+1)
				}

				srcIdx++
			case '+':
				out = append(out, line[1:])
			default:
				return nil, fmt.Errorf("text patch: unrecognized hunk line %q", line)
			}
		}
	}

	out = append(out, srcLines[srcIdx:]...)

	return []byte(strings.Join(out, "\n")), nil
}

type hunk struct {
	oldStart int
	lines    []string
}

func parseHunks(patch []byte) ([]hunk, error) {
	var hunks []hunk
	var cur *hunk

	for _, line := range splitLines(patch) {
		switch {
		case strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ "):
			continue
		case strings.HasPrefix(line, "@@"):
			oldStart, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}

			if cur != nil {
				hunks = append(hunks, *cur)
			}

			cur = &hunk{oldStart: oldStart}
		case cur != nil:
			cur.lines = append(cur.lines, line)
		}
	}

	if cur != nil {
		hunks = append(hunks, *cur)
	}

	return hunks, nil
}

// parseHunkHeader extracts the old-file start line from "@@ -l,s +l,s @@".
func parseHunkHeader(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(fields[1], "-") {
		return 0, fmt.Errorf("text patch: malformed hunk header %q", line)
	}

	oldSpec := strings.TrimPrefix(fields[1], "-")
	startStr, _, _ := strings.Cut(oldSpec, ",")

	n, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, fmt.Errorf("text patch: malformed hunk header %q: %w", line, err)
	}

	return n, nil
}

func splitLines(b []byte) []string {
	b = bytes.TrimSuffix(b, []byte("\n"))
	if len(b) == 0 {
		return nil
	}

	return strings.Split(string(b), "\n")
}
