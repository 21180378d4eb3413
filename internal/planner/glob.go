package planner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// expandGlob enumerates files matching pattern, supporting "**" as a
// recursive-directory wildcard in addition to the segments
// filepath.Match already understands. path/filepath.Glob has no "**"
// support, so the walk is hand-written.
func expandGlob(pattern string) ([]string, error) {
	segments := strings.Split(filepath.ToSlash(pattern), "/")

	root := "."
	if filepath.IsAbs(pattern) {
		root = "/"
		segments = segments[1:] // leading "" from the split on an absolute path
	}
	i := 0
	for i < len(segments)-1 && !strings.ContainsAny(segments[i], "*?[") {
		root = filepath.Join(root, segments[i])
		i++
	}
	remaining := segments[i:]

	var matches []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree: skip, don't abort the whole expansion
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		relSegments := strings.Split(filepath.ToSlash(rel), "/")
		if rel == "." {
			relSegments = nil
		}
		if d.IsDir() {
			return nil
		}
		if matchSegments(remaining, relSegments) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// matchSegments matches a glob pattern split into path segments (where
// "**" matches zero or more whole segments) against a candidate path's
// segments.
func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], path) {
			return true
		}
		if len(path) == 0 {
			return false
		}
		return matchSegments(pattern, path[1:])
	}
	if len(path) == 0 {
		return false
	}
	ok, err := filepath.Match(pattern[0], path[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], path[1:])
}
