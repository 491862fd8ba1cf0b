// Package pathutil has path safety helpers for filenames that arrive from
// outside the process (route parameters, registry entries, CLI flags).
package pathutil

import (
	"path"
	"strings"
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// SafeRelative reports whether p is a clean relative path that stays
// inside its root: non-empty, slash-separated, no leading slash, no dot
// segments, no backslashes.
func SafeRelative(p string) bool {
	if p == "" {
		return false
	}
	if strings.HasPrefix(p, "/") {
		return false
	}
	if strings.Contains(p, "\\") {
		return false
	}
	if HasDotSegments(p) {
		return false
	}
	return path.Clean(p) == p
}
