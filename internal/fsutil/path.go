package fsutil

import (
	"path/filepath"
	"strings"
)

// NormalizeSlash rewrites a path to forward slashes regardless of platform.
func NormalizeSlash(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "\\", "/")
}

// RelativeTo returns path relative to root with forward slashes. The second
// return is false when path does not live under root.
func RelativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", false
	}
	rel = NormalizeSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
