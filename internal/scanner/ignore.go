package scanner

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnorePattern is a single gitignore-style pattern compiled to a doublestar
// glob.
type IgnorePattern struct {
	pattern     string // Original pattern
	glob        string
	isNegation  bool
	isDirectory bool
}

// ParseIgnorePattern parses a gitignore-style pattern found in an ignore
// file located at base, a slash separated path relative to the scan root.
//
// A pattern without a slash matches at any depth below base. A pattern with
// a leading or inner slash is anchored at base. A trailing slash restricts
// the pattern to directories, "!" negates it.
func ParseIgnorePattern(pattern, base string) IgnorePattern {
	p := IgnorePattern{pattern: pattern}

	if strings.HasPrefix(pattern, "!") {
		p.isNegation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		p.isDirectory = true
		pattern = strings.TrimRight(pattern, "/")
	}

	anchored := strings.Contains(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	if !anchored && !strings.HasPrefix(pattern, "**") {
		pattern = "**/" + pattern
	}
	if base != "" {
		pattern = path.Join(base, pattern)
	}

	p.glob = pattern
	return p
}

// String returns the pattern as written.
func (p IgnorePattern) String() string {
	return p.pattern
}

// IsNegation returns true if this pattern is a negation pattern.
func (p IgnorePattern) IsNegation() bool {
	return p.isNegation
}

// Match reports whether the pattern matches relPath or one of its parent
// directories.
func (p IgnorePattern) Match(relPath string, isDir bool) bool {
	if p.matchExact(relPath, isDir) {
		return true
	}
	for dir := path.Dir(relPath); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if p.matchExact(dir, true) {
			return true
		}
	}
	return false
}

func (p IgnorePattern) matchExact(relPath string, isDir bool) bool {
	if p.isDirectory && !isDir {
		return false
	}
	matched, err := doublestar.Match(p.glob, relPath)
	return err == nil && matched
}

// Ignored applies patterns in order with gitignore semantics: the last
// matching pattern wins and negations re-include.
func Ignored(relPath string, isDir bool, patterns []IgnorePattern) bool {
	ignored := false
	for _, pattern := range patterns {
		if pattern.Match(relPath, isDir) {
			ignored = !pattern.IsNegation()
		}
	}
	return ignored
}
