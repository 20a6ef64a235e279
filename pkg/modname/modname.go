// Package modname derives canonical dotted module names from file paths and
// resolves import specifiers into dependency module names.
//
//	src/foo/bar/baz/quz.js   => base.foo.bar.baz.quz
//	src/foo/bar/baz/index.js => base.foo.bar.baz
//	src/foo/bar/baz/Baz.js   => base.foo.bar.Baz
package modname

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrAbsolutePath is returned when an absolute path is given where a
// relative one is expected.
var ErrAbsolutePath = errors.New("absolute path")

// Options controls how file paths map to module names.
type Options struct {
	// SourceExtension is stripped from the end of the path when present.
	SourceExtension string `json:"source_extension" yaml:"source_extension"`

	// SourceDir is the source root. Files under it lose the prefix and
	// receive ModuleBase. An empty SourceDir makes every file eligible.
	SourceDir string `json:"source_dir" yaml:"source_dir"`

	// ModuleBase is prepended to names of files under SourceDir.
	ModuleBase string `json:"module_base" yaml:"module_base"`
}

// DefaultOptions returns the naming defaults: ".js" extension, "." source root
// and no module base.
func DefaultOptions() Options {
	return Options{
		SourceExtension: ".js",
		SourceDir:       ".",
	}
}

// Generate returns the module name for filePath.
func Generate(filePath string, opts Options) (string, error) {
	if strings.HasPrefix(filePath, "/") {
		return "", fmt.Errorf("%w: file name can't start with /: %s", ErrAbsolutePath, filePath)
	}

	if !strings.HasPrefix(filePath, "./") {
		filePath = "./" + filePath
	}

	modulePath := filePath
	usePrefix := false
	if sourceDir := normalizeSourceDir(opts.SourceDir); sourceDir == "" {
		usePrefix = true
	} else if strings.HasPrefix(modulePath, sourceDir) {
		modulePath = modulePath[len(sourceDir):]
		usePrefix = true
	}

	modulePath = strings.TrimSuffix(modulePath, opts.SourceExtension)

	name := strings.ReplaceAll(strings.TrimPrefix(modulePath, "./"), "/", ".")
	name = collapse(name)

	if usePrefix && opts.ModuleBase != "" {
		name = opts.ModuleBase + "." + name
	}

	return name, nil
}

// normalizeSourceDir makes dir end with exactly one slash and start with
// "./" or "/".
func normalizeSourceDir(dir string) string {
	if dir == "" {
		return ""
	}

	dir = strings.TrimRight(dir, "/") + "/"
	if !strings.HasPrefix(dir, "./") && !strings.HasPrefix(dir, "/") {
		dir = "./" + dir
	}
	return dir
}

// collapse applies a single pass over the last two segments: a trailing
// segment equal to its capitalized parent replaces the parent, otherwise a
// trailing "index" is dropped.
func collapse(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return name
	}

	last, parent := parts[len(parts)-1], parts[len(parts)-2]
	switch {
	case last == capitalize(parent):
		parts = append(parts[:len(parts)-2], last)
	case last == "index":
		parts = parts[:len(parts)-1]
	default:
		return name
	}
	return strings.Join(parts, ".")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
