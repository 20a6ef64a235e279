package modname

import (
	"errors"
	"fmt"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnmapped is returned when a bare import specifier has no source mapping.
var ErrUnmapped = errors.New("no source mapping")

// ResolveOptions extends Options with what import resolution needs.
type ResolveOptions struct {
	Options

	// SourceMappings maps a package alias ("@api/", "lib") to a module name
	// prefix. Trailing slashes in keys are ignored. An empty value maps the
	// alias to the root namespace.
	SourceMappings map[string]string

	// WorkingDir is used to relativize absolute importer paths. Relative
	// importer paths are taken to be relative to it already.
	WorkingDir string
}

// NormalizeImport resolves the import specifier imported, found in the file
// importer, into a dependency module name.
func NormalizeImport(imported, importer string, opts ResolveOptions) (string, error) {
	if path.IsAbs(imported) {
		return "", fmt.Errorf("%w: doesn't know how to deal with absolute module: %s", ErrAbsolutePath, imported)
	}

	if !strings.HasPrefix(imported, ".") {
		return resolveMapped(imported, opts.SourceMappings)
	}

	importer = filepath.ToSlash(importer)
	if path.IsAbs(importer) {
		if opts.WorkingDir == "" {
			return "", fmt.Errorf("%w: importer %s needs a working directory", ErrAbsolutePath, importer)
		}
		rel, err := filepath.Rel(opts.WorkingDir, filepath.FromSlash(importer))
		if err != nil {
			return "", fmt.Errorf("relativizing %s: %w", importer, err)
		}
		importer = filepath.ToSlash(rel)
	}

	resolved := path.Join(path.Dir(importer), imported)
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", fmt.Errorf("%w: %s from %s resolves outside the working directory", ErrAbsolutePath, imported, importer)
	}

	return Generate(resolved, opts.Options)
}

// resolveMapped handles package-style specifiers such as "@api/foo/bar".
func resolveMapped(imported string, mappings map[string]string) (string, error) {
	pkg, rest, _ := strings.Cut(imported, "/")

	prefix, ok := lookupMapping(pkg, mappings)
	if !ok {
		return "", fmt.Errorf("%w: doesn't know how to map '%s'", ErrUnmapped, pkg)
	}

	if rest == "" {
		if prefix == "" {
			return "", fmt.Errorf("%w: '%s' maps to an empty module name", ErrUnmapped, pkg)
		}
		return prefix, nil
	}

	name, err := Generate(rest, Options{})
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return name, nil
	}
	return prefix + "." + name, nil
}

func lookupMapping(pkg string, mappings map[string]string) (string, bool) {
	if v, ok := mappings[pkg]; ok {
		return v, true
	}
	for _, k := range slices.Sorted(maps.Keys(mappings)) {
		if strings.TrimRight(k, "/") == pkg {
			return mappings[k], true
		}
	}
	return "", false
}
