// Package scanner provides source tree walking with ignore pattern support.
// It respects .esymignore files with gitignore-style patterns and selects
// files by extension.
package scanner

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file.
type FileInfo struct {
	Path     string    // Relative path from root, slash separated
	FullPath string    // Absolute path
	Size     int64     // File size in bytes
	ModTime  time.Time // Last modification time
}

// Options configures the scanner behavior.
type Options struct {
	Extension       string   // Only files with this extension are returned; empty means all
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	DefaultExcludes []string // Directory names that are never entered
	Exclude         []string // Extra ignore patterns, gitignore syntax
	IgnoreFileName  string   // Name of the ignore file (default: .esymignore)
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Extension:      ".js",
		SkipHidden:     true,
		IgnoreFileName: ".esymignore",
		DefaultExcludes: []string{
			"node_modules",
			".git",
			".hg",
			".svn",
			".esym",
			"bower_components",
			"jspm_packages",
			".idea",
			".vscode",
		},
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan recursively scans the directory at root and returns the matching
// files sorted by path.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	patterns := make([]IgnorePattern, 0, len(s.opts.Exclude))
	for _, p := range s.opts.Exclude {
		patterns = append(patterns, ParseIgnorePattern(p, ""))
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." {
				if (s.opts.SkipHidden && isHidden(d.Name())) || s.isDefaultExcluded(d.Name()) ||
					Ignored(relPath, true, patterns) {
					return filepath.SkipDir
				}
			}
			nested, err := s.loadIgnorePatterns(path, relPath)
			if err != nil {
				return fmt.Errorf("loading ignore patterns: %w", err)
			}
			patterns = append(patterns, nested...)
			return nil
		}

		if s.opts.SkipHidden && isHidden(d.Name()) {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if s.opts.Extension != "" && !strings.HasSuffix(d.Name(), s.opts.Extension) {
			return nil
		}
		if Ignored(relPath, false, patterns) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, FileInfo{
			Path:     relPath,
			FullPath: path,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	slices.SortFunc(files, func(a, b FileInfo) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

// Matches reports whether relPath, a slash separated file path relative to
// the scan root, would be returned by Scan. Only the ignore file at the
// root is consulted.
func (s *Scanner) Matches(root, relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if s.opts.Extension != "" && !strings.HasSuffix(relPath, s.opts.Extension) {
		return false
	}

	segments := strings.Split(relPath, "/")
	for i, seg := range segments {
		if s.opts.SkipHidden && isHidden(seg) {
			return false
		}
		if i < len(segments)-1 && s.isDefaultExcluded(seg) {
			return false
		}
	}

	patterns := make([]IgnorePattern, 0, len(s.opts.Exclude))
	for _, p := range s.opts.Exclude {
		patterns = append(patterns, ParseIgnorePattern(p, ""))
	}
	rootPatterns, err := s.loadIgnorePatterns(root, ".")
	if err == nil {
		patterns = append(patterns, rootPatterns...)
	}
	return !Ignored(relPath, false, patterns)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// isDefaultExcluded checks if the name matches default exclusion patterns.
func (s *Scanner) isDefaultExcluded(name string) bool {
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// loadIgnorePatterns loads patterns from the ignore file in dir, anchored
// at relDir.
func (s *Scanner) loadIgnorePatterns(dir, relDir string) ([]IgnorePattern, error) {
	if s.opts.IgnoreFileName == "" {
		return nil, nil
	}

	file, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	base := relDir
	if base == "." {
		base = ""
	}

	var patterns []IgnorePattern
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParseIgnorePattern(line, base))
	}

	return patterns, scanner.Err()
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}
