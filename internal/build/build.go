// Package build runs the module transform over a source tree: files are
// scanned, transformed by a pool of workers and written under the output
// directory, reusing cached results for unchanged inputs.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/l3aro/go-esym/internal/config"
	"github.com/l3aro/go-esym/internal/diff"
	"github.com/l3aro/go-esym/internal/log"
	"github.com/l3aro/go-esym/internal/scanner"
	"github.com/l3aro/go-esym/pkg/cache"
	"github.com/l3aro/go-esym/pkg/syntax"
	"github.com/l3aro/go-esym/pkg/transform"
	"github.com/l3aro/go-esym/pkg/types"
)

// Options configures a Builder.
type Options struct {
	// Root is the project directory. Module names are derived from file
	// paths relative to it.
	Root   string
	Config *config.Config
	Logger log.Logger

	// Cache, if set, is consulted before transforming and filled after.
	Cache *cache.Cache

	// Check computes diffs instead of writing outputs.
	Check bool
}

// FileResult is the outcome for one source file.
type FileResult struct {
	// Path is relative to the source directory, slash separated.
	Path     string
	OutPath  string
	Metadata *types.Metadata
	Cached   bool
	// Changed reports that the output differs from what is on disk.
	Changed bool
	Removed bool
	Diff    string
	Err     error
}

// Report summarizes a build.
type Report struct {
	Files []FileResult
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Changed returns the number of outputs written or found stale.
func (r *Report) Changed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil && f.Changed {
			n++
		}
	}
	return n
}

// Cached returns the number of results served from the cache.
func (r *Report) Cached() int {
	n := 0
	for _, f := range r.Files {
		if f.Cached {
			n++
		}
	}
	return n
}

// Err joins every per-file error.
func (r *Report) Err() error {
	var errs []error
	for _, f := range r.Failed() {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// Builder transforms a project. A Builder may run several builds, but not
// concurrently.
type Builder struct {
	opts        Options
	srcDir      string
	outDir      string
	transformer *transform.Transformer
	scanner     *scanner.Scanner
	fingerprint string
}

// fingerprintFields lists every option that changes generated code.
type fingerprintFields struct {
	SourceDir       string
	SourceExtension string
	ModuleBase      string
	SourceMappings  map[string]string
	YmModuleName    string
	YmGlobal        string
	ImplicitImports []string
}

// New creates a Builder.
func New(opts Options) (*Builder, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop{}
	}
	if opts.Root == "" {
		opts.Root = "."
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}
	opts.Root = root
	cfg := opts.Config

	b := &Builder{
		opts:        opts,
		srcDir:      filepath.Join(root, cfg.SourceDir),
		outDir:      filepath.Join(root, cfg.OutDir),
		transformer: transform.New(cfg.TransformOptions(root)),
	}

	scanOpts := scanner.DefaultOptions()
	scanOpts.Extension = cfg.SourceExtension
	scanOpts.Exclude = append(scanOpts.Exclude, cfg.Exclude...)
	if rel, err := filepath.Rel(b.srcDir, b.outDir); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		scanOpts.Exclude = append(scanOpts.Exclude, "/"+filepath.ToSlash(rel)+"/")
	}
	b.scanner = scanner.New(scanOpts)

	b.fingerprint, err = cache.Fingerprint(fingerprintFields{
		SourceDir:       cfg.SourceDir,
		SourceExtension: cfg.SourceExtension,
		ModuleBase:      cfg.ModuleBase,
		SourceMappings:  cfg.SourceMappings,
		YmModuleName:    cfg.YmModuleName,
		YmGlobal:        cfg.YmGlobal,
		ImplicitImports: cfg.ImplicitImports,
	})
	if err != nil {
		return nil, err
	}

	return b, nil
}

// SourceDir returns the absolute source directory.
func (b *Builder) SourceDir() string { return b.srcDir }

// OutDir returns the absolute output directory.
func (b *Builder) OutDir() string { return b.outDir }

// Matches reports whether rel, relative to the source directory, is a
// file the build would pick up.
func (b *Builder) Matches(rel string) bool {
	return b.scanner.Matches(b.srcDir, rel)
}

// Build scans the source directory and processes every file found.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	files, err := b.scanner.Scan(b.srcDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", b.srcDir, err)
	}

	rels := make([]string, 0, len(files))
	for _, f := range files {
		rels = append(rels, f.Path)
	}
	b.opts.Logger.Debug("scanned source directory", "dir", b.srcDir, "files", len(rels))

	return b.BuildFiles(ctx, rels)
}

// BuildFiles processes the given files, relative to the source directory.
// A file that no longer exists has its output removed.
func (b *Builder) BuildFiles(ctx context.Context, rels []string) (*Report, error) {
	results := make([]FileResult, len(rels))
	jobs := make(chan int)

	workers := max(1, min(b.opts.Config.Workers, len(rels)))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parser := syntax.NewParser()
			for i := range jobs {
				results[i] = b.buildFile(parser, rels[i])
			}
		}()
	}

	var err error
feed:
	for i := range rels {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return &Report{Files: results}, nil
}

func (b *Builder) buildFile(parser *syntax.Parser, rel string) FileResult {
	logger := b.opts.Logger
	res := FileResult{
		Path:    rel,
		OutPath: filepath.Join(b.outDir, filepath.FromSlash(rel)),
	}

	content, err := os.ReadFile(filepath.Join(b.srcDir, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return b.removeOutput(res)
		}
		res.Err = fmt.Errorf("reading %s: %w", rel, err)
		return res
	}

	// Module names are derived from the path relative to the project root.
	modulePath := filepath.ToSlash(filepath.Join(b.opts.Config.SourceDir, filepath.FromSlash(rel)))

	var code string
	key := cache.Key(modulePath, content, b.fingerprint)
	if entry, ok := b.cacheGet(key); ok {
		code, res.Metadata, res.Cached = entry.Code, entry.Metadata, true
	} else {
		out, err := b.transformer.TransformSourceWith(parser, modulePath, content)
		if err != nil {
			res.Err = err
			logger.Debug("transform failed", "file", rel, "error", err)
			return res
		}
		code, res.Metadata = out.Code, out.Metadata
		if b.opts.Cache != nil {
			b.opts.Cache.Put(cache.Entry{Key: key, Path: modulePath, Code: code, Metadata: out.Metadata})
		}
	}

	current, err := os.ReadFile(res.OutPath)
	exists := err == nil
	if err != nil && !os.IsNotExist(err) {
		res.Err = fmt.Errorf("reading %s: %w", res.OutPath, err)
		return res
	}
	if exists && bytes.Equal(current, []byte(code)) {
		logger.Debug("up to date", "file", rel, "module", res.Metadata.ModuleName, "cached", res.Cached)
		return res
	}
	res.Changed = true

	if b.opts.Check {
		outName := filepath.ToSlash(filepath.Join(b.opts.Config.OutDir, filepath.FromSlash(rel)))
		if exists {
			res.Diff, err = diff.Unified(outName, modulePath, string(current), code)
		} else {
			res.Diff, err = diff.Missing(outName, code)
		}
		if err != nil {
			res.Err = fmt.Errorf("diffing %s: %w", rel, err)
		}
		return res
	}

	if err := writeFile(res.OutPath, []byte(code)); err != nil {
		res.Err = err
		return res
	}
	logger.Debug("wrote module", "file", rel, "module", res.Metadata.ModuleName, "cached", res.Cached)
	return res
}

func (b *Builder) cacheGet(key string) (cache.Entry, bool) {
	if b.opts.Cache == nil {
		return cache.Entry{}, false
	}
	return b.opts.Cache.Get(key)
}

func (b *Builder) removeOutput(res FileResult) FileResult {
	if _, err := os.Stat(res.OutPath); os.IsNotExist(err) {
		return res
	}
	res.Changed, res.Removed = true, true
	if b.opts.Check {
		return res
	}
	if err := os.Remove(res.OutPath); err != nil {
		res.Err = fmt.Errorf("removing %s: %w", res.OutPath, err)
		return res
	}
	b.opts.Logger.Debug("removed output", "file", res.Path)
	return res
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
