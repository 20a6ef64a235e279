package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-esym/internal/config"
	"github.com/l3aro/go-esym/pkg/cache"
	"github.com/l3aro/go-esym/pkg/transform"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func project(t *testing.T) (string, *config.Config) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/root/main.js":  "import foo from './foo';\nexport default foo.value;\n",
		"src/root/foo.js":   "export default { value: 1 };\n",
		"src/vendor.min.js": "export default 0;\n",
		"README.md":         "# project\n",
	})

	cfg := config.DefaultConfig()
	cfg.SourceDir = "src"
	cfg.OutDir = "dist"
	cfg.Exclude = []string{"*.min.js"}
	cfg.Workers = 2
	return root, cfg
}

func newBuilder(t *testing.T, opts Options) *Builder {
	t.Helper()
	b, err := New(opts)
	require.NoError(t, err)
	return b
}

func TestBuild_WritesOutputs(t *testing.T) {
	root, cfg := project(t)
	b := newBuilder(t, Options{Root: root, Config: cfg})

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.Len(t, report.Files, 2)
	assert.Equal(t, 2, report.Changed())

	assert.Equal(t,
		"ym.modules.define('root.main', ['root.foo'], function(_provide, foo) {\n_provide(foo.value);\n});\n",
		readFile(t, filepath.Join(root, "dist", "root", "main.js")))
	assert.FileExists(t, filepath.Join(root, "dist", "root", "foo.js"))
	assert.NoFileExists(t, filepath.Join(root, "dist", "vendor.min.js"))

	byPath := map[string]FileResult{}
	for _, f := range report.Files {
		byPath[f.Path] = f
	}
	assert.Equal(t, "root.main", byPath["root/main.js"].Metadata.ModuleName)
	assert.Equal(t, []string{"root.foo"}, byPath["root/main.js"].Metadata.Dependencies())

	again, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Changed(), "second build rewrites nothing")
}

func TestBuild_OutDirInsideSourceDir(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"main.js": "export default 1;\n",
	})
	cfg := config.DefaultConfig()

	b := newBuilder(t, Options{Root: root, Config: cfg})
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Files, 1, "outputs are not picked up as sources")
	assert.Equal(t, "main.js", report.Files[0].Path)
}

func TestBuild_UsesCache(t *testing.T) {
	root, cfg := project(t)
	c, err := cache.New(cache.Options{MaxEntries: 16})
	require.NoError(t, err)

	_, err = newBuilder(t, Options{Root: root, Config: cfg, Cache: c}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	report, err := newBuilder(t, Options{Root: root, Config: cfg, Cache: c}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Cached())

	// Changing an option that affects output invalidates every entry.
	cfg.ModuleBase = "app"
	report, err = newBuilder(t, Options{Root: root, Config: cfg, Cache: c}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Cached())
	assert.Contains(t, readFile(t, filepath.Join(root, "dist", "root", "main.js")), "'app.root.main'")
}

func TestBuild_Check(t *testing.T) {
	root, cfg := project(t)

	report, err := newBuilder(t, Options{Root: root, Config: cfg, Check: true}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Changed())
	assert.NoDirExists(t, filepath.Join(root, "dist"), "check writes nothing")
	for _, f := range report.Files {
		assert.Contains(t, f.Diff, "--- /dev/null")
	}

	_, err = newBuilder(t, Options{Root: root, Config: cfg}).Build(context.Background())
	require.NoError(t, err)

	report, err = newBuilder(t, Options{Root: root, Config: cfg, Check: true}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Changed())

	writeFiles(t, root, map[string]string{"src/root/foo.js": "export default { value: 2 };\n"})
	report, err = newBuilder(t, Options{Root: root, Config: cfg, Check: true}).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Changed())
	for _, f := range report.Files {
		if f.Changed {
			assert.Equal(t, "root/foo.js", f.Path)
			assert.Contains(t, f.Diff, "--- dist/root/foo.js\n+++ src/root/foo.js\n")
			assert.Contains(t, f.Diff, "+_provide({ value: 2 });\n")
		}
	}
}

func TestBuild_CollectsErrors(t *testing.T) {
	root, cfg := project(t)
	writeFiles(t, root, map[string]string{
		"src/bad.js":    "import x from 'unknown-package';\nexport default x;\n",
		"src/broken.js": "export default (;\n",
	})

	report, err := newBuilder(t, Options{Root: root, Config: cfg}).Build(context.Background())
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 2)
	assert.ErrorIs(t, report.Err(), transform.ErrUnresolvableImport)
	assert.ErrorIs(t, report.Err(), transform.ErrParse)
	assert.FileExists(t, filepath.Join(root, "dist", "root", "main.js"), "other files still build")
}

func TestBuildFiles_RemovesDeletedOutput(t *testing.T) {
	root, cfg := project(t)
	b := newBuilder(t, Options{Root: root, Config: cfg})
	_, err := b.Build(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "src", "root", "foo.js")))
	report, err := b.BuildFiles(context.Background(), []string{"root/foo.js"})
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.True(t, report.Files[0].Removed)
	assert.NoFileExists(t, filepath.Join(root, "dist", "root", "foo.js"))
}

func TestBuildFiles_Cancelled(t *testing.T) {
	root, cfg := project(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newBuilder(t, Options{Root: root, Config: cfg}).BuildFiles(ctx, []string{"root/main.js"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuilder_Matches(t *testing.T) {
	root, cfg := project(t)
	b := newBuilder(t, Options{Root: root, Config: cfg})

	assert.True(t, b.Matches("root/main.js"))
	assert.False(t, b.Matches("vendor.min.js"))
	assert.False(t, b.Matches("styles/app.css"))
}
