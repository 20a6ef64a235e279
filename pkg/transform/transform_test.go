package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-esym/pkg/modname"
	"github.com/l3aro/go-esym/pkg/syntax"
	"github.com/l3aro/go-esym/pkg/types"
)

func run(t *testing.T, opts Options, path, src string) *Result {
	t.Helper()
	res, err := New(opts).TransformSource(path, []byte(src))
	require.NoError(t, err)
	return res
}

func TestTransform_Output(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		want string
	}{
		{
			name: "literal export",
			path: "main.js",
			src:  "export default 42;\n",
			want: "ym.modules.define('main', [], function(_provide) {\n_provide(42);\n});\n",
		},
		{
			name: "static import",
			path: "main.js",
			src:  "import foo from './foo';\nexport default foo;\n",
			want: "ym.modules.define('main', ['foo'], function(_provide, foo) {\n_provide(foo);\n});\n",
		},
		{
			name: "non javascript import",
			path: "main.js",
			src:  "import './foo.css';\nexport default 1;\n",
			want: "ym.modules.define('main', ['foo.css'], function(_provide) {\n_provide(1);\n});\n",
		},
		{
			name: "used before unused",
			path: "main.js",
			src:  "import './polyfill';\nimport bar from './bar';\nimport foo from './foo';\nexport default bar(foo);\n",
			want: "ym.modules.define('main', ['bar', 'foo', 'polyfill'], function(_provide, bar, foo) {\n_provide(bar(foo));\n});\n",
		},
		{
			name: "named function export",
			path: "main.js",
			src:  "export default function main() { return 1; }\n",
			want: "ym.modules.define('main', [], function(_provide) {\nfunction main() { return 1; }\n_provide(main);\n});\n",
		},
		{
			name: "anonymous function export",
			path: "main.js",
			src:  "export default function () { return 1; }\n",
			want: "ym.modules.define('main', [], function(_provide) {\n_provide(function () { return 1; });\n});\n",
		},
		{
			name: "export clause as default",
			path: "main.js",
			src:  "const value = 1;\nexport { value as default };\n",
			want: "ym.modules.define('main', [], function(_provide) {\nconst value = 1;\n_provide(value);\n});\n",
		},
		{
			name: "explicit provide",
			path: "main.js",
			src:  "import { provide } from 'ym';\nsetTimeout(() => provide(1));\n",
			want: "ym.modules.define('main', [], function(provide) {\nsetTimeout(() => provide(1));\n});\n",
		},
		{
			name: "builtins",
			path: "main.js",
			src:  "import { logger, require as req } from 'ym';\nexport default req;\n",
			want: "ym.modules.define('main', [], function(_provide) {\nvar logger = ym.logger;\nvar req = ym.modules.require;\n_provide(req);\n});\n",
		},
		{
			name: "provide name taken",
			path: "main.js",
			src:  "const _provide = 1;\nexport default _provide;\n",
			want: "ym.modules.define('main', [], function(_provide2) {\nconst _provide = 1;\n_provide2(_provide);\n});\n",
		},
		{
			name: "statements relying on semicolon insertion stay apart",
			path: "main.js",
			src:  "const f = g\nimport x from './x';\n(function(){ init(x) })()\nexport default f\n",
			want: "ym.modules.define('main', ['x'], function(_provide, x) {\nconst f = g\n;(function(){ init(x) })()\n_provide(f);\n});\n",
		},
		{
			name: "export comment kept",
			path: "main.js",
			src:  "const foo = 1;\nexport default foo // note\n",
			want: "ym.modules.define('main', [], function(_provide) {\nconst foo = 1;\n_provide(foo);\n// note\n});\n",
		},
		{
			name: "hashbang kept",
			path: "main.js",
			src:  "#!/usr/bin/env node\nexport default 1;\n",
			want: "#!/usr/bin/env node\nym.modules.define('main', [], function(_provide) {\n_provide(1);\n});\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, DefaultOptions(), tt.path, tt.src)
			assert.Equal(t, tt.want, res.Code)
		})
	}
}

func TestTransform_SquashesDuplicateImports(t *testing.T) {
	opts := DefaultOptions()
	opts.Naming.SourceDir = "src/"

	src := "import foo from './foo';\nimport foo2 from './foo';\nexport default foo.value + foo2.value;\n"
	res := run(t, opts, "src/root/main.js", src)

	assert.Equal(t,
		"ym.modules.define('root.main', ['root.foo'], function(_provide, foo) {\nvar foo2 = foo;\n_provide(foo.value + foo2.value);\n});\n",
		res.Code)
	assert.Equal(t, &types.Metadata{
		ModuleName:        "root.main",
		ProvideIdentifier: "_provide",
		Imports:           []types.ImportRecord{{Module: "root.foo", Local: "foo"}},
	}, res.Metadata)
}

func TestTransform_SquashOrder(t *testing.T) {
	src := "import a from './a';\nimport b from './b';\nimport b2 from './b';\nimport a2 from './a';\nexport default a;\n"
	res := run(t, DefaultOptions(), "main.js", src)

	assert.Equal(t,
		"ym.modules.define('main', ['a', 'b'], function(_provide, a, b) {\nvar b2 = b;\nvar a2 = a;\n_provide(a);\n});\n",
		res.Code)
}

func TestTransform_SquashSideEffectFirst(t *testing.T) {
	src := "import './foo';\nimport foo from './foo';\nimport './foo';\nexport default foo;\n"
	res := run(t, DefaultOptions(), "main.js", src)

	assert.Equal(t,
		"ym.modules.define('main', ['foo'], function(_provide, foo) {\n_provide(foo);\n});\n",
		res.Code)
	assert.Equal(t, []types.ImportRecord{{Module: "foo", Local: "foo"}}, res.Metadata.Imports)
}

func TestTransform_CustomNames(t *testing.T) {
	opts := DefaultOptions()
	opts.YmModuleName = "runtime"
	opts.YmGlobal = "app"

	res := run(t, opts, "main.js", "import { logger } from 'runtime';\nexport default logger;\n")
	assert.Equal(t,
		"app.modules.define('main', [], function(_provide) {\nvar logger = app.logger;\n_provide(logger);\n});\n",
		res.Code)
}

func TestTransform_SourceMappings(t *testing.T) {
	opts := DefaultOptions()
	opts.Naming = modname.Options{SourceExtension: ".js", SourceDir: "src", ModuleBase: "app"}
	opts.SourceMappings = map[string]string{"@lib/": "vendor.lib"}

	res := run(t, opts, "src/widgets/Button.js",
		"import dom from '@lib/dom/events';\nimport style from './Button.css';\nexport default dom(style);\n")
	assert.Equal(t,
		"ym.modules.define('app.widgets.Button', ['vendor.lib.dom.events', 'app.widgets.Button.css'], function(_provide, dom, style) {\n_provide(dom(style));\n});\n",
		res.Code)
}

type addImports struct {
	modules []string
	got     []syntax.Ident
	ctx     *Context
}

func (p *addImports) Name() string { return "add-imports" }

func (p *addImports) Prepare(ctx *Context) error {
	p.ctx = ctx
	for _, m := range p.modules {
		id, err := ctx.AddImport(m)
		if err != nil {
			return err
		}
		p.got = append(p.got, id)
	}
	return nil
}

func TestTransform_AddImport(t *testing.T) {
	plugin := &addImports{modules: []string{"util.foo-bar", "util.foo-bar"}}
	opts := DefaultOptions()
	opts.Plugins = []Plugin{plugin}

	res := run(t, opts, "main.js", "import foo from './foo';\nexport default foo;\n")

	require.Len(t, plugin.got, 2)
	assert.Equal(t, plugin.got[0], plugin.got[1])
	assert.Equal(t, "_utilFooBar", plugin.got[0].Name)
	assert.Equal(t,
		"ym.modules.define('main', ['util.foo-bar', 'foo'], function(_provide, _utilFooBar, foo) {\n_provide(foo);\n});\n",
		res.Code)
	assert.Equal(t, []string{"util.foo-bar", "foo"}, res.Metadata.Dependencies())

	_, err := plugin.ctx.AddImport("late")
	assert.ErrorIs(t, err, ErrContextSealed)
}

func TestTransform_AddImportSquashesSourceImport(t *testing.T) {
	opts := DefaultOptions()
	opts.Plugins = []Plugin{&ImplicitImports{Modules: []string{"foo"}}}

	res := run(t, opts, "main.js", "import foo from './foo';\nexport default foo;\n")
	assert.Equal(t,
		"ym.modules.define('main', ['foo'], function(_provide, _foo) {\nvar foo = _foo;\n_provide(foo);\n});\n",
		res.Code)
}

type failingPlugin struct{}

func (failingPlugin) Name() string              { return "failing" }
func (failingPlugin) Prepare(ctx *Context) error { return errors.New("boom") }

func TestTransform_PluginError(t *testing.T) {
	opts := DefaultOptions()
	opts.Plugins = []Plugin{failingPlugin{}}

	_, err := New(opts).TransformSource("main.js", []byte("export default 1;\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin failing: boom")
}

func TestTransform_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		src  string
		kind error
	}{
		{"named declaration export", "main.js", "export const a = 1;\n", ErrUnsupportedExport},
		{"star re-export", "main.js", "export * from './x';\n", ErrUnsupportedExport},
		{"named re-export", "main.js", "export { a } from './x';\n", ErrUnsupportedExport},
		{"export clause", "main.js", "const a = 1, b = 2;\nexport { a, b };\n", ErrUnsupportedExport},
		{"two exports", "main.js", "const a = 1;\nexport default 1;\nexport { a as default };\n", ErrUnsupportedExport},
		{"export after provide", "main.js", "import { provide } from 'ym';\nexport default 1;\n", ErrUnsupportedExport},
		{"provide after export", "main.js", "export default 1;\nimport { provide } from 'ym';\n", ErrUnsupportedExport},
		{"duplicate provide", "main.js", "import { provide } from 'ym';\nimport { provide as p } from 'ym';\n", ErrUnsupportedImport},
		{"named import", "main.js", "import { foo } from './foo';\nexport default foo;\n", ErrUnsupportedImport},
		{"namespace import", "main.js", "import * as foo from './foo';\nexport default foo;\n", ErrUnsupportedImport},
		{"default and named", "main.js", "import a, { b } from './foo';\nexport default a;\n", ErrUnsupportedImport},
		{"unknown builtin", "main.js", "import { fs } from 'ym';\nexport default fs;\n", ErrUnsupportedImport},
		{"ym default import", "main.js", "import ym from 'ym';\nexport default ym;\n", ErrUnsupportedImport},
		{"unmapped package", "main.js", "import _ from 'lodash';\nexport default _;\n", ErrUnresolvableImport},
		{"absolute import", "main.js", "import x from '/abs/x';\nexport default x;\n", ErrInvalidPath},
		{"import escapes root", "main.js", "import x from '../../x';\nexport default x;\n", ErrInvalidPath},
		{"absolute file path", "/abs/main.js", "export default 1;\n", ErrInvalidPath},
		{"no output", "main.js", "var a = 1;\n", ErrNoOutput},
		{"syntax error", "main.js", "export default (;\n", ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(DefaultOptions()).TransformSource(tt.path, []byte(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var terr *Error
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, tt.path, terr.Path)
		})
	}
}

func TestTransform_ErrorLocation(t *testing.T) {
	_, err := New(DefaultOptions()).TransformSource("main.js",
		[]byte("const a = 1;\nexport const b = 2;\n"))

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 2, terr.Line)
	assert.Equal(t, 1, terr.Column)
	assert.Equal(t, "export const b = 2;", terr.Construct)
	assert.Contains(t, err.Error(), "main.js:2:1")
}

func TestTransform_LeavesTreeOnError(t *testing.T) {
	file, err := syntax.Parse("main.js", []byte("import foo from './foo';\nvar a = foo;\n"))
	require.NoError(t, err)
	before := file.Statements()

	opts := DefaultOptions()
	opts.Plugins = []Plugin{&ImplicitImports{Modules: []string{"util"}}}
	_, err = New(opts).TransformFile(file)
	require.ErrorIs(t, err, ErrNoOutput)
	assert.Equal(t, before, file.Statements())

	// Identifiers generated by the failed run are free again.
	assert.Equal(t, "_provide", file.FreshIdentifier("provide").Name)
	assert.Equal(t, "_util", file.FreshIdentifier("util").Name)
}

func TestTransform_RetryAfterError(t *testing.T) {
	file, err := syntax.Parse("main.js", []byte("import foo from './foo';\nvar a = foo;\n"))
	require.NoError(t, err)

	tr := New(DefaultOptions())
	_, err = tr.TransformFile(file)
	require.ErrorIs(t, err, ErrNoOutput)
	_, err = tr.TransformFile(file)
	require.ErrorIs(t, err, ErrNoOutput)

	file.SetStatements(append(file.Statements(), &syntax.SExportDefault{
		Text:  "export default a;",
		Value: syntax.Ident{Name: "a"},
	}))
	md, err := tr.TransformFile(file)
	require.NoError(t, err)
	assert.Equal(t, "_provide", md.ProvideIdentifier)
}

func TestTransform_Deterministic(t *testing.T) {
	src := "import b from './b';\nimport './c';\nimport a from './a';\nexport default a + b;\n"
	first := run(t, DefaultOptions(), "x/main.js", src)
	for range 5 {
		assert.Equal(t, first, run(t, DefaultOptions(), "x/main.js", src))
	}
}

func TestSquash(t *testing.T) {
	kept, aliases := squash([]types.ImportRecord{
		{Module: "a"},
		{Module: "b", Local: "b"},
		{Module: "a", Local: "a1"},
		{Module: "a", Local: "a2"},
		{Module: "b"},
	})

	assert.Equal(t, []types.ImportRecord{{Module: "a", Local: "a1"}, {Module: "b", Local: "b"}}, kept)
	assert.Equal(t, "var a2 = a1;\n", syntax.Print(aliases))
}
