package syntax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *File {
	t.Helper()
	f, err := Parse("src/main.js", []byte(src))
	require.NoError(t, err)
	return f
}

func TestParse_Imports(t *testing.T) {
	f := mustParse(t, `import foo from './foo';
import 'side-effect';
import * as ns from "ns";
import { a, b as c } from 'named';
import d, { e } from 'mixed';
`)

	stmts := f.Statements()
	require.Len(t, stmts, 5)

	def := stmts[0].(*SImport)
	assert.Equal(t, "./foo", def.Source)
	assert.Equal(t, "foo", def.Default.Name)
	assert.Equal(t, 1, def.SpecifierCount())
	assert.Equal(t, 1, def.Line)

	side := stmts[1].(*SImport)
	assert.Equal(t, "side-effect", side.Source)
	assert.False(t, side.HasSpecifiers())

	ns := stmts[2].(*SImport)
	assert.Equal(t, "ns", ns.Source)
	assert.Equal(t, "ns", ns.Namespace.Name)

	named := stmts[3].(*SImport)
	assert.Equal(t, []ImportSpec{
		{Imported: "a", Local: Ident{Name: "a"}},
		{Imported: "b", Local: Ident{Name: "c"}},
	}, named.Named)

	mixed := stmts[4].(*SImport)
	assert.Equal(t, "d", mixed.Default.Name)
	assert.Equal(t, 2, mixed.SpecifierCount())
}

func TestParse_Exports(t *testing.T) {
	t.Run("default expression", func(t *testing.T) {
		f := mustParse(t, `export default foo.value + 1;`)
		s := f.Statements()[0].(*SExportDefault)
		assert.Nil(t, s.Func)
		assert.Equal(t, &ERaw{Text: "foo.value + 1"}, s.Value)
	})

	t.Run("named function", func(t *testing.T) {
		f := mustParse(t, `export default function foobar() { done(); }`)
		s := f.Statements()[0].(*SExportDefault)
		require.NotNil(t, s.Func)
		assert.Equal(t, "foobar", s.Func.Name.Name)
		assert.Equal(t, "function foobar() { done(); }", s.Func.Text)
	})

	t.Run("anonymous function", func(t *testing.T) {
		f := mustParse(t, `export default async function() { await done(); }`)
		s := f.Statements()[0].(*SExportDefault)
		assert.Nil(t, s.Func)
		assert.Equal(t, &ERaw{Text: "async function() { await done(); }"}, s.Value)
	})

	t.Run("class declaration", func(t *testing.T) {
		f := mustParse(t, `export default class Foo {}`)
		s := f.Statements()[0].(*SExportDefault)
		assert.Nil(t, s.Func)
		assert.Equal(t, &ERaw{Text: "class Foo {}"}, s.Value)
	})

	t.Run("clause", func(t *testing.T) {
		f := mustParse(t, `const x = 1; export { x as default };`)
		require.Len(t, f.Statements(), 2)
		s := f.Statements()[1].(*SExportClause)
		assert.Equal(t, []ExportSpec{{Local: "x", Exported: "default"}}, s.Items)
	})

	t.Run("re-export", func(t *testing.T) {
		f := mustParse(t, `export { a } from './a'; export * from './b';`)
		require.Len(t, f.Statements(), 2)
		assert.Equal(t, "./a", f.Statements()[0].(*SExportFrom).Source)
		assert.Equal(t, "./b", f.Statements()[1].(*SExportFrom).Source)
	})

	t.Run("inner comment", func(t *testing.T) {
		f := mustParse(t, `export default /* answer */ 42;`)
		s := f.Statements()[0].(*SExportDefault)
		assert.Equal(t, &ERaw{Text: "42"}, s.Value)
		assert.Equal(t, []string{"/* answer */"}, s.Comments)
	})

	t.Run("named declaration", func(t *testing.T) {
		f := mustParse(t, `export const a = 1;`)
		assert.IsType(t, &SExportDecl{}, f.Statements()[0])
	})
}

func TestParse_KeepsOtherStatementsVerbatim(t *testing.T) {
	src := "#!/usr/bin/env node\n// leading comment\nconst a = `multi\n  line`;\n;\nfoo(a);\n"
	f := mustParse(t, src)

	assert.Equal(t, "#!/usr/bin/env node", f.Hashbang())
	require.Len(t, f.Statements(), 3)
	assert.Equal(t, "// leading comment", f.Statements()[0].(*SRaw).Text)
	assert.Equal(t, "const a = `multi\n  line`;", f.Statements()[1].(*SRaw).Text)
	assert.Equal(t, "foo(a);", f.Statements()[2].(*SRaw).Text)
	assert.Equal(t, src[:len(src)-len("\n;\nfoo(a);\n")]+"\nfoo(a);\n", f.Code())
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse("src/broken.js", []byte("export default function( {"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyntax))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "src/broken.js", perr.Path)
	assert.Equal(t, 1, perr.Line)
}

func TestFreshIdentifier(t *testing.T) {
	f := mustParse(t, `var _provide = 1; var x = { _provide2: 2 }; export default x;`)

	assert.Equal(t, "_provide3", f.FreshIdentifier("provide").Name)
	assert.Equal(t, "_provide4", f.FreshIdentifier("provide").Name)
	assert.Equal(t, "_utilFooBar", f.FreshIdentifier("util.foo.bar").Name)
	assert.Equal(t, "_utilFoo", f.FreshIdentifier("util.Foo").Name)
	assert.Equal(t, "_ref", f.FreshIdentifier("123").Name)
}

func TestReleaseIdentifier(t *testing.T) {
	f := mustParse(t, `var _ref = 1; export default _ref;`)

	id := f.FreshIdentifier("provide")
	assert.Equal(t, "_provide", id.Name)
	f.ReleaseIdentifier(id)
	assert.Equal(t, "_provide", f.FreshIdentifier("provide").Name)

	// Source names stay taken.
	f.ReleaseIdentifier(Ident{Name: "_ref"})
	assert.Equal(t, "_ref2", f.FreshIdentifier("ref").Name)
}

func TestToIdentifier(t *testing.T) {
	tests := map[string]string{
		"util.foo.bar":  "utilFooBar",
		"a-b_c":         "aB_c",
		"9lives":        "lives",
		"..dots..":      "dots",
		"$jquery.plug":  "$jqueryPlug",
		"ns/Some.Thing": "nsSomeThing",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToIdentifier(in), in)
	}
}

func TestPrint(t *testing.T) {
	body := []Stmt{
		Var(Ident{Name: "foo2"}, Ident{Name: "foo"}),
		ExprStmt(Call(Ident{Name: "_provide"}, &ERaw{Text: "(a, b)"})),
	}
	define := ExprStmt(Call(Path("ym", "modules", "define"),
		String("root.main"),
		Array(String("root.foo"), String("it's")),
		Function([]Ident{{Name: "_provide"}, {Name: "foo"}}, body),
	))

	want := "ym.modules.define('root.main', ['root.foo', 'it\\'s'], function(_provide, foo) {\n" +
		"var foo2 = foo;\n" +
		"_provide((a, b));\n" +
		"});\n"
	assert.Equal(t, want, Print([]Stmt{define}))
}

func TestPrint_SeparatesVerbatimStatements(t *testing.T) {
	body := []Stmt{
		&SRaw{Text: "const f = g"},
		&SRaw{Text: "(function() {})()"},
		&SRaw{Text: "// comment"},
		&SRaw{Text: "[a, b].forEach(run)"},
		&SRaw{Text: "done();"},
		&SRaw{Text: "`tpl`.trim()"},
		&SRaw{Text: "let x = 1"},
		&SRaw{Text: "x++"},
	}

	want := "const f = g\n" +
		";(function() {})()\n" +
		"// comment\n" +
		";[a, b].forEach(run)\n" +
		"done();\n" +
		"`tpl`.trim()\n" +
		"let x = 1\n" +
		"x++\n"
	assert.Equal(t, want, Print(body))
}

func TestNeedsSemicolon(t *testing.T) {
	tests := []struct {
		prev, next string
		want       bool
	}{
		{"a = b", "(c)", true},
		{"a = b", "[1].map(f)", true},
		{"a = b", "`x`", true},
		{"a = b", "+c", true},
		{"a = b", "-c", true},
		{"a = b", "/re/.test(s)", true},
		{"a = b;", "(c)", false},
		{"a = b;  ", "(c)", false},
		{"", "(c)", false},
		{"a = b", "c()", false},
		{"a = b", "// note", false},
		{"a = b", "/* note */", false},
		{"const o = {}", "(c)", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, needsSemicolon(tt.prev, tt.next), "%q then %q", tt.prev, tt.next)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, Quote("plain"))
	assert.Equal(t, `'a\\b\'c\nd'`, Quote("a\\b'c\nd"))
}
