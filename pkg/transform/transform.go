// Package transform rewrites an ES module into a single ym.modules.define
// registration call.
//
// A file is processed in three phases. Plugins run first and may request
// dependencies. The top-level statements are then scanned: imports become
// dependencies, the default export becomes a call to the provide callback
// and runtime bindings imported from the ym module become local variables.
// Finally duplicate dependencies are squashed and the whole body is wrapped
// into the factory function.
package transform

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/l3aro/go-esym/pkg/modname"
	"github.com/l3aro/go-esym/pkg/syntax"
	"github.com/l3aro/go-esym/pkg/types"
)

const provideName = "provide"

// ymBuiltins are the bindings importable from the ym module, mapped to the
// property path they alias on the ym global.
var ymBuiltins = map[string][]string{
	"logger":  {"logger"},
	"require": {"modules", "require"},
}

// Result is the outcome of transforming one source file.
type Result struct {
	Code     string          `json:"code" msgpack:"code"`
	Metadata *types.Metadata `json:"metadata" msgpack:"metadata"`
}

// Transformer rewrites files with a fixed set of options. It holds no
// per-file state and may be shared between goroutines, provided each
// goroutine parses with its own syntax.Parser.
type Transformer struct {
	opts Options
}

// New creates a Transformer.
func New(opts Options) *Transformer {
	return &Transformer{opts: opts.withDefaults()}
}

// Options returns the options the transformer was created with.
func (t *Transformer) Options() Options {
	return t.opts
}

// TransformSource parses src with a throwaway parser and transforms it.
func (t *Transformer) TransformSource(path string, src []byte) (*Result, error) {
	return t.TransformSourceWith(syntax.NewParser(), path, src)
}

// TransformSourceWith parses src with parser and transforms it.
func (t *Transformer) TransformSourceWith(parser *syntax.Parser, path string, src []byte) (*Result, error) {
	file, err := parser.Parse(path, src)
	if err != nil {
		var perr *syntax.ParseError
		if errors.As(err, &perr) {
			return nil, &Error{
				Kind:   ErrParse,
				Path:   path,
				Line:   perr.Line,
				Column: perr.Column,
				Msg:    "invalid JavaScript",
				Err:    err,
			}
		}
		return nil, err
	}

	meta, err := t.TransformFile(file)
	if err != nil {
		return nil, err
	}
	return &Result{Code: file.Code(), Metadata: meta}, nil
}

// TransformFile rewrites a parsed file in place.
func (t *Transformer) TransformFile(file *syntax.File) (*types.Metadata, error) {
	return t.Transform(file)
}

// Transform rewrites tree in place. On error the tree is left untouched,
// including the identifiers it had generated.
func (t *Transformer) Transform(tree syntax.Tree) (_ *types.Metadata, err error) {
	path := tree.Path()

	moduleName, err := modname.Generate(path, t.opts.Naming)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidPath, Path: path, Msg: "cannot name module", Err: err}
	}

	ctx := newContext(tree)
	defer func() {
		if err != nil {
			ctx.abort()
		}
	}()
	for _, plugin := range t.opts.Plugins {
		if err := plugin.Prepare(ctx); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
	}

	s := &scan{
		opts:    &t.opts,
		path:    path,
		provide: ctx.fresh(provideName),
	}
	for _, stmt := range tree.Statements() {
		if err := s.statement(stmt); err != nil {
			return nil, err
		}
	}

	if !s.exported && s.explicit.IsZero() {
		return nil, &Error{
			Kind: ErrNoOutput,
			Path: path,
			Msg:  "module has neither a default export nor an import of provide",
		}
	}

	ctx.seal()

	provide := s.provide
	if !s.explicit.IsZero() {
		provide = s.explicit
	}

	imports, aliases := squash(append(ctx.Imports(), s.imports...))

	var used, unused []types.ImportRecord
	for _, imp := range imports {
		if imp.HasLocal() {
			used = append(used, imp)
		} else {
			unused = append(unused, imp)
		}
	}
	ordered := slices.Concat(used, unused)

	deps := make([]syntax.Expr, 0, len(ordered))
	for _, imp := range ordered {
		deps = append(deps, syntax.String(imp.Module))
	}

	params := make([]syntax.Ident, 0, len(used)+1)
	params = append(params, provide)
	for _, imp := range used {
		params = append(params, syntax.Ident{Name: imp.Local})
	}

	body := make([]syntax.Stmt, 0, len(aliases)+len(s.body))
	body = append(body, aliases...)
	body = append(body, s.body...)

	define := syntax.Call(
		syntax.Path(t.opts.YmGlobal, "modules", "define"),
		syntax.String(moduleName),
		syntax.Array(deps...),
		syntax.Function(params, body),
	)
	tree.SetStatements([]syntax.Stmt{syntax.ExprStmt(define)})

	return &types.Metadata{
		ModuleName:        moduleName,
		ProvideIdentifier: provide.Name,
		Imports:           ordered,
	}, nil
}

// scan holds the state of one pass over a file's top-level statements.
type scan struct {
	opts *Options
	path string

	// provide is the implicit provide parameter used by exports.
	provide syntax.Ident
	// explicit is the local name of an imported provide binding.
	explicit syntax.Ident
	exported bool

	imports []types.ImportRecord
	body    []syntax.Stmt
}

func (s *scan) statement(stmt syntax.Stmt) error {
	switch stmt := stmt.(type) {
	case *syntax.SImport:
		if stmt.Source == s.opts.YmModuleName {
			return s.ymImport(stmt)
		}
		return s.moduleImport(stmt)
	case *syntax.SExportDefault:
		if err := s.checkExport(stmt); err != nil {
			return err
		}
		if stmt.Func != nil {
			s.body = append(s.body,
				&syntax.SRaw{Span: stmt.Span, Text: stmt.Func.Text},
				s.provideCall(stmt.Func.Name),
			)
		} else {
			s.body = append(s.body, s.provideCall(stmt.Value))
		}
		s.comments(stmt.Span, stmt.Comments)
		return nil
	case *syntax.SExportClause:
		if err := s.checkExport(stmt); err != nil {
			return err
		}
		if len(stmt.Items) != 1 || stmt.Items[0].Exported != "default" {
			return newError(ErrUnsupportedExport, s.path, stmt,
				"only a single specifier exported as default is supported")
		}
		s.body = append(s.body, s.provideCall(syntax.Ident{Name: stmt.Items[0].Local}))
		s.comments(stmt.Span, stmt.Comments)
		return nil
	case *syntax.SExportFrom:
		return newError(ErrUnsupportedExport, s.path, stmt, "re-exports are not supported")
	case *syntax.SExportDecl:
		return newError(ErrUnsupportedExport, s.path, stmt, "only default exports are supported")
	default:
		s.body = append(s.body, stmt)
		return nil
	}
}

// comments keeps the comments of a rewritten export after its provide call.
func (s *scan) comments(span syntax.Span, texts []string) {
	for _, text := range texts {
		s.body = append(s.body, &syntax.SRaw{Span: span, Text: text})
	}
}

func (s *scan) provideCall(arg syntax.Expr) syntax.Stmt {
	return syntax.ExprStmt(syntax.Call(s.provide, arg))
}

func (s *scan) checkExport(stmt syntax.Stmt) error {
	if !s.explicit.IsZero() {
		return newError(ErrUnsupportedExport, s.path, stmt,
			"cannot export when provide is imported from %s", s.opts.YmModuleName)
	}
	if s.exported {
		return newError(ErrUnsupportedExport, s.path, stmt, "only one export per module is supported")
	}
	s.exported = true
	return nil
}

func (s *scan) ymImport(stmt *syntax.SImport) error {
	if !stmt.Default.IsZero() || !stmt.Namespace.IsZero() {
		return newError(ErrUnsupportedImport, s.path, stmt,
			"%s only has named bindings: %s", s.opts.YmModuleName, allowedBindings())
	}

	for _, spec := range stmt.Named {
		if spec.Imported == provideName {
			if !s.explicit.IsZero() {
				return newError(ErrUnsupportedImport, s.path, stmt, "provide is already imported")
			}
			if s.exported {
				return newError(ErrUnsupportedExport, s.path, stmt,
					"cannot import provide in a module that exports")
			}
			s.explicit = spec.Local
			continue
		}

		target, ok := ymBuiltins[spec.Imported]
		if !ok {
			return newError(ErrUnsupportedImport, s.path, stmt,
				"%s has no binding %s, available: %s", s.opts.YmModuleName, spec.Imported, allowedBindings())
		}
		s.body = append(s.body, syntax.Var(spec.Local, syntax.Path(s.opts.YmGlobal, target...)))
	}
	return nil
}

func (s *scan) moduleImport(stmt *syntax.SImport) error {
	module, err := modname.NormalizeImport(stmt.Source, s.path, s.opts.resolveOptions())
	if err != nil {
		kind := ErrInvalidPath
		if errors.Is(err, modname.ErrUnmapped) {
			kind = ErrUnresolvableImport
		}
		e := newError(kind, s.path, stmt, "cannot resolve %s", stmt.Source)
		e.Err = err
		return e
	}

	if !stmt.HasSpecifiers() {
		s.imports = append(s.imports, types.ImportRecord{Module: module})
		return nil
	}
	if stmt.SpecifierCount() != 1 || stmt.Default.IsZero() {
		return newError(ErrUnsupportedImport, s.path, stmt, "only a single default import is supported")
	}

	s.imports = append(s.imports, types.ImportRecord{Module: module, Local: stmt.Default.Name})
	return nil
}

func allowedBindings() string {
	return strings.Join([]string{provideName, "logger", "require"}, ", ")
}

// squash keeps the first record of every module. A later record with a local
// becomes "var local = first;" when the first record has a local of its own,
// otherwise it lends its local to the first record. Later records without a
// local are dropped.
func squash(records []types.ImportRecord) ([]types.ImportRecord, []syntax.Stmt) {
	var (
		kept    []types.ImportRecord
		aliases []syntax.Stmt
		index   = make(map[string]int, len(records))
	)

	for _, rec := range records {
		i, seen := index[rec.Module]
		if !seen {
			index[rec.Module] = len(kept)
			kept = append(kept, rec)
			continue
		}
		if !rec.HasLocal() {
			continue
		}
		if !kept[i].HasLocal() {
			kept[i].Local = rec.Local
			continue
		}
		aliases = append(aliases, syntax.Var(syntax.Ident{Name: rec.Local}, syntax.Ident{Name: kept[i].Local}))
	}

	return kept, aliases
}
