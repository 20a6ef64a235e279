// Package syntax is the JavaScript syntax-tree toolkit used by the module
// transform: a tree-sitter backed parser producing typed top-level
// statements, node builders for synthesized code, fresh identifier
// generation, and a printer.
//
// Only the statements the transform rewrites are modelled in detail. Every
// other statement is kept as a verbatim slice of the source.
package syntax

// Tree is a mutable view of one parsed file.
type Tree interface {
	// Path is the file path the tree was parsed from.
	Path() string
	// Statements returns the top-level statement list.
	Statements() []Stmt
	// SetStatements replaces the top-level statement list.
	SetStatements(stmts []Stmt)
	// FreshIdentifier returns an identifier derived from hint that clashes
	// with no name in the file and no previously generated name.
	FreshIdentifier(hint string) Ident
	// ReleaseIdentifier returns a name obtained from FreshIdentifier.
	ReleaseIdentifier(id Ident)
}

// Span locates a parsed node in the source.
type Span struct {
	Start  uint32
	End    uint32
	Line   int // 1-based
	Column int // 1-based
}

// Stmt is a top-level statement.
type Stmt interface {
	isStmt()
}

// Expr is an expression.
type Expr interface {
	isExpr()
}

// Ident is an identifier reference or binding.
type Ident struct {
	Name string
}

// IsZero reports whether the identifier is absent.
func (i Ident) IsZero() bool { return i.Name == "" }

// ImportSpec is one "{ imported as local }" entry of an import.
type ImportSpec struct {
	Imported string
	Local    Ident
}

// SImport is an import declaration.
//
//	import Default from 'source'
//	import * as Namespace from 'source'
//	import { a, b as c } from 'source'
//	import 'source'
type SImport struct {
	Span
	Text      string
	Source    string
	Default   Ident
	Namespace Ident
	Named     []ImportSpec
}

// HasSpecifiers reports whether the import binds anything.
func (s *SImport) HasSpecifiers() bool {
	return !s.Default.IsZero() || !s.Namespace.IsZero() || len(s.Named) > 0
}

// SpecifierCount returns the number of bindings the import introduces.
func (s *SImport) SpecifierCount() int {
	n := len(s.Named)
	if !s.Default.IsZero() {
		n++
	}
	if !s.Namespace.IsZero() {
		n++
	}
	return n
}

// FuncDecl is a named function declaration.
type FuncDecl struct {
	Name Ident
	Text string
}

// SExportDefault is "export default ...". Exactly one of Func and Value is
// set: Func for a named function declaration, Value otherwise.
type SExportDefault struct {
	Span
	Text  string
	Func  *FuncDecl
	Value Expr
	// Comments are comments inside the statement but outside Func and
	// Value, e.g. a trailing "// note" before the line ends.
	Comments []string
}

// ExportSpec is one "{ local as exported }" entry of an export clause.
type ExportSpec struct {
	Local    string
	Exported string
}

// SExportClause is "export { a, b as c }" without a source.
type SExportClause struct {
	Span
	Text     string
	Items    []ExportSpec
	Comments []string
}

// SExportFrom is a re-export: "export { a } from 'x'" or "export * from 'x'".
type SExportFrom struct {
	Span
	Text   string
	Source string
}

// SExportDecl is a named declaration export such as "export const a = 1".
type SExportDecl struct {
	Span
	Text string
}

// SRaw is any other statement, kept verbatim.
type SRaw struct {
	Span
	Text string
}

// SExpr is a synthesized expression statement.
type SExpr struct {
	X Expr
}

// SVar is a synthesized "var Name = Init;" declaration.
type SVar struct {
	Name Ident
	Init Expr
}

func (*SImport) isStmt()        {}
func (*SExportDefault) isStmt() {}
func (*SExportClause) isStmt()  {}
func (*SExportFrom) isStmt()    {}
func (*SExportDecl) isStmt()    {}
func (*SRaw) isStmt()           {}
func (*SExpr) isStmt()          {}
func (*SVar) isStmt()           {}

// EString is a string literal.
type EString struct {
	Value string
}

// EMember is a dotted property access.
type EMember struct {
	X    Expr
	Name string
}

// ECall is a call expression.
type ECall struct {
	Callee Expr
	Args   []Expr
}

// EArray is an array literal.
type EArray struct {
	Items []Expr
}

// EFunction is an anonymous function expression.
type EFunction struct {
	Params []Ident
	Body   []Stmt
}

// ERaw is an expression kept verbatim.
type ERaw struct {
	Text string
}

func (Ident) isExpr()      {}
func (*EString) isExpr()   {}
func (*EMember) isExpr()   {}
func (*ECall) isExpr()     {}
func (*EArray) isExpr()    {}
func (*EFunction) isExpr() {}
func (*ERaw) isExpr()      {}

// String builds a string literal.
func String(value string) *EString { return &EString{Value: value} }

// Member builds x.a.b.c from a base expression and property names.
func Member(x Expr, names ...string) Expr {
	for _, name := range names {
		x = &EMember{X: x, Name: name}
	}
	return x
}

// Path builds a member chain from a dotted path such as "ym.modules.define".
func Path(first string, rest ...string) Expr {
	return Member(Ident{Name: first}, rest...)
}

// Call builds callee(args...).
func Call(callee Expr, args ...Expr) *ECall { return &ECall{Callee: callee, Args: args} }

// Array builds [items...].
func Array(items ...Expr) *EArray { return &EArray{Items: items} }

// Function builds function(params...) { body }.
func Function(params []Ident, body []Stmt) *EFunction {
	return &EFunction{Params: params, Body: body}
}

// ExprStmt wraps an expression into a statement.
func ExprStmt(x Expr) *SExpr { return &SExpr{X: x} }

// Var builds "var name = init;".
func Var(name Ident, init Expr) *SVar { return &SVar{Name: name, Init: init} }

// SpanOf returns the source location of a parsed statement, or false for
// synthesized ones.
func SpanOf(s Stmt) (Span, bool) {
	switch s := s.(type) {
	case *SImport:
		return s.Span, true
	case *SExportDefault:
		return s.Span, true
	case *SExportClause:
		return s.Span, true
	case *SExportFrom:
		return s.Span, true
	case *SExportDecl:
		return s.Span, true
	case *SRaw:
		return s.Span, true
	}
	return Span{}, false
}

// SourceText returns the original text of a parsed statement, or "" for
// synthesized ones.
func SourceText(s Stmt) string {
	switch s := s.(type) {
	case *SImport:
		return s.Text
	case *SExportDefault:
		return s.Text
	case *SExportClause:
		return s.Text
	case *SExportFrom:
		return s.Text
	case *SExportDecl:
		return s.Text
	case *SRaw:
		return s.Text
	}
	return ""
}
