package syntax

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// ErrSyntax is wrapped by every ParseError.
var ErrSyntax = errors.New("syntax error")

// ParseError reports source that tree-sitter could not parse cleanly.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Near   string
}

func (e *ParseError) Error() string {
	if e.Near != "" {
		return fmt.Sprintf("%s:%d:%d: syntax error near %q", e.Path, e.Line, e.Column, e.Near)
	}
	return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line, e.Column)
}

func (e *ParseError) Unwrap() error { return ErrSyntax }

// Parser turns JavaScript source into a File. A Parser is not safe for
// concurrent use; give each goroutine its own.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a parser for ES module JavaScript.
func NewParser() *Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	return &Parser{parser: parser}
}

// Parse parses a file with a throwaway parser.
func Parse(path string, content []byte) (*File, error) {
	return NewParser().Parse(path, content)
}

// Parse parses content, the source of the file at path.
func (p *Parser) Parse(path string, content []byte) (*File, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, newParseError(path, root, content)
	}

	f := &File{
		path:   path,
		source: content,
		names:  make(map[string]struct{}),
	}
	collectNames(root, content, f.names)

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "hash_bang_line":
			f.hashbang = nodeText(child, content)
		case "empty_statement":
		case "import_statement":
			f.stmts = append(f.stmts, parseImport(child, content))
		case "export_statement":
			f.stmts = append(f.stmts, parseExport(child, content))
		default:
			f.stmts = append(f.stmts, &SRaw{Span: spanOf(child), Text: nodeText(child, content)})
		}
	}

	return f, nil
}

// parseImport handles "import x from 'y'", "import { a as b } from 'y'",
// "import * as ns from 'y'" and "import 'y'".
func parseImport(node *sitter.Node, content []byte) *SImport {
	s := &SImport{Span: spanOf(node), Text: nodeText(node, content)}

	if source := node.ChildByFieldName("source"); source != nil {
		s.Source = stringValue(source, content)
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		clause := node.NamedChild(i)
		if clause == nil || clause.Type() != "import_clause" {
			continue
		}

		for j := 0; j < int(clause.NamedChildCount()); j++ {
			child := clause.NamedChild(j)
			if child == nil {
				continue
			}

			switch child.Type() {
			case "identifier":
				s.Default = Ident{Name: nodeText(child, content)}
			case "namespace_import":
				for k := 0; k < int(child.NamedChildCount()); k++ {
					if id := child.NamedChild(k); id != nil && id.Type() == "identifier" {
						s.Namespace = Ident{Name: nodeText(id, content)}
					}
				}
			case "named_imports":
				s.Named = append(s.Named, parseImportSpecifiers(child, content)...)
			}
		}
	}

	return s
}

func parseImportSpecifiers(node *sitter.Node, content []byte) []ImportSpec {
	var specs []ImportSpec
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Type() != "import_specifier" {
			continue
		}

		imported := exportName(child.ChildByFieldName("name"), content)
		local := imported
		if alias := child.ChildByFieldName("alias"); alias != nil {
			local = nodeText(alias, content)
		}
		specs = append(specs, ImportSpec{Imported: imported, Local: Ident{Name: local}})
	}
	return specs
}

// parseExport classifies an export_statement.
func parseExport(node *sitter.Node, content []byte) Stmt {
	span, text := spanOf(node), nodeText(node, content)

	if source := node.ChildByFieldName("source"); source != nil {
		return &SExportFrom{Span: span, Text: text, Source: stringValue(source, content)}
	}

	isDefault := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil && child.Type() == "default" {
			isDefault = true
			break
		}
	}

	declaration := node.ChildByFieldName("declaration")

	if isDefault {
		s := &SExportDefault{Span: span, Text: text, Comments: comments(node, content)}
		target := declaration
		if target == nil {
			target = node.ChildByFieldName("value")
		}
		if target == nil {
			return &SExportDecl{Span: span, Text: text}
		}

		switch target.Type() {
		case "function_declaration", "generator_function_declaration",
			"function_expression", "function", "generator_function":
			if name := target.ChildByFieldName("name"); name != nil {
				s.Func = &FuncDecl{
					Name: Ident{Name: nodeText(name, content)},
					Text: nodeText(target, content),
				}
				return s
			}
		}

		s.Value = &ERaw{Text: nodeText(target, content)}
		return s
	}

	if declaration != nil {
		return &SExportDecl{Span: span, Text: text}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Type() == "export_clause" {
			return &SExportClause{
				Span:     span,
				Text:     text,
				Items:    parseExportSpecifiers(child, content),
				Comments: comments(node, content),
			}
		}
	}

	return &SExportDecl{Span: span, Text: text}
}

// comments returns the text of the comments that are direct children of
// node.
func comments(node *sitter.Node, content []byte) []string {
	var out []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child != nil && child.Type() == "comment" {
			out = append(out, nodeText(child, content))
		}
	}
	return out
}

func parseExportSpecifiers(node *sitter.Node, content []byte) []ExportSpec {
	var specs []ExportSpec
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Type() != "export_specifier" {
			continue
		}

		local := exportName(child.ChildByFieldName("name"), content)
		exported := local
		if alias := child.ChildByFieldName("alias"); alias != nil {
			exported = exportName(alias, content)
		}
		specs = append(specs, ExportSpec{Local: local, Exported: exported})
	}
	return specs
}

// exportName reads a module export name, which is an identifier or a string.
func exportName(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	if node.Type() == "string" {
		return stringValue(node, content)
	}
	return nodeText(node, content)
}

// stringValue returns the value of a string literal node.
func stringValue(node *sitter.Node, content []byte) string {
	var sb strings.Builder
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "string_fragment":
			sb.WriteString(nodeText(child, content))
		case "escape_sequence":
			sb.WriteString(unescape(nodeText(child, content)))
		}
	}
	return sb.String()
}

func unescape(seq string) string {
	if len(seq) < 2 {
		return seq
	}
	switch seq[1] {
	case 'n':
		return "\n"
	case 'r':
		return "\r"
	case 't':
		return "\t"
	case '\n':
		return ""
	}
	return seq[1:]
}

// isIdentifierType reports whether nodes of type t occupy a name.
func isIdentifierType(t string) bool {
	switch t {
	case "identifier", "property_identifier", "private_property_identifier",
		"shorthand_property_identifier", "shorthand_property_identifier_pattern",
		"statement_identifier":
		return true
	}
	return false
}

// collectNames records every identifier-like token in the tree.
func collectNames(node *sitter.Node, content []byte, names map[string]struct{}) {
	if node == nil {
		return
	}
	if isIdentifierType(node.Type()) {
		names[nodeText(node, content)] = struct{}{}
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectNames(node.NamedChild(i), content, names)
	}
}

func newParseError(path string, root *sitter.Node, content []byte) *ParseError {
	bad := firstError(root)
	if bad == nil {
		bad = root
	}

	near := nodeText(bad, content)
	if i := strings.IndexByte(near, '\n'); i >= 0 {
		near = near[:i]
	}
	if len(near) > 40 {
		near = near[:40]
	}

	span := spanOf(bad)
	return &ParseError{Path: path, Line: span.Line, Column: span.Column, Near: near}
}

func firstError(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if bad := firstError(node.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

func spanOf(node *sitter.Node) Span {
	start := node.StartPoint()
	return Span{
		Start:  node.StartByte(),
		End:    node.EndByte(),
		Line:   int(start.Row) + 1,
		Column: int(start.Column) + 1,
	}
}

// nodeText extracts the text content of a node from the source.
func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > uint32(len(content)) || end > uint32(len(content)) || start > end {
		return ""
	}
	return string(content[start:end])
}
