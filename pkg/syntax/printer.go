package syntax

import (
	"fmt"
	"strings"
	"unicode"
)

// Print renders statements as JavaScript, one statement per line. Parsed
// statements are copied verbatim from their source.
func Print(stmts []Stmt) string {
	var p printer
	p.stmts(stmts)
	return p.sb.String()
}

// PrintExpr renders a single expression.
func PrintExpr(x Expr) string {
	var p printer
	p.expr(x)
	return p.sb.String()
}

type printer struct {
	sb strings.Builder
}

func (p *printer) stmts(stmts []Stmt) {
	// last is the text of the previous statement that is not a comment.
	var last string
	for _, s := range stmts {
		start := p.sb.Len()
		if raw, ok := s.(*SRaw); ok && needsSemicolon(last, raw.Text) {
			p.sb.WriteByte(';')
		}
		p.stmt(s)
		if text := p.sb.String()[start:]; !isComment(text) {
			last = text
		}
		p.sb.WriteByte('\n')
	}
}

// needsSemicolon reports whether next, printed on the line after prev,
// would be read as a continuation of prev. Statements copied from the
// source may rely on automatic semicolon insertion against a neighbour
// that the transform removed.
func needsSemicolon(prev, next string) bool {
	prev = strings.TrimRightFunc(prev, unicode.IsSpace)
	if prev == "" || strings.HasSuffix(prev, ";") || isComment(next) {
		return false
	}
	return next != "" && strings.ContainsRune("([`+-/", rune(next[0]))
}

func isComment(text string) bool {
	return strings.HasPrefix(text, "//") || strings.HasPrefix(text, "/*")
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *SRaw:
		p.sb.WriteString(s.Text)
	case *SImport:
		p.sb.WriteString(s.Text)
	case *SExportDefault:
		p.sb.WriteString(s.Text)
	case *SExportClause:
		p.sb.WriteString(s.Text)
	case *SExportFrom:
		p.sb.WriteString(s.Text)
	case *SExportDecl:
		p.sb.WriteString(s.Text)
	case *SExpr:
		p.expr(s.X)
		p.sb.WriteByte(';')
	case *SVar:
		p.sb.WriteString("var ")
		p.sb.WriteString(s.Name.Name)
		p.sb.WriteString(" = ")
		p.expr(s.Init)
		p.sb.WriteByte(';')
	default:
		panic(fmt.Sprintf("syntax: cannot print statement %T", s))
	}
}

func (p *printer) expr(x Expr) {
	switch x := x.(type) {
	case Ident:
		p.sb.WriteString(x.Name)
	case *EString:
		p.sb.WriteString(Quote(x.Value))
	case *EMember:
		p.expr(x.X)
		p.sb.WriteByte('.')
		p.sb.WriteString(x.Name)
	case *ECall:
		p.expr(x.Callee)
		p.sb.WriteByte('(')
		p.list(x.Args)
		p.sb.WriteByte(')')
	case *EArray:
		p.sb.WriteByte('[')
		p.list(x.Items)
		p.sb.WriteByte(']')
	case *EFunction:
		p.sb.WriteString("function(")
		for i, param := range x.Params {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.sb.WriteString(param.Name)
		}
		p.sb.WriteString(") {\n")
		p.stmts(x.Body)
		p.sb.WriteByte('}')
	case *ERaw:
		p.sb.WriteString(x.Text)
	default:
		panic(fmt.Sprintf("syntax: cannot print expression %T", x))
	}
}

func (p *printer) list(xs []Expr) {
	for i, x := range xs {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		p.expr(x)
	}
}

// Quote renders s as a single-quoted JavaScript string literal.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\u2028':
			sb.WriteString(`\u2028`)
		case '\u2029':
			sb.WriteString(`\u2029`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
