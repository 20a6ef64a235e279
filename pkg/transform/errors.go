package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/l3aro/go-esym/pkg/syntax"
)

// Error kinds. Every *Error wraps exactly one of them.
var (
	// ErrInvalidPath is an absolute path where a relative one is expected,
	// or a relative import escaping the working directory.
	ErrInvalidPath = errors.New("invalid path")
	// ErrUnresolvableImport is a bare specifier with no source mapping.
	ErrUnresolvableImport = errors.New("unresolvable import")
	// ErrUnsupportedImport is an import shape the module format cannot express.
	ErrUnsupportedImport = errors.New("unsupported import")
	// ErrUnsupportedExport is an export shape the module format cannot express.
	ErrUnsupportedExport = errors.New("unsupported export")
	// ErrNoOutput is a module with neither an export nor an explicit provide.
	ErrNoOutput = errors.New("module produces nothing")
	// ErrParse is a source file that is not valid JavaScript.
	ErrParse = errors.New("parse error")
)

// ErrContextSealed is returned by Context.AddImport once the module has been
// emitted.
var ErrContextSealed = errors.New("transform context is sealed")

// Error is a fatal problem with one file.
type Error struct {
	Kind      error
	Path      string
	Line      int
	Column    int
	Construct string
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&sb, ":%d:%d", e.Line, e.Column)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if e.Construct != "" {
		fmt.Fprintf(&sb, " (in %q)", e.Construct)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, path string, stmt syntax.Stmt, format string, args ...any) *Error {
	e := &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
	if stmt != nil {
		if span, ok := syntax.SpanOf(stmt); ok {
			e.Line, e.Column = span.Line, span.Column
		}
		e.Construct = firstLine(syntax.SourceText(stmt))
	}
	return e
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
