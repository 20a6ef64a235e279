package syntax

import (
	"strconv"
	"strings"
)

// File is a parsed JavaScript file. It implements Tree.
type File struct {
	path     string
	source   []byte
	hashbang string
	stmts    []Stmt
	names    map[string]struct{}

	// generated holds the names handed out by FreshIdentifier.
	generated map[string]struct{}
}

// Path returns the path the file was parsed from.
func (f *File) Path() string { return f.path }

// Source returns the original source.
func (f *File) Source() []byte { return f.source }

// Hashbang returns the "#!" line, if the file had one.
func (f *File) Hashbang() string { return f.hashbang }

// Statements returns the top-level statement list.
func (f *File) Statements() []Stmt { return f.stmts }

// SetStatements replaces the top-level statement list.
func (f *File) SetStatements(stmts []Stmt) { f.stmts = stmts }

// FreshIdentifier returns "_hint", "_hint2", "_hint3"... whichever is the
// first unused name.
func (f *File) FreshIdentifier(hint string) Ident {
	base := uidBase(hint)
	for i := 1; ; i++ {
		name := "_" + base
		if i > 1 {
			name += strconv.Itoa(i)
		}
		if _, taken := f.names[name]; !taken {
			f.names[name] = struct{}{}
			if f.generated == nil {
				f.generated = make(map[string]struct{})
			}
			f.generated[name] = struct{}{}
			return Ident{Name: name}
		}
	}
}

// ReleaseIdentifier makes a name returned by FreshIdentifier available
// again. Names found in the source are never released.
func (f *File) ReleaseIdentifier(id Ident) {
	if _, ok := f.generated[id.Name]; !ok {
		return
	}
	delete(f.generated, id.Name)
	delete(f.names, id.Name)
}

// Code renders the current statement list.
func (f *File) Code() string {
	code := Print(f.stmts)
	if f.hashbang != "" {
		code = f.hashbang + "\n" + code
	}
	return code
}

// ToIdentifier turns an arbitrary string into a camel-cased identifier:
// "util.foo-bar" becomes "utilFooBar".
func ToIdentifier(s string) string {
	var sb strings.Builder
	upper := false
	for _, r := range s {
		if !isIdentChar(r) {
			upper = sb.Len() > 0
			continue
		}
		if sb.Len() == 0 && r >= '0' && r <= '9' {
			continue
		}
		if upper {
			r = toUpperASCII(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// uidBase strips what FreshIdentifier adds itself: leading underscores and
// trailing digits.
func uidBase(hint string) string {
	base := strings.TrimLeft(ToIdentifier(hint), "_")
	base = strings.TrimRight(base, "0123456789")
	if base == "" {
		return "ref"
	}
	return base
}

func isIdentChar(r rune) bool {
	return r == '$' || r == '_' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func toUpperASCII(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}
