package transform

import (
	"fmt"

	"github.com/l3aro/go-esym/pkg/syntax"
	"github.com/l3aro/go-esym/pkg/types"
)

// Plugin collaborates with the transform of each file. Prepare runs before
// the file's statements are scanned; it may inspect the tree and request
// dependencies with ctx.AddImport.
type Plugin interface {
	Name() string
	Prepare(ctx *Context) error
}

// Context is the per-file state shared with plugins.
type Context struct {
	tree   syntax.Tree
	locals map[string]syntax.Ident
	order  []string
	sealed bool

	// reserved lists every identifier generated for this transform.
	reserved []syntax.Ident
}

func newContext(tree syntax.Tree) *Context {
	return &Context{tree: tree, locals: make(map[string]syntax.Ident)}
}

// Tree returns the file being transformed.
func (c *Context) Tree() syntax.Tree { return c.tree }

// Path returns the path of the file being transformed.
func (c *Context) Path() string { return c.tree.Path() }

// AddImport requests the dependency module name and returns the factory
// parameter bound to it. Repeated requests for a name return the same
// identifier. Requested dependencies come first in the emitted lists, in
// request order.
func (c *Context) AddImport(module string) (syntax.Ident, error) {
	if c.sealed {
		return syntax.Ident{}, fmt.Errorf("adding import %s to %s: %w", module, c.tree.Path(), ErrContextSealed)
	}
	if local, ok := c.locals[module]; ok {
		return local, nil
	}

	local := c.fresh(module)
	c.locals[module] = local
	c.order = append(c.order, module)
	return local, nil
}

// Imports returns the requested dependencies in request order.
func (c *Context) Imports() []types.ImportRecord {
	records := make([]types.ImportRecord, 0, len(c.order))
	for _, module := range c.order {
		records = append(records, types.ImportRecord{Module: module, Local: c.locals[module].Name})
	}
	return records
}

func (c *Context) seal() { c.sealed = true }

func (c *Context) fresh(hint string) syntax.Ident {
	id := c.tree.FreshIdentifier(hint)
	c.reserved = append(c.reserved, id)
	return id
}

// abort seals the context and hands back every generated identifier, so a
// failed transform leaves the tree's name table as it found it.
func (c *Context) abort() {
	c.seal()
	for _, id := range c.reserved {
		c.tree.ReleaseIdentifier(id)
	}
	c.reserved = nil
}

// ImplicitImports is a plugin that makes every file depend on a fixed list
// of modules, e.g. polyfills that must load first.
type ImplicitImports struct {
	Modules []string
}

// Name implements Plugin.
func (p *ImplicitImports) Name() string { return "implicit-imports" }

// Prepare implements Plugin.
func (p *ImplicitImports) Prepare(ctx *Context) error {
	for _, module := range p.Modules {
		if _, err := ctx.AddImport(module); err != nil {
			return err
		}
	}
	return nil
}
