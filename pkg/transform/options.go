package transform

import (
	"github.com/l3aro/go-esym/pkg/modname"
)

const (
	// DefaultYmModuleName is the import source that exposes runtime bindings.
	DefaultYmModuleName = "ym"
	// DefaultYmGlobal is the global the registration call is made on.
	DefaultYmGlobal = "ym"
)

// Options configures a Transformer.
type Options struct {
	Naming modname.Options

	// SourceMappings maps bare import prefixes to module name prefixes.
	SourceMappings map[string]string

	// WorkingDir relativizes absolute file paths during import resolution.
	WorkingDir string

	// YmModuleName is the import source treated as the runtime module.
	YmModuleName string

	// YmGlobal is the identifier the registration call is emitted on.
	YmGlobal string

	// Plugins run before each file is scanned and may request extra
	// dependencies through Context.AddImport.
	Plugins []Plugin
}

// DefaultOptions returns options with every default applied.
func DefaultOptions() Options {
	return Options{
		Naming:       modname.DefaultOptions(),
		YmModuleName: DefaultYmModuleName,
		YmGlobal:     DefaultYmGlobal,
	}
}

func (o Options) withDefaults() Options {
	if o.YmModuleName == "" {
		o.YmModuleName = DefaultYmModuleName
	}
	if o.YmGlobal == "" {
		o.YmGlobal = DefaultYmGlobal
	}
	return o
}

func (o Options) resolveOptions() modname.ResolveOptions {
	return modname.ResolveOptions{
		Options:        o.Naming,
		SourceMappings: o.SourceMappings,
		WorkingDir:     o.WorkingDir,
	}
}
