// Package types defines the records exchanged between the transform, the
// build cache and the CLI.
package types

// ImportRecord is one dependency of a module.
type ImportRecord struct {
	// Module is the canonical dotted dependency name.
	Module string `json:"module" msgpack:"module"`
	// Local is the identifier bound to the dependency inside the factory.
	// Empty for side-effect-only imports.
	Local string `json:"local,omitempty" msgpack:"local,omitempty"`
}

// HasLocal reports whether the dependency is bound to a factory parameter.
func (r ImportRecord) HasLocal() bool {
	return r.Local != ""
}

// Metadata describes a completed module transformation.
type Metadata struct {
	ModuleName        string         `json:"module_name" msgpack:"module_name"`
	ProvideIdentifier string         `json:"provide_identifier" msgpack:"provide_identifier"`
	Imports           []ImportRecord `json:"imports" msgpack:"imports"`
}

// Dependencies returns the dependency names in registration order.
func (m *Metadata) Dependencies() []string {
	deps := make([]string, 0, len(m.Imports))
	for _, imp := range m.Imports {
		deps = append(deps, imp.Module)
	}
	return deps
}

// Params returns the factory parameter names: provide first, then every
// bound dependency.
func (m *Metadata) Params() []string {
	params := []string{m.ProvideIdentifier}
	for _, imp := range m.Imports {
		if imp.HasLocal() {
			params = append(params, imp.Local)
		}
	}
	return params
}
