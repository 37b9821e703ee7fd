package decoder

import (
	"fmt"

	"github.com/snow-ghost/asp/pkg/registry"
)

// FromConfig resolves decoder declarations, binding each one to the
// constructor registered under its name.
func FromConfig(decls []registry.DecoderConfig, builders map[string]BuildFunc) ([]Spec, error) {
	specs := make([]Spec, 0, len(decls))
	for _, decl := range decls {
		build, ok := builders[decl.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s: no constructor registered", ErrInvalidSpec, decl.Name)
		}
		spec := Spec{Name: decl.Name, Key: decl.Key, Build: build}
		for _, p := range decl.Params {
			arity, err := ParseArity(p.Arity)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", decl.Name, p.Predicate, err)
			}
			spec.Params = append(spec.Params, Param{Predicate: p.Predicate, Arity: arity})
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
