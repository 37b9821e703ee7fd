package decoder

import (
	"slices"

	"github.com/snow-ghost/asp/core"
)

// Bindings gives a constructor the atoms collected for one group.
type Bindings struct {
	spec   string
	key    core.Tuple
	keyLen int
	order  []string
	atoms  map[string][]core.Atom
}

// Spec returns the name of the spec being built.
func (b *Bindings) Spec() string { return b.spec }

// Key returns the discriminating arguments of the group, empty in single-group mode.
func (b *Bindings) Key() core.Tuple { return b.key }

// One returns the atom bound to a parameter of arity One.
func (b *Bindings) One(predicate string) core.Atom {
	if atoms := b.atoms[predicate]; len(atoms) > 0 {
		return atoms[0]
	}
	return core.Atom{}
}

// All returns every atom bound to a parameter, in arrival order.
func (b *Bindings) All(predicate string) []core.Atom {
	return slices.Clip(b.atoms[predicate])
}

// Value returns the arguments following the key of the One atom.
func (b *Bindings) Value(predicate string) core.Tuple {
	return b.strip(b.One(predicate))
}

// Values returns the arguments following the key of every bound atom.
func (b *Bindings) Values(predicate string) []core.Tuple {
	atoms := b.atoms[predicate]
	out := make([]core.Tuple, len(atoms))
	for i, atom := range atoms {
		out[i] = b.strip(atom)
	}
	return out
}

// Atoms returns every atom of the group, parameter by parameter.
func (b *Bindings) Atoms() []core.Atom {
	var out []core.Atom
	for _, pred := range b.order {
		out = append(out, b.atoms[pred]...)
	}
	return out
}

func (b *Bindings) strip(atom core.Atom) core.Tuple {
	if len(atom.Args) < b.keyLen {
		return nil
	}
	return slices.Clip(atom.Args[b.keyLen:])
}
