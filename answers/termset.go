package answers

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/snow-ghost/asp/core"
)

// TermSet is an immutable set of atoms, the object form of an answer set.
// The zero value is an empty set. Members keep their insertion order.
type TermSet struct {
	atoms []core.Atom
	keys  map[string]struct{}
}

// NewTermSet returns the set of the given atoms, dropping duplicates.
func NewTermSet(atoms ...core.Atom) TermSet {
	s := TermSet{
		atoms: make([]core.Atom, 0, len(atoms)),
		keys:  make(map[string]struct{}, len(atoms)),
	}
	for _, atom := range atoms {
		s.insert(atom)
	}
	return s
}

func (s *TermSet) insert(atom core.Atom) {
	key := atom.Key()
	if _, ok := s.keys[key]; ok {
		return
	}
	s.keys[key] = struct{}{}
	s.atoms = append(s.atoms, atom)
}

// IsZero reports whether the set is empty.
func (s TermSet) IsZero() bool { return len(s.atoms) == 0 }

// Len returns the number of atoms.
func (s TermSet) Len() int { return len(s.atoms) }

// Contains reports whether atom is a member.
func (s TermSet) Contains(atom core.Atom) bool {
	_, ok := s.keys[atom.Key()]
	return ok
}

// Add returns a new set holding the members of s and atoms.
func (s TermSet) Add(atoms ...core.Atom) TermSet {
	out := NewTermSet(s.atoms...)
	for _, atom := range atoms {
		out.insert(atom)
	}
	return out
}

// Union returns a new set holding the members of both sets.
func (s TermSet) Union(o TermSet) TermSet {
	return s.Add(o.atoms...)
}

// Equal reports whether both sets hold the same atoms.
func (s TermSet) Equal(o TermSet) bool {
	if s.Len() != o.Len() {
		return false
	}
	for key := range s.keys {
		if _, ok := o.keys[key]; !ok {
			return false
		}
	}
	return true
}

// Atoms returns a copy of the members in insertion order.
func (s TermSet) Atoms() []core.Atom {
	out := make([]core.Atom, len(s.atoms))
	copy(out, s.atoms)
	return out
}

// Sorted returns a copy of the members in atom order.
func (s TermSet) Sorted() []core.Atom {
	out := s.Atoms()
	sort.Slice(out, func(i, j int) bool { return core.CompareAtoms(out[i], out[j]) < 0 })
	return out
}

// String renders the set as ASP facts, e.g. `a(1). b.`, in atom order.
func (s TermSet) String() string {
	facts := make([]string, 0, len(s.atoms))
	for _, atom := range s.Sorted() {
		facts = append(facts, atom.String()+".")
	}
	return strings.Join(facts, " ")
}

// MarshalJSON encodes the set as the list of its atoms rendered as text.
func (s TermSet) MarshalJSON() ([]byte, error) {
	out := make([]string, len(s.atoms))
	for i, atom := range s.atoms {
		out[i] = atom.String()
	}
	return json.Marshal(out)
}
