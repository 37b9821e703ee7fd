package decoder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/snow-ghost/asp/core"
)

var (
	// ErrInvalidSpec is returned by New for specs that cannot be resolved.
	ErrInvalidSpec = errors.New("invalid decoder spec")
	// ErrMissing means a parameter of arity One had no matching atom in a group.
	ErrMissing = errors.New("missing atom for parameter")
	// ErrDuplicate means a parameter of arity One matched several atoms in a group.
	ErrDuplicate = errors.New("several atoms for single parameter")
	// ErrShortAtom means an atom has fewer arguments than the group key.
	ErrShortAtom = errors.New("atom shorter than group key")
)

// Arity is the contract of a parameter: how many matching atoms it takes per group.
type Arity int

const (
	One Arity = iota + 1 // exactly one atom
	All                  // every matching atom, possibly none
)

func (a Arity) String() string {
	switch a {
	case One:
		return "one"
	case All:
		return "all"
	default:
		return fmt.Sprintf("arity(%d)", int(a))
	}
}

// ParseArity reads "one"/"1" or "all"/"*".
func ParseArity(s string) (Arity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one", "1":
		return One, nil
	case "all", "*":
		return All, nil
	default:
		return 0, fmt.Errorf("%w: unknown arity %q", ErrInvalidSpec, s)
	}
}

// Param binds a predicate to a constructor parameter.
type Param struct {
	Predicate string
	Arity     Arity
}

// BuildFunc constructs one object from the atoms of a group.
type BuildFunc func(b *Bindings) (any, error)

// Typed adapts a constructor returning a concrete type.
func Typed[T any](build func(b *Bindings) (T, error)) BuildFunc {
	return func(b *Bindings) (any, error) {
		return build(b)
	}
}

// Spec declares how to decode one kind of object.
//
// Key is the number of leading arguments shared by all atoms of an object,
// e.g. 1 for concept(0), extent(0,a), intent(0,c). With Key 0 every matching
// atom of an answer set belongs to the same single object.
type Spec struct {
	Name   string
	Key    int
	Params []Param
	Build  BuildFunc
}

func (s Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSpec)
	}
	if s.Build == nil {
		return fmt.Errorf("%w: %s: no build function", ErrInvalidSpec, s.Name)
	}
	if s.Key < 0 {
		return fmt.Errorf("%w: %s: negative key length %d", ErrInvalidSpec, s.Name, s.Key)
	}
	if len(s.Params) == 0 {
		return fmt.Errorf("%w: %s: no parameters", ErrInvalidSpec, s.Name)
	}
	seen := make(map[string]struct{}, len(s.Params))
	for _, p := range s.Params {
		if p.Predicate == "" {
			return fmt.Errorf("%w: %s: empty predicate", ErrInvalidSpec, s.Name)
		}
		if p.Arity != One && p.Arity != All {
			return fmt.Errorf("%w: %s: predicate %s has %s", ErrInvalidSpec, s.Name, p.Predicate, p.Arity)
		}
		if _, dup := seen[p.Predicate]; dup {
			return fmt.Errorf("%w: %s: predicate %s declared twice", ErrInvalidSpec, s.Name, p.Predicate)
		}
		seen[p.Predicate] = struct{}{}
	}
	return nil
}

// GroupError reports the failure to build one object. Other groups are not affected.
type GroupError struct {
	Spec      string
	Key       core.Tuple
	Predicate string // offending parameter, empty for build failures
	Err       error
}

func (e *GroupError) Error() string {
	if e.Predicate == "" {
		return fmt.Sprintf("decode %s(%s): %v", e.Spec, e.Key, e.Err)
	}
	return fmt.Sprintf("decode %s(%s): %s: %v", e.Spec, e.Key, e.Predicate, e.Err)
}

func (e *GroupError) Unwrap() error { return e.Err }
