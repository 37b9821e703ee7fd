package core

import (
	"errors"
	"fmt"
)

// ErrShape is wrapped by every error about malformed solver input.
var ErrShape = errors.New("malformed answer set input")

// ShapeError describes input that does not have the (predicate, arguments) shape.
type ShapeError struct {
	Index  int    // position of the offending atom or byte, -1 if unknown
	Input  string // offending input, rendered with %v
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s: %q", ErrShape, e.Reason, e.Input)
	}
	return fmt.Sprintf("%s: %s at %d: %q", ErrShape, e.Reason, e.Index, e.Input)
}

func (e *ShapeError) Unwrap() error { return ErrShape }

// FromRaw builds a model from untyped (predicate, arguments) pairs.
// Arguments may be a []any, a Tuple, a []Term or nil; argument values may be
// Go integers, strings (string terms), Terms or []any (tuples).
func FromRaw(pairs [][2]any) (Model, error) {
	atoms := make([]Atom, 0, len(pairs))
	for i, pair := range pairs {
		pred, ok := pair[0].(string)
		if !ok || pred == "" {
			return Model{}, &ShapeError{Index: i, Input: fmt.Sprintf("%v", pair[0]), Reason: "predicate must be a non-empty string"}
		}
		args, err := toTuple(pair[1])
		if err != nil {
			return Model{}, &ShapeError{Index: i, Input: fmt.Sprintf("%v", pair[1]), Reason: err.Error()}
		}
		atoms = append(atoms, Atom{Predicate: pred, Args: args})
	}
	return Model{Atoms: atoms}, nil
}

func toTuple(v any) (Tuple, error) {
	switch args := v.(type) {
	case nil:
		return nil, nil
	case Tuple:
		return args, nil
	case []Term:
		return Tuple(args), nil
	case []any:
		out := make(Tuple, len(args))
		for i, a := range args {
			t, err := toTerm(a)
			if err != nil {
				return nil, err
			}
			out[i] = t
		}
		return out, nil
	default:
		return nil, fmt.Errorf("arguments must be a sequence, got %T", v)
	}
}

func toTerm(v any) (Term, error) {
	switch x := v.(type) {
	case Term:
		return x, nil
	case int:
		return Num(x), nil
	case int32:
		return Num(int(x)), nil
	case int64:
		return Num(int(x)), nil
	case string:
		return Str(x), nil
	case []any:
		args, err := toTuple(x)
		if err != nil {
			return Term{}, err
		}
		return Fn("", args...), nil
	default:
		return Term{}, fmt.Errorf("unsupported term value %T", v)
	}
}
