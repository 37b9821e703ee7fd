// Package decoder builds user objects from the atoms of an answer set.
//
// Each Spec names the predicates it consumes and, per predicate, whether the
// object takes exactly one matching atom or all of them. Atoms are grouped
// by their leading key arguments; one object is built per group once the
// whole answer set has been read.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"

	"go.uber.org/zap"

	"github.com/snow-ghost/asp/core"
)

// Result is one decoded object, or the failure to decode one group.
type Result struct {
	Spec  string
	Key   core.Tuple
	Value any
	Err   error
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used to report group failures.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver registers an observer notified for every result.
func WithObserver(o core.Observer) Option {
	return func(d *Decoder) {
		if o != nil {
			d.observer = o
		}
	}
}

type binding struct {
	spec  int
	param int
}

// Decoder holds resolved specs. It keeps no per-answer-set state and may be
// shared by concurrent decodes.
type Decoder struct {
	specs    []Spec
	routes   map[string][]binding
	logger   *zap.Logger
	observer core.Observer
}

// New resolves specs. Spec names must be unique.
func New(specs []Spec, opts ...Option) (*Decoder, error) {
	d := &Decoder{
		specs:    make([]Spec, 0, len(specs)),
		routes:   make(map[string][]binding),
		logger:   zap.NewNop(),
		observer: core.NopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}

	names := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		if err := spec.validate(); err != nil {
			return nil, err
		}
		if _, dup := names[spec.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate spec name %s", ErrInvalidSpec, spec.Name)
		}
		names[spec.Name] = struct{}{}
		d.specs = append(d.specs, spec)
		for j, p := range spec.Params {
			d.routes[p.Predicate] = append(d.routes[p.Predicate], binding{spec: i, param: j})
		}
	}
	return d, nil
}

// Decode returns the objects encoded in atoms, which should be the members
// of one answer set. Nothing is read before the first call to Next.
func (d *Decoder) Decode(atoms iter.Seq[core.Atom]) *Objects {
	return &Objects{decoder: d, atoms: atoms}
}

// DecodeModel is Decode over the atoms of m.
func (d *Decoder) DecodeModel(m core.Model) *Objects {
	return d.Decode(slices.Values(m.Atoms))
}

// DecodeModels decodes every answer set of src in turn. The results of an
// answer set are all yielded before the next one is pulled. A source error
// is yielded once and ends the sequence.
func (d *Decoder) DecodeModels(ctx context.Context, src core.Source) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		for {
			m, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Result{}, err)
				return
			}
			for res := range d.DecodeModel(m).All() {
				if !yield(res, nil) {
					return
				}
			}
		}
	}
}

// group accumulates the atoms of one key for one spec.
type group struct {
	key   core.Tuple
	atoms map[string][]core.Atom
	seen  map[string]struct{}
}

type specState struct {
	groups map[string]*group
	order  []string
	short  []core.Atom
}

// Objects is the lazy, single-pass sequence of decoded objects of one answer set.
type Objects struct {
	decoder *Decoder
	atoms   iter.Seq[core.Atom]
	results []Result
	pos     int
	drained bool
}

// Next returns the next result, or io.EOF when all groups have been emitted.
// Group failures are reported through Result.Err, not through the error.
func (o *Objects) Next() (Result, error) {
	if !o.drained {
		o.drain()
	}
	if o.pos >= len(o.results) {
		return Result{}, io.EOF
	}
	res := o.results[o.pos]
	o.results[o.pos] = Result{}
	o.pos++
	return res, nil
}

// All ranges over the remaining results.
func (o *Objects) All() iter.Seq[Result] {
	return func(yield func(Result) bool) {
		for {
			res, err := o.Next()
			if err != nil {
				return
			}
			if !yield(res) {
				return
			}
		}
	}
}

// drain reads every atom, since an All parameter may still grow until the
// answer set is exhausted, then builds the groups.
func (o *Objects) drain() {
	o.drained = true
	d := o.decoder
	states := make([]specState, len(d.specs))
	for i := range states {
		states[i].groups = make(map[string]*group)
	}

	if o.atoms != nil {
		for atom := range o.atoms {
			for _, route := range d.routes[atom.Predicate] {
				spec := d.specs[route.spec]
				st := &states[route.spec]
				if len(atom.Args) < spec.Key {
					st.short = append(st.short, atom)
					continue
				}
				key := slices.Clone(atom.Args[:spec.Key])
				g, ok := st.groups[key.Key()]
				if !ok {
					g = &group{
						key:   key,
						atoms: make(map[string][]core.Atom),
						seen:  make(map[string]struct{}),
					}
					st.groups[key.Key()] = g
					st.order = append(st.order, key.Key())
				}
				if _, dup := g.seen[atom.Key()]; dup {
					continue
				}
				g.seen[atom.Key()] = struct{}{}
				g.atoms[atom.Predicate] = append(g.atoms[atom.Predicate], atom)
			}
		}
	}
	o.atoms = nil

	for i, spec := range d.specs {
		st := &states[i]
		for _, atom := range st.short {
			key := slices.Clone(atom.Args)
			o.emit(Result{Spec: spec.Name, Key: key, Err: &GroupError{
				Spec: spec.Name, Key: key, Predicate: atom.Predicate, Err: ErrShortAtom,
			}})
		}
		for _, k := range st.order {
			o.emit(build(spec, st.groups[k]))
		}
	}
}

func (o *Objects) emit(res Result) {
	if res.Err != nil {
		o.decoder.logger.Debug("decode group failed",
			zap.String("spec", res.Spec),
			zap.Stringer("key", res.Key),
			zap.Error(res.Err))
	}
	o.decoder.observer.ObserveDecode(res.Spec, res.Err)
	o.results = append(o.results, res)
}

func build(spec Spec, g *group) Result {
	res := Result{Spec: spec.Name, Key: g.key}
	order := make([]string, 0, len(spec.Params))
	for _, p := range spec.Params {
		order = append(order, p.Predicate)
		if p.Arity != One {
			continue
		}
		switch n := len(g.atoms[p.Predicate]); {
		case n == 0:
			res.Err = &GroupError{Spec: spec.Name, Key: g.key, Predicate: p.Predicate, Err: ErrMissing}
			return res
		case n > 1:
			res.Err = &GroupError{Spec: spec.Name, Key: g.key, Predicate: p.Predicate, Err: ErrDuplicate}
			return res
		}
	}

	b := &Bindings{spec: spec.Name, key: g.key, keyLen: spec.Key, order: order, atoms: g.atoms}
	v, err := spec.Build(b)
	if err != nil {
		res.Err = &GroupError{Spec: spec.Name, Key: g.key, Err: err}
		return res
	}
	res.Value = v
	return res
}

// Collect drains objs, keeping the values of type T. Group failures and
// values of another type are returned as errors.
func Collect[T any](objs *Objects) ([]T, []error) {
	var (
		values []T
		errs   []error
	)
	for res := range objs.All() {
		if res.Err != nil {
			errs = append(errs, res.Err)
			continue
		}
		v, ok := res.Value.(T)
		if !ok {
			errs = append(errs, fmt.Errorf("decode %s(%s): got %T", res.Spec, res.Key, res.Value))
			continue
		}
		values = append(values, v)
	}
	return values, errs
}
