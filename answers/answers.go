// Package answers turns the raw answer sets of a solver run into a lazy
// stream of reshaped answer sets.
//
// Presentation is tuned with fluent flag setters on Answers. The flags in
// effect are captured when a traversal starts, so a running Iterator never
// changes shape; Next starts a fresh traversal each call, which lets callers
// retune between two answers.
package answers

import (
	"context"
	"errors"
	"io"
	"iter"

	"go.uber.org/zap"

	"github.com/snow-ghost/asp/core"
)

// Flags is the presentation configuration of a traversal.
type Flags struct {
	FirstArgOnly     bool // keep only the first argument of each atom
	ByPredicate      bool // group atoms by predicate
	AsObjects        bool // wrap atoms into TermSet values
	Sorted           bool // deterministic ordering everywhere
	AsStrings        bool // render atoms as ASP text
	NoArgs           bool // drop arguments entirely
	ByArity          bool // with ByPredicate, also key groups by p/N
	WithOptimization bool // expose the optimization vector of each model
}

// Option configures Answers.
type Option func(*Answers)

// WithLogger sets the logger used for stream diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Answers) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithObserver registers an observer notified for every transformed answer set.
func WithObserver(o core.Observer) Option {
	return func(a *Answers) {
		if o != nil {
			a.observer = o
		}
	}
}

// Answers proxies a solver run. It is iterable on the answer sets of the
// underlying source, which is consumed at most once.
type Answers struct {
	src      core.Source
	flags    Flags
	logger   *zap.Logger
	observer core.Observer
}

// New wraps src. The source must not be read by anyone else afterwards.
func New(src core.Source, opts ...Option) *Answers {
	a := &Answers{
		src:      src,
		logger:   zap.NewNop(),
		observer: core.NopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Answers) FirstArgOnly() *Answers     { a.flags.FirstArgOnly = true; return a }
func (a *Answers) ByPredicate() *Answers      { a.flags.ByPredicate = true; return a }
func (a *Answers) AsObjects() *Answers        { a.flags.AsObjects = true; return a }
func (a *Answers) Sorted() *Answers           { a.flags.Sorted = true; return a }
func (a *Answers) AtomsAsStrings() *Answers   { a.flags.AsStrings = true; return a }
func (a *Answers) NoArgs() *Answers           { a.flags.NoArgs = true; return a }
func (a *Answers) ByArity() *Answers          { a.flags.ByArity = true; return a }
func (a *Answers) WithOptimization() *Answers { a.flags.WithOptimization = true; return a }

// Configure replaces the whole flag set.
func (a *Answers) Configure(f Flags) *Answers {
	a.flags = f
	return a
}

// Flags returns the current configuration.
func (a *Answers) Flags() Flags { return a.flags }

// Iter starts a traversal with the flags currently set.
func (a *Answers) Iter() *Iterator {
	return &Iterator{answers: a, flags: a.flags}
}

// Next pulls one answer set with the current flags.
// It returns io.EOF when the source is exhausted.
func (a *Answers) Next(ctx context.Context) (Answer, error) {
	return a.Iter().Next(ctx)
}

// All ranges over the remaining answer sets. A source error is yielded once
// and ends the sequence; exhaustion ends it silently.
func (a *Answers) All(ctx context.Context) iter.Seq2[Answer, error] {
	return a.Iter().All(ctx)
}

// Iterator is one traversal over the answer sets. It is not safe for
// concurrent use.
type Iterator struct {
	answers *Answers
	flags   Flags
	err     error
}

// Flags returns the configuration captured by this traversal.
func (it *Iterator) Flags() Flags { return it.flags }

// Next pulls exactly one raw answer set from the source and transforms it.
// Once the source fails or is exhausted, the same error is returned forever.
func (it *Iterator) Next(ctx context.Context) (Answer, error) {
	if it.err != nil {
		return Answer{}, it.err
	}
	m, err := it.answers.src.Next(ctx)
	if err != nil {
		it.err = err
		if !errors.Is(err, io.EOF) {
			it.answers.logger.Debug("answer stream stopped", zap.Error(err))
		}
		return Answer{}, err
	}
	it.answers.observer.ObserveAnswer(len(m.Atoms))
	return Transform(m, it.flags), nil
}

// All ranges over the answer sets left in this traversal.
func (it *Iterator) All(ctx context.Context) iter.Seq2[Answer, error] {
	return func(yield func(Answer, error) bool) {
		for {
			ans, err := it.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Answer{}, err)
				return
			}
			if !yield(ans, nil) {
				return
			}
		}
	}
}
