package core

import (
	"context"
	"io"
)

// Source yields the answer sets of one solver run, one per call.
// Next returns io.EOF once the run is exhausted, and keeps returning it.
// A Source is single-pass: answer sets are never replayed.
type Source interface {
	Next(ctx context.Context) (Model, error)
}

// Observer receives notifications from the answer and decoder pipelines.
type Observer interface {
	ObserveAnswer(atoms int)
	ObserveDecode(spec string, err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) ObserveAnswer(int)           {}
func (NopObserver) ObserveDecode(string, error) {}

// SliceSource serves models held in memory.
type SliceSource struct {
	models []Model
	pos    int
}

// NewSliceSource returns a Source over models.
func NewSliceSource(models ...Model) *SliceSource {
	return &SliceSource{models: models}
}

// Atoms returns a Source whose models are the given atom lists, in order.
func Atoms(sets ...[]Atom) *SliceSource {
	models := make([]Model, len(sets))
	for i, atoms := range sets {
		models[i] = Model{Number: i + 1, Atoms: atoms}
	}
	return NewSliceSource(models...)
}

func (s *SliceSource) Next(ctx context.Context) (Model, error) {
	if err := ctx.Err(); err != nil {
		return Model{}, err
	}
	if s.pos >= len(s.models) {
		return Model{}, io.EOF
	}
	m := s.models[s.pos]
	s.pos++
	return m, nil
}

// FuncSource adapts a function to the Source interface.
type FuncSource func(ctx context.Context) (Model, error)

func (f FuncSource) Next(ctx context.Context) (Model, error) { return f(ctx) }
