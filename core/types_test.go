package core

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAtomString(t *testing.T) {
	require.Equal(t, "p", NewAtom("p").String())
	require.Equal(t, "p(a,1)", NewAtom("p", Sym("a"), Num(1)).String())
	require.Equal(t, `edge(4,"s\"lp.")`, NewAtom("edge", Num(4), Str(`s"lp.`)).String())
	require.Equal(t, "q(f(x,-2),(a,b),(c,))",
		NewAtom("q", Fn("f", Sym("x"), Num(-2)), Fn("", Sym("a"), Sym("b")), Fn("", Sym("c"))).String())
	require.Equal(t, "p/2", NewAtom("p", Sym("a"), Num(1)).Signature())
}

func TestTermText(t *testing.T) {
	require.Equal(t, "12", Num(12).Text())
	require.Equal(t, "a", Sym("a").Text())
	require.Equal(t, "hello world", Str("hello world").Text())
	require.Equal(t, `"hello world"`, Str("hello world").String())
	require.True(t, Fn("", Num(1)).IsTuple())
	require.False(t, Fn("f", Num(1)).IsTuple())
}

func TestCompareOrdersKinds(t *testing.T) {
	terms := []Term{Fn("f", Num(1)), Str("a"), Sym("b"), Num(3), Sym("a"), Num(-1)}
	sort.Slice(terms, func(i, j int) bool { return Compare(terms[i], terms[j]) < 0 })

	got := make([]string, len(terms))
	for i, term := range terms {
		got[i] = term.String()
	}
	require.Equal(t, []string{"-1", "3", "a", "b", `"a"`, "f(1)"}, got)
}

func TestCompareAtoms(t *testing.T) {
	require.Negative(t, CompareAtoms(NewAtom("a", Num(1)), NewAtom("b")))
	require.Negative(t, CompareAtoms(NewAtom("a"), NewAtom("a", Num(1))))
	require.Positive(t, CompareAtoms(NewAtom("a", Num(2)), NewAtom("a", Num(1))))
	require.Zero(t, CompareAtoms(NewAtom("a", Sym("x")), NewAtom("a", Sym("x"))))
}

func TestKeyFollowsCompare(t *testing.T) {
	require.Equal(t, Sym("6").String(), Num(6).String())
	require.NotEqual(t, Sym("6").Key(), Num(6).Key())
	require.NotEqual(t, NewAtom("p", Sym("6")).Key(), NewAtom("p", Num(6)).Key())
	require.NotEqual(t, Tuple{Str("a")}.Key(), Tuple{Sym("a")}.Key())
	require.NotEqual(t, Fn("f").Key(), Sym("f").Key())
	require.Equal(t, NewAtom("p", Fn("", Num(1), Sym("x"))).Key(), NewAtom("p", Fn("", Num(1), Sym("x"))).Key())
}

func TestTupleFirst(t *testing.T) {
	first, ok := Tuple{Sym("x"), Sym("y")}.First()
	require.True(t, ok)
	require.Equal(t, Sym("x"), first)

	_, ok = Tuple{}.First()
	require.False(t, ok)
}

func TestFromRaw(t *testing.T) {
	m, err := FromRaw([][2]any{
		{"p", []any{1, "x", []any{2, Sym("y")}}},
		{"q", nil},
	})
	require.NoError(t, err)
	require.Equal(t, []Atom{
		NewAtom("p", Num(1), Str("x"), Fn("", Num(2), Sym("y"))),
		NewAtom("q"),
	}, m.Atoms)
}

func TestFromRawShapeError(t *testing.T) {
	_, err := FromRaw([][2]any{{"p", nil}, {42, []any{1}}})
	require.ErrorIs(t, err, ErrShape)

	var shape *ShapeError
	require.True(t, errors.As(err, &shape))
	require.Equal(t, 1, shape.Index)

	_, err = FromRaw([][2]any{{"p", 3.5}})
	require.ErrorIs(t, err, ErrShape)

	_, err = FromRaw([][2]any{{"p", []any{1.5}}})
	require.ErrorIs(t, err, ErrShape)
}

func TestSliceSourceIsSinglePass(t *testing.T) {
	ctx := context.Background()
	src := Atoms([]Atom{NewAtom("a")}, []Atom{NewAtom("b")})

	m, err := src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, m.Number)
	m, err = src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", m.Atoms[0].Predicate)

	_, err = src.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
	_, err = src.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestSliceSourceHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Atoms([]Atom{NewAtom("a")}).Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
