package decoder

import (
	"context"
	"errors"
	"io"
	"iter"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/asp/core"
	"github.com/snow-ghost/asp/parse"
	"github.com/snow-ghost/asp/pkg/registry"
)

type concept struct {
	ID     int
	Extent []string
	Intent []string
}

func texts(tuples []core.Tuple) []string {
	out := make([]string, 0, len(tuples))
	for _, t := range tuples {
		out = append(out, t.String())
	}
	sort.Strings(out)
	return out
}

func buildConcept(b *Bindings) (concept, error) {
	return concept{
		ID:     b.Key()[0].Num,
		Extent: texts(b.Values("extent")),
		Intent: texts(b.Values("intent")),
	}, nil
}

var conceptList = Spec{
	Name: "concept",
	Key:  1,
	Params: []Param{
		{Predicate: "concept", Arity: One},
		{Predicate: "extent", Arity: All},
		{Predicate: "intent", Arity: All},
	},
	Build: Typed(buildConcept),
}

var conceptGen = Spec{
	Name: "generated",
	Params: []Param{
		{Predicate: "extent", Arity: All},
		{Predicate: "intent", Arity: All},
	},
	Build: Typed(func(b *Bindings) (concept, error) {
		return concept{Extent: texts(b.Values("extent")), Intent: texts(b.Values("intent"))}, nil
	}),
}

func a(pred string, args ...core.Term) core.Atom { return core.NewAtom(pred, args...) }

var (
	n = core.Num
	s = core.Sym
)

func mustDecoder(t *testing.T, specs ...Spec) *Decoder {
	t.Helper()
	d, err := New(specs)
	require.NoError(t, err)
	return d
}

func TestDecodeArity(t *testing.T) {
	d := mustDecoder(t, conceptList)
	atoms := []core.Atom{
		a("concept", n(0)),
		a("extent", n(0), s("a")), a("extent", n(0), s("b")),
		a("intent", n(0), s("c")), a("intent", n(0), s("d")),
	}

	got, errs := Collect[concept](d.Decode(slices.Values(atoms)))
	require.Empty(t, errs)
	require.Equal(t, []concept{{ID: 0, Extent: []string{"a", "b"}, Intent: []string{"c", "d"}}}, got)
}

func TestDecodeMultiGroup(t *testing.T) {
	d := mustDecoder(t, conceptList)
	atoms := []core.Atom{
		a("concept", n(0)), a("concept", n(1)),
		a("extent", n(0), s("a")), a("extent", n(1), s("b")), a("extent", n(0), s("b")), a("extent", n(1), s("e")),
		a("intent", n(1), s("f")), a("intent", n(0), s("c")), a("intent", n(1), s("g")), a("intent", n(0), s("d")),
		a("unrelated", n(0)),
	}

	got, errs := Collect[concept](d.DecodeModel(core.Model{Atoms: atoms}))
	require.Empty(t, errs)
	require.Equal(t, []concept{
		{ID: 0, Extent: []string{"a", "b"}, Intent: []string{"c", "d"}},
		{ID: 1, Extent: []string{"b", "e"}, Intent: []string{"f", "g"}},
	}, got)
}

func TestDecodeSingleGroup(t *testing.T) {
	d := mustDecoder(t, conceptGen)
	model, err := core.FromRaw([][2]any{
		{"extent", []any{"a"}}, {"extent", []any{"b"}},
		{"intent", []any{"c"}}, {"intent", []any{"d"}},
	})
	require.NoError(t, err)

	var results []Result
	for res := range d.DecodeModel(model).All() {
		results = append(results, res)
	}
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Empty(t, results[0].Key)
	require.Equal(t, concept{Extent: []string{`"a"`, `"b"`}, Intent: []string{`"c"`, `"d"`}}, results[0].Value)
}

func TestDecodeSingleGroupNoMatchBuildsNothing(t *testing.T) {
	d := mustDecoder(t, conceptGen)
	_, err := d.DecodeModel(core.Model{Atoms: []core.Atom{a("other", n(1))}}).Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeModelsOnePerAnswerSet(t *testing.T) {
	d := mustDecoder(t, conceptGen)
	src := core.Atoms(
		[]core.Atom{a("extent", s("a")), a("extent", s("b")), a("intent", s("c")), a("intent", s("d"))},
		[]core.Atom{a("extent", s("b")), a("extent", s("e")), a("intent", s("f")), a("intent", s("g"))},
		[]core.Atom{a("extent", s("b")), a("intent", s("c")), a("intent", s("d")), a("intent", s("f")), a("intent", s("g"))},
	)

	var got []concept
	for res, err := range d.DecodeModels(context.Background(), src) {
		require.NoError(t, err)
		require.NoError(t, res.Err)
		got = append(got, res.Value.(concept))
	}
	require.Equal(t, []concept{
		{Extent: []string{"a", "b"}, Intent: []string{"c", "d"}},
		{Extent: []string{"b", "e"}, Intent: []string{"f", "g"}},
		{Extent: []string{"b"}, Intent: []string{"c", "d", "f", "g"}},
	}, got)
}

func TestDecodeModelsSourceError(t *testing.T) {
	d := mustDecoder(t, conceptGen)
	src := core.FuncSource(func(context.Context) (core.Model, error) {
		return core.FromRaw([][2]any{{"extent", "not a tuple"}})
	})
	var errs []error
	for _, err := range d.DecodeModels(context.Background(), src) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], core.ErrShape)
}

func TestGroupFailuresAreIsolated(t *testing.T) {
	d := mustDecoder(t, conceptList)
	atoms := []core.Atom{
		a("concept", n(0)), a("extent", n(0), s("a")),
		a("extent", n(1), s("x")), // no concept(1)
		a("concept", n(2), s("p")), a("concept", n(2), s("q")), // two concepts for key 2
		a("concept"), // too short for the key
		a("concept", n(3)),
	}

	got, errs := Collect[concept](d.Decode(slices.Values(atoms)))
	require.Equal(t, []concept{
		{ID: 0, Extent: []string{"a"}, Intent: []string{}},
		{ID: 3, Extent: []string{}, Intent: []string{}},
	}, got)
	require.Len(t, errs, 3)

	require.ErrorIs(t, errs[0], ErrShortAtom)
	require.ErrorIs(t, errs[1], ErrMissing)
	require.ErrorIs(t, errs[2], ErrDuplicate)

	var ge *GroupError
	require.True(t, errors.As(errs[1], &ge))
	require.Equal(t, "concept", ge.Spec)
	require.Equal(t, core.Tuple{n(1)}, ge.Key)
	require.Equal(t, "concept", ge.Predicate)
}

func TestBuildErrorReportedPerGroup(t *testing.T) {
	boom := errors.New("boom")
	spec := Spec{
		Name:   "picky",
		Key:    1,
		Params: []Param{{Predicate: "v", Arity: One}},
		Build: func(b *Bindings) (any, error) {
			if b.Value("v")[0].Num < 0 {
				return nil, boom
			}
			return b.Value("v")[0].Num, nil
		},
	}
	d := mustDecoder(t, spec)

	got, errs := Collect[int](d.Decode(slices.Values([]core.Atom{
		a("v", s("x"), n(-1)), a("v", s("y"), n(4)),
	})))
	require.Equal(t, []int{4}, got)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], boom)
}

func TestDecodeIsLazy(t *testing.T) {
	d := mustDecoder(t, conceptList)
	pulled := 0
	var seq iter.Seq[core.Atom] = func(yield func(core.Atom) bool) {
		for _, atom := range []core.Atom{a("concept", n(0)), a("extent", n(0), s("a"))} {
			pulled++
			if !yield(atom) {
				return
			}
		}
	}

	objs := d.Decode(seq)
	require.Zero(t, pulled)

	res, err := objs.Next()
	require.NoError(t, err)
	require.Equal(t, 2, pulled)
	require.NoError(t, res.Err)

	_, err = objs.Next()
	require.ErrorIs(t, err, io.EOF)
	_, err = objs.Next()
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, pulled)
}

func TestDuplicateAtomsCollapse(t *testing.T) {
	d := mustDecoder(t, conceptList)
	got, errs := Collect[concept](d.Decode(slices.Values([]core.Atom{
		a("concept", n(0)), a("concept", n(0)), a("extent", n(0), s("a")), a("extent", n(0), s("a")),
	})))
	require.Empty(t, errs)
	require.Equal(t, []concept{{ID: 0, Extent: []string{"a"}, Intent: []string{}}}, got)
}

func TestSeveralSpecsShareAtoms(t *testing.T) {
	d := mustDecoder(t, conceptList, conceptGen)
	res := slices.Collect(d.Decode(slices.Values([]core.Atom{
		a("concept", n(0)), a("extent", n(0), s("a")),
	})).All())
	require.Len(t, res, 2)
	require.Equal(t, "concept", res[0].Spec)
	require.Equal(t, "generated", res[1].Spec)
	require.Equal(t, concept{Extent: []string{"0,a"}, Intent: []string{}}, res[1].Value)
}

func TestNewRejectsInvalidSpecs(t *testing.T) {
	build := func(*Bindings) (any, error) { return nil, nil }
	cases := map[string][]Spec{
		"empty name":     {{Params: []Param{{Predicate: "p", Arity: One}}, Build: build}},
		"no build":       {{Name: "x", Params: []Param{{Predicate: "p", Arity: One}}}},
		"negative key":   {{Name: "x", Key: -1, Params: []Param{{Predicate: "p", Arity: One}}, Build: build}},
		"no params":      {{Name: "x", Build: build}},
		"bad arity":      {{Name: "x", Params: []Param{{Predicate: "p"}}, Build: build}},
		"empty pred":     {{Name: "x", Params: []Param{{Arity: All}}, Build: build}},
		"duplicate pred": {{Name: "x", Params: []Param{{Predicate: "p", Arity: One}, {Predicate: "p", Arity: All}}, Build: build}},
		"duplicate name": {
			{Name: "x", Params: []Param{{Predicate: "p", Arity: One}}, Build: build},
			{Name: "x", Params: []Param{{Predicate: "q", Arity: One}}, Build: build},
		},
	}
	for name, specs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(specs)
			require.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestFromConfig(t *testing.T) {
	reg, err := registry.LoadRegistryFromBytes([]byte(`
decoders:
  - name: concept
    key: 1
    params:
      - {predicate: concept, arity: one}
      - {predicate: extent, arity: all}
      - {predicate: intent, arity: "*"}
`))
	require.NoError(t, err)

	specs, err := FromConfig(reg.Decoders, map[string]BuildFunc{"concept": Typed(buildConcept)})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, conceptList.Params, specs[0].Params)
	require.Equal(t, 1, specs[0].Key)

	d := mustDecoder(t, specs...)
	got, errs := Collect[concept](d.Decode(slices.Values([]core.Atom{a("concept", n(7)), a("intent", n(7), s("z"))})))
	require.Empty(t, errs)
	require.Equal(t, []concept{{ID: 7, Extent: []string{}, Intent: []string{"z"}}}, got)

	_, err = FromConfig(reg.Decoders, nil)
	require.ErrorIs(t, err, ErrInvalidSpec)

	reg.Decoders[0].Params[0].Arity = "some"
	_, err = FromConfig(reg.Decoders, map[string]BuildFunc{"concept": Typed(buildConcept)})
	require.ErrorIs(t, err, ErrInvalidSpec)
}

func TestCollectTypeMismatch(t *testing.T) {
	d := mustDecoder(t, conceptList)
	got, errs := Collect[string](d.Decode(slices.Values([]core.Atom{a("concept", n(0))})))
	require.Empty(t, got)
	require.Len(t, errs, 1)
}

func TestArityString(t *testing.T) {
	require.Equal(t, "one", One.String())
	require.Equal(t, "all", All.String())
	arity, err := ParseArity(" ALL ")
	require.NoError(t, err)
	require.Equal(t, All, arity)
}

func TestBuildRecord(t *testing.T) {
	decls := []registry.DecoderConfig{{
		Name: "colouring",
		Key:  1,
		Params: []registry.ParamConfig{
			{Predicate: "node", Arity: "one"},
			{Predicate: "colour", Arity: "one"},
			{Predicate: "edge", Arity: "all"},
		},
	}}
	specs, err := FromConfig(decls, Records("colouring"))
	require.NoError(t, err)
	d := mustDecoder(t, specs...)

	objs := d.DecodeModel(core.Model{Atoms: []core.Atom{
		a("node", core.Num(1)),
		a("colour", core.Num(1), core.Sym("red")),
	}})
	res, err := objs.Next()
	require.NoError(t, err)
	require.NoError(t, res.Err)

	rec := res.Value.(Record)
	require.Equal(t, "colouring", rec.Spec)
	require.Equal(t, core.Tuple{core.Num(1)}, rec.Key)
	require.Equal(t, []core.Tuple{{}}, rec.Fields["node"])
	require.Equal(t, []core.Tuple{{core.Sym("red")}}, rec.Fields["colour"])
	require.Empty(t, rec.Fields["edge"])
	require.NotNil(t, rec.Fields["edge"])
}

func TestKeyAppendDoesNotLeakIntoAtoms(t *testing.T) {
	tagged := Spec{
		Name:   "tagged",
		Key:    1,
		Params: []Param{{Predicate: "concept", Arity: One}, {Predicate: "extent", Arity: All}},
		Build: func(b *Bindings) (any, error) {
			key := append(b.Key(), s("tagged"))
			values := b.Values("extent")
			values[0] = append(values[0], s("tagged"))
			return key, nil
		},
	}
	d := mustDecoder(t, tagged)
	src := parse.NewReader(strings.NewReader("Answer: 1\nextent(0,a) concept(0)\nAnswer: 2\nextent(0,a) concept(0)\n"),
		parse.WithCacheSize(4))
	ctx := context.Background()

	first, err := src.Next(ctx)
	require.NoError(t, err)
	for res := range d.DecodeModel(first).All() {
		require.NoError(t, res.Err)
		require.Equal(t, core.Tuple{n(0)}, res.Key)
		require.Equal(t, core.Tuple{n(0), s("tagged")}, res.Value)
	}
	require.Equal(t, "extent(0,a)", first.Atoms[0].String())

	second, err := src.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, "extent(0,a)", second.Atoms[0].String())
}
