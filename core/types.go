package core

import (
	"strconv"
	"strings"
)

// TermKind tells which kind of solver value a Term holds.
// The order of the constants is the order used by Compare.
type TermKind uint8

const (
	Number TermKind = iota
	Symbol
	String
	Function
)

func (k TermKind) String() string {
	switch k {
	case Number:
		return "number"
	case Symbol:
		return "symbol"
	case String:
		return "string"
	case Function:
		return "function"
	default:
		return "unknown"
	}
}

// Term is an immutable value produced by the solver.
type Term struct {
	Kind TermKind
	Num  int    // Number
	Name string // Symbol name, String content (unquoted) or Function name ("" for tuples)
	Args Tuple  // Function arguments
}

// Num returns a number term.
func Num(n int) Term { return Term{Kind: Number, Num: n} }

// Sym returns a constant term.
func Sym(name string) Term { return Term{Kind: Symbol, Name: name} }

// Str returns a string term holding s unquoted.
func Str(s string) Term { return Term{Kind: String, Name: s} }

// Fn returns a function term. An empty name makes a tuple.
func Fn(name string, args ...Term) Term {
	return Term{Kind: Function, Name: name, Args: Tuple(args)}
}

// IsTuple reports whether t is an anonymous function, e.g. (a,b).
func (t Term) IsTuple() bool { return t.Kind == Function && t.Name == "" }

// Text returns the natural text of the term: the number, the symbol name
// or the unquoted string. Functions render as in String.
func (t Term) Text() string {
	switch t.Kind {
	case Number:
		return strconv.Itoa(t.Num)
	case Symbol, String:
		return t.Name
	default:
		return t.String()
	}
}

// String renders the term as ASP source text. A symbol kept from a number
// renders like that number; use Key to tell them apart.
func (t Term) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t Term) write(b *strings.Builder) {
	switch t.Kind {
	case Number:
		b.WriteString(strconv.Itoa(t.Num))
	case Symbol:
		b.WriteString(t.Name)
	case String:
		b.WriteByte('"')
		b.WriteString(quoteReplacer.Replace(t.Name))
		b.WriteByte('"')
	case Function:
		b.WriteString(t.Name)
		if len(t.Args) == 0 && t.Name != "" {
			return
		}
		b.WriteByte('(')
		t.Args.write(b)
		if t.Name == "" && len(t.Args) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	}
}

// Key returns the identity key of the term: two terms have the same key
// iff Compare reports them equal.
func (t Term) Key() string {
	var b strings.Builder
	t.writeKey(&b)
	return b.String()
}

func (t Term) writeKey(b *strings.Builder) {
	b.WriteByte('0' + byte(t.Kind))
	switch t.Kind {
	case Number:
		b.WriteString(strconv.Itoa(t.Num))
	case Symbol, String:
		b.WriteString(strconv.Quote(t.Name))
	case Function:
		b.WriteString(strconv.Quote(t.Name))
		t.Args.writeKey(b)
	}
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// Equal reports whether both terms denote the same value.
func (t Term) Equal(o Term) bool { return Compare(t, o) == 0 }

// Compare orders terms: numbers, then symbols, then strings, then functions.
// Values of the same kind compare by number, name, then arguments.
func Compare(a, b Term) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	switch a.Kind {
	case Number:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case Symbol, String:
		return strings.Compare(a.Name, b.Name)
	default:
		if len(a.Args) != len(b.Args) {
			if len(a.Args) < len(b.Args) {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return CompareTuples(a.Args, b.Args)
	}
}

// Tuple is an ordered sequence of terms, e.g. the arguments of an atom.
type Tuple []Term

// First returns the first term of the tuple, if any.
func (t Tuple) First() (Term, bool) {
	if len(t) == 0 {
		return Term{}, false
	}
	return t[0], true
}

// String renders the tuple as comma separated terms, without parentheses.
func (t Tuple) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

// Key returns the identity key of the tuple.
func (t Tuple) Key() string {
	var b strings.Builder
	t.writeKey(&b)
	return b.String()
}

func (t Tuple) writeKey(b *strings.Builder) {
	b.WriteByte('(')
	for i, term := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		term.writeKey(b)
	}
	b.WriteByte(')')
}

func (t Tuple) write(b *strings.Builder) {
	for i, term := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		term.write(b)
	}
}

// Strings returns the natural text of every term.
func (t Tuple) Strings() []string {
	out := make([]string, len(t))
	for i, term := range t {
		out[i] = term.Text()
	}
	return out
}

// CompareTuples orders tuples lexicographically; a prefix sorts first.
func CompareTuples(a, b Tuple) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Atom is a predicate applied to arguments, as found in an answer set.
type Atom struct {
	Predicate string
	Args      Tuple
}

// NewAtom builds an atom.
func NewAtom(predicate string, args ...Term) Atom {
	return Atom{Predicate: predicate, Args: Tuple(args)}
}

// Arity returns the number of arguments.
func (a Atom) Arity() int { return len(a.Args) }

// Signature returns the p/N form of the atom's predicate.
func (a Atom) Signature() string {
	return a.Predicate + "/" + strconv.Itoa(len(a.Args))
}

// String renders the atom as ASP text: p(a,1), or p when it has no arguments.
func (a Atom) String() string {
	if len(a.Args) == 0 {
		return a.Predicate
	}
	var b strings.Builder
	b.WriteString(a.Predicate)
	b.WriteByte('(')
	a.Args.write(&b)
	b.WriteByte(')')
	return b.String()
}

// Key is the identity of the atom inside an answer set.
func (a Atom) Key() string {
	var b strings.Builder
	b.WriteString(a.Predicate)
	a.Args.writeKey(&b)
	return b.String()
}

// CompareAtoms orders atoms by predicate, then arguments.
func CompareAtoms(a, b Atom) int {
	if c := strings.Compare(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	return CompareTuples(a.Args, b.Args)
}

// Model is one answer set as reported by the solver.
type Model struct {
	Number       int    // 1-based index reported by the solver, 0 if unknown
	Atoms        []Atom // members; the solver reports each atom once
	Optimization []int  // cost vector, nil when the program has no optimization
	Optimal      bool   // the solver proved this model optimal
}
