// Package parse reads the textual output of clingo.
package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/snow-ghost/asp/core"
)

// Atoms parses one model line, e.g. `a(0) b("x,y",f(1,2)) c`.
func Atoms(line string) ([]core.Atom, error) {
	p := &parser{src: line}
	return p.atoms()
}

// Term parses a single term, e.g. `f(a,"b",(1,2))`.
func Term(text string) (core.Term, error) {
	p := &parser{src: text}
	p.skipSpace()
	t, err := p.term()
	if err != nil {
		return core.Term{}, err
	}
	p.skipSpace()
	if !p.eof() {
		return core.Term{}, p.fail("trailing input")
	}
	return t, nil
}

type parser struct {
	src           string
	pos           int
	intsAsSymbols bool
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) fail(reason string) error {
	return &core.ShapeError{Index: p.pos, Input: p.src, Reason: reason}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdent(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9') || b == '\''
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (p *parser) atoms() ([]core.Atom, error) {
	var out []core.Atom
	for {
		p.skipSpace()
		if p.eof() {
			return out, nil
		}
		atom, err := p.atom()
		if err != nil {
			return nil, err
		}
		out = append(out, atom)
		if !p.eof() && !isSpace(p.peek()) {
			return nil, p.fail("expected space between atoms")
		}
	}
}

func (p *parser) atom() (core.Atom, error) {
	start := p.pos
	// classical negation is part of the predicate name
	if p.peek() == '-' {
		p.pos++
	}
	name := p.ident()
	if name == "" {
		p.pos = start
		return core.Atom{}, p.fail("expected predicate")
	}
	pred := p.src[start:p.pos]
	if p.peek() != '(' {
		return core.Atom{Predicate: pred}, nil
	}
	args, _, err := p.args()
	if err != nil {
		return core.Atom{}, err
	}
	return core.Atom{Predicate: pred, Args: args}, nil
}

func (p *parser) ident() string {
	start := p.pos
	if p.eof() || !isIdentStart(p.src[p.pos]) {
		return ""
	}
	for !p.eof() && isIdent(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

// args parses a parenthesized, comma separated list. trailing reports a
// final comma, which makes a one-element tuple.
func (p *parser) args() (core.Tuple, bool, error) {
	p.pos++ // (
	var out core.Tuple
	trailing := false
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			return out, trailing, nil
		}
		if len(out) > 0 && !trailing {
			return nil, false, p.fail("expected ',' or ')'")
		}
		t, err := p.term()
		if err != nil {
			return nil, false, err
		}
		out = append(out, t)
		p.skipSpace()
		trailing = false
		switch p.peek() {
		case ',':
			p.pos++
			trailing = true
		case ')':
		default:
			return nil, false, p.fail("expected ',' or ')'")
		}
	}
}

func (p *parser) term() (core.Term, error) {
	if p.eof() {
		return core.Term{}, p.fail("unexpected end of input")
	}
	switch c := p.peek(); {
	case c == '"':
		return p.str()
	case c == '(':
		args, trailing, err := p.args()
		if err != nil {
			return core.Term{}, err
		}
		if len(args) == 1 && !trailing {
			// (t) is t itself, only (t,) is a tuple
			return args[0], nil
		}
		return core.Fn("", args...), nil
	case c == '-' || isDigit(c):
		return p.number()
	case c == '#':
		start := p.pos
		p.pos++
		if p.ident() == "" {
			return core.Term{}, p.fail("expected #inf or #sup")
		}
		return core.Sym(p.src[start:p.pos]), nil
	case isIdentStart(c):
		name := p.ident()
		if p.peek() != '(' {
			return core.Sym(name), nil
		}
		args, _, err := p.args()
		if err != nil {
			return core.Term{}, err
		}
		return core.Fn(name, args...), nil
	default:
		return core.Term{}, p.fail(fmt.Sprintf("unexpected %q", c))
	}
}

func (p *parser) number() (core.Term, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
		if p.peek() == '(' {
			return core.Term{}, p.fail("unsupported negated term")
		}
	}
	if p.eof() || !isDigit(p.peek()) {
		return core.Term{}, p.fail("expected digit")
	}
	for !p.eof() && isDigit(p.peek()) {
		p.pos++
	}
	text := p.src[start:p.pos]
	if p.intsAsSymbols {
		return core.Sym(text), nil
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return core.Term{}, p.fail("number out of range")
	}
	return core.Num(v), nil
}

func (p *parser) str() (core.Term, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return core.Str(b.String()), nil
		case '\\':
			p.pos++
			if p.eof() {
				return core.Term{}, p.fail("unterminated escape")
			}
			switch e := p.src[p.pos]; e {
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte(e)
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return core.Term{}, p.fail("unterminated string")
}
