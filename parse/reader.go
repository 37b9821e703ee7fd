package parse

import (
	"bufio"
	"context"
	"io"
	"slices"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/snow-ghost/asp/core"
)

const (
	answerPrefix       = "Answer:"
	optimizationPrefix = "Optimization:"
	optimumFound       = "OPTIMUM FOUND"

	// DefaultCacheSize is the number of parsed model lines kept by a Reader.
	DefaultCacheSize = 256

	maxLineSize = 64 << 20
)

// Option configures a Reader.
type Option func(*Reader)

// WithCacheSize sets how many parsed model lines are memoised. Zero disables the cache.
func WithCacheSize(size int) Option {
	return func(r *Reader) { r.cacheSize = size }
}

// WithIntsAsSymbols keeps numbers as symbols instead of parsing them.
func WithIntsAsSymbols() Option {
	return func(r *Reader) { r.intsAsSymbols = true }
}

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reader is a core.Source over clingo's default text output:
//
//	Answer: 1
//	a(0) b(1)
//	Optimization: 3
//	OPTIMUM FOUND
//
// A model is returned once the line following its block has been read, so
// its optimization and optimality are known.
type Reader struct {
	sc            *bufio.Scanner
	cache         *lru.Cache[string, []core.Atom]
	cacheSize     int
	intsAsSymbols bool
	logger        *zap.Logger

	pending *core.Model
	err     error
}

// NewReader reads clingo output from r.
func NewReader(r io.Reader, opts ...Option) *Reader {
	rd := &Reader{
		sc:        bufio.NewScanner(r),
		cacheSize: DefaultCacheSize,
		logger:    zap.NewNop(),
	}
	rd.sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for _, opt := range opts {
		opt(rd)
	}
	if rd.cacheSize > 0 {
		// only fails for a non-positive size
		rd.cache, _ = lru.New[string, []core.Atom](rd.cacheSize)
	}
	return rd
}

// Next returns the next model, io.EOF at the end of the output, or a
// *core.ShapeError for a model line that cannot be parsed.
func (r *Reader) Next(ctx context.Context) (core.Model, error) {
	if r.err != nil {
		return core.Model{}, r.err
	}
	for {
		if err := ctx.Err(); err != nil {
			return core.Model{}, err
		}
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				r.err = err
			} else {
				r.err = io.EOF
			}
			return r.flush()
		}
		line := strings.TrimSpace(r.sc.Text())

		switch {
		case strings.HasPrefix(line, answerPrefix):
			number, _ := strconv.Atoi(strings.TrimSpace(line[len(answerPrefix):]))
			m, err := r.readModel(number)
			prev := r.pending
			r.pending = m
			if err != nil {
				// models read so far are still delivered before the error
				r.err = err
			}
			if prev != nil {
				return *prev, nil
			}
			if err != nil {
				return core.Model{}, err
			}
		case r.pending != nil && strings.HasPrefix(line, optimizationPrefix):
			r.pending.Optimization = parseCosts(line[len(optimizationPrefix):])
		case r.pending != nil && line == optimumFound:
			r.pending.Optimal = true
		case r.pending != nil:
			// any other line closes the block of the pending model
			prev := r.pending
			r.pending = nil
			return *prev, nil
		}
	}
}

func (r *Reader) flush() (core.Model, error) {
	if r.pending == nil {
		return core.Model{}, r.err
	}
	m := *r.pending
	r.pending = nil
	return m, nil
}

// readModel reads the atom line following an answer header.
func (r *Reader) readModel(number int) (*core.Model, error) {
	line := ""
	if r.sc.Scan() {
		line = r.sc.Text()
	} else if err := r.sc.Err(); err != nil {
		return nil, err
	}
	atoms, err := r.parseLine(line)
	if err != nil {
		r.logger.Debug("unparsable model line", zap.Int("answer", number), zap.Error(err))
		return nil, err
	}
	return &core.Model{Number: number, Atoms: atoms}, nil
}

func (r *Reader) parseLine(line string) ([]core.Atom, error) {
	if r.cache != nil {
		if atoms, ok := r.cache.Get(line); ok {
			return cloneAtoms(atoms), nil
		}
	}
	p := &parser{src: line, intsAsSymbols: r.intsAsSymbols}
	atoms, err := p.atoms()
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Add(line, cloneAtoms(atoms))
	}
	return atoms, nil
}

// cloneAtoms copies atoms so that no two models share argument storage.
func cloneAtoms(atoms []core.Atom) []core.Atom {
	out := make([]core.Atom, len(atoms))
	for i, atom := range atoms {
		out[i] = core.Atom{Predicate: atom.Predicate, Args: slices.Clone(atom.Args)}
	}
	return out
}

func parseCosts(text string) []int {
	fields := strings.Fields(text)
	costs := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		costs = append(costs, v)
	}
	return costs
}
