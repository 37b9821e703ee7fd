package answers

import (
	"sort"

	"github.com/snow-ghost/asp/core"
)

// Answer is one transformed answer set. Exactly one of Atoms, Objects,
// Groups, Strings or Predicates is populated, depending on the flags:
//
//	AsStrings            -> Strings
//	ByPredicate          -> Groups
//	NoArgs               -> Predicates
//	AsObjects            -> Objects
//	otherwise            -> Atoms
//
// Members are distinct. Their order is only meaningful with Sorted.
type Answer struct {
	Atoms      []core.Atom       `json:"atoms,omitempty"`
	Objects    TermSet           `json:"objects,omitzero"`
	Groups     map[string]Bucket `json:"groups,omitempty"`
	Strings    []string          `json:"strings,omitempty"`
	Predicates []string          `json:"predicates,omitempty"`

	// Set with WithOptimization.
	Number       int   `json:"number,omitempty"`
	Optimization []int `json:"optimization,omitempty"`
	Optimal      bool  `json:"optimal,omitempty"`
}

// Len returns the number of members at the top level.
func (a Answer) Len() int {
	switch {
	case a.Groups != nil:
		return len(a.Groups)
	case a.Strings != nil:
		return len(a.Strings)
	case a.Predicates != nil:
		return len(a.Predicates)
	case a.Objects.Len() > 0:
		return a.Objects.Len()
	}
	return len(a.Atoms)
}

// Bucket holds the members of one predicate group. Args is used for raw
// argument tuples, Objects when atoms are wrapped. Both are empty with NoArgs.
type Bucket struct {
	Args    []core.Tuple `json:"args,omitempty"`
	Objects TermSet      `json:"objects,omitzero"`
}

// Len returns the number of members in the bucket.
func (b Bucket) Len() int {
	if b.Objects.Len() > 0 {
		return b.Objects.Len()
	}
	return len(b.Args)
}

// Transform applies flags to one raw model.
func Transform(m core.Model, f Flags) Answer {
	members := reduce(m.Atoms, f)

	var ans Answer
	switch {
	case f.AsStrings:
		ans.Strings = stringify(members, f)
	case f.ByPredicate:
		ans.Groups = group(members, f)
	case f.NoArgs:
		ans.Predicates = predicates(members)
	case f.AsObjects:
		ans.Objects = NewTermSet(members...)
	default:
		ans.Atoms = members
	}
	if f.WithOptimization {
		ans.Number = m.Number
		ans.Optimization = m.Optimization
		ans.Optimal = m.Optimal
	}
	return ans
}

// reduce truncates arguments as requested and removes duplicates.
func reduce(atoms []core.Atom, f Flags) []core.Atom {
	seen := make(map[string]struct{}, len(atoms))
	out := make([]core.Atom, 0, len(atoms))
	for _, atom := range atoms {
		switch {
		case f.NoArgs:
			atom = core.Atom{Predicate: atom.Predicate}
		case f.FirstArgOnly:
			// An atom without arguments keeps an empty, non-nil tuple: it is
			// present, it just has no first argument.
			if first, ok := atom.Args.First(); ok {
				atom = core.Atom{Predicate: atom.Predicate, Args: core.Tuple{first}}
			} else {
				atom = core.Atom{Predicate: atom.Predicate, Args: core.Tuple{}}
			}
		}
		key := atom.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, atom)
	}
	if f.Sorted {
		sort.SliceStable(out, func(i, j int) bool { return core.CompareAtoms(out[i], out[j]) < 0 })
	}
	return out
}

func stringify(atoms []core.Atom, f Flags) []string {
	out := make([]string, len(atoms))
	for i, atom := range atoms {
		out[i] = atom.String()
	}
	if f.Sorted {
		sort.Strings(out)
	}
	return out
}

func predicates(atoms []core.Atom) []string {
	seen := make(map[string]struct{}, len(atoms))
	out := make([]string, 0, len(atoms))
	for _, atom := range atoms {
		if _, dup := seen[atom.Predicate]; dup {
			continue
		}
		seen[atom.Predicate] = struct{}{}
		out = append(out, atom.Predicate)
	}
	return out
}

// group buckets atoms by predicate. Wrapping happens inside each bucket:
// with AsObjects a bucket holds atoms, otherwise their argument tuples.
// Members arrive sorted when Sorted is set, so buckets are sorted too.
func group(atoms []core.Atom, f Flags) map[string]Bucket {
	members := make(map[string][]core.Atom)
	for _, atom := range atoms {
		members[atom.Predicate] = append(members[atom.Predicate], atom)
		if f.ByArity {
			members[atom.Signature()] = append(members[atom.Signature()], atom)
		}
	}

	groups := make(map[string]Bucket, len(members))
	for key, bucket := range members {
		switch {
		case f.NoArgs:
			groups[key] = Bucket{}
		case f.AsObjects:
			groups[key] = Bucket{Objects: NewTermSet(bucket...)}
		default:
			args := make([]core.Tuple, len(bucket))
			for i, atom := range bucket {
				args[i] = atom.Args
			}
			groups[key] = Bucket{Args: args}
		}
	}
	return groups
}
