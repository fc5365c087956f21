package region

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/carve/pkg/errs"
)

// DefaultMaxTerms caps normal-form conversion when no cap is given.
const DefaultMaxTerms = 4096

// ErrTermLimit is wrapped by the configuration error returned when a
// normal-form conversion would exceed its term cap.
var ErrTermLimit = errors.New("normal form term limit exceeded")

// litKind distinguishes the atoms a normal form is built from.
type litKind uint8

const (
	litSurface litKind = iota // signed surface leaf
	litCell                   // cell reference
	litNotCell                // complemented cell reference
	litUnknown                // undecided constant
)

type literal struct {
	kind litKind
	id   int
}

func litLess(a, b literal) bool {
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	return a.id < b.id
}

// clause is a sorted set of literals, combined by the inner operator.
type clause []literal

func (c clause) subsetOf(o clause) bool {
	if len(c) > len(o) {
		return false
	}
	j := 0
	for _, l := range c {
		for j < len(o) && litLess(o[j], l) {
			j++
		}
		if j == len(o) || o[j] != l {
			return false
		}
		j++
	}
	return true
}

func merge(a, b clause) clause {
	out := make(clause, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case litLess(a[i], b[j]):
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// reduce removes duplicate clauses and clauses absorbed by a subset.
// Clauses holding both signs of a surface are kept: a point on that
// surface satisfies both.
func reduce(cs []clause) []clause {
	sort.SliceStable(cs, func(i, j int) bool { return len(cs[i]) < len(cs[j]) })
	out := cs[:0:0]
	for _, c := range cs {
		absorbed := false
		for _, k := range out {
			if k.subsetOf(c) {
				absorbed = true
				break
			}
		}
		if !absorbed {
			out = append(out, c)
		}
	}
	return out
}

// normalizer expands an NNF tree into clauses for one normal form.
type normalizer struct {
	outer, inner Kind
	identity     Tri // identity of the inner operator
	maxTerms     int
	op           string
}

func (z *normalizer) limit(n int) error {
	if n > z.maxTerms {
		return errs.Wrap(errs.KindConfiguration, z.op,
			fmt.Errorf("%d terms exceeds cap %d: %w", n, z.maxTerms, ErrTermLimit))
	}
	return nil
}

func (z *normalizer) expand(t *Tree, i int) ([]clause, error) {
	n := t.nodes[i]
	switch n.Kind {
	case KindConst:
		switch n.Value {
		case Unknown:
			return []clause{{{kind: litUnknown}}}, nil
		case z.identity:
			return []clause{{}}, nil
		default:
			return nil, nil
		}
	case KindLeaf:
		return []clause{{{kind: litSurface, id: n.SignedSurface()}}}, nil
	case KindCellRef:
		return []clause{{{kind: litCell, id: n.Cell}}}, nil
	case KindComplement:
		// NNF leaves complements only around cell references.
		return []clause{{{kind: litNotCell, id: t.nodes[n.Left].Cell}}}, nil
	}
	l, err := z.expand(t, n.Left)
	if err != nil {
		return nil, err
	}
	r, err := z.expand(t, n.Right)
	if err != nil {
		return nil, err
	}
	if n.Kind == z.outer {
		if err := z.limit(len(l) + len(r)); err != nil {
			return nil, err
		}
		return reduce(append(l, r...)), nil
	}
	if err := z.limit(len(l) * len(r)); err != nil {
		return nil, err
	}
	out := make([]clause, 0, len(l)*len(r))
	for _, a := range l {
		for _, b := range r {
			out = append(out, merge(a, b))
		}
	}
	return reduce(out), nil
}

func (z *normalizer) build(cs []clause) *Tree {
	out := NewTree()
	terms := make([]int, 0, len(cs))
	for _, c := range cs {
		items := make([]int, 0, len(c))
		for _, l := range c {
			switch l.kind {
			case litSurface:
				items = append(items, out.Leaf(l.id))
			case litCell:
				items = append(items, out.CellRef(l.id))
			case litNotCell:
				items = append(items, out.Not(out.CellRef(l.id)))
			case litUnknown:
				items = append(items, out.Const(Unknown))
			}
		}
		terms = append(terms, out.fold(z.inner, items, z.identity))
	}
	out.SetRoot(out.fold(z.outer, terms, z.identity.not()))
	return out
}

func (z *normalizer) run(t *Tree) (*Tree, error) {
	if z.maxTerms <= 0 {
		z.maxTerms = DefaultMaxTerms
	}
	if t.Empty() {
		return NewTree(), nil
	}
	n := EliminateComplements(t)
	cs, err := z.expand(n, n.Root())
	if err != nil {
		return nil, err
	}
	return z.build(cs), nil
}

// DNF returns t as a union of intersections. The conversion fails with a
// configuration error wrapping ErrTermLimit rather than exceed maxTerms
// intermediate terms; maxTerms <= 0 selects DefaultMaxTerms.
func DNF(t *Tree, maxTerms int) (*Tree, error) {
	z := normalizer{outer: KindUnion, inner: KindIntersection, identity: True, maxTerms: maxTerms, op: "dnf"}
	return z.run(t)
}

// CNF returns t as an intersection of unions, with the same cap semantics
// as DNF.
func CNF(t *Tree, maxTerms int) (*Tree, error) {
	z := normalizer{outer: KindIntersection, inner: KindUnion, identity: False, maxTerms: maxTerms, op: "cnf"}
	return z.run(t)
}
