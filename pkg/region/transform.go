package region

import (
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/carve/pkg/errs"
)

// ---------------------------------------------------------------------------
// Complement elimination
// ---------------------------------------------------------------------------

// EliminateComplements returns an equivalent tree in negation normal form:
// complements are pushed through intersections and unions by De Morgan's
// laws and folded into leaf signs. A complemented cell reference is kept
// as an explicit Complement(CellRef) marker rather than expanded, since the
// referenced region may be arbitrarily large.
func EliminateComplements(t *Tree) *Tree {
	out := NewTree()
	if t.Empty() {
		return out
	}
	out.SetRoot(nnf(out, t, t.Root(), false))
	return out
}

func nnf(dst, src *Tree, i int, neg bool) int {
	n := src.nodes[i]
	switch n.Kind {
	case KindConst:
		if neg {
			return dst.Const(n.Value.not())
		}
		return dst.Const(n.Value)
	case KindLeaf:
		id := n.SignedSurface()
		if neg {
			id = -id
		}
		return dst.Leaf(id)
	case KindCellRef:
		ref := dst.CellRef(n.Cell)
		if neg {
			return dst.Not(ref)
		}
		return ref
	case KindIntersection, KindUnion:
		l := nnf(dst, src, n.Left, neg)
		r := nnf(dst, src, n.Right, neg)
		if (n.Kind == KindIntersection) != neg {
			return dst.And(l, r)
		}
		return dst.Or(l, r)
	case KindComplement:
		return nnf(dst, src, n.Left, !neg)
	}
	panic("region: unknown node kind " + n.Kind.String())
}

// ---------------------------------------------------------------------------
// Simplification
// ---------------------------------------------------------------------------

// Simplify returns an equivalent tree in negation normal form with
// constants folded, nested operators of one kind flattened and repeated
// operands removed. Unknown constants are kept as opaque operands.
func Simplify(t *Tree) *Tree {
	if t.Empty() {
		return NewTree()
	}
	n := EliminateComplements(t)
	out := NewTree()
	out.SetRoot(simplify(out, n, n.Root()))
	return out
}

func simplify(dst, src *Tree, i int) int {
	n := src.nodes[i]
	if n.Kind != KindIntersection && n.Kind != KindUnion {
		return dst.Import(&Tree{nodes: src.nodes, root: i, init: true})
	}
	// absorbing constant and identity for this operator
	absorb, identity := False, True
	if n.Kind == KindUnion {
		absorb, identity = True, False
	}
	var operands []int
	seen := make(map[string]bool)
	for _, op := range flatten(src, i, n.Kind, nil) {
		c := simplify(dst, src, op)
		cn := dst.nodes[c]
		if cn.Kind == KindConst {
			if cn.Value == absorb {
				return dst.Const(absorb)
			}
			if cn.Value == identity {
				continue
			}
		}
		k := key(dst, c)
		if seen[k] {
			continue
		}
		seen[k] = true
		operands = append(operands, c)
	}
	if len(operands) == 0 {
		return dst.Const(identity)
	}
	return dst.fold(n.Kind, operands, identity)
}

// flatten collects the operands of a chain of op nodes rooted at i.
func flatten(t *Tree, i int, op Kind, acc []int) []int {
	n := t.nodes[i]
	if n.Kind != op {
		return append(acc, i)
	}
	acc = flatten(t, n.Left, op, acc)
	return flatten(t, n.Right, op, acc)
}

// key is a canonical structural key for the subtree at i.
func key(t *Tree, i int) string {
	var b strings.Builder
	writeKey(&b, t, i)
	return b.String()
}

func writeKey(b *strings.Builder, t *Tree, i int) {
	n := t.nodes[i]
	switch n.Kind {
	case KindConst:
		b.WriteString(n.Value.String())
	case KindLeaf:
		b.WriteString(strconv.Itoa(n.SignedSurface()))
	case KindCellRef:
		b.WriteByte('@')
		b.WriteString(strconv.Itoa(n.Cell))
	case KindComplement:
		b.WriteString("#(")
		writeKey(b, t, n.Left)
		b.WriteByte(')')
	case KindIntersection, KindUnion:
		parts := flatten(t, i, n.Kind, nil)
		keys := make([]string, len(parts))
		for j, p := range parts {
			keys[j] = key(t, p)
		}
		sort.Strings(keys)
		sep := " "
		if n.Kind == KindUnion {
			sep = ":"
		}
		b.WriteByte('(')
		b.WriteString(strings.Join(keys, sep))
		b.WriteByte(')')
	}
}

// ---------------------------------------------------------------------------
// Substitution and partial evaluation
// ---------------------------------------------------------------------------

// SubstituteLeaf returns a copy of t in which every leaf on surface |from|
// is rewritten to surface |to|. The signs compose: a leaf written as
// s·|from| becomes s·sgn(from)·sgn(to)·|to|, so substituting -7 for 3
// turns "3" into "-7" and "-3" into "7".
func SubstituteLeaf(t *Tree, from, to int) (*Tree, error) {
	if from == 0 || to == 0 {
		return nil, errs.Configf("substitute", "surface ids must be non-zero (from %d, to %d)", from, to)
	}
	flip := 1
	if from < 0 {
		flip, from = -flip, -from
	}
	if to < 0 {
		flip, to = -flip, -to
	}
	out := t.Clone()
	for i, n := range out.nodes {
		if n.Kind == KindLeaf && n.Surface == from {
			out.nodes[i].Surface = to
			out.nodes[i].Sign = n.Sign * flip
		}
	}
	return out, nil
}

// Assign returns a copy of t with every leaf on surface |surface| replaced
// by the constant it takes when a point is on the positive side (positive
// true) or the negative side (positive false) of that surface. The result
// is simplified, so fully decided trees collapse to a single constant.
func Assign(t *Tree, surface int, positive bool) *Tree {
	if surface < 0 {
		surface = -surface
	}
	out := t.Clone()
	for i, n := range out.nodes {
		if n.Kind == KindLeaf && n.Surface == surface {
			out.nodes[i] = Node{Kind: KindConst, Value: triOf((n.Sign > 0) == positive), Left: none, Right: none}
		}
	}
	return Simplify(out)
}

// MarkUnknown returns a copy of t with the leaves on surface |surface|
// replaced by the Unknown constant.
func MarkUnknown(t *Tree, surface int) *Tree {
	if surface < 0 {
		surface = -surface
	}
	out := t.Clone()
	for i, n := range out.nodes {
		if n.Kind == KindLeaf && n.Surface == surface {
			out.nodes[i] = Node{Kind: KindConst, Value: Unknown, Left: none, Right: none}
		}
	}
	return out
}

// Value returns the constant t folds to, and false when it still depends on
// a surface or cell. An empty tree is True.
func Value(t *Tree) (Tri, bool) {
	if t.Empty() {
		return True, true
	}
	s := Simplify(t)
	n := s.nodes[s.Root()]
	if n.Kind == KindConst {
		return n.Value, true
	}
	return Unknown, false
}
