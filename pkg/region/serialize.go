package region

import (
	"strconv"
	"strings"

	"github.com/chazu/carve/pkg/errs"
)

// SerializeTree renders t in the region grammar. Intersection operands are
// joined by single spaces and union operands by " : "; a union nested in an
// intersection is parenthesised. Constants are folded first: a tree that
// folds to True renders as the empty string, one that folds to False or
// still holds Unknown has no rendering and fails.
func SerializeTree(t *Tree) (string, error) {
	if t.Empty() {
		return "", nil
	}
	if hasConst(t) {
		t = Simplify(t)
		n := t.nodes[t.Root()]
		if n.Kind == KindConst && n.Value == True {
			return "", nil
		}
	}
	w := writer{}
	if err := w.expr(t, t.Root(), none); err != nil {
		return "", err
	}
	return w.b.String(), nil
}

// debugString renders t like SerializeTree but writes constants as T, F
// and ? instead of failing.
func debugString(t *Tree) string {
	if t.Empty() {
		return ""
	}
	w := writer{loose: true}
	_ = w.expr(t, t.Root(), none)
	return w.b.String()
}

func hasConst(t *Tree) bool {
	found := false
	t.Walk(func(_, _ int, n Node) {
		if n.Kind == KindConst {
			found = true
		}
	})
	return found
}

type writer struct {
	b     strings.Builder
	loose bool
}

// expr writes node i; parent is the index of the enclosing node, or none
// at the top.
func (w *writer) expr(t *Tree, i, parent int) error {
	b := &w.b
	n := t.nodes[i]
	switch n.Kind {
	case KindConst:
		if w.loose {
			b.WriteString(n.Value.String())
			return nil
		}
		return errs.Configf("serialize", "constant %s has no grammar form", n.Value)
	case KindLeaf:
		b.WriteString(strconv.Itoa(n.SignedSurface()))
	case KindCellRef:
		// A bare reference is written as the complement of its complement.
		b.WriteString("#(#")
		b.WriteString(strconv.Itoa(n.Cell))
		b.WriteByte(')')
	case KindComplement:
		c := t.nodes[n.Left]
		if c.Kind == KindCellRef {
			b.WriteByte('#')
			b.WriteString(strconv.Itoa(c.Cell))
			return nil
		}
		b.WriteString("#(")
		if err := w.expr(t, n.Left, i); err != nil {
			return err
		}
		b.WriteByte(')')
	case KindIntersection, KindUnion:
		sep := " "
		if n.Kind == KindUnion {
			sep = " : "
		}
		wrap := n.Kind == KindUnion && parent != none && t.nodes[parent].Kind == KindIntersection
		if wrap {
			b.WriteByte('(')
		}
		for j, op := range flatten(t, i, n.Kind, nil) {
			if j > 0 {
				b.WriteString(sep)
			}
			if err := w.expr(t, op, i); err != nil {
				return err
			}
		}
		if wrap {
			b.WriteByte(')')
		}
	}
	return nil
}
