package region

import (
	"github.com/chazu/carve/pkg/errs"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Evaluator answers the leaf questions Contains needs.
type Evaluator interface {
	// Side returns -1, 0 or +1 for p against the unsigned surface id, or a
	// configuration error when the surface has not been resolved.
	Side(surface int, p v3.Vec) (int, error)
	// InCell reports whether p lies in the region of the referenced cell.
	InCell(cell int, p v3.Vec) (bool, error)
}

// Contains evaluates t at p. An empty tree contains every point. Points on
// a surface (Side 0) satisfy both signs of that surface.
func Contains(t *Tree, ev Evaluator, p v3.Vec) (bool, error) {
	if t.Empty() {
		return true, nil
	}
	return contains(t, t.Root(), ev, p)
}

func contains(t *Tree, i int, ev Evaluator, p v3.Vec) (bool, error) {
	n := t.nodes[i]
	switch n.Kind {
	case KindConst:
		switch n.Value {
		case True:
			return true, nil
		case False:
			return false, nil
		}
		return false, errs.Geometryf("contains", "indeterminate constant at node %d", i)
	case KindLeaf:
		side, err := ev.Side(n.Surface, p)
		if err != nil {
			return false, err
		}
		return side == 0 || side == n.Sign, nil
	case KindCellRef:
		return ev.InCell(n.Cell, p)
	case KindIntersection:
		l, err := contains(t, n.Left, ev, p)
		if err != nil || !l {
			return false, err
		}
		return contains(t, n.Right, ev, p)
	case KindUnion:
		l, err := contains(t, n.Left, ev, p)
		if err != nil || l {
			return l, err
		}
		return contains(t, n.Right, ev, p)
	case KindComplement:
		c, err := contains(t, n.Left, ev, p)
		if err != nil {
			return false, err
		}
		return !c, nil
	}
	return false, errs.Configf("contains", "unknown node kind %s", n.Kind)
}
