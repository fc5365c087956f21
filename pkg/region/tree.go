// Package region implements the boolean rule trees that describe cell
// geometry, and the Handle façade that parses, combines, populates and
// serializes them.
//
// A Tree is an arena: nodes live in one slice and refer to their children
// by index. There are no parent links; traversals that care where they came
// from receive the parent as an argument. Because children always have a
// lower index than the node that adds them, a tree can never contain a
// cycle.
package region

import "fmt"

// Kind tags a Node.
type Kind uint8

const (
	KindConst        Kind = iota // tri-state constant
	KindLeaf                     // signed surface
	KindCellRef                  // region of another cell, by id
	KindIntersection             // Left AND Right
	KindUnion                    // Left OR Right
	KindComplement               // NOT Left
)

func (k Kind) String() string {
	switch k {
	case KindConst:
		return "const"
	case KindLeaf:
		return "leaf"
	case KindCellRef:
		return "cellref"
	case KindIntersection:
		return "intersection"
	case KindUnion:
		return "union"
	case KindComplement:
		return "complement"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Tri is a three-valued constant. Unknown stands for a value not yet
// decided during partial evaluation.
type Tri int8

const (
	False Tri = iota
	True
	Unknown
)

func (v Tri) String() string {
	switch v {
	case False:
		return "F"
	case True:
		return "T"
	default:
		return "?"
	}
}

func (v Tri) not() Tri {
	switch v {
	case False:
		return True
	case True:
		return False
	default:
		return Unknown
	}
}

func triOf(b bool) Tri {
	if b {
		return True
	}
	return False
}

const none = -1

// Node is one arena entry. Which fields are meaningful depends on Kind:
// Leaf uses Surface (always positive) and Sign (±1); CellRef uses Cell;
// Const uses Value; Intersection and Union use Left and Right; Complement
// uses Left.
type Node struct {
	Kind    Kind
	Left    int
	Right   int
	Surface int
	Sign    int
	Cell    int
	Value   Tri
}

// SignedSurface returns Sign*Surface for a leaf.
func (n Node) SignedSurface() int { return n.Sign * n.Surface }

// Tree is an arena-allocated rule tree. The zero Tree is empty, meaning
// "no constraint".
type Tree struct {
	nodes []Node
	root  int
	init  bool
}

// NewTree returns an empty tree.
func NewTree() *Tree { return &Tree{root: none, init: true} }

func (t *Tree) rootIndex() int {
	if !t.init {
		return none
	}
	return t.root
}

// Empty reports whether the tree has no root.
func (t *Tree) Empty() bool { return t == nil || t.rootIndex() == none }

// Root returns the root index, or -1 when empty.
func (t *Tree) Root() int {
	if t == nil {
		return none
	}
	return t.rootIndex()
}

// Node returns the node at index i.
func (t *Tree) Node(i int) Node { return t.nodes[i] }

// Len returns the number of arena entries, including unreachable ones.
func (t *Tree) Len() int { return len(t.nodes) }

// SetRoot makes i the root; -1 empties the tree.
func (t *Tree) SetRoot(i int) {
	t.init = true
	if i != none {
		t.child(i)
	}
	t.root = i
}

func (t *Tree) add(n Node) int {
	if !t.init {
		t.root = none
		t.init = true
	}
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

// Leaf adds a signed surface leaf. id must be non-zero.
func (t *Tree) Leaf(id int) int {
	sign := 1
	if id < 0 {
		sign, id = -1, -id
	}
	return t.add(Node{Kind: KindLeaf, Surface: id, Sign: sign, Left: none, Right: none})
}

// CellRef adds a reference to the region of cell id.
func (t *Tree) CellRef(id int) int {
	return t.add(Node{Kind: KindCellRef, Cell: id, Left: none, Right: none})
}

// Const adds a constant node.
func (t *Tree) Const(v Tri) int {
	return t.add(Node{Kind: KindConst, Value: v, Left: none, Right: none})
}

// child panics unless i names an existing node. Every child therefore
// precedes its parent in the arena.
func (t *Tree) child(i int) int {
	if i < 0 || i >= len(t.nodes) {
		panic(fmt.Sprintf("region: child index %d outside arena of %d", i, len(t.nodes)))
	}
	return i
}

// And adds an intersection of a and b.
func (t *Tree) And(a, b int) int {
	return t.add(Node{Kind: KindIntersection, Left: t.child(a), Right: t.child(b)})
}

// Or adds a union of a and b.
func (t *Tree) Or(a, b int) int {
	return t.add(Node{Kind: KindUnion, Left: t.child(a), Right: t.child(b)})
}

// Not adds a complement of a.
func (t *Tree) Not(a int) int {
	return t.add(Node{Kind: KindComplement, Left: t.child(a), Right: none})
}

// fold joins items with op (KindIntersection or KindUnion), returning
// empty when items is empty.
func (t *Tree) fold(op Kind, items []int, empty Tri) int {
	if len(items) == 0 {
		return t.Const(empty)
	}
	acc := items[0]
	for _, it := range items[1:] {
		acc = t.add(Node{Kind: op, Left: acc, Right: it})
	}
	return acc
}

// AndAll intersects items; no items yields True.
func (t *Tree) AndAll(items ...int) int { return t.fold(KindIntersection, items, True) }

// OrAll unites items; no items yields False.
func (t *Tree) OrAll(items ...int) int { return t.fold(KindUnion, items, False) }

// Import copies the subtree rooted at src.Root() into t and returns the
// index of its copy. Only reachable nodes are copied.
func (t *Tree) Import(src *Tree) int {
	if src.Empty() {
		return t.Const(True)
	}
	return t.importNode(src, src.Root())
}

func (t *Tree) importNode(src *Tree, i int) int {
	n := src.nodes[i]
	switch n.Kind {
	case KindIntersection, KindUnion:
		l := t.importNode(src, n.Left)
		r := t.importNode(src, n.Right)
		n.Left, n.Right = l, r
	case KindComplement:
		n.Left = t.importNode(src, n.Left)
	}
	return t.add(n)
}

// Clone returns a compact deep copy holding only reachable nodes.
func (t *Tree) Clone() *Tree {
	c := NewTree()
	if t.Empty() {
		return c
	}
	c.SetRoot(c.Import(t))
	return c
}

// Walk visits reachable nodes depth-first, children before parents.
// parent is -1 for the root.
func (t *Tree) Walk(fn func(i, parent int, n Node)) {
	if t.Empty() {
		return
	}
	t.walk(t.Root(), none, fn)
}

func (t *Tree) walk(i, parent int, fn func(i, parent int, n Node)) {
	n := t.nodes[i]
	switch n.Kind {
	case KindIntersection, KindUnion:
		t.walk(n.Left, i, fn)
		t.walk(n.Right, i, fn)
	case KindComplement:
		t.walk(n.Left, i, fn)
	}
	fn(i, parent, n)
}

// Depth returns the height of the tree; an empty tree has depth 0.
func (t *Tree) Depth() int {
	if t.Empty() {
		return 0
	}
	return t.depth(t.Root())
}

func (t *Tree) depth(i int) int {
	n := t.nodes[i]
	switch n.Kind {
	case KindIntersection, KindUnion:
		return 1 + max(t.depth(n.Left), t.depth(n.Right))
	case KindComplement:
		return 1 + t.depth(n.Left)
	}
	return 1
}

// Literals returns the distinct signed surface ids at leaves, in first-seen
// order. Leaves under a complement are reported with their written sign.
func (t *Tree) Literals() []int {
	seen := make(map[int]bool)
	var out []int
	t.Walk(func(_, _ int, n Node) {
		if n.Kind != KindLeaf {
			return
		}
		s := n.SignedSurface()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	})
	return out
}

// Surfaces returns the distinct unsigned surface ids, in first-seen order.
func (t *Tree) Surfaces() []int {
	seen := make(map[int]bool)
	var out []int
	t.Walk(func(_, _ int, n Node) {
		if n.Kind == KindLeaf && !seen[n.Surface] {
			seen[n.Surface] = true
			out = append(out, n.Surface)
		}
	})
	return out
}

// Cells returns the distinct cell ids referenced by CellRef nodes.
func (t *Tree) Cells() []int {
	seen := make(map[int]bool)
	var out []int
	t.Walk(func(_, _ int, n Node) {
		if n.Kind == KindCellRef && !seen[n.Cell] {
			seen[n.Cell] = true
			out = append(out, n.Cell)
		}
	})
	return out
}

// HasLeaf reports whether any SurfaceLeaf or CellRef is reachable.
func (t *Tree) HasLeaf() bool {
	found := false
	t.Walk(func(_, _ int, n Node) {
		if n.Kind == KindLeaf || n.Kind == KindCellRef {
			found = true
		}
	})
	return found
}
