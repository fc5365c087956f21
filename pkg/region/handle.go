package region

import (
	"fmt"
	"maps"

	"github.com/chazu/carve/pkg/errs"
	"github.com/chazu/carve/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// SurfaceSource resolves surface ids during Populate. *geom.Registry and
// populated Handles satisfy it.
type SurfaceSource interface {
	Surface(id int) (geom.Surface, error)
}

// CellSource resolves "#N" references during Populate.
type CellSource interface {
	Region(id int) (Handle, error)
}

// binding is the resolved geometry behind a populated Handle.
type binding struct {
	surfaces map[int]geom.Surface
	cells    map[int]Handle
}

func (b *binding) Side(surface int, p v3.Vec) (int, error) {
	s, ok := b.surfaces[surface]
	if !ok {
		return 0, errs.Configf("contains", "surface %d not populated", surface)
	}
	return s.Side(p), nil
}

func (b *binding) InCell(cell int, p v3.Vec) (bool, error) {
	h, ok := b.cells[cell]
	if !ok {
		return false, errs.Configf("contains", "cell #%d not populated", cell)
	}
	return Contains(h.tree, h.bound, p)
}

// join merges two bindings for a combined tree, or returns nil when either
// side still needs populating.
func join(t *Tree, a, b *binding) *binding {
	if !t.HasLeaf() {
		return &binding{}
	}
	if a == nil || b == nil {
		return nil
	}
	out := &binding{surfaces: maps.Clone(a.surfaces), cells: maps.Clone(a.cells)}
	if out.surfaces == nil {
		out.surfaces = make(map[int]geom.Surface)
	}
	if out.cells == nil {
		out.cells = make(map[int]Handle)
	}
	maps.Copy(out.surfaces, b.surfaces)
	maps.Copy(out.cells, b.cells)
	return out
}

// Handle owns one rule tree plus, once populated, the surfaces and cells
// its leaves refer to. The zero Handle is empty and places no constraint on
// a point. Handles are values: every operation returns a new Handle and
// none modifies its receiver.
type Handle struct {
	tree  *Tree
	bound *binding
}

// Parse reads a region expression.
func Parse(text string) (Handle, error) {
	t, err := ParseTree(text)
	if err != nil {
		return Handle{}, err
	}
	return FromTree(t), nil
}

// MustParse is Parse for expressions known to be valid. It panics on error.
func MustParse(text string) Handle {
	h, err := Parse(text)
	if err != nil {
		panic(fmt.Sprintf("region: MustParse(%q): %v", text, err))
	}
	return h
}

// FromTree wraps a copy of t.
func FromTree(t *Tree) Handle {
	c := t.Clone()
	h := Handle{tree: c}
	if !c.Empty() && !c.HasLeaf() {
		h.bound = &binding{}
	}
	return h
}

// FromLiterals returns the intersection of the signed surface ids.
func FromLiterals(ids ...int) Handle {
	t := NewTree()
	if len(ids) == 0 {
		return Handle{tree: t}
	}
	items := make([]int, len(ids))
	for i, id := range ids {
		items[i] = t.Leaf(id)
	}
	t.SetRoot(t.AndAll(items...))
	return Handle{tree: t}
}

func (h Handle) with(t *Tree) Handle { return Handle{tree: t, bound: h.bound} }

// IsEmpty reports whether h has no tree.
func (h Handle) IsEmpty() bool { return h.tree.Empty() }

// IsPopulated reports whether every leaf of h has been resolved.
func (h Handle) IsPopulated() bool { return h.IsEmpty() || h.bound != nil }

// Tree returns a copy of the underlying rule tree.
func (h Handle) Tree() *Tree { return h.tree.Clone() }

// Clone returns a deep copy of h.
func (h Handle) Clone() Handle { return h.with(h.tree.Clone()) }

// Literals returns the signed surface ids at h's leaves.
func (h Handle) Literals() []int { return h.tree.Literals() }

// Surfaces returns the unsigned surface ids h refers to.
func (h Handle) Surfaces() []int { return h.tree.Surfaces() }

// Cells returns the ids of the cells h refers to with "#N".
func (h Handle) Cells() []int { return h.tree.Cells() }

// Surface returns the resolved surface for a signed id of a populated h.
func (h Handle) Surface(id int) (geom.Surface, error) {
	if id < 0 {
		id = -id
	}
	if h.bound != nil {
		if s, ok := h.bound.surfaces[id]; ok {
			return s, nil
		}
	}
	return geom.Surface{}, errs.NotFoundf("surface", "surface %d not bound in region %q", id, h.String())
}

// Intersect returns h AND o. An empty operand leaves the other unchanged.
func (h Handle) Intersect(o Handle) Handle {
	switch {
	case h.IsEmpty():
		return o.Clone()
	case o.IsEmpty():
		return h.Clone()
	}
	return combine(KindIntersection, h, o)
}

// Union returns h OR o. An empty operand already admits every point, so
// the union is empty too.
func (h Handle) Union(o Handle) Handle {
	if h.IsEmpty() || o.IsEmpty() {
		return Handle{}
	}
	return combine(KindUnion, h, o)
}

func combine(op Kind, a, b Handle) Handle {
	t := NewTree()
	l := t.Import(a.tree)
	r := t.Import(b.tree)
	if op == KindIntersection {
		t.SetRoot(t.And(l, r))
	} else {
		t.SetRoot(t.Or(l, r))
	}
	return Handle{tree: t, bound: join(t, a.bound, b.bound)}
}

// Complement returns NOT h. The complement of the empty handle admits no
// point.
func (h Handle) Complement() Handle {
	t := NewTree()
	if h.IsEmpty() {
		t.SetRoot(t.Const(False))
		return Handle{tree: t, bound: &binding{}}
	}
	t.SetRoot(t.Not(t.Import(h.tree)))
	return h.with(t)
}

// IntersectAll intersects every handle; no handles yields the empty handle.
func IntersectAll(hs ...Handle) Handle {
	var out Handle
	for _, h := range hs {
		out = out.Intersect(h)
	}
	return out
}

// UnionAll unites every handle. No handles yields a handle admitting no
// point.
func UnionAll(hs ...Handle) Handle {
	if len(hs) == 0 {
		return Handle{}.Complement()
	}
	out := hs[0].Clone()
	for _, h := range hs[1:] {
		out = out.Union(h)
	}
	return out
}

type visit uint8

const (
	unvisited visit = iota
	visiting
	visited
)

type populator struct {
	surfaces SurfaceSource
	cells    CellSource
	state    map[int]visit
	done     map[int]Handle
}

// Populate resolves every surface leaf against surfaces and every "#N"
// reference against cells, recursively. It fails when an id is unknown or
// when cell references form a cycle. cells may be nil for handles without
// references.
func (h Handle) Populate(surfaces SurfaceSource, cells CellSource) (Handle, error) {
	p := &populator{
		surfaces: surfaces,
		cells:    cells,
		state:    make(map[int]visit),
		done:     make(map[int]Handle),
	}
	return p.populate(h)
}

func (p *populator) populate(h Handle) (Handle, error) {
	b := &binding{surfaces: make(map[int]geom.Surface), cells: make(map[int]Handle)}
	for _, id := range h.Surfaces() {
		s, err := p.surfaces.Surface(id)
		if err != nil {
			return Handle{}, fmt.Errorf("populate %q: %w", h.String(), err)
		}
		b.surfaces[id] = s
	}
	for _, id := range h.Cells() {
		c, err := p.cell(id)
		if err != nil {
			return Handle{}, err
		}
		b.cells[id] = c
	}
	return Handle{tree: h.tree, bound: b}, nil
}

func (p *populator) cell(id int) (Handle, error) {
	switch p.state[id] {
	case visiting:
		return Handle{}, errs.Configf("populate", "cell #%d refers to itself through its region", id)
	case visited:
		return p.done[id], nil
	}
	if p.cells == nil {
		return Handle{}, errs.Configf("populate", "reference to cell #%d with no cell table", id)
	}
	src, err := p.cells.Region(id)
	if err != nil {
		return Handle{}, err
	}
	p.state[id] = visiting
	c, err := p.populate(src)
	if err != nil {
		return Handle{}, err
	}
	p.state[id] = visited
	p.done[id] = c
	return c, nil
}

// IsValid reports whether p lies in h. Points on a bounding surface count
// as inside. h must be populated.
func (h Handle) IsValid(p v3.Vec) (bool, error) {
	if h.IsEmpty() {
		return true, nil
	}
	if h.bound == nil {
		return false, errs.Configf("is-valid", "region %q not populated", h.String())
	}
	return Contains(h.tree, h.bound, p)
}

// Simplify returns h with constants folded and repeated operands removed.
func (h Handle) Simplify() Handle { return h.with(Simplify(h.tree)) }

// CNF returns h as an intersection of unions; see CNF.
func (h Handle) CNF(maxTerms int) (Handle, error) {
	t, err := CNF(h.tree, maxTerms)
	if err != nil {
		return Handle{}, err
	}
	return h.with(t), nil
}

// DNF returns h as a union of intersections; see DNF.
func (h Handle) DNF(maxTerms int) (Handle, error) {
	t, err := DNF(h.tree, maxTerms)
	if err != nil {
		return Handle{}, err
	}
	return h.with(t), nil
}

// SubstituteSurface rewrites surface |from| to |to| with signs composed as
// in SubstituteLeaf. The result must be populated again.
func (h Handle) SubstituteSurface(from, to int) (Handle, error) {
	t, err := SubstituteLeaf(h.tree, from, to)
	if err != nil {
		return Handle{}, err
	}
	return Handle{tree: t}, nil
}

// Serialize renders h in the region grammar.
func (h Handle) Serialize() (string, error) { return SerializeTree(h.tree) }

// String renders h for diagnostics; constants print as T, F and ?.
func (h Handle) String() string {
	if s, err := h.Serialize(); err == nil {
		return s
	}
	return debugString(h.tree)
}
