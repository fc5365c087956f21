package geom

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/carve/pkg/errs"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Registry stores surfaces under positive integer ids. Callers address
// surfaces with signed ids; the sign selects a side and is never stored.
type Registry struct {
	surfaces map[int]Surface
	tol      float64
}

// NewRegistry returns an empty registry whose surfaces use tol for side
// tests and equality. A non-positive tol selects DefaultTolerance.
func NewRegistry(tol float64) *Registry {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &Registry{surfaces: make(map[int]Surface), tol: tol}
}

// Add stores s under id. The id must be positive and unused.
func (r *Registry) Add(id int, s Surface) error {
	if id <= 0 {
		return errs.Configf("add-surface", "surface id %d must be positive", id)
	}
	if _, ok := r.surfaces[id]; ok {
		return errs.Configf("add-surface", "surface %d already registered", id)
	}
	s.id = id
	s.tol = r.tol
	r.surfaces[id] = s
	return nil
}

// Register stores s under id unless an equal surface already exists, in
// which case the existing id is returned instead: negated when the match is
// the same plane facing the other way. The returned signed id always means
// "the positive side of s".
func (r *Registry) Register(id int, s Surface) (int, error) {
	for _, existing := range r.sorted() {
		same, flipped := existing.Equal(s, r.tol)
		if same {
			return existing.id, nil
		}
		if flipped {
			return -existing.id, nil
		}
	}
	if err := r.Add(id, s); err != nil {
		return 0, err
	}
	return id, nil
}

// Surface returns the surface addressed by the signed id.
func (r *Registry) Surface(id int) (Surface, error) {
	if id < 0 {
		id = -id
	}
	s, ok := r.surfaces[id]
	if !ok {
		return Surface{}, errs.NotFoundf("surface", "surface %d not registered", id)
	}
	return s, nil
}

// Has reports whether the absolute value of id is registered.
func (r *Registry) Has(id int) bool {
	if id < 0 {
		id = -id
	}
	_, ok := r.surfaces[id]
	return ok
}

// Len returns the number of registered surfaces.
func (r *Registry) Len() int { return len(r.surfaces) }

// IDs returns registered ids ascending.
func (r *Registry) IDs() []int {
	ids := make([]int, 0, len(r.surfaces))
	for id := range r.surfaces {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (r *Registry) sorted() []Surface {
	ids := r.IDs()
	out := make([]Surface, len(ids))
	for i, id := range ids {
		out[i] = r.surfaces[id]
	}
	return out
}

// Box registers the six axis-aligned planes bounding b as ids
// first..first+5, ordered -x, +x, -y, +y, -z, +z, all with positive-axis
// normals. The box interior is then "first -(first+1) (first+2) ...".
func (r *Registry) Box(first int, b sdf.Box3) ([6]int, error) {
	var ids [6]int
	if !(b.Max.X > b.Min.X && b.Max.Y > b.Min.Y && b.Max.Z > b.Min.Z) {
		return ids, errs.Sizef("box", "box min %v must be below max %v", b.Min, b.Max)
	}
	bounds := [6]struct {
		n v3.Vec
		d float64
	}{
		{v3.Vec{X: 1}, b.Min.X}, {v3.Vec{X: 1}, b.Max.X},
		{v3.Vec{Y: 1}, b.Min.Y}, {v3.Vec{Y: 1}, b.Max.Y},
		{v3.Vec{Z: 1}, b.Min.Z}, {v3.Vec{Z: 1}, b.Max.Z},
	}
	for i, p := range bounds {
		s, err := NewPlane(p.n, p.d)
		if err != nil {
			return ids, err
		}
		if err := r.Add(first+i, s); err != nil {
			return ids, err
		}
		ids[i] = first + i
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Surface cards
// ---------------------------------------------------------------------------

// WriteCards writes one transport-code surface card per surface, ascending
// by id.
func (r *Registry) WriteCards(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, s := range r.sorted() {
		if _, err := fmt.Fprintln(bw, Card(s)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Card formats a single surface card.
func Card(s Surface) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.id))
	switch s.kind {
	case KindPlane:
		n := s.axis
		switch {
		case n.X == 1 && n.Y == 0 && n.Z == 0:
			b.WriteString(" px ")
			b.WriteString(num(s.radius))
		case n.X == 0 && n.Y == 1 && n.Z == 0:
			b.WriteString(" py ")
			b.WriteString(num(s.radius))
		case n.X == 0 && n.Y == 0 && n.Z == 1:
			b.WriteString(" pz ")
			b.WriteString(num(s.radius))
		default:
			b.WriteString(" p")
			for _, v := range []float64{n.X, n.Y, n.Z, s.radius} {
				b.WriteByte(' ')
				b.WriteString(num(v))
			}
		}
	case KindSphere:
		b.WriteString(" s")
		for _, v := range []float64{s.point.X, s.point.Y, s.point.Z, s.radius} {
			b.WriteByte(' ')
			b.WriteString(num(v))
		}
	default:
		b.WriteString(" gq")
		for _, v := range s.q.coefficients() {
			b.WriteByte(' ')
			b.WriteString(num(v))
		}
	}
	return b.String()
}

func num(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', 12, 64)
}
