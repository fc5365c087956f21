// Package zone carves a slot out of a parent cell. It finds the parent
// surfaces that bound the slot by casting rays, and splits the parent into
// the slot's reserved cell and the shrunken remainder.
package zone

import (
	"math"
	"sort"

	"github.com/chazu/carve/pkg/attach"
	"github.com/chazu/carve/pkg/cell"
	"github.com/chazu/carve/pkg/errs"
	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/region"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
)

// Builder casts Directions rays from each sample point. Pull is the
// fraction of the way from the slot midpoint toward each link point at
// which the secondary samples sit. Tolerance is the on-surface tolerance
// of the parent's surfaces.
type Builder struct {
	Directions int
	Pull       float64
	Tolerance  float64
	// Log receives ray hits at Debug and the chosen zone at Info. Nil
	// disables logging.
	Log logrus.FieldLogger
}

// NewBuilder returns a Builder after checking its parameters.
func NewBuilder(directions int, pull, tol float64) (*Builder, error) {
	if directions < 3 {
		return nil, errs.Configf("zone-builder", "need at least 3 sample directions, got %d", directions)
	}
	if !(pull > 0 && pull < 1) {
		return nil, errs.Configf("zone-builder", "sample pull %g outside (0,1)", pull)
	}
	if tol <= 0 {
		tol = geom.DefaultTolerance
	}
	return &Builder{Directions: directions, Pull: pull, Tolerance: tol}, nil
}

// hit is one surface crossing along a ray.
type hit struct {
	t       float64
	surface int
}

// SlotAxis returns the long axis of the slot between a and b: the sum of
// their axes when they roughly agree, the difference when they face each
// other.
func SlotAxis(a, b attach.Point) (v3.Vec, error) {
	var d v3.Vec
	if a.Axis.Dot(b.Axis) >= 0 {
		d = a.Axis.Add(b.Axis)
	} else {
		d = a.Axis.Sub(b.Axis)
	}
	l := d.Length()
	if l < 1e-9 {
		return v3.Vec{}, errs.Geometryf("slot-axis", "link axes %v and %v give no slot direction", a.Axis, b.Axis)
	}
	return d.DivScalar(l), nil
}

// basis returns two unit vectors orthogonal to unit a and to each other.
func basis(a v3.Vec) (u, w v3.Vec) {
	ref := v3.Vec{X: 1}
	if math.Abs(a.X) > 0.9 {
		ref = v3.Vec{Y: 1}
	}
	u = ref.Sub(a.MulScalar(ref.Dot(a))).Normalize()
	return u, a.Cross(u)
}

// Samples returns the slot midpoint followed by the points pulled toward
// a and then toward b.
func (b *Builder) Samples(linkA, linkB attach.Point) []v3.Vec {
	mid := linkA.Position.Add(linkB.Position).MulScalar(0.5)
	return []v3.Vec{
		mid,
		mid.Add(linkA.Position.Sub(mid).MulScalar(b.Pull)),
		mid.Add(linkB.Position.Sub(mid).MulScalar(b.Pull)),
	}
}

// BoundRegion returns the intersection of the parent boundary literals that
// rays from the slot between linkA and linkB leave the parent through. The
// link surfaces themselves are never candidates. The parent region must be
// populated; the returned zone is populated from it.
func (b *Builder) BoundRegion(parent cell.Cell, linkA, linkB attach.Point) (region.Handle, error) {
	axis, err := SlotAxis(linkA, linkB)
	if err != nil {
		return region.Handle{}, err
	}
	exclude := make(map[int]bool)
	for _, h := range []region.Handle{linkA.Link, linkB.Link} {
		for _, id := range h.Surfaces() {
			exclude[id] = true
		}
	}
	allowed := make(map[int]bool)
	for _, lit := range region.EliminateComplements(parent.Region.Tree()).Literals() {
		allowed[lit] = true
	}
	var candidates []geom.Surface
	for _, id := range parent.Region.Surfaces() {
		if exclude[id] {
			continue
		}
		s, err := parent.Region.Surface(id)
		if err != nil {
			return region.Handle{}, err
		}
		candidates = append(candidates, s)
	}

	u, w := basis(axis)
	seen := make(map[int]bool)
	var found []int
	for si, p := range b.Samples(linkA, linkB) {
		in, err := parent.Region.IsValid(p)
		if err != nil {
			return region.Handle{}, err
		}
		if !in {
			return region.Handle{}, errs.Geometryf("bound-region",
				"sample point %v lies outside cell %d", p, parent.ID)
		}
		for k := 0; k < b.Directions; k++ {
			s, c := math.Sincos(2 * math.Pi * float64(k) / float64(b.Directions))
			dir := u.MulScalar(c).Add(w.MulScalar(s))
			h, ok, err := b.exit(parent.Region, candidates, p, dir)
			if err != nil {
				return region.Handle{}, err
			}
			if !ok {
				continue
			}
			hs, err := parent.Region.Surface(h.surface)
			if err != nil {
				return region.Handle{}, err
			}
			lit := hs.Side(p) * h.surface
			if b.Log != nil {
				b.Log.WithFields(logrus.Fields{
					"cell": parent.ID, "sample": si, "direction": k, "surface": lit, "t": h.t,
				}).Debug("boundary ray hit")
			}
			if lit == 0 || !allowed[lit] || seen[lit] {
				continue
			}
			seen[lit] = true
			found = append(found, lit)
		}
	}
	if len(found) == 0 {
		return region.Handle{}, errs.Geometryf("bound-region",
			"no ray from the slot in cell %d reached a bounding surface", parent.ID)
	}
	zone, err := region.FromLiterals(found...).Populate(parent.Region, nil)
	if err != nil {
		return region.Handle{}, err
	}
	if b.Log != nil {
		b.Log.WithFields(logrus.Fields{"cell": parent.ID, "zone": zone.String()}).Info("bounding zone")
	}
	return zone, nil
}

// exit finds the first crossing along the ray at which the parent region is
// left. Crossings that stay inside the parent, such as a surface bounding
// only part of a union, are passed over.
func (b *Builder) exit(parent region.Handle, candidates []geom.Surface, origin, dir v3.Vec) (hit, bool, error) {
	var hits []hit
	for _, s := range candidates {
		for _, t := range s.Intersect(origin, dir) {
			hits = append(hits, hit{t: t, surface: s.ID()})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].t < hits[j].t })
	for _, h := range hits {
		beyond := origin.Add(dir.MulScalar(h.t + b.step(h.t)))
		in, err := parent.IsValid(beyond)
		if err != nil {
			return hit{}, false, err
		}
		if !in {
			return h, true, nil
		}
	}
	return hit{}, false, nil
}

// step is how far past a crossing the outside test probes; it clears the
// on-surface tolerance at any ray length.
func (b *Builder) step(t float64) float64 {
	return 1e3 * b.Tolerance * math.Max(1, t)
}

// SplitCell carves the parent cell into a new cell holding zone minus
// outer and the remainder holding the rest of the parent minus outer. The
// parent keeps its id for the remainder; both cells keep its material. An
// empty outer excludes nothing. The table is changed only on success.
func SplitCell(table *cell.Table, parentID int, zone, outer region.Handle, newID int) (int, cell.Cell, error) {
	if zone.IsEmpty() {
		return 0, cell.Cell{}, errs.Geometryf("split-cell", "empty bounding zone for cell %d", parentID)
	}
	parent, err := table.Get(parentID)
	if err != nil {
		return 0, cell.Cell{}, err
	}
	var keep region.Handle
	if !outer.IsEmpty() {
		keep = outer.Complement()
	}
	child := cell.Cell{
		ID:       newID,
		Material: parent.Material,
		Density:  parent.Density,
		Region:   parent.Region.Intersect(zone).Intersect(keep),
	}
	remainder := parent.Region.Intersect(zone.Complement()).Intersect(keep)
	if err := table.Split(parentID, remainder, child); err != nil {
		return 0, cell.Cell{}, err
	}
	shrunk, err := table.Get(parentID)
	if err != nil {
		return 0, cell.Cell{}, err
	}
	return newID, shrunk, nil
}
