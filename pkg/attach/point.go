// Package attach holds the attachment points a component publishes for
// the components built after it, and the frames derived from them.
package attach

import (
	"github.com/chazu/carve/pkg/errs"
	"github.com/chazu/carve/pkg/region"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Point is one published attachment: a position, the outward axis there,
// and the surface or region fragment that bounds the component at that
// point. Bridge optionally limits the point's extent across the link.
type Point struct {
	Name     string
	Position v3.Vec
	Axis     v3.Vec
	Link     region.Handle
	Bridge   region.Handle
}

// Reversed returns p looking the other way: the axis is negated and the
// link complemented.
func (p Point) Reversed() Point {
	p.Axis = p.Axis.Neg()
	if !p.Link.IsEmpty() {
		p.Link = p.Link.Complement()
	}
	return p
}

// LinkSurface returns a link handle for a single signed surface.
func LinkSurface(id int) region.Handle { return region.FromLiterals(id) }

// Set is a component's ordered attachment points, numbered from 1.
type Set struct {
	points []Point
}

// NewSet returns a set with n unset points.
func NewSet(n int) *Set { return &Set{points: make([]Point, n)} }

// Len returns the number of points.
func (s *Set) Len() int { return len(s.points) }

func (s *Set) slot(op string, index int) (int, error) {
	switch {
	case index == 0:
		return 0, errs.Configf(op, "attachment index 0 has no direction")
	case index < 0:
		index = -index
	}
	if index > len(s.points) {
		return 0, errs.Indexf(op, "attachment index %d beyond %d points", index, len(s.points))
	}
	return index - 1, nil
}

// Set fills point index. Index Len()+1 appends a new point.
func (s *Set) Set(index int, pos, axis v3.Vec, link region.Handle) error {
	return s.SetNamed(index, "", pos, axis, link)
}

// SetNamed is Set with a name for lookup by ByName. An empty name keeps the
// name the point already had.
func (s *Set) SetNamed(index int, name string, pos, axis v3.Vec, link region.Handle) error {
	if index < 0 {
		return errs.Configf("set-attachment", "attachment index %d must be positive", index)
	}
	l := axis.Length()
	if l < 1e-12 {
		return errs.Geometryf("set-attachment", "attachment %d has a zero-length axis", index)
	}
	if index == len(s.points)+1 {
		s.points = append(s.points, Point{})
	}
	i, err := s.slot("set-attachment", index)
	if err != nil {
		return err
	}
	if name == "" {
		name = s.points[i].Name
	}
	if name != "" {
		for j, p := range s.points {
			if j != i && p.Name == name {
				return errs.Configf("set-attachment", "attachment name %q already used by point %d", name, j+1)
			}
		}
	}
	s.points[i] = Point{Name: name, Position: pos, Axis: axis.DivScalar(l), Link: link, Bridge: s.points[i].Bridge}
	return nil
}

// SetBridge attaches a bridge region to point index.
func (s *Set) SetBridge(index int, bridge region.Handle) error {
	i, err := s.slot("set-bridge", index)
	if err != nil {
		return err
	}
	s.points[i].Bridge = bridge
	return nil
}

// Get returns the point for a side index: +k is point k, -k is point k
// reversed.
func (s *Set) Get(side int) (Point, error) {
	i, err := s.slot("get-attachment", side)
	if err != nil {
		return Point{}, err
	}
	p := s.points[i]
	if p.Axis == (v3.Vec{}) {
		return Point{}, errs.Configf("get-attachment", "attachment %d was never set", i+1)
	}
	if side < 0 {
		return p.Reversed(), nil
	}
	return p, nil
}

// Index returns the 1-based index of the point called name. A leading '-'
// selects the reversed side.
func (s *Set) Index(name string) (int, error) {
	sign := 1
	if len(name) > 1 && name[0] == '-' {
		sign, name = -1, name[1:]
	}
	for i, p := range s.points {
		if p.Name == name && name != "" {
			return sign * (i + 1), nil
		}
	}
	return 0, errs.NotFoundf("attachment", "no attachment point named %q", name)
}

// ByName returns the point called name; see Index.
func (s *Set) ByName(name string) (Point, error) {
	side, err := s.Index(name)
	if err != nil {
		return Point{}, err
	}
	return s.Get(side)
}

// Transform returns a copy of s with positions and axes mapped by m. Links
// are surface references and carry over unchanged.
func (s *Set) Transform(m sdf.M44) *Set {
	out := &Set{points: make([]Point, len(s.points))}
	for i, p := range s.points {
		if p.Axis != (v3.Vec{}) {
			p.Position = m.MulPosition(p.Position)
			p.Axis = direction(m, p.Axis).Normalize()
		}
		out.points[i] = p
	}
	return out
}

// direction maps a direction vector by the linear part of m.
func direction(m sdf.M44, v v3.Vec) v3.Vec {
	return m.MulPosition(v).Sub(m.MulPosition(v3.Vec{}))
}
