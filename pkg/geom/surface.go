// Package geom provides the quadric surfaces that region expressions are
// written over, and the Registry that assigns them global signed ids.
//
// Sign convention: a point p is on the positive side of a surface when
// f(p) > 0. Planes are positive along their normal; spheres, cylinders and
// cones are negative inside.
package geom

import (
	"fmt"
	"math"

	"github.com/chazu/carve/pkg/errs"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultTolerance is the on-surface tolerance used by Side.
const DefaultTolerance = 1e-8

// Kind enumerates the supported surface forms.
type Kind int

const (
	KindPlane Kind = iota
	KindSphere
	KindCylinder
	KindCone
)

func (k Kind) String() string {
	switch k {
	case KindPlane:
		return "plane"
	case KindSphere:
		return "sphere"
	case KindCylinder:
		return "cylinder"
	case KindCone:
		return "cone"
	default:
		return "unknown"
	}
}

// Surface is an immutable quadric. The zero value is not usable; build one
// with NewPlane, PlaneThrough, NewSphere, NewCylinder or NewCone.
type Surface struct {
	id   int
	kind Kind
	q    quadric
	tol  float64

	// Defining parameters, kept for cards and inspection.
	point  v3.Vec  // plane: foot point; sphere: centre; cylinder: centre; cone: apex
	axis   v3.Vec  // plane: normal; cylinder/cone: axis
	radius float64 // sphere/cylinder radius; plane: distance
	angle  float64 // cone half-angle (radians)
}

// ID returns the registry id, or 0 for an unregistered surface.
func (s Surface) ID() int { return s.id }

// Kind returns the surface form.
func (s Surface) Kind() Kind { return s.kind }

// Normal returns the plane normal or the cylinder/cone axis.
func (s Surface) Normal() v3.Vec { return s.axis }

// Point returns the defining point (plane foot, centre or apex).
func (s Surface) Point() v3.Vec { return s.point }

// Radius returns the radius (sphere, cylinder) or plane distance.
func (s Surface) Radius() float64 { return s.radius }

// Value returns f(p).
func (s Surface) Value(p v3.Vec) float64 { return s.q.eval(p) }

// Distance returns the approximate signed distance from p.
func (s Surface) Distance(p v3.Vec) float64 { return s.q.distance(p) }

// Side reports +1 or -1 for the side of the surface p lies on, and 0 when
// p is within tolerance of the surface.
func (s Surface) Side(p v3.Vec) int {
	tol := s.tol
	if tol == 0 {
		tol = DefaultTolerance
	}
	d := s.q.distance(p)
	switch {
	case d > tol:
		return 1
	case d < -tol:
		return -1
	default:
		return 0
	}
}

// Intersect returns the ray parameters t > 0 where origin + t·dir meets
// the surface, ascending.
func (s Surface) Intersect(origin, dir v3.Vec) []float64 {
	return s.q.roots(origin, dir, 0)
}

// Coefficients returns the general quadric coefficients in transport-code
// order A B C D E F G H J K.
func (s Surface) Coefficients() [10]float64 { return s.q.coefficients() }

// Flipped returns the surface with its sides exchanged. Only planes have a
// meaningful flip; for closed quadrics the result would swap inside and
// outside and is refused.
func (s Surface) Flipped() (Surface, error) {
	if s.kind != KindPlane {
		return Surface{}, errs.Geometryf("flip", "cannot flip %s surface", s.kind)
	}
	f := s
	f.q = s.q.negate()
	f.axis = s.axis.Neg()
	f.radius = -s.radius
	return f, nil
}

// Equal reports whether s and o describe the same point set. When they are
// the same plane with opposite normals, same is false and flipped is true.
func (s Surface) Equal(o Surface, tol float64) (same, flipped bool) {
	if s.kind != o.kind {
		return false, false
	}
	a, b := s.q.coefficients(), o.q.coefficients()
	if coefficientsEqual(a, b, tol) {
		return true, false
	}
	if s.kind == KindPlane && coefficientsEqual(a, o.q.negate().coefficients(), tol) {
		return false, true
	}
	return false, false
}

func (s Surface) String() string {
	switch s.kind {
	case KindPlane:
		return fmt.Sprintf("plane n=(%g,%g,%g) d=%g", s.axis.X, s.axis.Y, s.axis.Z, s.radius)
	case KindSphere:
		return fmt.Sprintf("sphere c=(%g,%g,%g) r=%g", s.point.X, s.point.Y, s.point.Z, s.radius)
	case KindCylinder:
		return fmt.Sprintf("cylinder c=(%g,%g,%g) a=(%g,%g,%g) r=%g",
			s.point.X, s.point.Y, s.point.Z, s.axis.X, s.axis.Y, s.axis.Z, s.radius)
	case KindCone:
		return fmt.Sprintf("cone apex=(%g,%g,%g) a=(%g,%g,%g) angle=%g",
			s.point.X, s.point.Y, s.point.Z, s.axis.X, s.axis.Y, s.axis.Z, s.angle)
	}
	return "surface?"
}

// ---------------------------------------------------------------------------
// Construction helpers
// ---------------------------------------------------------------------------

func unit(op string, v v3.Vec) (v3.Vec, error) {
	l := v.Length()
	if l < 1e-12 || math.IsNaN(l) {
		return v3.Vec{}, errs.Geometryf(op, "zero-length direction (%g,%g,%g)", v.X, v.Y, v.Z)
	}
	return v.DivScalar(l), nil
}

// NewPlane returns the plane n·x = d. The normal is normalised and d scaled
// to match.
func NewPlane(normal v3.Vec, d float64) (Surface, error) {
	l := normal.Length()
	n, err := unit("plane", normal)
	if err != nil {
		return Surface{}, err
	}
	d /= l
	return Surface{
		kind:   KindPlane,
		q:      quadric{L: n, K: -d},
		tol:    DefaultTolerance,
		point:  n.MulScalar(d),
		axis:   n,
		radius: d,
	}, nil
}

// PlaneThrough returns the plane through point with the given normal.
func PlaneThrough(point, normal v3.Vec) (Surface, error) {
	n, err := unit("plane", normal)
	if err != nil {
		return Surface{}, err
	}
	return NewPlane(n, n.Dot(point))
}

// NewSphere returns the sphere of radius r about centre.
func NewSphere(centre v3.Vec, r float64) (Surface, error) {
	if !(r > 0) {
		return Surface{}, errs.Sizef("sphere", "radius %g must be positive", r)
	}
	return Surface{
		kind:   KindSphere,
		q:      fromAxis(centre, v3.Vec{}, 1, -r*r),
		tol:    DefaultTolerance,
		point:  centre,
		radius: r,
	}, nil
}

// NewCylinder returns the infinite cylinder of radius r whose axis passes
// through centre along axis.
func NewCylinder(centre, axis v3.Vec, r float64) (Surface, error) {
	a, err := unit("cylinder", axis)
	if err != nil {
		return Surface{}, err
	}
	if !(r > 0) {
		return Surface{}, errs.Sizef("cylinder", "radius %g must be positive", r)
	}
	return Surface{
		kind:   KindCylinder,
		q:      fromAxis(centre, a, 1, -r*r),
		tol:    DefaultTolerance,
		point:  centre,
		axis:   a,
		radius: r,
	}, nil
}

// NewCone returns the double cone with the given apex, axis and half-angle
// in radians. Inside (negative) is the region within angle of the axis.
func NewCone(apex, axis v3.Vec, angle float64) (Surface, error) {
	a, err := unit("cone", axis)
	if err != nil {
		return Surface{}, err
	}
	if !(angle > 0 && angle < math.Pi/2) {
		return Surface{}, errs.Sizef("cone", "half-angle %g outside (0, π/2)", angle)
	}
	c := math.Cos(angle)
	return Surface{
		kind:  KindCone,
		q:     fromAxis(apex, a, c*c, 0),
		tol:   DefaultTolerance,
		point: apex,
		axis:  a,
		angle: angle,
	}, nil
}
