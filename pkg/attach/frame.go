package attach

import (
	"fmt"
	"math"

	"github.com/chazu/carve/pkg/errs"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Frame is a right-handed local coordinate system: an origin and three
// orthonormal axes with X × Y = Z.
type Frame struct {
	Origin  v3.Vec
	X, Y, Z v3.Vec
}

// Identity returns the global frame.
func Identity() Frame {
	return Frame{X: v3.Vec{X: 1}, Y: v3.Vec{Y: 1}, Z: v3.Vec{Z: 1}}
}

// Offset is a component's declared placement relative to the frame it is
// built from. Angles are in degrees: XYAngle turns about Z, then ZAngle
// tilts about the turned X. Steps are along the rotated axes.
type Offset struct {
	XStep, YStep, ZStep float64
	XYAngle, ZAngle     float64
}

// Point maps local coordinates to global ones.
func (f Frame) Point(local v3.Vec) v3.Vec {
	return f.Origin.Add(f.Direction(local))
}

// Direction maps a local direction to a global one.
func (f Frame) Direction(local v3.Vec) v3.Vec {
	return f.X.MulScalar(local.X).Add(f.Y.MulScalar(local.Y)).Add(f.Z.MulScalar(local.Z))
}

// Apply returns f moved by o.
func (f Frame) Apply(o Offset) Frame {
	if o.XYAngle != 0 {
		s, c := math.Sincos(o.XYAngle * math.Pi / 180)
		f.X, f.Y = f.X.MulScalar(c).Add(f.Y.MulScalar(s)), f.Y.MulScalar(c).Sub(f.X.MulScalar(s))
	}
	if o.ZAngle != 0 {
		s, c := math.Sincos(o.ZAngle * math.Pi / 180)
		f.Y, f.Z = f.Y.MulScalar(c).Add(f.Z.MulScalar(s)), f.Z.MulScalar(c).Sub(f.Y.MulScalar(s))
	}
	f.Origin = f.Point(v3.Vec{X: o.XStep, Y: o.YStep, Z: o.ZStep})
	return f
}

// Transform returns f mapped by m. Axes are renormalised, so m may carry a
// uniform scale but must not shear.
func (f Frame) Transform(m sdf.M44) Frame {
	return Frame{
		Origin: m.MulPosition(f.Origin),
		X:      direction(m, f.X).Normalize(),
		Y:      direction(m, f.Y).Normalize(),
		Z:      direction(m, f.Z).Normalize(),
	}
}

// Orthonormal reports whether the axes are unit length, mutually
// orthogonal and right-handed, to within tol.
func (f Frame) Orthonormal(tol float64) bool {
	for _, a := range []v3.Vec{f.X, f.Y, f.Z} {
		if math.Abs(a.Length()-1) > tol {
			return false
		}
	}
	if math.Abs(f.X.Dot(f.Y)) > tol || math.Abs(f.Y.Dot(f.Z)) > tol || math.Abs(f.Z.Dot(f.X)) > tol {
		return false
	}
	return f.X.Cross(f.Y).Sub(f.Z).Length() <= tol
}

func (f Frame) String() string {
	return fmt.Sprintf("origin %v x %v y %v z %v", f.Origin, f.X, f.Y, f.Z)
}

// FrameFrom derives a frame at attachment side of s. Y follows the
// point's axis and Z stays as close to ref.Z as orthogonality allows; when
// ref.Z is parallel to the axis, ref.Y stands in for it. A negative side
// reverses the axis, which reflects X together with Y and keeps the frame
// right-handed.
func FrameFrom(s *Set, side int, ref Frame) (Frame, error) {
	p, err := s.Get(side)
	if err != nil {
		return Frame{}, err
	}
	y := p.Axis.Normalize()
	z, ok := orthogonal(ref.Z, y)
	if !ok {
		if z, ok = orthogonal(ref.Y, y); !ok {
			return Frame{}, errs.Geometryf("frame", "reference frame is degenerate against axis %v", y)
		}
	}
	return Frame{Origin: p.Position, X: y.Cross(z), Y: y, Z: z}, nil
}

// orthogonal returns the unit part of v orthogonal to unit u.
func orthogonal(v, u v3.Vec) (v3.Vec, bool) {
	w := v.Sub(u.MulScalar(v.Dot(u)))
	l := w.Length()
	if l < 1e-9 {
		return v3.Vec{}, false
	}
	return w.DivScalar(l), true
}
