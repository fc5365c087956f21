package geom

import (
	"math"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// quadric is the general second-order form
//
//	f(x) = xᵀMx + L·x + K
//
// with M symmetric. Every supported surface kind reduces to it, which lets
// side tests and ray intersection share one implementation.
type quadric struct {
	M [3][3]float64
	L v3.Vec
	K float64
}

func (q quadric) mulM(p v3.Vec) v3.Vec {
	return v3.Vec{
		X: q.M[0][0]*p.X + q.M[0][1]*p.Y + q.M[0][2]*p.Z,
		Y: q.M[1][0]*p.X + q.M[1][1]*p.Y + q.M[1][2]*p.Z,
		Z: q.M[2][0]*p.X + q.M[2][1]*p.Y + q.M[2][2]*p.Z,
	}
}

// eval returns f(p).
func (q quadric) eval(p v3.Vec) float64 {
	return p.Dot(q.mulM(p)) + q.L.Dot(p) + q.K
}

// grad returns ∇f(p) = 2Mp + L.
func (q quadric) grad(p v3.Vec) v3.Vec {
	return q.mulM(p).MulScalar(2).Add(q.L)
}

// distance approximates the signed distance from p to the surface by the
// first-order estimate f/|∇f|. It is exact for planes.
func (q quadric) distance(p v3.Vec) float64 {
	f := q.eval(p)
	g := q.grad(p).Length()
	if g < 1e-14 {
		return f
	}
	return f / g
}

// line returns the coefficients of f(o + t·d) = a t² + b t + c.
func (q quadric) line(o, d v3.Vec) (a, b, c float64) {
	md := q.mulM(d)
	a = d.Dot(md)
	b = 2*o.Dot(md) + q.L.Dot(d)
	c = q.eval(o)
	return a, b, c
}

// roots returns the ray parameters t > minT where o + t·d meets the
// surface, ascending. Tangent contacts are reported once.
func (q quadric) roots(o, d v3.Vec, minT float64) []float64 {
	a, b, c := q.line(o, d)
	var ts []float64
	scale := math.Max(1, math.Max(math.Abs(b), math.Abs(c)))
	if math.Abs(a) < 1e-12*scale {
		if math.Abs(b) < 1e-14 {
			return nil
		}
		ts = append(ts, -c/b)
	} else {
		disc := b*b - 4*a*c
		switch {
		case disc < 0:
			return nil
		case disc == 0:
			ts = append(ts, -b/(2*a))
		default:
			// Numerically stable pair.
			s := math.Sqrt(disc)
			var k float64
			if b >= 0 {
				k = -(b + s) / 2
			} else {
				k = (s - b) / 2
			}
			// k is never zero here: s > 0 and k carries the sign of b.
			ts = append(ts, k/a, c/k)
		}
	}
	out := ts[:0]
	for _, t := range ts {
		if t > minT {
			out = append(out, t)
		}
	}
	sort.Float64s(out)
	return out
}

// coefficients returns the MCNP general-quadric ordering
// A B C D E F G H J K for Ax²+By²+Cz²+Dxy+Eyz+Fzx+Gx+Hy+Jz+K.
func (q quadric) coefficients() [10]float64 {
	return [10]float64{
		q.M[0][0], q.M[1][1], q.M[2][2],
		2 * q.M[0][1], 2 * q.M[1][2], 2 * q.M[0][2],
		q.L.X, q.L.Y, q.L.Z,
		q.K,
	}
}

// negate returns -f.
func (q quadric) negate() quadric {
	var n quadric
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			n.M[i][j] = -q.M[i][j]
		}
	}
	n.L = q.L.Neg()
	n.K = -q.K
	return n
}

// fromAxis builds M = s·I - a aᵀ and the linear/constant terms for a point
// c so that f(x) = (x-c)ᵀM(x-c) + k.
func fromAxis(c, a v3.Vec, s, k float64) quadric {
	var q quadric
	av := [3]float64{a.X, a.Y, a.Z}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			q.M[i][j] = -av[i] * av[j]
			if i == j {
				q.M[i][j] += s
			}
		}
	}
	mc := q.mulM(c)
	q.L = mc.MulScalar(-2)
	q.K = c.Dot(mc) + k
	return q
}

func coefficientsEqual(a, b [10]float64, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol*math.Max(1, math.Max(math.Abs(a[i]), math.Abs(b[i]))) {
			return false
		}
	}
	return true
}
