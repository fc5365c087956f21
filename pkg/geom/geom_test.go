package geom

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/chazu/carve/pkg/errs"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPlane(t *testing.T, n v3.Vec, d float64) Surface {
	t.Helper()
	s, err := NewPlane(n, d)
	require.NoError(t, err)
	return s
}

func TestPlaneSide(t *testing.T) {
	p := mustPlane(t, v3.Vec{X: 2}, 2) // x = 1 after normalisation
	tests := []struct {
		name string
		pt   v3.Vec
		want int
	}{
		{"beyond normal", v3.Vec{X: 3}, 1},
		{"behind", v3.Vec{X: -3}, -1},
		{"on surface", v3.Vec{X: 1, Y: 7}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Side(tt.pt))
		})
	}
	assert.InDelta(t, 1.0, p.Radius(), 1e-12)
}

func TestClosedQuadricsNegativeInside(t *testing.T) {
	sph, err := NewSphere(v3.Vec{X: 1}, 2)
	require.NoError(t, err)
	cyl, err := NewCylinder(v3.Vec{}, v3.Vec{Z: 5}, 1)
	require.NoError(t, err)
	cone, err := NewCone(v3.Vec{}, v3.Vec{Z: 1}, math.Pi/4)
	require.NoError(t, err)

	assert.Equal(t, -1, sph.Side(v3.Vec{X: 1}))
	assert.Equal(t, 1, sph.Side(v3.Vec{X: 4}))
	assert.Equal(t, -1, cyl.Side(v3.Vec{X: 0.5, Z: 100}))
	assert.Equal(t, 1, cyl.Side(v3.Vec{X: 2}))
	assert.Equal(t, -1, cone.Side(v3.Vec{X: 0.1, Z: 1}))
	assert.Equal(t, -1, cone.Side(v3.Vec{X: 0.1, Z: -1}))
	assert.Equal(t, 1, cone.Side(v3.Vec{X: 2, Z: 1}))
}

func TestIntersect(t *testing.T) {
	t.Run("plane", func(t *testing.T) {
		p := mustPlane(t, v3.Vec{X: 1}, 3)
		ts := p.Intersect(v3.Vec{}, v3.Vec{X: 1})
		require.Len(t, ts, 1)
		assert.InDelta(t, 3, ts[0], 1e-12)
		assert.Empty(t, p.Intersect(v3.Vec{}, v3.Vec{Y: 1}))
		assert.Empty(t, p.Intersect(v3.Vec{}, v3.Vec{X: -1}))
	})
	t.Run("sphere from inside", func(t *testing.T) {
		s, err := NewSphere(v3.Vec{}, 2)
		require.NoError(t, err)
		ts := s.Intersect(v3.Vec{}, v3.Vec{Y: 1})
		require.Len(t, ts, 1)
		assert.InDelta(t, 2, ts[0], 1e-12)
	})
	t.Run("cylinder from outside", func(t *testing.T) {
		c, err := NewCylinder(v3.Vec{}, v3.Vec{Z: 1}, 1)
		require.NoError(t, err)
		ts := c.Intersect(v3.Vec{X: -5}, v3.Vec{X: 1})
		require.Len(t, ts, 2)
		assert.InDelta(t, 4, ts[0], 1e-12)
		assert.InDelta(t, 6, ts[1], 1e-12)
	})
}

func TestConstructorErrors(t *testing.T) {
	_, err := NewPlane(v3.Vec{}, 1)
	assert.True(t, errors.Is(err, errs.ErrGeometry))
	_, err = NewSphere(v3.Vec{}, 0)
	assert.True(t, errors.Is(err, errs.ErrSize))
	_, err = NewCylinder(v3.Vec{}, v3.Vec{Z: 1}, -1)
	assert.True(t, errors.Is(err, errs.ErrSize))
	_, err = NewCone(v3.Vec{}, v3.Vec{Z: 1}, math.Pi/2)
	assert.True(t, errors.Is(err, errs.ErrSize))
	_, err = NewCylinder(v3.Vec{}, v3.Vec{}, 1)
	assert.True(t, errors.Is(err, errs.ErrGeometry))
}

func TestRegistryAddAndLookup(t *testing.T) {
	r := NewRegistry(0)
	p := mustPlane(t, v3.Vec{Z: 1}, 0)

	require.NoError(t, r.Add(4, p))
	assert.True(t, errors.Is(r.Add(4, p), errs.ErrConfiguration))
	assert.True(t, errors.Is(r.Add(0, p), errs.ErrConfiguration))

	got, err := r.Surface(-4)
	require.NoError(t, err)
	assert.Equal(t, 4, got.ID())
	assert.True(t, r.Has(-4))

	_, err = r.Surface(9)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestRegistryDeduplicates(t *testing.T) {
	r := NewRegistry(0)
	id, err := r.Register(5, mustPlane(t, v3.Vec{X: 1}, 1))
	require.NoError(t, err)
	assert.Equal(t, 5, id)

	id, err = r.Register(6, mustPlane(t, v3.Vec{X: 2}, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, id, "scaled duplicate")

	id, err = r.Register(9, mustPlane(t, v3.Vec{X: -1}, -1))
	require.NoError(t, err)
	assert.Equal(t, -5, id, "flipped duplicate")

	id, err = r.Register(9, mustPlane(t, v3.Vec{X: 1}, 2))
	require.NoError(t, err)
	assert.Equal(t, 9, id)
	assert.Equal(t, []int{5, 9}, r.IDs())

	// A cylinder shifted along its own axis is the same surface.
	c1, err := NewCylinder(v3.Vec{}, v3.Vec{Y: 1}, 2)
	require.NoError(t, err)
	c2, err := NewCylinder(v3.Vec{Y: 40}, v3.Vec{Y: -1}, 2)
	require.NoError(t, err)
	id, err = r.Register(20, c1)
	require.NoError(t, err)
	id2, err := r.Register(21, c2)
	require.NoError(t, err)
	assert.Equal(t, id, id2)
}

func TestFlipped(t *testing.T) {
	p := mustPlane(t, v3.Vec{Y: 1}, 2)
	f, err := p.Flipped()
	require.NoError(t, err)
	pt := v3.Vec{Y: 5}
	assert.Equal(t, -p.Side(pt), f.Side(pt))

	s, err := NewSphere(v3.Vec{}, 1)
	require.NoError(t, err)
	_, err = s.Flipped()
	assert.True(t, errors.Is(err, errs.ErrGeometry))
}

func TestBoxAndCards(t *testing.T) {
	r := NewRegistry(0)
	ids, err := r.Box(1, sdf.Box3{Min: v3.Vec{X: -1, Y: -1, Z: -1}, Max: v3.Vec{X: 1, Y: 1, Z: 1}})
	require.NoError(t, err)
	assert.Equal(t, [6]int{1, 2, 3, 4, 5, 6}, ids)

	sph, err := NewSphere(v3.Vec{X: 1, Y: 2, Z: 3}, 0.5)
	require.NoError(t, err)
	require.NoError(t, r.Add(7, sph))
	tilted := mustPlane(t, v3.Vec{X: 3, Y: 4}, 10)
	require.NoError(t, r.Add(8, tilted))

	var buf bytes.Buffer
	require.NoError(t, r.WriteCards(&buf))
	want := "1 px -1\n2 px 1\n3 py -1\n4 py 1\n5 pz -1\n6 pz 1\n" +
		"7 s 1 2 3 0.5\n8 p 0.6 0.8 0 2\n"
	assert.Equal(t, want, buf.String())

	_, err = r.Box(10, sdf.Box3{Min: v3.Vec{X: 1}, Max: v3.Vec{X: 0, Y: 1, Z: 1}})
	assert.True(t, errors.Is(err, errs.ErrSize))
}

func TestGeneralQuadricCard(t *testing.T) {
	c, err := NewCylinder(v3.Vec{X: 1}, v3.Vec{Z: 1}, 2)
	require.NoError(t, err)
	r := NewRegistry(0)
	require.NoError(t, r.Add(3, c))
	got, err := r.Surface(3)
	require.NoError(t, err)
	// (x-1)² + y² - 4 = x² + y² - 2x - 3
	assert.Equal(t, "3 gq 1 1 0 0 0 0 -2 0 0 -3", Card(got))
}
