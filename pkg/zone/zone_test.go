package zone

import (
	"testing"

	"github.com/chazu/carve/pkg/attach"
	"github.com/chazu/carve/pkg/cell"
	"github.com/chazu/carve/pkg/errs"
	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/region"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	boxRule    = "1 -2 3 -4 5 -6"
	pillarRule = "1 -2 3 -4 5 -6 #(21 -22 23 -24 25 -26)"
)

// scene registers the unit box (1..6), a pillar box at x in [0.5,0.8],
// |z| < 0.2 crossing the whole box along y (21..26) and a y cylinder of
// radius 0.3 (8).
func scene(t *testing.T) *geom.Registry {
	t.Helper()
	reg := geom.NewRegistry(0)
	_, err := reg.Box(1, sdf.Box3{Min: v3.Vec{X: -1, Y: -1, Z: -1}, Max: v3.Vec{X: 1, Y: 1, Z: 1}})
	require.NoError(t, err)
	_, err = reg.Box(21, sdf.Box3{Min: v3.Vec{X: 0.5, Y: -2, Z: -0.2}, Max: v3.Vec{X: 0.8, Y: 2, Z: 0.2}})
	require.NoError(t, err)
	cyl, err := geom.NewCylinder(v3.Vec{}, v3.Vec{Y: 1}, 0.3)
	require.NoError(t, err)
	require.NoError(t, reg.Add(8, cyl))
	return reg
}

func parentCell(t *testing.T, reg *geom.Registry, rule string) cell.Cell {
	t.Helper()
	h, err := region.MustParse(rule).Populate(reg, nil)
	require.NoError(t, err)
	return cell.Cell{ID: 1, Region: h}
}

// links returns attachment points on the y faces of the unit box, both
// facing out of the slot.
func links() (attach.Point, attach.Point) {
	a := attach.Point{Position: v3.Vec{Y: -1}, Axis: v3.Vec{Y: -1}, Link: attach.LinkSurface(3)}
	b := attach.Point{Position: v3.Vec{Y: 1}, Axis: v3.Vec{Y: 1}, Link: attach.LinkSurface(-4)}
	return a, b
}

// grid returns points clear of every scene surface.
func grid() []v3.Vec {
	var pts []v3.Vec
	for i := -19; i <= 19; i += 2 {
		for j := -19; j <= 19; j += 4 {
			for k := -19; k <= 19; k += 2 {
				pts = append(pts, v3.Vec{X: float64(i) * 0.05, Y: float64(j) * 0.05, Z: float64(k) * 0.05})
			}
		}
	}
	return pts
}

func contains(t *testing.T, h region.Handle, p v3.Vec) bool {
	t.Helper()
	in, err := h.IsValid(p)
	require.NoError(t, err)
	return in
}

func builder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(8, 0.95, 0)
	require.NoError(t, err)
	return b
}

func TestBoxSlotFindsSidePlanes(t *testing.T) {
	reg := scene(t)
	parent := parentCell(t, reg, boxRule)
	a, b := links()

	zone, err := builder(t).BoundRegion(parent, a, b)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2, 5, 6}, zone.Surfaces())
	assert.ElementsMatch(t, []int{1, -2, 5, -6}, zone.Literals())

	between, err := zone.Intersect(a.Link).Intersect(b.Link).Populate(reg, nil)
	require.NoError(t, err)
	for _, p := range grid() {
		if contains(t, between, p) {
			assert.True(t, contains(t, parent.Region, p), "zone point %v outside parent", p)
		}
	}
}

func TestSamples(t *testing.T) {
	a, b := links()
	pts := builder(t).Samples(a, b)
	require.Len(t, pts, 3)
	assert.Equal(t, v3.Vec{}, pts[0])
	assert.InDelta(t, -0.95, pts[1].Y, 1e-12)
	assert.InDelta(t, 0.95, pts[2].Y, 1e-12)
}

func TestNonConvexParent(t *testing.T) {
	reg := scene(t)
	parent := parentCell(t, reg, pillarRule)
	a, b := links()

	zone, err := builder(t).BoundRegion(parent, a, b)
	require.NoError(t, err)
	assert.Contains(t, zone.Literals(), -21, "the pillar face bounds the slot")
	assert.NotContains(t, zone.Surfaces(), 3)
	assert.NotContains(t, zone.Surfaces(), 4)
}

func TestSplitCell(t *testing.T) {
	reg := scene(t)
	parent := parentCell(t, reg, pillarRule)
	parent.Material, parent.Density = 3, 2.3
	a, b := links()

	zone, err := builder(t).BoundRegion(parent, a, b)
	require.NoError(t, err)

	tab := cell.NewTable()
	require.NoError(t, tab.Insert(parent))
	outer, err := region.MustParse("-8 3 -4").Populate(reg, nil)
	require.NoError(t, err)

	id, _, err := SplitCell(tab, 1, zone, outer, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	require.NoError(t, tab.Populate(reg))

	rem, err := tab.Get(1)
	require.NoError(t, err)
	added, err := tab.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 3, added.Material)
	assert.InDelta(t, 2.3, added.Density, 1e-12)

	var inAdded, inRem int
	for _, p := range grid() {
		n, r := contains(t, added.Region, p), contains(t, rem.Region, p)
		assert.False(t, n && r, "cells overlap at %v", p)
		want := contains(t, parent.Region, p) && !contains(t, outer, p)
		assert.Equal(t, want, n || r, "union differs from parent minus outer at %v", p)
		if n {
			inAdded++
		}
		if r {
			inRem++
		}
	}
	assert.Positive(t, inAdded)
	assert.Positive(t, inRem, "the far side of the pillar stays with the parent")
}

func TestSplitCellErrors(t *testing.T) {
	tab := cell.NewTable()
	require.NoError(t, tab.Insert(cell.Cell{ID: 1, Region: region.MustParse(boxRule)}))

	_, _, err := SplitCell(tab, 1, region.Handle{}, region.Handle{}, 2)
	assert.ErrorIs(t, err, errs.ErrGeometry)
	_, _, err = SplitCell(tab, 9, region.MustParse("1"), region.Handle{}, 2)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, _, err = SplitCell(tab, 1, region.MustParse("1"), region.Handle{}, 1)
	assert.ErrorIs(t, err, errs.ErrConfiguration)

	_, shrunk, err := SplitCell(tab, 1, region.MustParse("-2"), region.Handle{}, 2)
	require.NoError(t, err)
	assert.Equal(t, "1 -2 3 -4 5 -6 #(-2)", shrunk.Region.String(), "empty outer excludes nothing")
}

func TestBoundRegionErrors(t *testing.T) {
	reg := scene(t)
	a, b := links()

	t.Run("sample outside parent", func(t *testing.T) {
		far := a
		far.Position = v3.Vec{Y: 5}
		farB := b
		farB.Position = v3.Vec{Y: 7}
		_, err := builder(t).BoundRegion(parentCell(t, reg, boxRule), far, farB)
		assert.ErrorIs(t, err, errs.ErrGeometry)
	})
	t.Run("nothing to hit", func(t *testing.T) {
		_, err := builder(t).BoundRegion(parentCell(t, reg, "3 -4"), a, b)
		assert.ErrorIs(t, err, errs.ErrGeometry)
	})
	t.Run("unpopulated parent", func(t *testing.T) {
		_, err := builder(t).BoundRegion(cell.Cell{ID: 1, Region: region.MustParse(boxRule)}, a, b)
		assert.Error(t, err)
	})
	t.Run("no slot axis", func(t *testing.T) {
		_, err := builder(t).BoundRegion(parentCell(t, reg, boxRule), attach.Point{}, attach.Point{})
		assert.ErrorIs(t, err, errs.ErrGeometry)
	})
}

func TestNewBuilder(t *testing.T) {
	_, err := NewBuilder(2, 0.95, 0)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	_, err = NewBuilder(8, 1, 0)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	b, err := NewBuilder(6, 0.5, 0)
	require.NoError(t, err)
	assert.Equal(t, geom.DefaultTolerance, b.Tolerance)
}

func TestLogsHits(t *testing.T) {
	reg := scene(t)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	b := builder(t)
	b.Log = logger
	a, l := links()

	_, err := b.BoundRegion(parentCell(t, reg, boxRule), a, l)
	require.NoError(t, err)
	entries := hook.AllEntries()
	require.Len(t, entries, 3*8+1)
	assert.Equal(t, logrus.DebugLevel, entries[0].Level)
	last := hook.LastEntry()
	assert.Equal(t, "bounding zone", last.Message)
	assert.Equal(t, logrus.InfoLevel, last.Level)
	assert.Equal(t, 1, last.Data["cell"])
}
