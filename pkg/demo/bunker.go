// Package demo holds two small components that take the core through a
// complete build: a concrete bunker with a pillar in its cavity, and a pipe
// laid across the cavity between two of its walls.
package demo

import (
	"math"

	"github.com/chazu/carve/pkg/attach"
	"github.com/chazu/carve/pkg/build"
	"github.com/chazu/carve/pkg/cell"
	"github.com/chazu/carve/pkg/errs"
	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/numbering"
	"github.com/chazu/carve/pkg/region"
	"github.com/chazu/carve/pkg/vardb"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Bunker face names, in attachment order.
var faceNames = [6]string{"left", "right", "front", "back", "floor", "roof"}

const (
	bunkerSurfaces = 18
	bunkerCells    = 4
)

// Bunker is a hollow concrete box. The cavity spans Width along the local
// X axis, Length along Y and Height along Z, and holds a square pillar
// standing on the floor at PillarY. Its six attachment points sit at the
// centres of the inner faces with axes pointing out of the cavity.
type Bunker struct {
	name string

	offset                attach.Offset
	width, length, height float64
	wall                  float64
	pillarY, pillarSize   float64
	material              int
	density               float64

	frame  attach.Frame
	inner  [6]int
	outer  [6]int
	pillar [4]int

	cavity, walls, column, outside region.Handle
	cells                          *cell.NameMap
}

// NewBunker returns a bunker reading its parameters under name.
func NewBunker(name string) *Bunker { return &Bunker{name: name} }

// Name implements build.Component.
func (b *Bunker) Name() string { return b.name }

// Cells returns the bunker's named cells once it has been inserted.
func (b *Bunker) Cells() *cell.NameMap { return b.cells }

// Populate implements build.Component.
func (b *Bunker) Populate(vars vardb.Source) error {
	v := vardb.Prefixed(vars, b.name)
	var err error
	read := func(dst *float64, key string, def float64) {
		if err == nil {
			*dst, err = vardb.EvalDefaultVar(v, key, def)
		}
	}
	read(&b.offset.XStep, "XStep", 0)
	read(&b.offset.YStep, "YStep", 0)
	read(&b.offset.ZStep, "ZStep", 0)
	read(&b.offset.XYAngle, "XYAngle", 0)
	read(&b.offset.ZAngle, "ZAngle", 0)
	read(&b.width, "Width", 6)
	read(&b.length, "Length", 10)
	read(&b.height, "Height", 4)
	read(&b.wall, "Wall", 0.5)
	read(&b.pillarY, "PillarY", 2.5)
	read(&b.pillarSize, "PillarSize", 0.6)
	read(&b.density, "Density", 2.3)
	if err != nil {
		return err
	}
	if b.material, err = vardb.EvalDefaultVar(v, "Mat", 1); err != nil {
		return err
	}

	switch {
	case b.width <= 0 || b.length <= 0 || b.height <= 0:
		return errs.Sizef("populate", "cavity %gx%gx%g must have positive extent", b.width, b.length, b.height)
	case b.wall <= 0:
		return errs.Sizef("populate", "wall thickness %g must be positive", b.wall)
	case b.pillarSize <= 0 || b.pillarSize >= b.width:
		return errs.Sizef("populate", "pillar size %g must lie in (0, %g)", b.pillarSize, b.width)
	case math.Abs(b.pillarY)+b.pillarSize/2 >= b.length/2:
		return errs.Sizef("populate", "pillar at y=%g does not fit in cavity of length %g", b.pillarY, b.length)
	case b.material <= 0:
		return errs.Configf("populate", "concrete material %d must be positive", b.material)
	}
	return nil
}

// CreateSurfaces implements build.Component.
func (b *Bunker) CreateSurfaces(ctx *build.Context) error {
	r, err := ctx.Numbers.Register(b.name, bunkerSurfaces, bunkerCells)
	if err != nil {
		return err
	}
	b.frame = attach.Identity().Apply(b.offset)

	half := v3.Vec{X: b.width / 2, Y: b.length / 2, Z: b.height / 2}
	if b.inner, err = b.box(ctx, r, 0, half.Neg(), half); err != nil {
		return err
	}
	w := v3.Vec{X: b.wall, Y: b.wall, Z: b.wall}
	if b.outer, err = b.box(ctx, r, 6, half.Neg().Sub(w), half.Add(w)); err != nil {
		return err
	}

	s := b.pillarSize / 2
	faces := []struct {
		local, normal v3.Vec
	}{
		{v3.Vec{X: -s, Y: b.pillarY}, v3.Vec{X: 1}},
		{v3.Vec{X: s, Y: b.pillarY}, v3.Vec{X: 1}},
		{v3.Vec{Y: b.pillarY - s}, v3.Vec{Y: 1}},
		{v3.Vec{Y: b.pillarY + s}, v3.Vec{Y: 1}},
	}
	for i, f := range faces {
		if b.pillar[i], err = b.plane(ctx, r, 12+i, f.local, f.normal); err != nil {
			return err
		}
	}
	return nil
}

// box registers the six planes of the local box lo..hi, ordered -x, +x,
// -y, +y, -z, +z, each with its normal along the positive local axis.
func (b *Bunker) box(ctx *build.Context, r numbering.Range, first int, lo, hi v3.Vec) ([6]int, error) {
	var ids [6]int
	axes := [3]v3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	for i := 0; i < 6; i++ {
		a := axes[i/2]
		bound := lo
		if i%2 == 1 {
			bound = hi
		}
		local := a.Mul(bound)
		id, err := b.plane(ctx, r, first+i, local, a)
		if err != nil {
			return ids, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (b *Bunker) plane(ctx *build.Context, r numbering.Range, index int, local, normal v3.Vec) (int, error) {
	id, err := r.Surface(index)
	if err != nil {
		return 0, err
	}
	s, err := geom.PlaneThrough(b.frame.Point(local), b.frame.Direction(normal))
	if err != nil {
		return 0, err
	}
	return ctx.Surfaces.Register(id, s)
}

// inside returns the interior of a box registered by box.
func inside(ids [6]int) region.Handle {
	return region.FromLiterals(ids[0], -ids[1], ids[2], -ids[3], ids[4], -ids[5])
}

// CreateRegions implements build.Component.
func (b *Bunker) CreateRegions(ctx *build.Context) error {
	in, out := inside(b.inner), inside(b.outer)
	b.column = region.FromLiterals(b.pillar[0], -b.pillar[1], b.pillar[2], -b.pillar[3], b.inner[4], -b.inner[5])
	b.cavity = in.Intersect(b.column.Complement())
	b.walls = out.Intersect(in.Complement())
	b.outside = out.Complement()
	return nil
}

// CreateAttachmentPoints publishes the six inner faces. The link of each
// face is the cavity side of its plane; the bridge is the band of the four
// planes around it.
func (b *Bunker) CreateAttachmentPoints(ctx *build.Context) error {
	set := attach.NewSet(6)
	axes := [3]v3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	half := v3.Vec{X: b.width / 2, Y: b.length / 2, Z: b.height / 2}
	for i, name := range faceNames {
		a := axes[i/2]
		link := b.inner[i]
		if i%2 == 0 {
			a = a.Neg()
		} else {
			link = -link
		}
		centre := a.Mul(half)
		if err := set.SetNamed(i+1, name, b.frame.Point(centre), b.frame.Direction(a), attach.LinkSurface(link)); err != nil {
			return err
		}
		var band []int
		for j := 0; j < 6; j++ {
			if j/2 == i/2 {
				continue
			}
			if j%2 == 0 {
				band = append(band, b.inner[j])
			} else {
				band = append(band, -b.inner[j])
			}
		}
		if err := set.SetBridge(i+1, region.FromLiterals(band...)); err != nil {
			return err
		}
	}
	return ctx.Publish(b.name, set)
}

// Insert implements build.Component.
func (b *Bunker) Insert(ctx *build.Context) error {
	r, err := ctx.Numbers.RangeOf(b.name)
	if err != nil {
		return err
	}
	next := r.Cells()
	b.cells = cell.NewNameMap()
	for _, c := range []struct {
		name   string
		region region.Handle
		solid  bool
	}{
		{"cavity", b.cavity, false},
		{"wall", b.walls, true},
		{"pillar", b.column, true},
		{"outside", b.outside, false},
	} {
		id, err := next.Next()
		if err != nil {
			return err
		}
		nc := cell.Cell{ID: id, Region: c.region}
		if c.solid {
			nc.Material, nc.Density = b.material, b.density
		}
		if err := ctx.Cells.Insert(nc); err != nil {
			return err
		}
		b.cells.Add(c.name, id)
	}
	return ctx.PublishCells(b.name, b.cells)
}
