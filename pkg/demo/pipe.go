package demo

import (
	"github.com/chazu/carve/pkg/attach"
	"github.com/chazu/carve/pkg/build"
	"github.com/chazu/carve/pkg/cell"
	"github.com/chazu/carve/pkg/errs"
	"github.com/chazu/carve/pkg/geom"
	"github.com/chazu/carve/pkg/region"
	"github.com/chazu/carve/pkg/vardb"
	"github.com/chazu/carve/pkg/zone"
	"github.com/sirupsen/logrus"
)

const (
	pipeSurfaces = 2
	pipeCells    = 3
)

// Pipe is a straight tube laid between two attachment points of a parent
// component, inside one of the parent's cells. Building it reserves a slot
// cell around the tube out of the parent cell.
type Pipe struct {
	name   string
	parent string
	into   string

	sideA, sideB int
	offset       attach.Offset
	radius, wall float64
	material     int
	density      float64

	linkA, linkB attach.Point
	frame        attach.Frame
	bore, outer  int

	bored, shell, body region.Handle
	cells              *cell.NameMap
}

// NewPipe returns a pipe called name built across cell group into of the
// parent component.
func NewPipe(name, parent, into string) *Pipe {
	return &Pipe{name: name, parent: parent, into: into}
}

// Name implements build.Component.
func (p *Pipe) Name() string { return p.name }

// Cells returns the pipe's named cells once it has been inserted.
func (p *Pipe) Cells() *cell.NameMap { return p.cells }

// Populate implements build.Component.
func (p *Pipe) Populate(vars vardb.Source) error {
	v := vardb.Prefixed(vars, p.name)
	var err error
	read := func(dst *float64, key string, def float64) {
		if err == nil {
			*dst, err = vardb.EvalDefaultVar(v, key, def)
		}
	}
	read(&p.offset.XStep, "XStep", 0)
	read(&p.offset.YStep, "YStep", 0)
	read(&p.offset.ZStep, "ZStep", 0)
	read(&p.offset.XYAngle, "XYAngle", 0)
	read(&p.offset.ZAngle, "ZAngle", 0)
	read(&p.radius, "Radius", 0.25)
	read(&p.wall, "Wall", 0.05)
	read(&p.density, "Density", 7.8)
	if err != nil {
		return err
	}
	if p.sideA, err = vardb.EvalDefaultVar(v, "LinkA", 1); err != nil {
		return err
	}
	if p.sideB, err = vardb.EvalDefaultVar(v, "LinkB", 2); err != nil {
		return err
	}
	if p.material, err = vardb.EvalDefaultVar(v, "Mat", 2); err != nil {
		return err
	}
	switch {
	case p.radius <= 0:
		return errs.Sizef("populate", "bore radius %g must be positive", p.radius)
	case p.wall <= 0:
		return errs.Sizef("populate", "outer radius %g does not enclose bore radius %g", p.radius+p.wall, p.radius)
	case p.material <= 0:
		return errs.Configf("populate", "pipe material %d must be positive", p.material)
	case p.sideA == p.sideB:
		return errs.Configf("populate", "pipe needs two different links, got %d twice", p.sideA)
	}
	return nil
}

// CreateSurfaces places the pipe on the parent's link A and registers the
// bore and outer cylinders along its axis.
func (p *Pipe) CreateSurfaces(ctx *build.Context) error {
	set, err := ctx.Attachments(p.parent)
	if err != nil {
		return err
	}
	if p.linkA, err = set.Get(p.sideA); err != nil {
		return err
	}
	if p.linkB, err = set.Get(p.sideB); err != nil {
		return err
	}
	base, err := attach.FrameFrom(set, p.sideA, attach.Identity())
	if err != nil {
		return err
	}
	p.frame = base.Apply(p.offset)

	r, err := ctx.Numbers.Register(p.name, pipeSurfaces, pipeCells)
	if err != nil {
		return err
	}
	for i, rad := range []float64{p.radius, p.radius + p.wall} {
		id, err := r.Surface(i)
		if err != nil {
			return err
		}
		s, err := geom.NewCylinder(p.frame.Origin, p.frame.Y, rad)
		if err != nil {
			return err
		}
		if id, err = ctx.Surfaces.Register(id, s); err != nil {
			return err
		}
		if i == 0 {
			p.bore = id
		} else {
			p.outer = id
		}
	}
	return nil
}

// CreateRegions implements build.Component.
func (p *Pipe) CreateRegions(ctx *build.Context) error {
	between := p.linkA.Link.Intersect(p.linkB.Link)
	p.bored = region.FromLiterals(-p.bore).Intersect(between)
	p.shell = region.FromLiterals(p.bore, -p.outer).Intersect(between)
	p.body = region.FromLiterals(-p.outer).Intersect(between)
	return nil
}

// CreateAttachmentPoints publishes the two pipe ends on the axis, facing
// out of the pipe.
func (p *Pipe) CreateAttachmentPoints(ctx *build.Context) error {
	end := p.frame.Origin.Add(p.frame.Y.MulScalar(p.frame.Y.Dot(p.linkB.Position.Sub(p.frame.Origin))))
	set := attach.NewSet(2)
	if err := set.SetNamed(1, "start", p.frame.Origin, p.frame.Y, p.linkA.Link.Complement()); err != nil {
		return err
	}
	if err := set.SetNamed(2, "end", end, p.frame.Y.Neg(), p.linkB.Link.Complement()); err != nil {
		return err
	}
	return ctx.Publish(p.name, set)
}

// Insert carves the slot out of the parent cell and adds the bore and the
// pipe wall.
func (p *Pipe) Insert(ctx *build.Context) error {
	names, err := ctx.NamedCells(p.parent)
	if err != nil {
		return err
	}
	parentID, err := names.Cell(p.into)
	if err != nil {
		return err
	}
	parent, err := ctx.Cells.Get(parentID)
	if err != nil {
		return err
	}
	zb, err := ctx.ZoneBuilder(p.name)
	if err != nil {
		return err
	}
	slot, err := zb.BoundRegion(parent, p.linkA, p.linkB)
	if err != nil {
		return err
	}
	body, err := ctx.Populate(p.body)
	if err != nil {
		return err
	}

	r, err := ctx.Numbers.RangeOf(p.name)
	if err != nil {
		return err
	}
	next := r.Cells()
	slotID, err := next.Next()
	if err != nil {
		return err
	}
	if _, _, err := zone.SplitCell(ctx.Cells, parentID, slot, body, slotID); err != nil {
		return err
	}

	p.cells = cell.NewNameMap()
	p.cells.Add("slot", slotID)
	for _, c := range []struct {
		name   string
		region region.Handle
		solid  bool
	}{
		{"bore", p.bored, false},
		{"wall", p.shell, true},
	} {
		id, err := next.Next()
		if err != nil {
			return err
		}
		nc := cell.Cell{ID: id, Region: c.region}
		if c.solid {
			nc.Material, nc.Density = p.material, p.density
		}
		if err := ctx.Cells.Insert(nc); err != nil {
			return err
		}
		p.cells.Add(c.name, id)
	}
	ctx.Log.WithFields(logrus.Fields{
		"component": p.name,
		"parent":    parentID,
		"slot":      slotID,
	}).Debug("slot reserved")
	return ctx.PublishCells(p.name, p.cells)
}
