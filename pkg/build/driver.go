package build

import (
	"github.com/chazu/carve/pkg/errs"
	"github.com/chazu/carve/pkg/vardb"
	"github.com/sirupsen/logrus"
)

// Component is a leaf model part. The driver calls the steps once each, in
// declaration order.
type Component interface {
	Name() string
	// Populate reads parameters; it must not touch the context.
	Populate(vars vardb.Source) error
	CreateSurfaces(ctx *Context) error
	CreateRegions(ctx *Context) error
	CreateAttachmentPoints(ctx *Context) error
	// Insert places the component's cells in ctx.Cells.
	Insert(ctx *Context) error
}

// Step names, as stamped on errors and log entries.
const (
	StepPopulate         = "populate"
	StepCreateSurfaces   = "create-surfaces"
	StepCreateRegions    = "create-regions"
	StepAttachmentPoints = "create-attachment-points"
	StepInsert           = "insert"
)

// Entry is a component and the names of the components it builds on.
type Entry struct {
	Component Component
	Needs     []string
}

// Driver holds the components of one model in build order.
type Driver struct {
	entries []Entry
	index   map[string]int
}

// NewDriver returns an empty driver.
func NewDriver() *Driver { return &Driver{index: make(map[string]int)} }

// Add appends c, which builds on the named components.
func (d *Driver) Add(c Component, needs ...string) error {
	name := c.Name()
	if name == "" {
		return errs.Configf("add-component", "component has no name")
	}
	if _, ok := d.index[name]; ok {
		return errs.Configf("add-component", "component %s added twice", name)
	}
	d.index[name] = len(d.entries)
	d.entries = append(d.entries, Entry{Component: c, Needs: append([]string(nil), needs...)})
	return nil
}

// Entries returns the components in build order.
func (d *Driver) Entries() []Entry { return append([]Entry(nil), d.entries...) }

// Check verifies that every need names a known component, that needs form
// no cycle, and that every component comes after what it needs.
func (d *Driver) Check() error {
	for _, e := range d.entries {
		for _, n := range e.Needs {
			if _, ok := d.index[n]; !ok {
				return errs.NotFoundf("check", "%s needs unknown component %s", e.Component.Name(), n)
			}
		}
	}

	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(d.entries))
	var cycle string
	var visit func(i int) bool
	visit = func(i int) bool {
		switch color[i] {
		case black:
			return false
		case gray:
			cycle = d.entries[i].Component.Name()
			return true
		}
		color[i] = gray
		for _, n := range d.entries[i].Needs {
			if visit(d.index[n]) {
				return true
			}
		}
		color[i] = black
		return false
	}
	for i := range d.entries {
		if color[i] == white && visit(i) {
			return errs.Configf("check", "dependency cycle through %s", cycle)
		}
	}

	for i, e := range d.entries {
		for _, n := range e.Needs {
			if d.index[n] > i {
				return errs.Configf("check", "%s needs %s, which is built after it", e.Component.Name(), n)
			}
		}
	}
	return nil
}

// Run builds every component into ctx. The first failure aborts the run
// and is returned stamped with the component and step. After each
// component's insert step all cells are populated again, so later
// components see bound regions.
func (d *Driver) Run(ctx *Context, vars vardb.Source) error {
	if ctx.running {
		return errs.Configf("run", "build %s is already running", ctx.ID)
	}
	ctx.running = true
	defer func() { ctx.running = false }()

	if err := d.Check(); err != nil {
		return err
	}
	for _, e := range d.entries {
		c := e.Component
		log := ctx.Log.WithField("component", c.Name())
		steps := []struct {
			name string
			run  func() error
		}{
			{StepPopulate, func() error { return c.Populate(vars) }},
			{StepCreateSurfaces, func() error { return c.CreateSurfaces(ctx) }},
			{StepCreateRegions, func() error { return c.CreateRegions(ctx) }},
			{StepAttachmentPoints, func() error { return c.CreateAttachmentPoints(ctx) }},
			{StepInsert, func() error {
				if err := c.Insert(ctx); err != nil {
					return err
				}
				return ctx.Cells.Populate(ctx.Surfaces)
			}},
		}
		for _, st := range steps {
			log.WithField("step", st.name).Debug("running step")
			if err := st.run(); err != nil {
				err = errs.WithComponent(err, c.Name(), st.name)
				log.WithField("step", st.name).WithError(err).Error("build failed")
				return err
			}
		}
		log.WithFields(logrus.Fields{
			"surfaces": ctx.Surfaces.Len(),
			"cells":    ctx.Cells.Len(),
		}).Info("component built")
	}
	return nil
}
