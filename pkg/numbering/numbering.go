// Package numbering reserves disjoint surface and cell id ranges for named
// components, so that independently written components never collide.
package numbering

import (
	"fmt"
	"slices"

	"github.com/chazu/carve/pkg/errs"
)

// Range is the block of ids granted to one component. It never changes
// after Register returns it.
type Range struct {
	Name         string
	FirstSurface int
	SurfaceCount int
	FirstCell    int
	CellCount    int
}

// Surface returns the i-th surface id of the range, counting from zero.
func (r Range) Surface(i int) (int, error) {
	if i < 0 || i >= r.SurfaceCount {
		return 0, errs.Indexf("surface-index", "%s: surface index %d outside [0,%d)", r.Name, i, r.SurfaceCount)
	}
	return r.FirstSurface + i, nil
}

// Cell returns the i-th cell id of the range, counting from zero.
func (r Range) Cell(i int) (int, error) {
	if i < 0 || i >= r.CellCount {
		return 0, errs.Indexf("cell-index", "%s: cell index %d outside [0,%d)", r.Name, i, r.CellCount)
	}
	return r.FirstCell + i, nil
}

// OwnsSurface reports whether the absolute value of id lies in the range.
func (r Range) OwnsSurface(id int) bool {
	if id < 0 {
		id = -id
	}
	return id >= r.FirstSurface && id < r.FirstSurface+r.SurfaceCount
}

// OwnsCell reports whether id lies in the range.
func (r Range) OwnsCell(id int) bool {
	return id >= r.FirstCell && id < r.FirstCell+r.CellCount
}

// Cells returns a counter handing out the range's cell ids in order.
func (r Range) Cells() *CellCounter { return &CellCounter{r: r} }

func (r Range) String() string {
	return fmt.Sprintf("%s surfaces %d-%d cells %d-%d", r.Name,
		r.FirstSurface, r.FirstSurface+r.SurfaceCount-1, r.FirstCell, r.FirstCell+r.CellCount-1)
}

// CellCounter hands out the cell ids of one range. Components pass it to
// every cell-creating call instead of keeping their own index.
type CellCounter struct {
	r    Range
	used int
}

// Next returns the next unused cell id.
func (c *CellCounter) Next() (int, error) {
	id, err := c.r.Cell(c.used)
	if err != nil {
		return 0, fmt.Errorf("%s has no cell ids left: %w", c.r.Name, err)
	}
	c.used++
	return id, nil
}

// Used returns how many ids have been handed out.
func (c *CellCounter) Used() int { return c.used }

// Allocator grants ranges in registration order, each directly after the
// previous one.
type Allocator struct {
	nextSurface int
	nextCell    int
	ranges      []Range
	byName      map[string]int
}

// NewAllocator starts surface ids at firstSurface and cell ids at
// firstCell.
func NewAllocator(firstSurface, firstCell int) *Allocator {
	return &Allocator{nextSurface: firstSurface, nextCell: firstCell, byName: make(map[string]int)}
}

// Register reserves surfaces surface ids and cells cell ids for name.
// Registering a name again with the same counts returns its existing range;
// different counts are refused.
func (a *Allocator) Register(name string, surfaces, cells int) (Range, error) {
	if name == "" {
		return Range{}, errs.Configf("register", "component name is empty")
	}
	if surfaces <= 0 || cells <= 0 {
		return Range{}, errs.Configf("register", "%s: counts must be positive (surfaces %d, cells %d)", name, surfaces, cells)
	}
	if i, ok := a.byName[name]; ok {
		r := a.ranges[i]
		if r.SurfaceCount != surfaces || r.CellCount != cells {
			return Range{}, errs.Configf("register",
				"%s already holds %d surfaces and %d cells, cannot re-register with %d and %d",
				name, r.SurfaceCount, r.CellCount, surfaces, cells)
		}
		return r, nil
	}
	if a.nextSurface <= 0 || a.nextCell <= 0 {
		return Range{}, errs.Configf("register", "id origin must be positive (surface %d, cell %d)", a.nextSurface, a.nextCell)
	}
	r := Range{
		Name:         name,
		FirstSurface: a.nextSurface,
		SurfaceCount: surfaces,
		FirstCell:    a.nextCell,
		CellCount:    cells,
	}
	a.nextSurface += surfaces
	a.nextCell += cells
	a.byName[name] = len(a.ranges)
	a.ranges = append(a.ranges, r)
	return r, nil
}

// RangeOf returns the range registered for name.
func (a *Allocator) RangeOf(name string) (Range, error) {
	i, ok := a.byName[name]
	if !ok {
		return Range{}, errs.NotFoundf("range-of", "no range registered for %q", name)
	}
	return a.ranges[i], nil
}

// Ranges returns every range in registration order.
func (a *Allocator) Ranges() []Range { return slices.Clone(a.ranges) }

// OwnerOfSurface returns the range holding surface id.
func (a *Allocator) OwnerOfSurface(id int) (Range, error) {
	for _, r := range a.ranges {
		if r.OwnsSurface(id) {
			return r, nil
		}
	}
	return Range{}, errs.NotFoundf("owner-of", "surface %d is not in any range", id)
}
