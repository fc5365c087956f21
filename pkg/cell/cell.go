// Package cell holds the numbered (material, density, region) triples that
// make up a model, and writes them as transport-code cell cards.
package cell

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"

	"github.com/chazu/carve/pkg/errs"
	"github.com/chazu/carve/pkg/region"
)

// Void is the material id of an empty cell.
const Void = 0

// Cell is one numbered region of uniform material. Density is a mass
// density in g/cm³ and is ignored for void cells.
type Cell struct {
	ID       int
	Material int
	Density  float64
	Region   region.Handle
}

// IsVoid reports whether c holds no material.
func (c Cell) IsVoid() bool { return c.Material == Void }

func (c Cell) validate(op string) error {
	if c.ID <= 0 {
		return errs.Configf(op, "cell id %d must be positive", c.ID)
	}
	if c.Material < 0 {
		return errs.Configf(op, "cell %d: material %d must not be negative", c.ID, c.Material)
	}
	if !c.IsVoid() && !(c.Density > 0) {
		return errs.Configf(op, "cell %d: density %g must be positive for material %d", c.ID, c.Density, c.Material)
	}
	return nil
}

// Table is the flat collection of cells of one build.
type Table struct {
	cells map[int]Cell
}

// NewTable returns an empty table.
func NewTable() *Table { return &Table{cells: make(map[int]Cell)} }

// Insert adds c. Its id must be positive and unused.
func (t *Table) Insert(c Cell) error {
	if err := c.validate("insert-cell"); err != nil {
		return err
	}
	if _, ok := t.cells[c.ID]; ok {
		return errs.Configf("insert-cell", "cell %d already exists", c.ID)
	}
	t.cells[c.ID] = c
	return nil
}

// Get returns the cell with the given id.
func (t *Table) Get(id int) (Cell, error) {
	c, ok := t.cells[id]
	if !ok {
		return Cell{}, errs.NotFoundf("cell", "cell %d not in table", id)
	}
	return c, nil
}

// Has reports whether id is in the table.
func (t *Table) Has(id int) bool {
	_, ok := t.cells[id]
	return ok
}

// Len returns the number of cells.
func (t *Table) Len() int { return len(t.cells) }

// Region returns the region of cell id, so that a Table can resolve "#N"
// references.
func (t *Table) Region(id int) (region.Handle, error) {
	c, err := t.Get(id)
	if err != nil {
		return region.Handle{}, err
	}
	return c.Region, nil
}

// Narrow intersects the region of cell id with extra. A wrapping component
// uses it to exclude itself from a cell it is inserted into.
func (t *Table) Narrow(id int, extra region.Handle) error {
	c, err := t.Get(id)
	if err != nil {
		return err
	}
	c.Region = c.Region.Intersect(extra)
	t.cells[id] = c
	return nil
}

// Remove deletes cell id.
func (t *Table) Remove(id int) error {
	if _, err := t.Get(id); err != nil {
		return err
	}
	delete(t.cells, id)
	return nil
}

// Split replaces the region of cell parentID with remainder and inserts
// child, in one step: on error the table is unchanged. The parent keeps its
// id, material and density.
func (t *Table) Split(parentID int, remainder region.Handle, child Cell) error {
	parent, err := t.Get(parentID)
	if err != nil {
		return err
	}
	if err := child.validate("split-cell"); err != nil {
		return err
	}
	if child.ID == parentID || t.Has(child.ID) {
		return errs.Configf("split-cell", "cell %d already exists", child.ID)
	}
	parent.Region = remainder
	t.cells[parentID] = parent
	t.cells[child.ID] = child
	return nil
}

// IDs returns every cell id, ascending.
func (t *Table) IDs() []int {
	ids := make([]int, 0, len(t.cells))
	for id := range t.cells {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Populate resolves every cell region against surfaces and the table's own
// cells.
func (t *Table) Populate(surfaces region.SurfaceSource) error {
	for _, id := range t.IDs() {
		c := t.cells[id]
		h, err := c.Region.Populate(surfaces, t)
		if err != nil {
			return fmt.Errorf("cell %d: %w", id, err)
		}
		c.Region = h
		t.cells[id] = c
	}
	return nil
}

// Card formats c as "id 0 geom" for void and "id mat -rho geom" otherwise.
func Card(c Cell) (string, error) {
	text, err := c.Region.Serialize()
	if err != nil {
		return "", fmt.Errorf("cell %d: %w", c.ID, err)
	}
	b := []byte(strconv.Itoa(c.ID))
	if c.IsVoid() {
		b = append(b, " 0"...)
	} else {
		b = append(b, ' ')
		b = strconv.AppendInt(b, int64(c.Material), 10)
		b = append(b, ' ')
		b = strconv.AppendFloat(b, -c.Density, 'g', 8, 64)
	}
	if text != "" {
		b = append(b, ' ')
		b = append(b, text...)
	}
	return string(b), nil
}

// WriteCards writes one cell card per cell, ascending by id.
func (t *Table) WriteCards(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, id := range t.IDs() {
		card, err := Card(t.cells[id])
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(bw, card); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// NameMap groups a component's cells under names, in insertion order.
type NameMap struct {
	order  []string
	groups map[string][]int
}

// NewNameMap returns an empty map.
func NewNameMap() *NameMap { return &NameMap{groups: make(map[string][]int)} }

// Add appends ids to the group called name.
func (m *NameMap) Add(name string, ids ...int) {
	if _, ok := m.groups[name]; !ok {
		m.order = append(m.order, name)
	}
	m.groups[name] = append(m.groups[name], ids...)
}

// Cells returns the ids in group name.
func (m *NameMap) Cells(name string) ([]int, error) {
	ids, ok := m.groups[name]
	if !ok {
		return nil, errs.NotFoundf("cell-group", "no cell group %q", name)
	}
	return slices.Clone(ids), nil
}

// Cell returns the single id of group name, failing when the group holds
// more or fewer than one.
func (m *NameMap) Cell(name string) (int, error) {
	ids, err := m.Cells(name)
	if err != nil {
		return 0, err
	}
	if len(ids) != 1 {
		return 0, errs.Indexf("cell-group", "group %q holds %d cells, want 1", name, len(ids))
	}
	return ids[0], nil
}

// Names returns the group names in the order they were first added.
func (m *NameMap) Names() []string { return slices.Clone(m.order) }

// Replace swaps cell from for cell to in every group, keeping positions.
func (m *NameMap) Replace(from, to int) {
	for _, ids := range m.groups {
		for i, id := range ids {
			if id == from {
				ids[i] = to
			}
		}
	}
}
