package worksheet

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/cellref"
)

func compareRow(r *Row, n int) int { return cmp.Compare(r.Num, n) }
func compareCell(c *Cell, col int) int { return cmp.Compare(c.Col, col) }

// Rows returns the rows in ascending order. The slice must not be modified.
func (d *Document) Rows() []*Row {
	return d.rows
}

// Row returns row n if present.
func (d *Document) Row(n int) (*Row, bool) {
	i, found := slices.BinarySearchFunc(d.rows, n, compareRow)
	if !found {
		return nil, false
	}
	return d.rows[i], true
}

// EnsureRow returns row n, inserting an empty row at its ordered position
// when absent.
func (d *Document) EnsureRow(n int) *Row {
	i, found := slices.BinarySearchFunc(d.rows, n, compareRow)
	if found {
		return d.rows[i]
	}
	r := &Row{Num: n}
	d.rows = slices.Insert(d.rows, i, r)
	d.dirty = true
	return r
}

// Cell returns the cell at a if present.
func (d *Document) Cell(a cellref.Address) (*Cell, bool) {
	r, ok := d.Row(a.Row)
	if !ok {
		return nil, false
	}
	return r.Cell(a.Col)
}

// Set stores v at a, creating the row and cell when needed. An existing
// style index is kept.
func (d *Document) Set(a cellref.Address, v Value) error {
	c, err := d.ensureCell(a)
	if err != nil {
		return err
	}
	c.assign(v)
	return nil
}

// SetWithStyle stores v at a and replaces its style index.
func (d *Document) SetWithStyle(a cellref.Address, v Value, style int) error {
	if style < 0 {
		return fmt.Errorf("%w: style index %d", ErrInvalidValue, style)
	}
	c, err := d.ensureCell(a)
	if err != nil {
		return err
	}
	c.assign(v)
	c.Style, c.HasStyle = style, true
	return nil
}

// SetStyle replaces the style index at a and leaves its value alone.
func (d *Document) SetStyle(a cellref.Address, style int) error {
	if style < 0 {
		return fmt.Errorf("%w: style index %d", ErrInvalidValue, style)
	}
	c, err := d.ensureCell(a)
	if err != nil {
		return err
	}
	c.Style, c.HasStyle = style, true
	return nil
}

func (d *Document) ensureCell(a cellref.Address) (*Cell, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %d,%d", cellref.ErrInvalidReference, a.Row, a.Col)
	}
	r := d.EnsureRow(a.Row)
	r.raw = nil
	d.dirty = true
	i, found := slices.BinarySearchFunc(r.Cells, a.Col, compareCell)
	if found {
		return r.Cells[i], nil
	}
	c := &Cell{Col: a.Col}
	r.Cells = slices.Insert(r.Cells, i, c)
	return c, nil
}

// Cell returns the cell in column col if present.
func (r *Row) Cell(col int) (*Cell, bool) {
	i, found := slices.BinarySearchFunc(r.Cells, col, compareCell)
	if !found {
		return nil, false
	}
	return r.Cells[i], true
}

// put inserts c at its ordered position, replacing a cell in the same column.
func (r *Row) put(c *Cell) {
	i, found := slices.BinarySearchFunc(r.Cells, c.Col, compareCell)
	if found {
		r.Cells[i] = c
		return
	}
	r.Cells = slices.Insert(r.Cells, i, c)
}

// NextRow returns the row after the last row present, or 1 for an empty
// sheet.
func (d *Document) NextRow() int {
	if len(d.rows) == 0 {
		return 1
	}
	return d.rows[len(d.rows)-1].Num + 1
}

// LastRowInColumn returns the last row holding a value in column col, or 0
// when the column is empty. Cells that carry only a style do not count.
func (d *Document) LastRowInColumn(col int) int {
	for i := len(d.rows) - 1; i >= 0; i-- {
		if c, ok := d.rows[i].Cell(col); ok && c.Value.Kind != KindEmpty {
			return d.rows[i].Num
		}
	}
	return 0
}

// UsedRange returns the smallest range covering every cell. ok is false for
// a sheet without cells.
func (d *Document) UsedRange() (rng cellref.Range, ok bool) {
	for _, r := range d.rows {
		if len(r.Cells) == 0 {
			continue
		}
		cur := cellref.Range{
			From: cellref.Address{Row: r.Num, Col: r.Cells[0].Col},
			To:   cellref.Address{Row: r.Num, Col: r.Cells[len(r.Cells)-1].Col},
		}
		if !ok {
			rng, ok = cur, true
			continue
		}
		rng = rng.Union(cur)
	}
	return rng, ok
}

// Dimension returns the declared used range.
func (d *Document) Dimension() string {
	return d.dimension
}

// UpdateDimension recomputes the declared used range from the cells
// present. An empty sheet is declared as "A1". It reports whether the
// declared value changed.
func (d *Document) UpdateDimension() bool {
	ref := "A1"
	if rng, ok := d.UsedRange(); ok {
		ref = rng.String()
	}
	if ref == d.dimension {
		return false
	}
	d.dimension = ref
	d.dirty = true
	return true
}

// MergedCells returns the merged ranges in document order.
func (d *Document) MergedCells() []cellref.Range {
	return slices.Clone(d.merges)
}

// MergeCells records a merged range. Ranges overlapping an existing merge
// and single-cell ranges are rejected.
func (d *Document) MergeCells(rng cellref.Range) error {
	if !rng.From.Valid() || !rng.To.Valid() {
		return fmt.Errorf("%w: %s", cellref.ErrInvalidReference, rng)
	}
	if rng.Single() {
		return fmt.Errorf("%w: merge of a single cell %s", cellref.ErrInvalidReference, rng)
	}
	for _, m := range d.merges {
		if m.Overlaps(rng) {
			return fmt.Errorf("%w: %s overlaps %s", ErrMergeOverlap, rng, m)
		}
	}
	d.merges = append(d.merges, rng)
	d.mergeRaw = nil
	d.dirty = true
	return nil
}

// SharedIndexes calls fn for every cell referencing the shared string
// table, stopping at the first error.
func (d *Document) SharedIndexes(fn func(a cellref.Address, index int) error) error {
	for _, r := range d.rows {
		for _, c := range r.Cells {
			if c.Value.Kind != KindShared {
				continue
			}
			if err := fn(cellref.Address{Row: r.Num, Col: c.Col}, c.Value.Index); err != nil {
				return err
			}
		}
	}
	return nil
}
