package xlsxedit

import (
	"fmt"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/cellref"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/worksheet"
)

func (s *Session) active(op string) (*worksheet.Document, error) {
	if s.doc == nil {
		return nil, NewError(op, s.path, "", ErrNoActiveSheet)
	}
	return s.doc, nil
}

func (s *Session) fail(op string, err error) error {
	return NewError(op, s.path, s.sheet, err)
}

// text interns v in the shared string table. Text that looks numeric stays text.
func (s *Session) text(v string) worksheet.Value {
	return worksheet.Shared(s.sst.GetOrInsert(v))
}

// AppendRow writes values to the row after the last row present, starting
// in column A. An empty slice writes nothing.
func (s *Session) AppendRow(values []string) error {
	const op = "append_row"
	doc, err := s.active(op)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	return s.writeTable(op, doc, cellref.Address{Row: doc.NextRow(), Col: 1}, [][]string{values})
}

// AppendTable writes rows below the last row present, starting in column
// A. Empty inner rows leave a blank row.
func (s *Session) AppendTable(rows [][]string) error {
	const op = "append_table"
	doc, err := s.active(op)
	if err != nil {
		return err
	}
	return s.writeTable(op, doc, cellref.Address{Row: doc.NextRow(), Col: 1}, rows)
}

// AppendTableAt writes rows with rows[0][0] at topLeft. Cells outside the
// table are left alone. The whole table must fit inside the sheet.
func (s *Session) AppendTableAt(topLeft string, rows [][]string) error {
	const op = "append_table_at"
	doc, err := s.active(op)
	if err != nil {
		return err
	}
	at, err := cellref.Parse(topLeft)
	if err != nil {
		return s.fail(op, err)
	}
	return s.writeTable(op, doc, at, rows)
}

func (s *Session) writeTable(op string, doc *worksheet.Document, at cellref.Address, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if last := at.Row + len(rows) - 1; last > cellref.MaxRows {
		return s.fail(op, fmt.Errorf("%w: table ends at row %d", ErrInvalidReference, last))
	}
	for _, row := range rows {
		if last := at.Col + len(row) - 1; last > cellref.MaxColumns {
			return s.fail(op, fmt.Errorf("%w: table ends at column %d", ErrInvalidReference, last))
		}
	}
	for i, row := range rows {
		for j, v := range row {
			a := cellref.Address{Row: at.Row + i, Col: at.Col + j}
			if err := doc.Set(a, s.text(v)); err != nil {
				return s.fail(op, err)
			}
		}
	}
	return nil
}

// SetCell stores value as text at ref.
func (s *Session) SetCell(ref, value string) error {
	return s.set("set_cell", ref, func() (worksheet.Value, error) {
		return s.text(value), nil
	})
}

// SetCellNumber stores a numeric value at ref.
func (s *Session) SetCellNumber(ref string, value float64) error {
	return s.set("set_cell_number", ref, func() (worksheet.Value, error) {
		return worksheet.Number(value)
	})
}

// SetCellFormula stores a formula at ref. A leading '=' is optional. No
// result is cached; spreadsheet applications compute it on load.
func (s *Session) SetCellFormula(ref, formula string) error {
	return s.set("set_cell_formula", ref, func() (worksheet.Value, error) {
		f, err := checkFormula(formula)
		if err != nil {
			return worksheet.Value{}, err
		}
		return worksheet.Formula(f), nil
	})
}

func (s *Session) set(op, ref string, value func() (worksheet.Value, error)) error {
	doc, err := s.active(op)
	if err != nil {
		return err
	}
	a, err := cellref.Parse(ref)
	if err != nil {
		return s.fail(op, err)
	}
	v, err := value()
	if err != nil {
		return s.fail(op, err)
	}
	if err := doc.Set(a, v); err != nil {
		return s.fail(op, err)
	}
	return nil
}

// SetCellStyle replaces the style index of the cell at ref. The index refers
// to the workbook's cell formats and is not checked.
func (s *Session) SetCellStyle(ref string, style int) error {
	const op = "set_cell_style"
	doc, err := s.active(op)
	if err != nil {
		return err
	}
	a, err := cellref.Parse(ref)
	if err != nil {
		return s.fail(op, err)
	}
	if err := doc.SetStyle(a, style); err != nil {
		return s.fail(op, err)
	}
	return nil
}

// MergeCells merges the range ref, e.g. "A1:C1".
func (s *Session) MergeCells(ref string) error {
	const op = "merge_cells"
	doc, err := s.active(op)
	if err != nil {
		return err
	}
	rng, err := cellref.ParseRange(ref)
	if err != nil {
		return s.fail(op, err)
	}
	if err := doc.MergeCells(rng); err != nil {
		return s.fail(op, err)
	}
	return nil
}

// GetCell returns the displayed text of the cell at ref, or "" when the
// cell is absent.
func (s *Session) GetCell(ref string) (string, error) {
	const op = "get_cell"
	doc, err := s.active(op)
	if err != nil {
		return "", err
	}
	a, err := cellref.Parse(ref)
	if err != nil {
		return "", s.fail(op, err)
	}
	c, ok := doc.Cell(a)
	if !ok {
		return "", nil
	}
	text, err := c.Text(s.sst)
	if err != nil {
		return "", s.fail(op, err)
	}
	return text, nil
}

// NextRow returns the row AppendRow would write to.
func (s *Session) NextRow() (int, error) {
	doc, err := s.active("next_row")
	if err != nil {
		return 0, err
	}
	return doc.NextRow(), nil
}

// LastRowInColumn returns the last row with a value in column col ("A",
// "BC"), or 0 when the column is empty.
func (s *Session) LastRowInColumn(col string) (int, error) {
	const op = "last_row"
	doc, err := s.active(op)
	if err != nil {
		return 0, err
	}
	n, err := cellref.ColumnNumber(col)
	if err != nil {
		return 0, s.fail(op, err)
	}
	return doc.LastRowInColumn(n), nil
}

// LastRowsInColumns returns LastRowInColumn for every column of span
// ("A:D"), keyed by column letters.
func (s *Session) LastRowsInColumns(span string) (map[string]int, error) {
	const op = "last_rows"
	doc, err := s.active(op)
	if err != nil {
		return nil, err
	}
	first, last, err := cellref.ParseColumns(span)
	if err != nil {
		return nil, s.fail(op, err)
	}
	result := make(map[string]int, last-first+1)
	for col := first; col <= last; col++ {
		result[cellref.ColumnName(col)] = doc.LastRowInColumn(col)
	}
	return result, nil
}

// Dimension returns the used range of the active sheet as it will be saved.
func (s *Session) Dimension() (string, error) {
	doc, err := s.active("dimension")
	if err != nil {
		return "", err
	}
	doc.UpdateDimension()
	return doc.Dimension(), nil
}
