// Package inspect reads a workbook through excelize, independently of the
// editing engine, to report what a spreadsheet application will see.
package inspect

import (
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/cellref"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/models"
)

// ExtractRows returns the non-empty rows of a sheet. Numeric cells are
// decoded; text cells stay text even when they look like numbers. With
// includeFormulas, cells holding a formula are reported even when they have
// no cached value.
func ExtractRows(f *excelize.File, sheetName string, includeFormulas bool) ([]models.CellRow, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	var formulas map[int]map[string]string
	if includeFormulas {
		if formulas, err = extractFormulas(f, sheetName); err != nil {
			return nil, err
		}
	}

	var result []models.CellRow
	last := len(rows)
	for rowNum := range formulas {
		last = max(last, rowNum)
	}
	for rowNum := 1; rowNum <= last; rowNum++ {
		cellMap := make(map[string]any)
		if rowNum <= len(rows) {
			for colIdx, cellValue := range rows[rowNum-1] {
				if cellValue == "" {
					continue
				}
				cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowNum)
				if err != nil {
					return nil, err
				}
				typ, err := f.GetCellType(sheetName, cellName)
				if err != nil {
					return nil, err
				}
				col, err := excelize.ColumnNumberToName(colIdx + 1)
				if err != nil {
					return nil, err
				}
				switch typ {
				case excelize.CellTypeNumber, excelize.CellTypeUnset:
					cellMap[col] = parseValue(cellValue)
				default:
					cellMap[col] = cellValue
				}
			}
		}

		if len(cellMap) == 0 && len(formulas[rowNum]) == 0 {
			continue
		}
		result = append(result, models.CellRow{R: rowNum, C: cellMap, Formulas: formulas[rowNum]})
	}

	return result, nil
}

// extractFormulas returns formula text by row and column letters for every
// cell inside the declared dimension of the sheet.
func extractFormulas(f *excelize.File, sheetName string) (map[int]map[string]string, error) {
	dim, err := f.GetSheetDimension(sheetName)
	if err != nil {
		return nil, err
	}
	area, ok := parseRangeToArea(dim)
	if !ok {
		// no usable dimension
		return nil, nil
	}

	result := make(map[int]map[string]string)
	for row := area.R1; row <= area.R2; row++ {
		for col := area.C1; col <= area.C2; col++ {
			cellName, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return nil, err
			}
			formula, err := f.GetCellFormula(sheetName, cellName)
			if err != nil {
				return nil, err
			}
			if formula == "" {
				continue
			}
			colName, err := excelize.ColumnNumberToName(col)
			if err != nil {
				return nil, err
			}
			if result[row] == nil {
				result[row] = make(map[string]string)
			}
			result[row][colName] = formula
		}
	}
	return result, nil
}

// parseValue returns int64 for integers, float64 for decimals, or the
// original string.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// DataBounds returns the bounding box of non-empty cells in rows as
// returned by excelize's GetRows. ok is false when every cell is empty.
func DataBounds(rows [][]string) (rng cellref.Range, ok bool) {
	minRow, maxRow, minCol, maxCol := -1, -1, -1, -1
	for rowIdx, row := range rows {
		for colIdx, cell := range row {
			if cell == "" {
				continue
			}
			if minRow < 0 {
				minRow = rowIdx
			}
			maxRow = rowIdx
			if minCol < 0 || colIdx < minCol {
				minCol = colIdx
			}
			maxCol = max(maxCol, colIdx)
		}
	}
	if minRow < 0 {
		return cellref.Range{}, false
	}
	return cellref.NewRange(
		cellref.Address{Row: minRow + 1, Col: minCol + 1},
		cellref.Address{Row: maxRow + 1, Col: maxCol + 1},
	), true
}
