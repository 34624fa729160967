package inspect

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/models"
)

const printAreaName = "_xlnm.Print_Area"

// ExtractPrintAreas returns the print areas of a workbook keyed by sheet name.
func ExtractPrintAreas(f *excelize.File) map[string][]models.PrintArea {
	result := make(map[string][]models.PrintArea)
	for _, dn := range f.GetDefinedName() {
		if !strings.EqualFold(dn.Name, printAreaName) {
			continue
		}
		sheetName, areas := parsePrintAreaReference(dn.RefersTo)
		if sheetName == "" {
			sheetName = dn.Scope
		}
		if sheetName != "" && len(areas) > 0 {
			result[sheetName] = append(result[sheetName], areas...)
		}
	}
	return result
}

// parsePrintAreaReference splits a reference such as
// 'My Sheet'!$A$1:$D$10,'My Sheet'!$F$1:$G$4 into the sheet name and its
// ranges. Ranges that do not parse are skipped.
func parsePrintAreaReference(ref string) (string, []models.PrintArea) {
	var (
		sheetName string
		areas     []models.PrintArea
	)
	for _, part := range strings.Split(ref, ",") {
		part = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "="))
		idx := strings.LastIndex(part, "!")
		if idx < 0 {
			continue
		}
		if sheetName == "" {
			sheetName = unquoteSheet(part[:idx])
		}
		if area, ok := parseRangeToArea(part[idx+1:]); ok {
			areas = append(areas, area)
		}
	}
	return sheetName, areas
}

// parseRangeToArea parses a range such as $A$1:$D$10. A single cell is an
// area of one cell. Corners are normalised to top-left and bottom-right.
func parseRangeToArea(rangeStr string) (models.PrintArea, bool) {
	rangeStr = strings.ReplaceAll(rangeStr, "$", "")
	first, second, found := strings.Cut(rangeStr, ":")
	if !found {
		second = first
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(first)
	if err != nil {
		return models.PrintArea{}, false
	}
	endCol, endRow, err := excelize.CellNameToCoordinates(second)
	if err != nil {
		return models.PrintArea{}, false
	}
	if startCol > endCol {
		startCol, endCol = endCol, startCol
	}
	if startRow > endRow {
		startRow, endRow = endRow, startRow
	}

	ref, err := excelize.CoordinatesToCellName(startCol, startRow)
	if err != nil {
		return models.PrintArea{}, false
	}
	if startCol != endCol || startRow != endRow {
		end, err := excelize.CoordinatesToCellName(endCol, endRow)
		if err != nil {
			return models.PrintArea{}, false
		}
		ref += ":" + end
	}
	return models.PrintArea{Ref: ref, R1: startRow, C1: startCol, R2: endRow, C2: endCol}, true
}

func unquoteSheet(name string) string {
	if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
		return strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}
