package inspect

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/models"
)

// Options configures Dump.
type Options struct {
	// IncludeFormulas specifies whether formula text is reported per row.
	// If nil, defaults to true.
	IncludeFormulas *bool
	// IncludePrintAreas specifies whether print areas are reported.
	// If nil, defaults to false.
	IncludePrintAreas *bool
}

// ShouldIncludeFormulas returns whether to report formulas.
func (o Options) ShouldIncludeFormulas() bool {
	if o.IncludeFormulas != nil {
		return *o.IncludeFormulas
	}
	return true
}

// ShouldIncludePrintAreas returns whether to report print areas.
func (o Options) ShouldIncludePrintAreas() bool {
	if o.IncludePrintAreas != nil {
		return *o.IncludePrintAreas
	}
	return false
}

// Dump reads every sheet of the workbook at path.
func Dump(path string, opts Options) (*models.WorkbookData, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	order := f.GetSheetList()
	sheets := make(map[string]models.SheetData, len(order))
	for _, sheetName := range order {
		sheet, err := dumpSheet(f, sheetName, opts)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheetName, err)
		}
		sheets[sheetName] = sheet
	}

	if opts.ShouldIncludePrintAreas() {
		for sheetName, areas := range ExtractPrintAreas(f) {
			if sheet, ok := sheets[sheetName]; ok {
				sheet.PrintAreas = areas
				sheets[sheetName] = sheet
			}
		}
	}

	return &models.WorkbookData{
		BookName:   filepath.Base(path),
		SheetOrder: order,
		Sheets:     sheets,
	}, nil
}

func dumpSheet(f *excelize.File, sheetName string, opts Options) (models.SheetData, error) {
	var sheet models.SheetData

	dim, err := f.GetSheetDimension(sheetName)
	if err != nil {
		return sheet, err
	}
	sheet.Dimension = dim

	rows, err := ExtractRows(f, sheetName, opts.ShouldIncludeFormulas())
	if err != nil {
		return sheet, err
	}
	sheet.Rows = rows

	raw, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return sheet, err
	}
	if rng, ok := DataBounds(raw); ok {
		sheet.DataRange = rng.String()
	}

	merged, err := f.GetMergeCells(sheetName)
	if err != nil {
		return sheet, err
	}
	for _, mc := range merged {
		sheet.Merged = append(sheet.Merged, mc.GetStartAxis()+":"+mc.GetEndAxis())
	}
	return sheet, nil
}
