package models

// SheetData represents the contents of a single sheet.
type SheetData struct {
	// Dimension is the used range declared by the sheet part.
	Dimension string `json:"dimension,omitempty"`
	// DataRange is the bounding box of non-empty cells.
	DataRange string `json:"data_range,omitempty"`
	// Rows contains non-empty rows.
	Rows []CellRow `json:"rows,omitempty"`
	// Merged contains merged cell ranges such as "A1:C1".
	Merged []string `json:"merged,omitempty"`
	// PrintAreas contains user-defined print areas.
	PrintAreas []PrintArea `json:"print_areas,omitempty"`
}

// PrintArea is one range of the sheet's print area, in 1-based inclusive
// coordinates.
type PrintArea struct {
	Ref string `json:"ref"`
	R1  int    `json:"r1"`
	C1  int    `json:"c1"`
	R2  int    `json:"r2"`
	C2  int    `json:"c2"`
}
