// Package models defines the JSON view of a workbook produced by the dump command.
package models

// CellRow represents a single row of non-empty cells.
type CellRow struct {
	// R is the row index (1-based).
	R int `json:"r"`
	// C maps column letters to cell value. Numbers are decoded, everything
	// else is kept as text.
	C map[string]any `json:"c"`
	// Formulas maps column letters to formula text (optional).
	Formulas map[string]string `json:"formulas,omitempty"`
}
