// Package cellref converts between A1-style cell references and numeric
// row/column coordinates.
package cellref

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Sheet limits of the spreadsheet grid.
const (
	MaxColumns = 16384
	MaxRows    = 1048576
)

// ErrInvalidReference indicates a cell or range reference that cannot be parsed.
var ErrInvalidReference = errors.New("invalid cell reference")

// Address is a 1-based cell coordinate.
type Address struct {
	Row int
	Col int
}

// Valid reports whether the address lies inside the sheet grid.
func (a Address) Valid() bool {
	return a.Row >= 1 && a.Row <= MaxRows && a.Col >= 1 && a.Col <= MaxColumns
}

// String returns the canonical A1 form, e.g. "AB12".
func (a Address) String() string {
	return ColumnName(a.Col) + strconv.Itoa(a.Row)
}

// Format returns the canonical A1 form of a.
func Format(a Address) string {
	return a.String()
}

// Parse parses an A1-style reference. Lower-case column letters are
// accepted; absolute markers ("$A$1") are not.
func Parse(ref string) (Address, error) {
	i := 0
	for i < len(ref) && isLetter(ref[i]) {
		i++
	}
	if i == 0 || i > 3 || i == len(ref) {
		return Address{}, invalid(ref)
	}
	for j := i; j < len(ref); j++ {
		if ref[j] < '0' || ref[j] > '9' {
			return Address{}, invalid(ref)
		}
	}

	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %w", ErrInvalidReference, ref, err)
	}
	a := Address{Row: row, Col: col}
	if !a.Valid() {
		return Address{}, invalid(ref)
	}
	return a, nil
}

// MustParse is like Parse but panics on error. Intended for constants in tests.
func MustParse(ref string) Address {
	a, err := Parse(ref)
	if err != nil {
		panic(err)
	}
	return a
}

// ColumnNumber converts column letters ("A", "AB", "XFD") to a 1-based index.
func ColumnNumber(letters string) (int, error) {
	if letters == "" || len(letters) > 3 || !allLetters(letters) {
		return 0, fmt.Errorf("%w: column %q", ErrInvalidReference, letters)
	}
	n, err := excelize.ColumnNameToNumber(letters)
	if err != nil {
		return 0, fmt.Errorf("%w: column %q: %w", ErrInvalidReference, letters, err)
	}
	return n, nil
}

// ColumnName converts a 1-based column index to letters. It returns an empty
// string outside 1..MaxColumns.
func ColumnName(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return ""
	}
	return name
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func allLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) {
			return false
		}
	}
	return true
}

func invalid(ref string) error {
	return fmt.Errorf("%w: %q", ErrInvalidReference, ref)
}
