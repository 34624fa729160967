package cellref

import (
	"fmt"
	"strings"
)

// Range is a rectangular block of cells. From is the top-left corner and To
// the bottom-right corner.
type Range struct {
	From Address
	To   Address
}

// ParseRange parses "B2:D4" or a single-cell reference "B2". The corners are
// normalised so that From is the top-left cell.
func ParseRange(ref string) (Range, error) {
	first, second, found := strings.Cut(ref, ":")
	a, err := Parse(first)
	if err != nil {
		return Range{}, err
	}
	if !found {
		return Range{From: a, To: a}, nil
	}
	b, err := Parse(second)
	if err != nil {
		return Range{}, err
	}
	return NewRange(a, b), nil
}

// NewRange builds a normalised range from two opposite corners.
func NewRange(a, b Address) Range {
	return Range{
		From: Address{Row: min(a.Row, b.Row), Col: min(a.Col, b.Col)},
		To:   Address{Row: max(a.Row, b.Row), Col: max(a.Col, b.Col)},
	}
}

// String returns "B2:D4", or "B2" for a single cell.
func (r Range) String() string {
	if r.From == r.To {
		return r.From.String()
	}
	return r.From.String() + ":" + r.To.String()
}

// Single reports whether the range covers exactly one cell.
func (r Range) Single() bool {
	return r.From == r.To
}

// Contains reports whether a lies inside r.
func (r Range) Contains(a Address) bool {
	return a.Row >= r.From.Row && a.Row <= r.To.Row &&
		a.Col >= r.From.Col && a.Col <= r.To.Col
}

// Overlaps reports whether r and o share at least one cell.
func (r Range) Overlaps(o Range) bool {
	return r.From.Row <= o.To.Row && o.From.Row <= r.To.Row &&
		r.From.Col <= o.To.Col && o.From.Col <= r.To.Col
}

// Union returns the smallest range covering both r and o.
func (r Range) Union(o Range) Range {
	return Range{
		From: Address{Row: min(r.From.Row, o.From.Row), Col: min(r.From.Col, o.From.Col)},
		To:   Address{Row: max(r.To.Row, o.To.Row), Col: max(r.To.Col, o.To.Col)},
	}
}

// ParseColumns parses a column span such as "A:D" or a single column "C"
// and returns the 1-based first and last column.
func ParseColumns(span string) (first, last int, err error) {
	a, b, found := strings.Cut(span, ":")
	first, err = ColumnNumber(a)
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return first, first, nil
	}
	last, err = ColumnNumber(b)
	if err != nil {
		return 0, 0, err
	}
	if last < first {
		return 0, 0, fmt.Errorf("%w: column span %q", ErrInvalidReference, span)
	}
	return first, last, nil
}
