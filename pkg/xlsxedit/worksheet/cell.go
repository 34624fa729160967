package worksheet

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies what a cell holds.
type Kind int

const (
	// KindEmpty is a cell with no value, usually present only for its style.
	KindEmpty Kind = iota
	// KindNumber is a numeric literal stored in <v>.
	KindNumber
	// KindShared is an index into the shared string table (t="s").
	KindShared
	// KindInline is an inline string (t="inlineStr").
	KindInline
	// KindFormula is a formula written in this session. No cached result is stored.
	KindFormula
	// KindOpaque is any other payload read from the source (formulas,
	// booleans, errors, str cells). It is written back unchanged.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNumber:
		return "number"
	case KindShared:
		return "shared"
	case KindInline:
		return "inline"
	case KindFormula:
		return "formula"
	case KindOpaque:
		return "opaque"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the content assigned to a cell.
type Value struct {
	Kind  Kind
	Text  string // numeric literal, inline text or formula
	Index int    // shared string index
}

// Number returns a numeric value. NaN and infinities are rejected.
func Number(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, f)
	}
	return Value{Kind: KindNumber, Text: strconv.FormatFloat(f, 'g', -1, 64)}, nil
}

// Shared returns a value referencing shared string i.
func Shared(i int) Value {
	return Value{Kind: KindShared, Index: i}
}

// Inline returns an inline string value.
func Inline(s string) Value {
	return Value{Kind: KindInline, Text: s}
}

// Formula returns a formula value. The text is stored without a leading '='.
func Formula(f string) Value {
	return Value{Kind: KindFormula, Text: f}
}

// Empty returns the empty value.
func Empty() Value {
	return Value{}
}

// Cell is one <c> element.
type Cell struct {
	Col      int
	Style    int
	HasStyle bool
	Value    Value

	typ   string     // t attribute as read
	attrs []xml.Attr // attributes other than r, s and t
	body  []byte     // raw content for opaque and parsed inline cells
}

// Resolver maps shared string indices to text.
type Resolver interface {
	Resolve(i int) (string, error)
}

// Text returns the displayed text of the cell. Shared strings are looked up
// through r; formulas written in this session have no cached text.
func (c *Cell) Text(r Resolver) (string, error) {
	switch c.Value.Kind {
	case KindShared:
		if r == nil {
			return "", fmt.Errorf("no shared string table for index %d", c.Value.Index)
		}
		return r.Resolve(c.Value.Index)
	case KindFormula, KindEmpty:
		return "", nil
	default:
		return c.Value.Text, nil
	}
}

// Type returns the t attribute the cell will be written with.
func (c *Cell) Type() string {
	switch c.Value.Kind {
	case KindShared:
		return "s"
	case KindInline:
		return "inlineStr"
	case KindNumber, KindOpaque:
		return c.typ
	default:
		return ""
	}
}

func (c *Cell) assign(v Value) {
	c.Value = v
	c.typ = ""
	c.body = nil
	// value metadata refers to the old payload
	kept := c.attrs[:0]
	for _, a := range c.attrs {
		if a.Name.Space == "" && (a.Name.Local == "cm" || a.Name.Local == "vm") {
			continue
		}
		kept = append(kept, a)
	}
	c.attrs = kept
}

// Row is one <row> element. Cells are kept sorted by column.
type Row struct {
	Num   int
	Cells []*Cell

	attrs []xml.Attr // attributes other than r and spans
	extra []byte     // non-cell children, written after the cells
	raw   []byte     // source bytes, valid until the row is modified
}

// Dirty reports whether the row must be re-serialised.
func (r *Row) Dirty() bool {
	return r.raw == nil
}
