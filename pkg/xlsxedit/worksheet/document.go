// Package worksheet models one worksheet part as a sparse, ordered grid of
// rows and cells. Everything outside the cell grid, the dimension and the
// merged ranges is kept as raw bytes and written back unchanged.
package worksheet

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/cellref"
	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/internal/ooxml"
)

var (
	// ErrInvalidValue indicates a value that cannot be stored in a cell.
	ErrInvalidValue = errors.New("invalid cell value")
	// ErrMergeOverlap indicates a merged range overlapping an existing one.
	ErrMergeOverlap = errors.New("merged range overlaps an existing merge")
)

// Children of <worksheet> that must come after <mergeCells>.
var afterMergeCells = map[string]bool{
	"phoneticPr":            true,
	"conditionalFormatting": true,
	"dataValidations":       true,
	"hyperlinks":            true,
	"printOptions":          true,
	"pageMargins":           true,
	"pageSetup":             true,
	"headerFooter":          true,
	"rowBreaks":             true,
	"colBreaks":             true,
	"customProperties":      true,
	"cellWatches":           true,
	"ignoredErrors":         true,
	"smartTags":             true,
	"drawing":               true,
	"legacyDrawing":         true,
	"legacyDrawingHF":       true,
	"drawingHF":             true,
	"picture":               true,
	"oleObjects":            true,
	"controls":              true,
	"webPublishItems":       true,
	"tableParts":            true,
	"extLst":                true,
}

const blankSheet = ooxml.Declaration +
	`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" ` +
	`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
	`<dimension ref="A1"/><sheetViews><sheetView workbookViewId="0"/></sheetViews>` +
	`<sheetFormatPr defaultRowHeight="15"/><sheetData/>` +
	`<pageMargins left="0.7" right="0.7" top="0.75" bottom="0.75" header="0.3" footer="0.3"/>` +
	`</worksheet>`

// Document is a parsed worksheet.
type Document struct {
	prefix string

	head      []byte // everything before <sheetData>, dimension removed
	dimAt     int    // insertion offset of <dimension> in head
	dimension string

	sheetDataOpen  []byte
	sheetDataClose []byte
	sheetDataEmpty []byte // source tag when written as <sheetData/>
	rows           []*Row

	tail       []byte // everything after </sheetData>, mergeCells removed
	mergeAt    int    // insertion offset of <mergeCells> in tail
	merges     []cellref.Range
	mergeStart xml.StartElement
	mergeRaw   []byte // source element, valid until merges change

	dirty bool
}

// New returns an empty worksheet.
func New() *Document {
	d, err := Parse([]byte(blankSheet))
	if err != nil {
		panic(err)
	}
	d.dirty = true
	return d
}

// Parse reads a worksheet part.
func Parse(data []byte) (*Document, error) {
	data, err := ooxml.ToUTF8(data)
	if err != nil {
		return nil, err
	}

	d := &Document{}
	s := ooxml.NewScanner(data)

	var (
		rootSeen        bool
		rootTagEnd      int
		rootCloseAt     = -1
		sheetPrEnd      = -1
		dimStart        = -1
		dimEnd          = -1
		sdStart         = -1
		sdEnd           = -1
		mcStart         = -1
		mcEnd           = -1
		firstAfterMerge = -1
		depth           int
	)
	for {
		tok, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.Token.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				if rootSeen {
					return nil, fmt.Errorf("%w: multiple document elements", ooxml.ErrMalformed)
				}
				rootSeen = true
				d.prefix = el.Name.Space
				rootTagEnd = tok.End
				if s.SelfClosing(tok) {
					return nil, fmt.Errorf("%w: worksheet has no sheetData", ooxml.ErrMalformed)
				}
				continue
			}
			if depth != 2 {
				continue
			}
			switch {
			case el.Name.Local == "sheetData":
				sdStart = tok.Start
				d.sheetDataOpen, d.sheetDataClose = openClose(s, tok, el)
				if s.SelfClosing(tok) {
					if _, err := s.Next(); err != nil {
						return nil, err
					}
					d.sheetDataEmpty = data[tok.Start:tok.End]
					sdEnd = tok.End
					break
				}
				end, err := d.readRows(s)
				if err != nil {
					return nil, err
				}
				sdEnd = end
			case el.Name.Local == "dimension" && sdStart < 0:
				dimStart = tok.Start
				d.dimension, _ = ooxml.Attr(el, "", "ref")
				end, err := s.Skip()
				if err != nil {
					return nil, err
				}
				dimEnd = end.End
			case el.Name.Local == "sheetPr" && sdStart < 0:
				end, err := s.Skip()
				if err != nil {
					return nil, err
				}
				sheetPrEnd = end.End
			case el.Name.Local == "mergeCells" && sdEnd >= 0 && mcStart < 0:
				mcStart = tok.Start
				d.mergeStart = el
				end, err := d.readMerges(s, tok)
				if err != nil {
					return nil, err
				}
				mcEnd = end
				d.mergeRaw = data[mcStart:mcEnd]
			default:
				if sdEnd >= 0 && firstAfterMerge < 0 && afterMergeCells[el.Name.Local] {
					firstAfterMerge = tok.Start
				}
				if _, err := s.Skip(); err != nil {
					return nil, err
				}
			}
			depth--
		case xml.EndElement:
			depth--
			if depth == 0 {
				rootCloseAt = tok.Start
			}
		}
	}
	if !rootSeen || sdEnd < 0 {
		return nil, fmt.Errorf("%w: worksheet has no sheetData", ooxml.ErrMalformed)
	}
	if rootCloseAt < sdEnd {
		return nil, fmt.Errorf("%w: unterminated worksheet", ooxml.ErrMalformed)
	}

	if dimStart >= 0 {
		d.head = concat(data[:dimStart], data[dimEnd:sdStart])
		d.dimAt = dimStart
	} else {
		d.head = data[:sdStart]
		d.dimAt = rootTagEnd
		if sheetPrEnd >= 0 {
			d.dimAt = sheetPrEnd
		}
	}

	switch {
	case mcStart >= 0:
		d.tail = concat(data[sdEnd:mcStart], data[mcEnd:])
		d.mergeAt = mcStart - sdEnd
	case firstAfterMerge >= 0:
		d.tail = data[sdEnd:]
		d.mergeAt = firstAfterMerge - sdEnd
	default:
		d.tail = data[sdEnd:]
		d.mergeAt = rootCloseAt - sdEnd
	}
	return d, nil
}

// openClose returns the start and end tags used to write sheetData.
func openClose(s *ooxml.Scanner, tok ooxml.Token, el xml.StartElement) ([]byte, []byte) {
	closeTag := []byte("</" + ooxml.Name(el.Name.Space, el.Name.Local) + ">")
	raw := s.Data()[tok.Start:tok.End]
	if s.SelfClosing(tok) {
		open := bytes.TrimRight(raw[:len(raw)-2], " \t\r\n")
		return append(slices.Clip(open), '>'), closeTag
	}
	return raw, closeTag
}

// readRows consumes the content of <sheetData> and returns the end offset
// of its closing tag.
func (d *Document) readRows(s *ooxml.Scanner) (int, error) {
	prev := 0
	sorted := true
	for {
		tok, err := s.Next()
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("%w: unterminated sheetData", ooxml.ErrMalformed)
			}
			return 0, err
		}
		switch el := tok.Token.(type) {
		case xml.StartElement:
			if el.Name.Local != "row" {
				if _, err := s.Skip(); err != nil {
					return 0, err
				}
				continue
			}
			row, err := readRow(s, tok, el, prev)
			if err != nil {
				return 0, err
			}
			if row.Num <= prev {
				sorted = false
			}
			prev = row.Num
			d.rows = append(d.rows, row)
		case xml.EndElement:
			if !sorted {
				d.normaliseRows()
			}
			return tok.End, nil
		}
	}
}

// normaliseRows sorts rows and merges duplicates. Later cells win.
func (d *Document) normaliseRows() {
	slices.SortStableFunc(d.rows, func(a, b *Row) int { return cmp.Compare(a.Num, b.Num) })
	merged := d.rows[:0]
	for _, r := range d.rows {
		if n := len(merged); n > 0 && merged[n-1].Num == r.Num {
			last := merged[n-1]
			for _, c := range r.Cells {
				last.put(c)
			}
			last.extra = append(last.extra, r.extra...)
			last.raw = nil
			continue
		}
		merged = append(merged, r)
	}
	d.rows = merged
}

func readRow(s *ooxml.Scanner, tok ooxml.Token, el xml.StartElement, prev int) (*Row, error) {
	data := s.Data()
	row := &Row{}
	explicit := true
	for _, a := range el.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == "r":
			n, err := strconv.Atoi(a.Value)
			if err != nil || n < 1 || n > cellref.MaxRows {
				return nil, fmt.Errorf("%w: row number %q", ooxml.ErrMalformed, a.Value)
			}
			row.Num = n
		case a.Name.Space == "" && a.Name.Local == "spans":
		default:
			row.attrs = append(row.attrs, a)
		}
	}
	if row.Num == 0 {
		row.Num = prev + 1
		explicit = false
	}
	if s.SelfClosing(tok) {
		if _, err := s.Next(); err != nil {
			return nil, err
		}
		if explicit {
			row.raw = data[tok.Start:tok.End]
		}
		return row, nil
	}

	clean := explicit
	prevCol := 0
	for {
		t, err := s.Next()
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("%w: unterminated row %d", ooxml.ErrMalformed, row.Num)
			}
			return nil, err
		}
		switch ce := t.Token.(type) {
		case xml.StartElement:
			if ce.Name.Local != "c" {
				end, err := s.Skip()
				if err != nil {
					return nil, err
				}
				row.extra = append(row.extra, data[t.Start:end.End]...)
				continue
			}
			cell, ok, err := readCell(s, t, ce, row.Num, prevCol)
			if err != nil {
				return nil, err
			}
			if !ok || cell.Col <= prevCol {
				clean = false
			}
			if cell.Col <= prevCol {
				row.put(cell)
			} else {
				row.Cells = append(row.Cells, cell)
			}
			prevCol = row.Cells[len(row.Cells)-1].Col
		case xml.EndElement:
			if clean {
				row.raw = data[tok.Start:t.End]
			}
			return row, nil
		}
	}
}

// readCell parses one <c>. ok is false when the cell was written without an
// explicit reference matching its row, which forces the row to be rewritten.
func readCell(s *ooxml.Scanner, tok ooxml.Token, el xml.StartElement, rowNum, prevCol int) (*Cell, bool, error) {
	data := s.Data()
	c := &Cell{}
	ok := true
	for _, a := range el.Attr {
		if a.Name.Space != "" {
			c.attrs = append(c.attrs, a)
			continue
		}
		switch a.Name.Local {
		case "r":
			addr, err := cellref.Parse(a.Value)
			if err != nil {
				return nil, false, fmt.Errorf("%w: cell reference %q", ooxml.ErrMalformed, a.Value)
			}
			c.Col = addr.Col
			if addr.Row != rowNum {
				ok = false
			}
		case "s":
			n, err := strconv.Atoi(a.Value)
			if err != nil || n < 0 {
				return nil, false, fmt.Errorf("%w: style index %q", ooxml.ErrMalformed, a.Value)
			}
			c.Style, c.HasStyle = n, true
		case "t":
			c.typ = a.Value
		default:
			c.attrs = append(c.attrs, a)
		}
	}
	if c.Col == 0 {
		c.Col = prevCol + 1
		ok = false
		if c.Col > cellref.MaxColumns {
			return nil, false, fmt.Errorf("%w: too many cells in row %d", ooxml.ErrMalformed, rowNum)
		}
	}

	if s.SelfClosing(tok) {
		if _, err := s.Next(); err != nil {
			return nil, false, err
		}
		if c.typ == "" || c.typ == "n" {
			c.Value = Empty()
		} else {
			c.Value = Value{Kind: KindOpaque}
		}
		return c, ok, nil
	}

	bodyStart := tok.End
	var children []string
	var v, inline string
	depth := 1
	for depth > 0 {
		t, err := s.Next()
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("%w: unterminated cell", ooxml.ErrMalformed)
			}
			return nil, false, err
		}
		switch ce := t.Token.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				children = append(children, ce.Name.Local)
				switch ce.Name.Local {
				case "v":
					text, _, err := s.Text()
					if err != nil {
						return nil, false, err
					}
					v = text
					depth--
				case "is":
					text, _, err := s.Text("rPh")
					if err != nil {
						return nil, false, err
					}
					inline = text
					depth--
				}
			}
		case xml.EndElement:
			depth--
			if depth == 0 {
				c.body = data[bodyStart:t.Start]
			}
		}
	}

	onlyV := len(children) == 1 && children[0] == "v"
	switch {
	case (len(children) == 0 || onlyV && v == "") && (c.typ == "" || c.typ == "n"):
		c.Value = Empty()
		c.body = nil
	case onlyV && (c.typ == "" || c.typ == "n"):
		c.Value = Value{Kind: KindNumber, Text: v}
		c.body = nil
	case onlyV && c.typ == "s":
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, false, fmt.Errorf("%w: shared string index %q", ooxml.ErrMalformed, v)
		}
		c.Value = Shared(i)
		c.typ, c.body = "", nil
	case c.typ == "inlineStr":
		c.Value = Inline(inline)
	default:
		c.Value = Value{Kind: KindOpaque, Text: v}
	}
	return c, ok, nil
}

func (d *Document) readMerges(s *ooxml.Scanner, tok ooxml.Token) (int, error) {
	if s.SelfClosing(tok) {
		t, err := s.Next()
		if err != nil {
			return 0, err
		}
		return t.End, nil
	}
	depth := 1
	for {
		t, err := s.Next()
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("%w: unterminated mergeCells", ooxml.ErrMalformed)
			}
			return 0, err
		}
		switch el := t.Token.(type) {
		case xml.StartElement:
			depth++
			if el.Name.Local == "mergeCell" {
				ref, _ := ooxml.Attr(el, "", "ref")
				r, err := cellref.ParseRange(ref)
				if err != nil {
					return 0, fmt.Errorf("%w: merge range %q", ooxml.ErrMalformed, ref)
				}
				d.merges = append(d.merges, r)
			}
		case xml.EndElement:
			depth--
			if depth == 0 {
				return t.End, nil
			}
		}
	}
}

// Dirty reports whether the document changed since it was parsed.
func (d *Document) Dirty() bool {
	return d.dirty
}

// Marshal serialises the worksheet. Unmodified rows and every element
// outside the grid are written from the source bytes.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(d.head) + len(d.tail) + 64*len(d.rows))

	buf.Write(d.head[:d.dimAt])
	if d.dimension != "" {
		buf.WriteString(`<` + d.name("dimension") + ` ref="` + ooxml.Escape(d.dimension) + `"/>`)
	}
	buf.Write(d.head[d.dimAt:])

	if len(d.rows) == 0 && d.sheetDataEmpty != nil {
		buf.Write(d.sheetDataEmpty)
	} else {
		buf.Write(d.sheetDataOpen)
		for _, r := range d.rows {
			if err := d.writeRow(&buf, r); err != nil {
				return nil, err
			}
		}
		buf.Write(d.sheetDataClose)
	}

	buf.Write(d.tail[:d.mergeAt])
	d.writeMerges(&buf)
	buf.Write(d.tail[d.mergeAt:])
	return buf.Bytes(), nil
}

func (d *Document) name(local string) string {
	return ooxml.Name(d.prefix, local)
}

func (d *Document) writeRow(buf *bytes.Buffer, r *Row) error {
	if r.raw != nil {
		buf.Write(r.raw)
		return nil
	}
	buf.WriteString("<" + d.name("row") + ` r="` + strconv.Itoa(r.Num) + `"`)
	if len(r.Cells) > 0 {
		buf.WriteString(` spans="` + strconv.Itoa(r.Cells[0].Col) + ":" + strconv.Itoa(r.Cells[len(r.Cells)-1].Col) + `"`)
	}
	ooxml.WriteAttrs(buf, r.attrs)
	if len(r.Cells) == 0 && len(r.extra) == 0 {
		buf.WriteString("/>")
		return nil
	}
	buf.WriteByte('>')
	for _, c := range r.Cells {
		if err := d.writeCell(buf, r.Num, c); err != nil {
			return err
		}
	}
	buf.Write(r.extra)
	buf.WriteString("</" + d.name("row") + ">")
	return nil
}

func (d *Document) writeCell(buf *bytes.Buffer, rowNum int, c *Cell) error {
	addr := cellref.Address{Row: rowNum, Col: c.Col}
	buf.WriteString("<" + d.name("c") + ` r="` + addr.String() + `"`)
	if c.HasStyle {
		buf.WriteString(` s="` + strconv.Itoa(c.Style) + `"`)
	}
	if t := c.Type(); t != "" {
		buf.WriteString(` t="` + ooxml.Escape(t) + `"`)
	}
	ooxml.WriteAttrs(buf, c.attrs)

	switch c.Value.Kind {
	case KindEmpty:
		buf.WriteString("/>")
		return nil
	case KindNumber:
		if c.Value.Text == "" {
			return fmt.Errorf("%w: empty number in %s", ErrInvalidValue, addr)
		}
		buf.WriteString("><" + d.name("v") + ">" + ooxml.Escape(c.Value.Text) + "</" + d.name("v") + ">")
	case KindShared:
		buf.WriteString("><" + d.name("v") + ">" + strconv.Itoa(c.Value.Index) + "</" + d.name("v") + ">")
	case KindInline:
		buf.WriteByte('>')
		if c.body != nil {
			buf.Write(c.body)
			break
		}
		t := d.name("t")
		buf.WriteString("<" + d.name("is") + "><" + t)
		if needsPreserve(c.Value.Text) {
			buf.WriteString(` xml:space="preserve"`)
		}
		buf.WriteString(">" + ooxml.Escape(c.Value.Text) + "</" + t + "></" + d.name("is") + ">")
	case KindFormula:
		buf.WriteString("><" + d.name("f") + ">" + ooxml.Escape(c.Value.Text) + "</" + d.name("f") + ">")
	case KindOpaque:
		if len(c.body) == 0 {
			buf.WriteString("/>")
			return nil
		}
		buf.WriteByte('>')
		buf.Write(c.body)
	}
	buf.WriteString("</" + d.name("c") + ">")
	return nil
}

func (d *Document) writeMerges(buf *bytes.Buffer) {
	if d.mergeRaw != nil {
		buf.Write(d.mergeRaw)
		return
	}
	if len(d.merges) == 0 {
		return
	}
	start := d.mergeStart
	if start.Name.Local == "" {
		start = xml.StartElement{Name: xml.Name{Space: d.prefix, Local: "mergeCells"}}
	}
	start.Attr = append([]xml.Attr(nil), start.Attr...)
	ooxml.SetAttr(&start, "count", strconv.Itoa(len(d.merges)))
	buf.WriteString(ooxml.StartTag(start, false))
	for _, r := range d.merges {
		buf.WriteString("<" + d.name("mergeCell") + ` ref="` + r.String() + `"/>`)
	}
	buf.WriteString("</" + ooxml.Name(start.Name.Space, start.Name.Local) + ">")
}

func needsPreserve(s string) bool {
	if s == "" {
		return false
	}
	first, last := s[0], s[len(s)-1]
	return isSpace(first) || isSpace(last) || strings.ContainsAny(s, "\n\r\t")
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func concat(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
