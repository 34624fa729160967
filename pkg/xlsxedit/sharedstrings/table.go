// Package sharedstrings implements the workbook-wide shared string table
// (xl/sharedStrings.xml): ordered, deduplicated text values referenced by
// index from worksheet cells.
package sharedstrings

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ukaji3/xlsxedit-go/pkg/xlsxedit/internal/ooxml"
)

// NamespaceMain is the SpreadsheetML main namespace.
const NamespaceMain = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"

// ErrIndexOutOfRange indicates a shared string index beyond the table size.
var ErrIndexOutOfRange = errors.New("shared string index out of range")

// item is one <si> entry. raw is nil for entries added in this session.
type item struct {
	text string
	raw  []byte
}

// Table is an ordered, deduplicated list of strings. Indices are stable
// for the lifetime of the table.
type Table struct {
	prolog []byte
	root   xml.StartElement
	tail   []byte
	items  []item
	index  map[string]int
	count  int
	dirty  bool
}

// New returns an empty table with no backing part.
func New() *Table {
	return &Table{
		prolog: []byte(ooxml.Declaration),
		root: xml.StartElement{
			Name: xml.Name{Local: "sst"},
			Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns"}, Value: NamespaceMain}},
		},
		index: make(map[string]int),
	}
}

// Parse reads an existing shared string part. Entries are kept byte for
// byte; rich-text entries resolve to the concatenation of their runs and
// are never reused by GetOrInsert.
func Parse(data []byte) (*Table, error) {
	data, err := ooxml.ToUTF8(data)
	if err != nil {
		return nil, err
	}

	t := &Table{index: make(map[string]int)}
	s := ooxml.NewScanner(data)
	depth := 0
	var tail bytes.Buffer
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
				t.prolog = data[:tok.Start]
				t.root = el
				continue
			}
			if el.Name.Local != "si" {
				end, err := s.Skip()
				if err != nil {
					return nil, err
				}
				tail.Write(data[tok.Start:end.End])
				depth--
				continue
			}
			text, plain, end, err := readItem(s)
			if err != nil {
				return nil, err
			}
			depth--
			t.add(item{text: text, raw: data[tok.Start:end]}, plain)
		case xml.EndElement:
			depth--
		}
	}
	if t.root.Name.Local == "" {
		return nil, fmt.Errorf("%w: no sst element", ooxml.ErrMalformed)
	}

	t.count = len(t.items)
	if v, ok := ooxml.Attr(t.root, "", "count"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			t.count = n
		}
	}
	t.tail = tail.Bytes()
	return t, nil
}

// readItem consumes an <si> element after its start tag. plain is false for
// rich-text entries (runs).
func readItem(s *ooxml.Scanner) (text string, plain bool, end int, err error) {
	var buf strings.Builder
	plain = true
	depth := 1
	inText := false
	skipping := 0
	for {
		tok, err := s.Next()
		if err != nil {
			if err == io.EOF {
				err = fmt.Errorf("%w: unterminated si", ooxml.ErrMalformed)
			}
			return "", false, 0, err
		}
		switch el := tok.Token.(type) {
		case xml.StartElement:
			depth++
			switch {
			case skipping > 0:
			case el.Name.Local == "rPh" || el.Name.Local == "phoneticPr":
				skipping = depth
			case el.Name.Local == "r" && depth == 2:
				plain = false
			case el.Name.Local == "t":
				inText = true
			}
		case xml.EndElement:
			if skipping == depth {
				skipping = 0
			}
			if el.Name.Local == "t" {
				inText = false
			}
			depth--
			if depth == 0 {
				return buf.String(), plain, tok.End, nil
			}
		case xml.CharData:
			if inText && skipping == 0 {
				buf.Write(el)
			}
		}
	}
}

func (t *Table) add(it item, reusable bool) int {
	i := len(t.items)
	t.items = append(t.items, it)
	if reusable {
		if _, exists := t.index[it.text]; !exists {
			t.index[it.text] = i
		}
	}
	return i
}

// GetOrInsert returns the index of value, appending it when the table does
// not contain it yet. Every call counts as one more reference.
func (t *Table) GetOrInsert(value string) int {
	t.dirty = true
	t.count++
	if i, ok := t.Lookup(value); ok {
		return i
	}
	return t.add(item{text: value}, true)
}

// Lookup returns the index of value without inserting it.
func (t *Table) Lookup(value string) (int, bool) {
	i, ok := t.index[value]
	return i, ok
}

// Resolve returns the text of entry i.
func (t *Table) Resolve(i int) (string, error) {
	if i < 0 || i >= len(t.items) {
		return "", fmt.Errorf("%w: %d (table has %d entries)", ErrIndexOutOfRange, i, len(t.items))
	}
	return t.items[i].text, nil
}

// Len returns the number of unique entries.
func (t *Table) Len() int {
	return len(t.items)
}

// Count returns the total number of references recorded for the table.
func (t *Table) Count() int {
	return t.count
}

// Dirty reports whether the table changed since it was parsed.
func (t *Table) Dirty() bool {
	return t.dirty
}

// Marshal serialises the table. Entries read from the source part are
// written back unchanged; count and uniqueCount are refreshed.
func (t *Table) Marshal() ([]byte, error) {
	root := t.root
	root.Attr = append([]xml.Attr(nil), t.root.Attr...)
	ooxml.SetAttr(&root, "count", strconv.Itoa(max(t.count, len(t.items))))
	ooxml.SetAttr(&root, "uniqueCount", strconv.Itoa(len(t.items)))

	prefix := root.Name.Space
	var buf bytes.Buffer
	buf.Write(t.prolog)
	buf.WriteString(ooxml.StartTag(root, false))
	for _, it := range t.items {
		if it.raw != nil {
			buf.Write(it.raw)
			continue
		}
		writeItem(&buf, prefix, it.text)
	}
	buf.Write(t.tail)
	buf.WriteString("</" + ooxml.Name(prefix, root.Name.Local) + ">")
	return buf.Bytes(), nil
}

func writeItem(buf *bytes.Buffer, prefix, text string) {
	si, tn := ooxml.Name(prefix, "si"), ooxml.Name(prefix, "t")
	buf.WriteString("<" + si + "><" + tn)
	if needsPreserve(text) {
		buf.WriteString(` xml:space="preserve"`)
	}
	buf.WriteByte('>')
	buf.WriteString(ooxml.Escape(text))
	buf.WriteString("</" + tn + "></" + si + ">")
}

func needsPreserve(s string) bool {
	if s == "" {
		return false
	}
	return strings.TrimSpace(s) != s || strings.ContainsAny(s, "\n\r\t")
}
