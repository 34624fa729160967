package ooxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Element is the location of one element inside a part.
type Element struct {
	Start       xml.StartElement
	TagStart    int
	TagEnd      int
	CloseStart  int
	CloseEnd    int
	SelfClosing bool
}

// Prefix returns the namespace prefix the element was written with.
func (e Element) Prefix() string {
	return e.Start.Name.Space
}

// Root returns the document element of data.
func Root(data []byte) (Element, error) {
	el, ok, err := find(data, "", 1)
	if err != nil {
		return Element{}, err
	}
	if !ok {
		return Element{}, fmt.Errorf("%w: no document element", ErrMalformed)
	}
	return el, nil
}

// Find returns the first element whose local name is local.
func Find(data []byte, local string) (Element, bool, error) {
	return find(data, local, 0)
}

// find returns the first element named local (any name when local is empty)
// found at the given depth (any depth when depth is 0).
func find(data []byte, local string, depth int) (Element, bool, error) {
	s := NewScanner(data)
	level := 0
	for {
		t, err := s.Next()
		if err == io.EOF {
			return Element{}, false, nil
		}
		if err != nil {
			return Element{}, false, err
		}
		switch tok := t.Token.(type) {
		case xml.StartElement:
			level++
			if (local == "" || tok.Name.Local == local) && (depth == 0 || level == depth) {
				el := Element{Start: tok, TagStart: t.Start, TagEnd: t.End, SelfClosing: s.SelfClosing(t)}
				end, err := s.Skip()
				if err != nil {
					return Element{}, false, err
				}
				el.CloseStart, el.CloseEnd = end.Start, end.End
				return el, true, nil
			}
		case xml.EndElement:
			level--
		}
	}
}

// AppendChild inserts fragment as the last content of el. A self-closing
// element is expanded into a start and end tag. The rest of data is copied
// unchanged.
func AppendChild(data []byte, el Element, fragment []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data) + len(fragment) + 32)
	if el.SelfClosing {
		tag := bytes.TrimRight(data[el.TagStart:el.TagEnd-2], " \t\r\n")
		buf.Write(data[:el.TagStart])
		buf.Write(tag)
		buf.WriteByte('>')
		buf.Write(fragment)
		buf.WriteString("</")
		buf.WriteString(Name(el.Start.Name.Space, el.Start.Name.Local))
		buf.WriteByte('>')
		buf.Write(data[el.TagEnd:])
		return buf.Bytes()
	}
	return splice(data, el.CloseStart, fragment)
}

// splice returns a copy of data with fragment inserted at offset at.
func splice(data []byte, at int, fragment []byte) []byte {
	out := make([]byte, 0, len(data)+len(fragment))
	out = append(out, data[:at]...)
	out = append(out, fragment...)
	return append(out, data[at:]...)
}

// InsertChild inserts fragment before the index-th child of el whose local
// name is local. When el has fewer such children the fragment is appended.
func InsertChild(data []byte, el Element, local string, index int, fragment []byte) ([]byte, error) {
	if el.SelfClosing {
		return AppendChild(data, el, fragment), nil
	}
	s := NewScanner(data[el.TagEnd:el.CloseStart])
	depth, n := 0, 0
	for {
		t, err := s.Next()
		if err == io.EOF {
			return AppendChild(data, el, fragment), nil
		}
		if err != nil {
			return nil, err
		}
		switch tok := t.Token.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 && tok.Name.Local == local {
				if n == index {
					return splice(data, el.TagEnd+t.Start, fragment), nil
				}
				n++
			}
		case xml.EndElement:
			depth--
		}
	}
}

// Replace returns a copy of data with data[start:end] replaced by text.
func Replace(data []byte, start, end int, text string) []byte {
	out := make([]byte, 0, len(data)-(end-start)+len(text))
	out = append(out, data[:start]...)
	out = append(out, text...)
	return append(out, data[end:]...)
}
