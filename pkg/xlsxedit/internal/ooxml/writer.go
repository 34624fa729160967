package ooxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Declaration is the XML declaration written at the top of generated parts.
const Declaration = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Escape returns s escaped for use in character data or attribute values.
// Characters that are not legal in XML are replaced with U+FFFD.
func Escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Name joins an optional prefix and a local name.
func Name(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}

// WriteAttrs appends attrs to buf in the form ` p:name="value"`.
func WriteAttrs(buf *bytes.Buffer, attrs []xml.Attr) {
	for _, a := range attrs {
		buf.WriteByte(' ')
		buf.WriteString(Name(a.Name.Space, a.Name.Local))
		buf.WriteString(`="`)
		buf.WriteString(Escape(a.Value))
		buf.WriteByte('"')
	}
}

// StartTag renders a start tag. attrs are written in order.
func StartTag(se xml.StartElement, selfClose bool) string {
	var buf bytes.Buffer
	buf.WriteByte('<')
	buf.WriteString(Name(se.Name.Space, se.Name.Local))
	WriteAttrs(&buf, se.Attr)
	if selfClose {
		buf.WriteString("/>")
	} else {
		buf.WriteByte('>')
	}
	return buf.String()
}

// SetAttr replaces or appends the unprefixed attribute local on se.
func SetAttr(se *xml.StartElement, local, value string) {
	for i, a := range se.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			se.Attr[i].Value = value
			return
		}
	}
	se.Attr = append(se.Attr, xml.Attr{Name: xml.Name{Local: local}, Value: value})
}

// ToUTF8 returns data transcoded to UTF-8. Parts already in UTF-8 are
// returned unchanged apart from a leading byte order mark. For transcoded
// parts the declaration is rewritten to name UTF-8.
func ToUTF8(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF8) {
		return data[len(bomUTF8):], nil
	}
	var label string
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		label = "utf-16le"
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		label = "utf-16be"
	default:
		label = declaredEncoding(data)
		if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
			return data, nil
		}
	}

	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out = bytes.TrimPrefix(out, bomUTF8)
	return rewriteEncoding(out), nil
}

// declaredEncoding returns the encoding pseudo-attribute of the XML
// declaration, or "" when there is none.
func declaredEncoding(data []byte) string {
	decl, ok := declaration(data)
	if !ok {
		return ""
	}
	i := bytes.Index(decl, []byte("encoding"))
	if i < 0 {
		return ""
	}
	rest := bytes.TrimLeft(decl[i+len("encoding"):], " \t\r\n")
	rest, ok = bytes.CutPrefix(rest, []byte("="))
	if !ok {
		return ""
	}
	rest = bytes.TrimLeft(rest, " \t\r\n")
	if len(rest) == 0 || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	q := rest[0]
	end := bytes.IndexByte(rest[1:], q)
	if end < 0 {
		return ""
	}
	return string(rest[1 : end+1])
}

func declaration(data []byte) ([]byte, bool) {
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		return nil, false
	}
	end := bytes.Index(data, []byte("?>"))
	if end < 0 {
		return nil, false
	}
	return data[:end+2], true
}

func rewriteEncoding(data []byte) []byte {
	decl, ok := declaration(data)
	if !ok {
		return data
	}
	label := declaredEncoding(data)
	if label == "" {
		return data
	}
	base := bytes.Index(decl, []byte("encoding"))
	i := base + bytes.Index(decl[base:], []byte(label))
	out := make([]byte, 0, len(data))
	out = append(out, decl[:i]...)
	out = append(out, "UTF-8"...)
	out = append(out, data[i+len(label):]...)
	return out
}
