// Package ooxml holds the low-level XML helpers shared by the part parsers:
// a raw token scanner that records byte offsets, escaping, and splicing of
// new children into existing parts without re-encoding them.
package ooxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
)

// ErrMalformed is returned when a part cannot be tokenised.
var ErrMalformed = errors.New("malformed xml")

// Token is a raw XML token together with its byte span in the source.
// Namespace prefixes are kept as written: Name.Space holds the prefix.
type Token struct {
	xml.Token
	Start int
	End   int
}

// Scanner walks a part with xml.Decoder.RawToken and records where every
// token starts and ends, so unmodified regions can be copied verbatim.
type Scanner struct {
	data []byte
	dec  *xml.Decoder
}

// NewScanner creates a scanner over UTF-8 encoded data. See ToUTF8.
func NewScanner(data []byte) *Scanner {
	return &Scanner{data: data, dec: xml.NewDecoder(bytes.NewReader(data))}
}

// Data returns the bytes being scanned.
func (s *Scanner) Data() []byte {
	return s.data
}

// Next returns the next token. It returns io.EOF at the end of input.
func (s *Scanner) Next() (Token, error) {
	start := int(s.dec.InputOffset())
	tok, err := s.dec.RawToken()
	if err == io.EOF {
		return Token{}, io.EOF
	}
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Token{Token: xml.CopyToken(tok), Start: start, End: int(s.dec.InputOffset())}, nil
}

// SelfClosing reports whether the start element token was written as <x/>.
// RawToken still emits a zero-width EndElement for it.
func (s *Scanner) SelfClosing(t Token) bool {
	return t.End >= 2 && s.data[t.End-2] == '/'
}

// Skip consumes tokens until the element whose start tag was just returned
// is closed, and returns its closing tag.
func (s *Scanner) Skip() (Token, error) {
	depth := 1
	for {
		t, err := s.Next()
		if err == io.EOF {
			return Token{}, fmt.Errorf("%w: unexpected end of document", ErrMalformed)
		}
		if err != nil {
			return Token{}, err
		}
		switch t.Token.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
			if depth == 0 {
				return t, nil
			}
		}
	}
}

// Text consumes the content of the current element and returns the
// concatenated character data of its direct and nested text nodes, except
// for children whose local name is in skip.
func (s *Scanner) Text(skip ...string) (string, int, error) {
	var buf bytes.Buffer
	depth := 1
	skipping := 0
	for {
		t, err := s.Next()
		if err == io.EOF {
			return "", 0, fmt.Errorf("%w: unexpected end of document", ErrMalformed)
		}
		if err != nil {
			return "", 0, err
		}
		switch tok := t.Token.(type) {
		case xml.StartElement:
			depth++
			if skipping == 0 && slices.Contains(skip, tok.Name.Local) {
				skipping = depth
			}
		case xml.EndElement:
			if skipping == depth {
				skipping = 0
			}
			depth--
			if depth == 0 {
				return buf.String(), t.End, nil
			}
		case xml.CharData:
			if skipping == 0 {
				buf.Write(tok)
			}
		}
	}
}

// Attr returns the value of the attribute with the given local name and
// prefix ("" for unprefixed).
func Attr(se xml.StartElement, prefix, local string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Space == prefix && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// PrefixFor returns the prefix bound to namespace uri by the xmlns
// declarations of se. ok is false when no declaration matches.
func PrefixFor(se xml.StartElement, uri string) (prefix string, ok bool) {
	for _, a := range se.Attr {
		if a.Value != uri {
			continue
		}
		if a.Name.Space == "xmlns" {
			return a.Name.Local, true
		}
		if a.Name.Space == "" && a.Name.Local == "xmlns" {
			return "", true
		}
	}
	return "", false
}
