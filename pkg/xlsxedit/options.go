// Package xlsxedit edits spreadsheet workbooks in place: rows and cells are
// added to one worksheet at a time and every part of the package that was
// not edited is written back byte for byte.
package xlsxedit

import (
	"compress/flate"
	"fmt"
)

// Options configures a session.
type Options struct {
	// CompressionLevel is the deflate level used for rewritten parts, from
	// flate.HuffmanOnly to flate.BestCompression. Untouched entries keep
	// their original compression.
	CompressionLevel int
	// ValidateSharedStrings checks, when a sheet is selected, that every
	// shared string reference in it resolves.
	// If nil, defaults to true.
	ValidateSharedStrings *bool
}

// DefaultOptions returns default session options.
func DefaultOptions() Options {
	return Options{
		CompressionLevel: flate.BestSpeed,
	}
}

// ShouldValidateSharedStrings returns whether shared string references are
// checked when a sheet is selected.
func (o Options) ShouldValidateSharedStrings() bool {
	if o.ValidateSharedStrings != nil {
		return *o.ValidateSharedStrings
	}
	return true
}

func (o Options) validate() error {
	if o.CompressionLevel < flate.HuffmanOnly || o.CompressionLevel > flate.BestCompression {
		return fmt.Errorf("%w: compression level %d", ErrInvalidOptions, o.CompressionLevel)
	}
	return nil
}
